// flight/pid.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"log/slog"

	"github.com/aloft-sim/aloft/math"
)

// minPIDDt floors the dt used for the derivative so a stalled clock
// can't blow the term up.
const minPIDDt = 1e-3

// PID is a textbook proportional/integral/derivative controller for a
// single axis. The integral is clamped to IntegralLimit and the final
// output to OutputLimit; both limits are symmetric about zero.
type PID struct {
	Kp, Ki, Kd    float32
	IntegralLimit float32
	OutputLimit   float32

	integral  float32
	lastError float32
}

// Update advances the controller by dt seconds and returns the
// clamped control output for the given error.
func (pid *PID) Update(err, dt float32) float32 {
	dt = max(dt, minPIDDt)

	pid.integral = math.Clamp(pid.integral+err*dt, -pid.IntegralLimit, pid.IntegralLimit)
	derivative := (err - pid.lastError) / dt
	pid.lastError = err

	out := pid.Kp*err + pid.Ki*pid.integral + pid.Kd*derivative
	return math.Clamp(out, -pid.OutputLimit, pid.OutputLimit)
}

// Reset clears the accumulator state. Call it when the controller is
// (re-)engaged so stale history from a previous capture doesn't leak
// into the new one.
func (pid *PID) Reset() {
	pid.integral = 0
	pid.lastError = 0
}

// BleedIntegral decays the integral term exponentially at the given
// rate (1/second). Used once a target is captured, where zeroing the
// accumulator outright would step the output.
func (pid *PID) BleedIntegral(rate, dt float32) {
	pid.integral *= math.Exp(-rate * dt)
}

func (pid PID) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("integral", float64(pid.integral)),
		slog.Float64("last_error", float64(pid.lastError)))
}
