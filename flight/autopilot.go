// flight/autopilot.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"log/slog"

	"github.com/aloft-sim/aloft/math"
)

const (
	// Altitude-hold gains. Error is in meters, output is a pitch
	// command in radians, so the gains are small.
	altKp            = 0.002
	altKi            = 0.0004
	altKd            = 0.003
	altIntegralLimit = 150 // meter-seconds
	altOutputLimit   = 0.5 // radians

	// The pitch command is rate-limited before being folded into the
	// state, radians/second.
	maxPitchRate = 0.35

	// Capture: once within altCaptureTolerance meters of the target
	// with near-zero vertical speed, the integral bleeds off at
	// integralBleedRate instead of being zeroed outright.
	altCaptureTolerance = 15
	captureVSTolerance  = 1
	integralBleedRate   = 0.8

	// Heading-hold: proportional turn-rate command, clamped.
	headingKp   = 0.8  // (radians/second) per radian of error
	maxTurnRate = 0.25 // radians/second

	// Cosmetic bank, proportional to heading error and capped; eased
	// toward its target rather than snapped.
	maxBank       = 15 * math.Pi / 180
	bankSmoothing = 4 // 1/second

	// Vertical-nav nudges pitch and thrust toward the target by these
	// rates while outside its capture tolerance.
	vnavCaptureTolerance = 30   // meters
	vnavPitchRate        = 0.1  // radians/second
	vnavThrustRate       = 0.15 // fraction/second

	// Safety disengage thresholds for ground contact.
	maxGroundBank  = 5 * math.Pi / 180
	maxGroundPitch = 3 * math.Pi / 180
)

// Autopilot layers closed-loop control on top of whatever the pilot is
// doing. Axis modes are independent and composable; the master Enabled
// flag gates all of them. It runs after the dynamics each tick, so its
// corrections are what the camera and pose sink see.
type Autopilot struct {
	Enabled bool `json:"enabled"`

	AltitudeHold bool `json:"altitude_hold"`
	HeadingHold  bool `json:"heading_hold"`
	VerticalNav  bool `json:"vertical_nav"`

	TargetAltitude float32 `json:"target_altitude"` // meters MSL
	TargetHeading  float32 `json:"target_heading"`  // radians

	altPID PID
	bank   float32 // smoothed cosmetic bank, radians
}

func NewAutopilot() *Autopilot {
	return &Autopilot{
		altPID: PID{
			Kp: altKp, Ki: altKi, Kd: altKd,
			IntegralLimit: altIntegralLimit,
			OutputLimit:   altOutputLimit,
		},
	}
}

// Engage turns the autopilot on, capturing the current altitude and
// heading as targets. Accumulator state from any previous engagement
// is discarded.
func (ap *Autopilot) Engage(s *State) {
	ap.Enabled = true
	ap.AltitudeHold = true
	ap.HeadingHold = true
	ap.VerticalNav = false
	ap.TargetAltitude = s.Altitude
	ap.TargetHeading = s.Heading
	ap.altPID.Reset()
	ap.bank = s.Roll
}

// Disengage hands control back to the pilot. Targets are kept so they
// can be displayed; they take effect again only on the next Engage or
// SetTarget call.
func (ap *Autopilot) Disengage() {
	ap.Enabled = false
}

// SetTargetAltitude sets the altitude target and enables
// altitude-hold.
func (ap *Autopilot) SetTargetAltitude(alt float32) {
	ap.TargetAltitude = alt
	ap.AltitudeHold = true
}

// SetTargetHeading sets the heading target (radians) and enables
// heading-hold.
func (ap *Autopilot) SetTargetHeading(hdg float32) {
	ap.TargetHeading = math.NormalizeHeading(hdg)
	ap.HeadingHold = true
}

// SetVerticalNav switches between plain altitude-hold and the
// vertical-nav climb/descend behavior for reaching the target.
func (ap *Autopilot) SetVerticalNav(on bool) {
	ap.VerticalNav = on
	ap.AltitudeHold = !on
}

// Update applies one tick of autopilot control to the state. With the
// master flag off it touches nothing, so engage-then-disengage leaves
// no residue in manual flight.
func (ap *Autopilot) Update(s *State, p Profile, dt float32) {
	if !ap.Enabled {
		return
	}

	// On the ground the pilot is steering; if the attitude says ground
	// handling is underway, get out of the way entirely.
	if s.OnGround && (math.Abs(s.Roll) > maxGroundBank || math.Abs(s.Pitch) > maxGroundPitch) {
		ap.Disengage()
		return
	}

	if ap.AltitudeHold {
		ap.updateAltitude(s, p, dt)
	}
	if ap.VerticalNav {
		ap.updateVerticalNav(s, p, dt)
	}
	if ap.HeadingHold {
		ap.updateHeading(s, dt)
	}
}

func (ap *Autopilot) updateAltitude(s *State, p Profile, dt float32) {
	err := ap.TargetAltitude - s.Altitude
	if math.Abs(err) < altCaptureTolerance && math.Abs(s.VerticalSpeed) < captureVSTolerance {
		ap.altPID.BleedIntegral(integralBleedRate, dt)
	}
	u := ap.altPID.Update(err, dt)

	// Positive error means the target is above us; flying toward it
	// raises the nose, which is negative pitch.
	delta := math.Clamp(-u-s.Pitch, -maxPitchRate*dt, maxPitchRate*dt)
	s.Pitch = math.Clamp(s.Pitch+delta, -p.MaxPitch, p.MaxPitch)
}

func (ap *Autopilot) updateHeading(s *State, dt float32) {
	turn := math.HeadingSignedTurn(s.Heading, ap.TargetHeading)
	rate := math.Clamp(headingKp*turn, -maxTurnRate, maxTurnRate)
	s.Heading = math.NormalizeHeading(s.Heading + rate*dt)

	// Bank into the turn for the camera's benefit: a left turn
	// (positive turn error) drops the left wing, which is negative
	// roll.
	target := -math.Clamp(turn, -maxBank, maxBank)
	ap.bank += (target - ap.bank) * min(1, bankSmoothing*dt)
	s.Roll = ap.bank
}

func (ap *Autopilot) updateVerticalNav(s *State, p Profile, dt float32) {
	err := ap.TargetAltitude - s.Altitude
	if math.Abs(err) <= vnavCaptureTolerance {
		return
	}
	dir := math.Copysign(1, err) // +1 climbs
	s.Pitch = math.Clamp(s.Pitch-dir*vnavPitchRate*dt, -p.MaxPitch, p.MaxPitch)
	s.Thrust = math.Clamp(s.Thrust+dir*vnavThrustRate*dt, 0, 1)
}

func (ap *Autopilot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", ap.Enabled),
		slog.Bool("altitude_hold", ap.AltitudeHold),
		slog.Bool("heading_hold", ap.HeadingHold),
		slog.Bool("vertical_nav", ap.VerticalNav),
		slog.Float64("target_altitude", float64(ap.TargetAltitude)),
		slog.Float64("target_heading", float64(math.Degrees(ap.TargetHeading))),
		slog.Any("altitude_pid", ap.altPID))
}
