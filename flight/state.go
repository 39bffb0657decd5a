// flight/state.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"log/slog"

	"github.com/aloft-sim/aloft/math"
)

// State is the single aircraft record that the per-tick pipeline reads
// and mutates. The simulation loop owns it; everyone else sees copies.
//
// Angle conventions: Heading is radians in [0,2pi), measured from east
// toward north. Negative Pitch is nose up; positive Roll drops the
// right wing. All three stay in State between ticks, so control input
// integrates across frames rather than being a per-frame pose.
type State struct {
	Position math.Point2LL `json:"position"`
	Altitude float32       `json:"altitude"` // meters MSL

	Heading float32 `json:"heading"` // radians
	Pitch   float32 `json:"pitch"`   // radians, negative is nose up
	Roll    float32 `json:"roll"`    // radians, positive is right wing down

	Speed         float32 `json:"speed"`          // forward, meters/second, never negative
	VerticalSpeed float32 `json:"vertical_speed"` // meters/second, signed
	Thrust        float32 `json:"thrust"`         // normalized [0,1]

	OnGround bool `json:"on_ground"`
}

// Orientation returns the attitude as a quaternion suitable for
// handing to a renderer; it bakes in the heading/pitch/roll sign
// conventions documented on State.
func (s *State) Orientation() math.Quaternion {
	return math.HPRQuaternion(s.Heading, s.Pitch, s.Roll)
}

// Forward returns the unit direction of travel in local east/north/up
// coordinates. On the ground the vertical component is suppressed so
// that a taxiing aircraft tracks the surface.
func (s *State) Forward() [3]float32 {
	elevation := float32(0)
	if !s.OnGround {
		elevation = -s.Pitch
	}
	return math.DirectionENU(s.Heading, elevation)
}

func (s State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("position", s.Position),
		slog.Float64("altitude", float64(s.Altitude)),
		slog.Float64("heading", float64(math.Degrees(s.Heading))),
		slog.Float64("pitch", float64(math.Degrees(s.Pitch))),
		slog.Float64("roll", float64(math.Degrees(s.Roll))),
		slog.Float64("speed", float64(s.Speed)),
		slog.Float64("vertical_speed", float64(s.VerticalSpeed)),
		slog.Float64("thrust", float64(s.Thrust)),
		slog.Bool("on_ground", s.OnGround))
}
