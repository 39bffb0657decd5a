// flight/profile.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"errors"
	"fmt"

	"github.com/aloft-sim/aloft/math"
)

var (
	ErrInvalidProfile = errors.New("invalid aircraft profile")
	ErrUnknownProfile = errors.New("unknown aircraft profile")
)

// Profile collects the performance constants for one aircraft model.
// The dynamics are deliberately arcade-simple, so a handful of
// coefficients is all that distinguishes a trainer from a jet.
type Profile struct {
	Name string `json:"name"`

	// MaxThrustAccel is the forward acceleration at full thrust,
	// meters/second^2. Drag is linear in speed with coefficient
	// DragCoeff (1/second), so MaxThrustAccel/DragCoeff is the
	// terminal speed at full thrust.
	MaxThrustAccel float32 `json:"max_thrust_accel"`
	DragCoeff      float32 `json:"drag_coeff"`

	// LiftCoeff scales lift, which grows with forward speed and with
	// how far the nose is raised. Sized so that level flight at cruise
	// takes a few degrees of nose-up trim.
	LiftCoeff float32 `json:"lift_coeff"`

	// GearClearance is the height of the aircraft reference point
	// above the surface when it is sitting on its gear, meters.
	GearClearance float32 `json:"gear_clearance"`

	// MaxPitch and MaxRoll bound the attitude, radians.
	MaxPitch float32 `json:"max_pitch"`
	MaxRoll  float32 `json:"max_roll"`

	// Below StictionSpeed (meters/second) a grounded aircraft gets an
	// extra BreakawayAccel (meters/second^2) once thrust is applied,
	// so taxiing from a standstill doesn't feel glued to the pavement.
	StictionSpeed  float32 `json:"stiction_speed"`
	BreakawayAccel float32 `json:"breakaway_accel"`
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return ErrInvalidProfile
	}
	for _, v := range []struct {
		name  string
		value float32
	}{
		{"max_thrust_accel", p.MaxThrustAccel},
		{"drag_coeff", p.DragCoeff},
		{"lift_coeff", p.LiftCoeff},
		{"gear_clearance", p.GearClearance},
		{"max_pitch", p.MaxPitch},
		{"max_roll", p.MaxRoll},
	} {
		if !(v.value > 0) || !math.IsFinite(v.value) {
			return fmt.Errorf("%s %v: %w", v.name, v.value, ErrInvalidProfile)
		}
	}
	if p.StictionSpeed < 0 || p.BreakawayAccel < 0 {
		return fmt.Errorf("stiction %v/%v: %w", p.StictionSpeed, p.BreakawayAccel, ErrInvalidProfile)
	}
	return nil
}

// DefaultProfile returns the trainer that is flown when no scenario
// overrides it.
func DefaultProfile() Profile {
	return Profile{
		Name:           "trainer",
		MaxThrustAccel: 8,
		DragCoeff:      0.02,
		LiftCoeff:      1.6,
		GearClearance:  1.2,
		MaxPitch:       math.Pi / 3,
		MaxRoll:        math.Pi / 3,
		StictionSpeed:  2,
		BreakawayAccel: 1.5,
	}
}

// BuiltinProfiles returns the stock aircraft, in presentation order.
func BuiltinProfiles() []Profile {
	jet := Profile{
		Name:           "jet",
		MaxThrustAccel: 22,
		DragCoeff:      0.035,
		LiftCoeff:      1.1,
		GearClearance:  2.4,
		MaxPitch:       math.Pi / 3,
		MaxRoll:        1.2,
		StictionSpeed:  3,
		BreakawayAccel: 2.5,
	}
	glider := Profile{
		Name:           "glider",
		MaxThrustAccel: 1.5,
		DragCoeff:      0.008,
		LiftCoeff:      2.6,
		GearClearance:  0.7,
		MaxPitch:       math.Pi / 4,
		MaxRoll:        math.Pi / 4,
		StictionSpeed:  1.5,
		BreakawayAccel: 0.8,
	}
	return []Profile{DefaultProfile(), jet, glider}
}
