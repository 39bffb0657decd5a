// flight/dynamics.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"github.com/aloft-sim/aloft/math"
	"github.com/aloft-sim/aloft/util"
	"github.com/aloft-sim/aloft/wx"
)

const (
	// G is gravitational acceleration, meters/second^2.
	G = 9.81

	// NominalTick is the tick length substituted when a caller hands
	// us a non-finite dt.
	NominalTick = 1.0 / 60

	// MinTick and MaxTick bound dt. The upper bound keeps a dropped
	// frame or a backgrounded host from integrating one enormous,
	// unstable step.
	MinTick = 0.001
	MaxTick = 0.1

	// thrustBreakawayThreshold is the thrust above which stiction is
	// overcome on the ground.
	thrustBreakawayThreshold = 0.1

	// Attitude perturbations decay exponentially at these rates
	// (1/second); ground contact rights the aircraft much faster.
	airDampRate    = 0.8
	groundDampRate = 4

	// groundPitchAllowance is how far the nose may sit off level while
	// on the gear, radians.
	groundPitchAllowance = 0.06
)

// Dynamics integrates the aircraft state forward, one tick at a time.
// It has no goroutines and no clock of its own; the caller supplies dt
// and the current terrain height under the aircraft.
type Dynamics struct {
	Profile Profile
	Wind    wx.Wind

	elapsed float32 // simulated seconds, phase for gusts
}

func NewDynamics(p Profile) *Dynamics {
	return &Dynamics{Profile: p}
}

// integrateSpeed returns the forward speed after one tick. Drag is
// computed from the speed at the start of the tick, before thrust is
// applied, so a tick from rest at full thrust yields exactly
// MaxThrustAccel*dt.
func integrateSpeed(speed, thrust float32, onGround bool, p Profile, dt float32) float32 {
	accel := thrust*p.MaxThrustAccel - p.DragCoeff*speed
	if onGround && thrust > thrustBreakawayThreshold && speed < p.StictionSpeed {
		accel += p.BreakawayAccel
	}
	return max(0, speed+accel*dt)
}

// Step advances the state by dt seconds. ground is the terrain height
// beneath the aircraft, meters MSL; the caller is expected to have it
// cached, since Step must never block.
func (d *Dynamics) Step(s *State, ground float32, dt float32) {
	if !math.IsFinite(dt) {
		dt = NominalTick
	}
	dt = math.Clamp(dt, MinTick, MaxTick)
	d.elapsed += dt

	p := d.Profile

	s.Speed = integrateSpeed(s.Speed, s.Thrust, s.OnGround, p, dt)

	// Lift grows with speed and with how far the nose is raised;
	// recall that negative pitch is nose up.
	lift := p.LiftCoeff * s.Speed * math.Sin(-s.Pitch)
	s.VerticalSpeed += (lift - G) * dt
	if s.OnGround {
		// The gear carries the weight; only climbing away is allowed.
		s.VerticalSpeed = max(0, s.VerticalSpeed)
	}

	fwd := s.Forward()
	east := fwd[0] * s.Speed * dt
	north := fwd[1] * s.Speed * dt
	if !s.OnGround {
		w := d.Wind.Vector(d.elapsed)
		east += w[0] * dt
		north += w[1] * dt
	}
	s.Position = math.Offset2LL(s.Position, east, north, s.Altitude)

	s.Altitude += fwd[2]*s.Speed*dt + s.VerticalSpeed*dt

	// Terrain clamp. The aircraft never descends below the surface
	// plus its gear clearance; reaching the floor kills any remaining
	// sink and establishes ground contact.
	if floor := ground + p.GearClearance; s.Altitude <= floor {
		s.Altitude = floor
		s.VerticalSpeed = 0
		s.OnGround = true
	} else {
		s.OnGround = false
	}

	// Static stability: with hands off, attitude perturbations decay
	// back toward level.
	damp := math.Exp(-util.Select(s.OnGround, float32(groundDampRate), airDampRate) * dt)
	s.Pitch *= damp
	s.Roll *= damp
	if s.OnGround {
		s.Pitch = math.Clamp(s.Pitch, -groundPitchAllowance, groundPitchAllowance)
	}

	s.Pitch = math.Clamp(s.Pitch, -p.MaxPitch, p.MaxPitch)
	s.Roll = math.Clamp(s.Roll, -p.MaxRoll, p.MaxRoll)
	s.Heading = math.NormalizeHeading(s.Heading)
}
