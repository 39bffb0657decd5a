// flight/controls.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"github.com/aloft-sim/aloft/math"
)

// Key identifies one logical control; hosts map their own key codes or
// buttons onto these before handing events to Controls.
type Key int

const (
	KeyPitchUp Key = iota // nose up
	KeyPitchDown
	KeyRollLeft
	KeyRollRight
	KeyYawLeft
	KeyYawRight
	KeyThrustUp
	KeyThrustDown
	KeyCycleCamera
	KeyToggleAutopilot
	KeyCycleProfile
	KeyTogglePause
	NumKeys
)

func (k Key) String() string {
	return [...]string{"pitch up", "pitch down", "roll left", "roll right",
		"yaw left", "yaw right", "thrust up", "thrust down", "cycle camera",
		"toggle autopilot", "cycle profile", "toggle pause"}[k]
}

const (
	// Held-key rates, radians/second (thrust in fraction/second).
	keyPitchRate  = 0.6
	keyRollRate   = 0.9
	keyYawRate    = 0.5
	keyThrustRate = 0.4

	// Joystick shaping: displacement is passed through
	// sign(v)*|v|^(1+joystickCurve) so small deflections give fine
	// control near center.
	joystickCurve = 0.5
	joyPitchRate  = 0.8 // radians/second at full deflection
	joyRollRate   = 1.2

	// The joystick is a fine-control surface; its integration clamps
	// tighter than the airframe limits the keyboard path gets.
	joyMaxPitch = 0.7 // radians
	joyMaxRoll  = 0.8

	// Thrust eases toward the throttle target at min(1,
	// throttleSmoothRate*dt) per tick rather than snapping.
	throttleSmoothRate = 2.5
)

// Controls translates host input events into per-tick changes to the
// aircraft state. Event methods (KeyDown, JoystickDrag, SetThrottle,
// ...) just record; Apply folds everything recorded into the state
// once per tick. None of this is goroutine-safe: the simulation
// serializes calls under its own lock.
type Controls struct {
	held    [NumKeys]bool
	pressed [NumKeys]bool

	joyActive bool
	joyX      float32 // shaped, [-1,1], positive rolls right
	joyY      float32 // shaped, [-1,1], positive raises the nose

	throttle float32 // target thrust fraction from the detent table
}

func NewControls() *Controls {
	return &Controls{}
}

// KeyDown records a key going down. Repeated down events while the key
// is held (host auto-repeat) do not re-arm the one-shot edge.
func (c *Controls) KeyDown(k Key) {
	if k < 0 || k >= NumKeys {
		return
	}
	if !c.held[k] {
		c.pressed[k] = true
	}
	c.held[k] = true
}

func (c *Controls) KeyUp(k Key) {
	if k < 0 || k >= NumKeys {
		return
	}
	c.held[k] = false
}

// WasPressed reports whether the key went down since the last call,
// consuming the edge. This is the path one-shot actions take so that a
// held key fires them exactly once.
func (c *Controls) WasPressed(k Key) bool {
	if k < 0 || k >= NumKeys {
		return false
	}
	p := c.pressed[k]
	c.pressed[k] = false
	return p
}

// shapeAxis applies the joystick power curve.
func shapeAxis(v float32) float32 {
	return math.Copysign(math.Pow(math.Abs(v), 1+joystickCurve), v)
}

// JoystickDrag records a pointer displacement from the joystick
// center. dx and dy are in the same units as radius; positive dy pulls
// the stick back (nose up). The displacement is normalized to the
// radius, clamped to the unit disc, and shaped.
func (c *Controls) JoystickDrag(dx, dy, radius float32) {
	if radius <= 0 {
		return
	}
	x, y := dx/radius, dy/radius
	if l := math.Length2f([2]float32{x, y}); l > 1 {
		x /= l
		y /= l
	}
	c.joyActive = true
	c.joyX = shapeAxis(x)
	c.joyY = shapeAxis(y)
}

// JoystickRelease recenters the stick.
func (c *Controls) JoystickRelease() {
	c.joyActive = false
	c.joyX, c.joyY = 0, 0
}

// SetThrottle takes the slider position (0-100) through the detent
// table to pick the target thrust fraction.
func (c *Controls) SetThrottle(slider float32) {
	switch {
	case slider < 5:
		c.throttle = 0
	case slider < 25:
		c.throttle = 0.05
	case slider < 60:
		c.throttle = 0.5
	case slider < 80:
		c.throttle = 0.8
	default:
		c.throttle = 1
	}
}

// ThrottleTarget returns the current detented target.
func (c *Controls) ThrottleTarget() float32 { return c.throttle }

// Apply folds the recorded input into the state for one tick.
func (c *Controls) Apply(s *State, p Profile, dt float32) {
	if c.held[KeyPitchUp] {
		s.Pitch -= keyPitchRate * dt
	}
	if c.held[KeyPitchDown] {
		s.Pitch += keyPitchRate * dt
	}
	if c.held[KeyRollLeft] {
		s.Roll -= keyRollRate * dt
	}
	if c.held[KeyRollRight] {
		s.Roll += keyRollRate * dt
	}
	if c.held[KeyYawLeft] {
		s.Heading = math.NormalizeHeading(s.Heading + keyYawRate*dt)
	}
	if c.held[KeyYawRight] {
		s.Heading = math.NormalizeHeading(s.Heading - keyYawRate*dt)
	}
	if c.held[KeyThrustUp] {
		c.throttle = math.Clamp(c.throttle+keyThrustRate*dt, 0, 1)
	}
	if c.held[KeyThrustDown] {
		c.throttle = math.Clamp(c.throttle-keyThrustRate*dt, 0, 1)
	}

	if c.joyActive {
		s.Pitch = math.Clamp(s.Pitch-c.joyY*joyPitchRate*dt, -joyMaxPitch, joyMaxPitch)
		s.Roll = math.Clamp(s.Roll+c.joyX*joyRollRate*dt, -joyMaxRoll, joyMaxRoll)
	}

	s.Thrust += (c.throttle - s.Thrust) * min(1, throttleSmoothRate*dt)
	s.Thrust = math.Clamp(s.Thrust, 0, 1)

	s.Pitch = math.Clamp(s.Pitch, -p.MaxPitch, p.MaxPitch)
	s.Roll = math.Clamp(s.Roll, -p.MaxRoll, p.MaxRoll)
}
