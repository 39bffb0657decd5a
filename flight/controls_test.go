// flight/controls_test.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"testing"

	"github.com/aloft-sim/aloft/math"
)

func TestControlsHeldKeys(t *testing.T) {
	c := NewControls()
	p := DefaultProfile()
	var s State

	c.KeyDown(KeyPitchUp)
	c.Apply(&s, p, 0.1)
	if want := float32(-keyPitchRate * 0.1); !near(s.Pitch, want, 1e-5) {
		t.Errorf("pitch after one tick: got %v, expected %v", s.Pitch, want)
	}

	// Still held: keeps accumulating.
	c.Apply(&s, p, 0.1)
	if want := float32(-2 * keyPitchRate * 0.1); !near(s.Pitch, want, 1e-5) {
		t.Errorf("pitch after two ticks: got %v, expected %v", s.Pitch, want)
	}

	// Released: stops.
	c.KeyUp(KeyPitchUp)
	before := s.Pitch
	c.Apply(&s, p, 0.1)
	if s.Pitch != before {
		t.Errorf("pitch moved after release: %v -> %v", before, s.Pitch)
	}
}

func TestControlsYawSteering(t *testing.T) {
	c := NewControls()
	p := DefaultProfile()
	var s State

	c.KeyDown(KeyYawLeft)
	c.Apply(&s, p, 0.1)
	if want := float32(keyYawRate * 0.1); !near(s.Heading, want, 1e-5) {
		t.Errorf("heading after yaw left: got %v, expected %v", s.Heading, want)
	}

	// Yawing right from just past north wraps rather than going
	// negative.
	c.KeyUp(KeyYawLeft)
	c.KeyDown(KeyYawRight)
	s.Heading = 0.01
	c.Apply(&s, p, 0.1)
	if s.Heading < 0 || s.Heading >= 2*math.Pi {
		t.Errorf("heading out of range after wrap: %v", s.Heading)
	}
}

func TestControlsRepeatGuard(t *testing.T) {
	c := NewControls()

	// Host auto-repeat delivers key-down over and over while held;
	// the one-shot edge fires exactly once.
	c.KeyDown(KeyToggleAutopilot)
	c.KeyDown(KeyToggleAutopilot)
	c.KeyDown(KeyToggleAutopilot)
	if !c.WasPressed(KeyToggleAutopilot) {
		t.Errorf("expected a press edge after key down")
	}
	if c.WasPressed(KeyToggleAutopilot) {
		t.Errorf("press edge fired twice for one key down")
	}

	c.KeyUp(KeyToggleAutopilot)
	c.KeyDown(KeyToggleAutopilot)
	if !c.WasPressed(KeyToggleAutopilot) {
		t.Errorf("expected a fresh edge after release and re-press")
	}
}

func TestControlsJoystickShaping(t *testing.T) {
	c := NewControls()
	p := DefaultProfile()
	var s State

	// Half deflection right goes through the power curve:
	// 0.5^1.5 = 0.35355.
	c.JoystickDrag(50, 0, 100)
	c.Apply(&s, p, 0.1)
	want := math.Pow(0.5, 1.5) * joyRollRate * 0.1
	if !near(s.Roll, want, 1e-4) {
		t.Errorf("half deflection roll: got %v, expected %v", s.Roll, want)
	}

	// Release recenters; no further contribution.
	c.JoystickRelease()
	before := s.Roll
	c.Apply(&s, p, 0.1)
	if s.Roll != before {
		t.Errorf("roll moved after release: %v -> %v", before, s.Roll)
	}
}

func TestControlsJoystickClamps(t *testing.T) {
	c := NewControls()
	p := DefaultProfile()
	var s State

	// A drag past the radius is clamped to full deflection.
	c.JoystickDrag(500, 0, 100)
	for i := 0; i < 200; i++ {
		c.Apply(&s, p, 0.1)
	}

	// The joystick path clamps tighter than the airframe limit.
	if s.Roll != joyMaxRoll {
		t.Errorf("joystick roll: got %v, expected clamp at %v", s.Roll, float32(joyMaxRoll))
	}
	if joyMaxRoll >= p.MaxRoll {
		t.Errorf("joystick clamp should be tighter than the profile bound")
	}

	// Full back stick pins pitch at its own (nose up) limit.
	c.JoystickDrag(0, 100, 100)
	for i := 0; i < 200; i++ {
		c.Apply(&s, p, 0.1)
	}
	if s.Pitch != -joyMaxPitch {
		t.Errorf("joystick pitch: got %v, expected clamp at %v", s.Pitch, float32(-joyMaxPitch))
	}
}

func TestControlsThrottleDetents(t *testing.T) {
	c := NewControls()
	for _, tc := range []struct {
		slider float32
		target float32
	}{
		{0, 0},
		{4.9, 0},
		{5, 0.05},
		{24, 0.05},
		{25, 0.5},
		{59, 0.5},
		{60, 0.8},
		{79, 0.8},
		{80, 1},
		{100, 1},
	} {
		c.SetThrottle(tc.slider)
		if got := c.ThrottleTarget(); got != tc.target {
			t.Errorf("slider %v: got target %v, expected %v", tc.slider, got, tc.target)
		}
	}
}

func TestControlsThrottleSmoothing(t *testing.T) {
	c := NewControls()
	p := DefaultProfile()
	var s State

	// Thrust eases toward the detent target instead of snapping.
	c.SetThrottle(100)
	c.Apply(&s, p, 0.1)
	if want := float32(0.25); !near(s.Thrust, want, 1e-5) {
		t.Errorf("thrust after one tick: got %v, expected %v", s.Thrust, want)
	}

	prev := s.Thrust
	for i := 0; i < 200; i++ {
		c.Apply(&s, p, 0.1)
		if s.Thrust < prev || s.Thrust > 1 {
			t.Fatalf("thrust should rise monotonically to 1: %v -> %v", prev, s.Thrust)
		}
		prev = s.Thrust
	}
	if !near(s.Thrust, 1, 1e-3) {
		t.Errorf("thrust should settle at the target: got %v", s.Thrust)
	}

	// A huge dt still can't overshoot: the blend fraction caps at 1.
	c.SetThrottle(0)
	c.Apply(&s, p, 5)
	if s.Thrust < 0 || s.Thrust > 1 {
		t.Errorf("thrust escaped [0,1]: %v", s.Thrust)
	}
}

func TestControlsKeyboardThrust(t *testing.T) {
	c := NewControls()
	p := DefaultProfile()
	var s State

	c.KeyDown(KeyThrustUp)
	for i := 0; i < 100; i++ {
		c.Apply(&s, p, 0.1)
	}
	if c.ThrottleTarget() != 1 {
		t.Errorf("held thrust-up should saturate the target: got %v", c.ThrottleTarget())
	}
	if !near(s.Thrust, 1, 1e-3) {
		t.Errorf("thrust should follow the target: got %v", s.Thrust)
	}

	c.KeyUp(KeyThrustUp)
	c.KeyDown(KeyThrustDown)
	for i := 0; i < 100; i++ {
		c.Apply(&s, p, 0.1)
	}
	if c.ThrottleTarget() != 0 || s.Thrust > 1e-3 {
		t.Errorf("held thrust-down should idle: target %v, thrust %v",
			c.ThrottleTarget(), s.Thrust)
	}
}
