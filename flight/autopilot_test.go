// flight/autopilot_test.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flight

import (
	"testing"

	"github.com/aloft-sim/aloft/math"
)

func TestAutopilotEngageCaptures(t *testing.T) {
	ap := NewAutopilot()
	s := airborne(1200, 80)
	s.Heading = 1

	ap.Engage(&s)
	if !ap.Enabled || !ap.AltitudeHold || !ap.HeadingHold || ap.VerticalNav {
		t.Errorf("default modes after engage: %+v", ap)
	}
	if ap.TargetAltitude != 1200 || ap.TargetHeading != 1 {
		t.Errorf("targets: got %v/%v, expected 1200/1",
			ap.TargetAltitude, ap.TargetHeading)
	}
}

func TestAutopilotDisengageLeavesNoResidue(t *testing.T) {
	ap := NewAutopilot()
	s := airborne(1200, 80)
	s.Pitch, s.Roll, s.Heading = -0.1, 0.2, 3
	before := s

	ap.Engage(&s)
	ap.Disengage()
	ap.Update(&s, DefaultProfile(), 1.0/60)

	if s != before {
		t.Errorf("state changed with autopilot off:\n got %+v\nwant %+v", s, before)
	}
}

func TestAutopilotHeadingHold(t *testing.T) {
	ap := NewAutopilot()
	p := DefaultProfile()
	s := airborne(1000, 80)
	s.Heading = 1

	ap.Engage(&s)
	ap.AltitudeHold = false // isolate the lateral axis
	ap.SetTargetHeading(1 + math.Radians(40))

	sawLeftBank := false
	for i := 0; i < 600; i++ {
		ap.Update(&s, p, 1.0/60)
		if s.Roll < -0.01 {
			sawLeftBank = true
		}
		if math.Abs(s.Roll) > maxBank+1e-4 {
			t.Fatalf("bank exceeded cap: %v", s.Roll)
		}
	}

	if turn := math.HeadingSignedTurn(s.Heading, ap.TargetHeading); math.Abs(turn) > 0.01 {
		t.Errorf("heading did not converge: %v radians short", turn)
	}
	if !sawLeftBank {
		t.Errorf("left turn never banked left")
	}
}

func TestAutopilotHeadingHoldShortestWay(t *testing.T) {
	ap := NewAutopilot()
	p := DefaultProfile()
	s := airborne(1000, 80)
	s.Heading = math.Radians(350)

	ap.Engage(&s)
	ap.AltitudeHold = false
	ap.SetTargetHeading(math.Radians(10))

	prev := math.Abs(math.HeadingSignedTurn(s.Heading, ap.TargetHeading))
	for i := 0; i < 600; i++ {
		ap.Update(&s, p, 1.0/60)
		cur := math.Abs(math.HeadingSignedTurn(s.Heading, ap.TargetHeading))
		if cur > prev+1e-5 {
			t.Fatalf("turn went the long way around: error grew %v -> %v", prev, cur)
		}
		prev = cur
	}
	if prev > 0.01 {
		t.Errorf("heading did not converge crossing the wrap: %v radians short", prev)
	}
}

func TestAutopilotAltitudeHold(t *testing.T) {
	ap := NewAutopilot()
	d := NewDynamics(DefaultProfile())
	s := airborne(500, 100)
	s.Thrust = 0.25 // terminal speed at this thrust is the current 100 m/s

	ap.Engage(&s)
	ap.SetTargetAltitude(600)

	const dt = 1.0 / 60
	minErr := math.Abs(ap.TargetAltitude - s.Altitude)
	for i := 0; i < 90*60; i++ {
		d.Step(&s, 0, dt)
		ap.Update(&s, d.Profile, dt)
		if err := math.Abs(ap.TargetAltitude - s.Altitude); err < minErr {
			minErr = err
		}
		for _, v := range []float32{s.Altitude, s.VerticalSpeed, s.Pitch, s.Speed} {
			if !math.IsFinite(v) {
				t.Fatalf("state went non-finite at tick %d: %+v", i, s)
			}
		}
	}

	if minErr > 30 {
		t.Errorf("altitude never captured the target: closest approach %v m", minErr)
	}
	if err := math.Abs(ap.TargetAltitude - s.Altitude); err > 80 {
		t.Errorf("altitude did not hold near the target: %v m off after 90s", err)
	}
}

func TestAutopilotVerticalNav(t *testing.T) {
	ap := NewAutopilot()
	p := DefaultProfile()
	s := airborne(500, 80)
	s.Thrust = 0.5

	ap.Engage(&s)
	ap.HeadingHold = false
	ap.SetVerticalNav(true)
	ap.TargetAltitude = 900

	for i := 0; i < 120; i++ {
		ap.Update(&s, p, 1.0/60)
	}
	if s.Pitch >= 0 {
		t.Errorf("climb should raise the nose: pitch %v", s.Pitch)
	}
	if s.Thrust <= 0.5 {
		t.Errorf("climb should add thrust: %v", s.Thrust)
	}

	// Inside the capture tolerance the nudging stops.
	s.Altitude = ap.TargetAltitude - vnavCaptureTolerance/2
	pitch, thrust := s.Pitch, s.Thrust
	ap.Update(&s, p, 1.0/60)
	if s.Pitch != pitch || s.Thrust != thrust {
		t.Errorf("vertical nav kept nudging inside tolerance")
	}
}

func TestAutopilotSafetyDisengage(t *testing.T) {
	p := DefaultProfile()

	// Ground handling with real bank forces a full disengage and
	// leaves the state alone.
	ap := NewAutopilot()
	s := State{Altitude: p.GearClearance, OnGround: true, Roll: math.Radians(10)}
	ap.Engage(&s)
	before := s
	ap.Update(&s, p, 1.0/60)
	if ap.Enabled {
		t.Errorf("expected safety disengage with %v degrees of bank on the ground",
			math.Degrees(s.Roll))
	}
	if s != before {
		t.Errorf("safety disengage should not touch the state")
	}

	// Level on the gear it stays engaged.
	ap = NewAutopilot()
	s = State{Altitude: p.GearClearance, OnGround: true}
	ap.Engage(&s)
	ap.Update(&s, p, 1.0/60)
	if !ap.Enabled {
		t.Errorf("autopilot disengaged while sitting level on the gear")
	}
}

func TestAutopilotSetTargetHeadingNormalizes(t *testing.T) {
	ap := NewAutopilot()
	ap.SetTargetHeading(7) // > 2pi
	if ap.TargetHeading < 0 || ap.TargetHeading >= 2*math.Pi {
		t.Errorf("target heading not normalized: %v", ap.TargetHeading)
	}
	if !ap.HeadingHold {
		t.Errorf("setting a heading target should enable heading hold")
	}
}
