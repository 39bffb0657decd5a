// camera/camera_test.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package camera

import (
	"testing"

	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/math"
)

type recordingTracker struct {
	tracked []string
	cleared int
}

func (rt *recordingTracker) SetTrackedEntity(id string) { rt.tracked = append(rt.tracked, id) }
func (rt *recordingTracker) ClearTrackedEntity()        { rt.cleared++ }

func level(heading float32) flight.State {
	return flight.State{
		Position: math.Point2LL{math.Radians(-122.3), math.Radians(47.6)},
		Altitude: 500,
		Heading:  heading,
		Speed:    80,
	}
}

func TestFollowerOrbitHandoff(t *testing.T) {
	rt := &recordingTracker{}
	f := NewFollower(rt, "aircraft", DefaultSmoothing)
	s := level(0)

	// Starting in orbit engages the renderer's tracking.
	f.Update(&s, 1.0/60)
	if len(rt.tracked) != 1 || rt.tracked[0] != "aircraft" {
		t.Fatalf("tracking after first update: %v", rt.tracked)
	}
	if rt.cleared != 0 {
		t.Errorf("tracking cleared prematurely")
	}

	// Leaving orbit must release it before manual placement starts.
	f.SetMode(Chase)
	f.Update(&s, 1.0/60)
	if rt.cleared != 1 {
		t.Errorf("expected tracking released on leaving orbit, cleared=%d", rt.cleared)
	}

	// Chase to first-person stays released.
	f.SetMode(FirstPerson)
	f.Update(&s, 1.0/60)
	if rt.cleared != 1 || len(rt.tracked) != 1 {
		t.Errorf("unexpected tracker traffic on manual-manual switch: %+v", rt)
	}

	// Returning to orbit re-engages.
	f.SetMode(Orbit)
	f.Update(&s, 1.0/60)
	if len(rt.tracked) != 2 {
		t.Errorf("expected tracking re-engaged on return to orbit: %v", rt.tracked)
	}
}

func TestFollowerNilTracker(t *testing.T) {
	f := NewFollower(nil, "", DefaultSmoothing)
	s := level(0)
	for _, m := range []Mode{Orbit, Chase, FirstPerson, Orbit} {
		f.SetMode(m)
		f.Update(&s, 1.0/60)
	}
}

func TestFollowerChasePlacement(t *testing.T) {
	f := NewFollower(nil, "", DefaultSmoothing)
	f.SetMode(Chase)
	s := level(0) // heading east

	f.Update(&s, 1.0/60)
	v := f.View()

	// Behind and above: west of the aircraft, higher than it, looking
	// east and slightly down.
	if v.Position.Longitude() >= s.Position.Longitude() {
		t.Errorf("chase camera should sit behind (west of) the aircraft")
	}
	if got, want := v.Altitude, s.Altitude+chaseUp; !aboutEq(got, want, 0.01) {
		t.Errorf("chase altitude: got %v, expected %v", got, want)
	}
	if v.Forward[0] <= 0 || v.Forward[2] >= 0 {
		t.Errorf("chase view direction: got %v, expected east and down", v.Forward)
	}
	if got := math.Length3f(v.Forward); !aboutEq(got, 1, 1e-3) {
		t.Errorf("view direction not normalized: length %v", got)
	}
}

func TestFollowerFirstPersonPlacement(t *testing.T) {
	f := NewFollower(nil, "", DefaultSmoothing)
	f.SetMode(FirstPerson)
	s := level(0)

	f.Update(&s, 1.0/60)
	v := f.View()

	if v.Position.Longitude() <= s.Position.Longitude() {
		t.Errorf("first-person eye point should sit ahead (east) of the reference point")
	}
	if got, want := v.Altitude, s.Altitude+firstUp; !aboutEq(got, want, 0.01) {
		t.Errorf("first-person altitude: got %v, expected %v", got, want)
	}
}

func TestFollowerSmoothingConverges(t *testing.T) {
	f := NewFollower(nil, "", DefaultSmoothing)
	f.SetMode(Chase)
	s := level(0)
	f.Update(&s, 1.0/60) // seeds at the desired offset

	// Teleport the aircraft; the camera must glide over without
	// overshoot, settling back at the chase offset.
	s.Position = math.Offset2LL(s.Position, 0, 1000, s.Altitude)

	prev := f.View()
	prevStep := float32(1e9)
	for i := 0; i < 300; i++ {
		f.Update(&s, 1.0/60)
		v := f.View()
		step := math.Length3f(math.ENUBetween(prev.Position, prev.Altitude, v.Position, v.Altitude))
		if step > prevStep+1e-4 {
			t.Fatalf("camera step grew at tick %d: %v -> %v", i, prevStep, step)
		}
		prev, prevStep = v, step
	}

	want := math.Length3f([3]float32{chaseBack, 0, chaseUp})
	got := math.Length3f(math.ENUBetween(prev.Position, prev.Altitude, s.Position, s.Altitude))
	if !aboutEq(got, want, 0.5) {
		t.Errorf("camera settled %v m from the aircraft, expected about %v", got, want)
	}
}

func TestFollowerReseedOnModeEntry(t *testing.T) {
	f := NewFollower(nil, "", DefaultSmoothing)
	f.SetMode(Chase)
	s := level(0)
	f.Update(&s, 1.0/60)

	// Entering another manual mode snaps to its offset instead of
	// gliding the full chase-to-cockpit distance.
	f.SetMode(FirstPerson)
	f.Update(&s, 1.0/60)
	v := f.View()
	want := math.Length3f([3]float32{firstAhead, 0, firstUp})
	got := math.Length3f(math.ENUBetween(v.Position, v.Altitude, s.Position, s.Altitude))
	if !aboutEq(got, want, 0.1) {
		t.Errorf("first-person entry did not re-seed: %v m from aircraft, expected %v", got, want)
	}
}

func TestFollowerSnapshotRestore(t *testing.T) {
	f := NewFollower(nil, "", DefaultSmoothing)
	f.SetMode(Chase)
	s := level(0)
	f.Update(&s, 1.0/60)

	sn := f.Snapshot()
	g := NewFollower(nil, "", DefaultSmoothing)
	g.Restore(sn)
	g.Update(&s, 1.0/60)

	if g.Mode() != Chase {
		t.Errorf("restored mode: got %v, expected chase", g.Mode())
	}
}

func TestModeCycle(t *testing.T) {
	for _, tc := range []struct {
		m    Mode
		next Mode
		name string
	}{
		{Orbit, Chase, "orbit"},
		{Chase, FirstPerson, "chase"},
		{FirstPerson, Orbit, "first person"},
	} {
		if got := tc.m.Next(); got != tc.next {
			t.Errorf("%v.Next(): got %v, expected %v", tc.m, got, tc.next)
		}
		if tc.m.String() != tc.name {
			t.Errorf("mode string: got %q, expected %q", tc.m.String(), tc.name)
		}
	}
}

func aboutEq(a, b, eps float32) bool {
	return math.Abs(a-b) < eps
}
