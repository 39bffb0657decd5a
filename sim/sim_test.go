// sim/sim_test.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/wx"
)

type recordingSink struct {
	poses     []Pose
	panicNext bool
}

func (rs *recordingSink) CommitPose(p Pose) {
	if rs.panicNext {
		rs.panicNext = false
		panic("sink exploded")
	}
	rs.poses = append(rs.poses, p)
}

// airborneScenario puts the aircraft in cruise so state changes from
// tick to tick.
func airborneScenario() *Scenario {
	sc := DefaultScenario()
	sc.Spawn.OnGround = false
	sc.Spawn.AltitudeM = 800
	sc.Spawn.SpeedMS = 80
	sc.Wind = wx.Wind{}
	return sc
}

func newTestSim(t *testing.T, config Config) *Sim {
	t.Helper()
	s, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func advanceTicks(s *Sim, n int) {
	for i := 0; i < n; i++ {
		s.Advance(1.0 / 60)
	}
}

func TestSimAdvance(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSim(t, Config{Scenario: airborneScenario(), PoseSink: sink})

	advanceTicks(s, 10)

	st := s.Status()
	if st.Ticks != 10 {
		t.Errorf("ticks: got %d, expected 10", st.Ticks)
	}
	if len(sink.poses) != 10 {
		t.Errorf("pose commits: got %d, expected one per tick", len(sink.poses))
	}

	// Cruise at 80 m/s moves the aircraft every tick.
	if sink.poses[0].Position == sink.poses[9].Position {
		t.Errorf("aircraft did not move over 10 ticks")
	}
}

func TestSimUpdateQuantization(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	// 25 ms against a 1/60 s quantum: one tick, 8.3 ms banked.
	s.mu.Lock(s.lg)
	s.advanceLocked(25 * time.Millisecond)
	s.mu.Unlock(s.lg)
	if got := s.Status().Ticks; got != 1 {
		t.Errorf("ticks after 25 ms: got %d, expected 1", got)
	}

	// Another 25 ms drains the bank: two more ticks.
	s.mu.Lock(s.lg)
	s.advanceLocked(25 * time.Millisecond)
	s.mu.Unlock(s.lg)
	if got := s.Status().Ticks; got != 3 {
		t.Errorf("ticks after 50 ms: got %d, expected 3", got)
	}
	if s.updateTimeSlop < 0 || s.updateTimeSlop >= s.tickQuantum {
		t.Errorf("slop out of range: %v", s.updateTimeSlop)
	}
}

func TestSimStagePanicIsolation(t *testing.T) {
	sink := &recordingSink{panicNext: true}
	s := newTestSim(t, Config{Scenario: airborneScenario(), PoseSink: sink})

	// The panicking commit is contained to its tick.
	advanceTicks(s, 3)

	st := s.Status()
	if st.Ticks != 3 {
		t.Errorf("ticks: got %d, expected 3", st.Ticks)
	}
	if st.StagePanics != 1 {
		t.Errorf("stage panics: got %d, expected 1", st.StagePanics)
	}
	if len(sink.poses) != 2 {
		t.Errorf("pose commits: got %d, expected the 2 after the panic", len(sink.poses))
	}
}

func TestSimPause(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	advanceTicks(s, 5)
	s.Pause()
	advanceTicks(s, 5)
	if got := s.Status().Ticks; got != 5 {
		t.Errorf("ticks advanced while paused: %d", got)
	}
	if !s.Paused() {
		t.Errorf("expected paused")
	}

	s.Resume()
	advanceTicks(s, 5)
	if got := s.Status().Ticks; got != 10 {
		t.Errorf("ticks after resume: got %d, expected 10", got)
	}
}

func TestSimOneShotKeys(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	// Host auto-repeat: key-down delivered repeatedly while held must
	// toggle exactly once.
	s.KeyDown(flight.KeyToggleAutopilot)
	s.KeyDown(flight.KeyToggleAutopilot)
	advanceTicks(s, 1)
	if !s.AutopilotEnabled() {
		t.Fatalf("autopilot did not engage")
	}
	advanceTicks(s, 5)
	if !s.AutopilotEnabled() {
		t.Errorf("held key re-fired the toggle")
	}

	s.KeyUp(flight.KeyToggleAutopilot)
	s.KeyDown(flight.KeyToggleAutopilot)
	advanceTicks(s, 1)
	if s.AutopilotEnabled() {
		t.Errorf("fresh press did not toggle off")
	}
}

func TestSimLiftoffEvent(t *testing.T) {
	s := newTestSim(t, Config{Scenario: DefaultScenario()})
	sub := s.Subscribe()
	defer sub.Unsubscribe()

	if !s.GetState().OnGround {
		t.Fatalf("default scenario should spawn on the ground")
	}

	// Full power, stick back, and wait for flying speed.
	s.SetThrottle(100)
	s.KeyDown(flight.KeyPitchUp)
	advanceTicks(s, 40*60)

	if s.GetState().OnGround {
		t.Fatalf("still on the ground after 40 seconds at full thrust: %+v", s.GetState())
	}

	events := sub.Get()
	if !slices.ContainsFunc(events, func(e Event) bool { return e.Type == LiftoffEvent }) {
		t.Errorf("no liftoff event; got %v", events)
	}
}

func TestSimEventSubscription(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	sub := s.Subscribe()
	defer sub.Unsubscribe()

	s.EngageAutopilot()
	s.CycleCamera()

	events := sub.Get()
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	if !slices.Contains(types, AutopilotEngagedEvent) || !slices.Contains(types, CameraModeChangedEvent) {
		t.Errorf("missing events: %v", types)
	}

	// A late subscriber does not see history.
	late := s.Subscribe()
	defer late.Unsubscribe()
	if got := late.Get(); len(got) != 0 {
		t.Errorf("late subscriber saw history: %v", got)
	}
}

func TestSimRateValidation(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	for _, bad := range []float32{0, -1, 100} {
		if err := s.SetSimRate(bad); !errors.Is(err, ErrInvalidSimRate) {
			t.Errorf("SetSimRate(%v): got %v, expected ErrInvalidSimRate", bad, err)
		}
	}
	if err := s.SetSimRate(2); err != nil {
		t.Errorf("SetSimRate(2): %v", err)
	}
	if got := s.SimRate(); got != 2 {
		t.Errorf("sim rate: got %v, expected 2", got)
	}
}

func TestSimProfileCycling(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	first := s.Profile().Name
	var seen []string
	for i := 0; i < 3; i++ {
		seen = append(seen, s.CycleProfile())
	}
	if seen[2] != first {
		t.Errorf("cycling three profiles should wrap: %v (started at %q)", seen, first)
	}

	if err := s.SelectProfile("jet"); err != nil {
		t.Errorf("SelectProfile(jet): %v", err)
	}
	if got := s.Profile().Name; got != "jet" {
		t.Errorf("profile: got %q, expected jet", got)
	}
	if err := s.SelectProfile("boeing"); !errors.Is(err, flight.ErrUnknownProfile) {
		t.Errorf("unknown profile: got %v", err)
	}
}

func TestSimTerrainSettle(t *testing.T) {
	sc := DefaultScenario()
	sc.Terrain = TerrainSpec{Kind: "flat", Height: 120}
	s := newTestSim(t, Config{Scenario: sc})

	st := s.GetState()
	if want := 120 + s.Profile().GearClearance; st.Altitude != want {
		t.Errorf("grounded spawn altitude: got %v, expected %v", st.Altitude, want)
	}
	if got := s.Status().TerrainHeight; got != 120 {
		t.Errorf("primed terrain height: got %v, expected 120", got)
	}
}

func TestSimWind(t *testing.T) {
	s := newTestSim(t, Config{Scenario: airborneScenario()})

	if err := s.SetWind(wx.Wind{DirectionDeg: 270, SpeedMS: -5}); err == nil {
		t.Errorf("negative wind speed accepted")
	}
	if err := s.SetWind(wx.Wind{DirectionDeg: 270, SpeedMS: 8, GustMS: 12}); err != nil {
		t.Errorf("SetWind: %v", err)
	}
}
