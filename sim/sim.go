// sim/sim.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sim owns the aircraft and drives the per-tick update
// pipeline: controls, then dynamics, then autopilot, then camera, then
// the commit to the host's pose sink. All mutation of the aircraft
// state happens inside that pipeline, under the sim lock, in that
// order; everything public here is a thin locked surface over it.
package sim

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aloft-sim/aloft/camera"
	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/log"
	"github.com/aloft-sim/aloft/math"
	"github.com/aloft-sim/aloft/metrics"
	"github.com/aloft-sim/aloft/terrain"
	"github.com/aloft-sim/aloft/util"
	"github.com/aloft-sim/aloft/wx"
)

const (
	DefaultTickRate = 60
	DefaultSlots    = 4

	MinSimRate = 0.25
	MaxSimRate = 8
)

// Pose is what the rendering side needs to draw the aircraft.
type Pose struct {
	Position    math.Point2LL   `json:"position"`
	Altitude    float32         `json:"altitude"`
	Orientation math.Quaternion `json:"orientation"`
}

// PoseSink receives the committed pose once per tick, after the
// dynamics have settled. Calls are fire-and-forget; a slow or
// panicking sink must not stall the simulation.
type PoseSink interface {
	CommitPose(Pose)
}

// ViewSink receives the computed camera placement in the manual camera
// modes. In orbit mode the renderer's own tracking has the camera and
// nothing is committed.
type ViewSink interface {
	CommitView(camera.View)
}

type stage struct {
	name string
	fn   func(dt float32)
}

type Sim struct {
	mu util.LoggingMutex
	lg *log.Logger

	state    flight.State
	controls *flight.Controls
	dynamics *flight.Dynamics
	ap       *flight.Autopilot
	cam      *camera.Follower
	sampler  *terrain.Sampler

	scenario   *Scenario
	profiles   []flight.Profile
	profileIdx int

	events  *EventStream
	metrics *metrics.Metrics

	poseSink PoseSink
	viewSink ViewSink

	simRate        float32
	paused         bool
	lastUpdateTime time.Time
	updateTimeSlop time.Duration
	tickQuantum    time.Duration
	simTime        time.Duration
	ticks          int64
	stagePanics    int64

	stages []stage

	vsTrend *util.RingBuffer[float32]
	track   *trackRecorder
	slots   []*Snapshot
}

type Config struct {
	Scenario *Scenario
	// Provider overrides the scenario's terrain when non-nil.
	Provider terrain.Provider
	PoseSink PoseSink
	ViewSink ViewSink
	Tracker  camera.EntityTracker
	// EntityID names the aircraft for the renderer's entity tracking.
	EntityID string
	Metrics  *metrics.Metrics
	TickRate int
	SimRate  float32
	// Slots is the number of in-memory snapshot slots.
	Slots           int
	CameraSmoothing float32
	Lg              *log.Logger
}

func New(config Config) (*Sim, error) {
	sc := config.Scenario
	if sc == nil {
		sc = DefaultScenario()
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	provider := config.Provider
	if provider == nil {
		var err error
		if provider, err = sc.Terrain.NewProvider(); err != nil {
			return nil, err
		}
	}

	tickRate := config.TickRate
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	simRate := config.SimRate
	if simRate == 0 {
		simRate = 1
	}
	if simRate < MinSimRate || simRate > MaxSimRate {
		return nil, ErrInvalidSimRate
	}
	nslots := config.Slots
	if nslots <= 0 {
		nslots = DefaultSlots
	}
	entityID := config.EntityID
	if entityID == "" {
		entityID = "aircraft"
	}

	lg := config.Lg
	profiles := sc.Profiles
	idx := sc.InitialProfile()

	s := &Sim{
		lg:          lg,
		controls:    flight.NewControls(),
		dynamics:    flight.NewDynamics(profiles[idx]),
		ap:          flight.NewAutopilot(),
		cam:         camera.NewFollower(config.Tracker, entityID, config.CameraSmoothing),
		sampler:     terrain.NewSampler(provider, terrain.NewTileCache(1024, time.Minute), terrain.DefaultSampleInterval, lg),
		scenario:    sc,
		profiles:    profiles,
		profileIdx:  idx,
		events:      NewEventStream(lg),
		metrics:     config.Metrics,
		poseSink:    config.PoseSink,
		viewSink:    config.ViewSink,
		simRate:     simRate,
		tickQuantum: time.Second / time.Duration(tickRate),
		vsTrend:     util.NewRingBuffer[float32](2 * tickRate),
		track:       newTrackRecorder(defaultTrackCapacity, defaultTrackInterval),
	}
	s.slots = make([]*Snapshot, nslots)
	s.dynamics.Wind = sc.Wind
	s.state = sc.State(profiles[idx])
	s.settleSpawn(provider)
	s.lastUpdateTime = time.Now()

	s.stages = []stage{
		{"controls", s.controlsStage},
		{"dynamics", s.dynamicsStage},
		{"autopilot", s.autopilotStage},
		{"camera", s.cameraStage},
		{"commit", s.commitStage},
	}

	s.lg.Info("starting sim", slog.String("scenario", sc.Name),
		slog.String("profile", profiles[idx].Name), slog.Any("state", s.state))
	s.events.Post(Event{Type: ScenarioLoadedEvent, Scenario: sc.Name})
	return s, nil
}

// settleSpawn puts a grounded spawn onto the sampled terrain rather
// than the scenario's nominal field elevation. This is the one place a
// terrain query is allowed to block; it is bounded by a timeout.
func (s *Sim) settleSpawn(provider terrain.Provider) {
	if !s.state.OnGround || provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h, err := provider.HeightAt(ctx, s.state.Position)
	if err != nil {
		s.lg.Warn("spawn terrain probe failed; using scenario elevation",
			slog.Any("error", err))
		return
	}
	s.sampler.Prime(h)
	s.state.Altitude = h + s.profile().GearClearance
}

func (s *Sim) profile() flight.Profile {
	return s.profiles[s.profileIdx]
}

func longUpdateThreshold() time.Duration {
	// The race detector slows everything down enough that the usual
	// threshold just generates noise.
	return util.Select(log.RaceEnabled, time.Second, 200*time.Millisecond)
}

// Update advances the simulation by however much wall-clock time has
// passed since the last call, scaled by the sim rate and quantized
// into fixed ticks. Leftover time is banked for the next call.
func (s *Sim) Update() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	start := time.Now()
	defer func() {
		if d := time.Since(start); d > longUpdateThreshold() {
			s.lg.Warn("unexpectedly long sim update", slog.Duration("duration", d),
				slog.Int64("ticks", s.ticks))
		}
	}()

	elapsed := start.Sub(s.lastUpdateTime)
	s.lastUpdateTime = start
	if s.paused {
		return
	}
	s.advanceLocked(time.Duration(s.simRate * float32(elapsed)))
}

func (s *Sim) advanceLocked(elapsed time.Duration) {
	elapsed += s.updateTimeSlop
	for elapsed >= s.tickQuantum {
		elapsed -= s.tickQuantum
		s.tickLocked(float32(s.tickQuantum.Seconds()))
	}
	s.updateTimeSlop = elapsed
}

// Advance runs exactly one tick of the given length. It is the
// entry point for hosts that drive the simulation from their own frame
// callback instead of Update's wall clock.
func (s *Sim) Advance(dt float32) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	if s.paused {
		return
	}
	s.tickLocked(dt)
}

func (s *Sim) tickLocked(dt float32) {
	start := time.Now()
	for _, st := range s.stages {
		s.runStage(st, dt)
	}
	s.ticks++
	s.simTime += time.Duration(float64(dt) * float64(time.Second))
	s.vsTrend.Add(s.state.VerticalSpeed)

	q, f := s.sampler.Stats()
	s.metrics.ObserveTick(s.state, s.ap.Enabled, time.Since(start), q, f)
}

// runStage isolates a panicking pipeline stage to the current tick:
// the stage's work is lost but the remaining stages and future ticks
// proceed.
func (s *Sim) runStage(st stage, dt float32) {
	defer func() {
		if r := recover(); r != nil {
			s.stagePanics++
			s.metrics.StagePanic(st.name)
			s.lg.Error("sim stage panicked", slog.String("stage", st.name),
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	st.fn(dt)
}

///////////////////////////////////////////////////////////////////////////
// pipeline stages

func (s *Sim) controlsStage(dt float32) {
	if s.controls.WasPressed(flight.KeyToggleAutopilot) {
		s.toggleAutopilotLocked()
	}
	if s.controls.WasPressed(flight.KeyCycleCamera) {
		s.cycleCameraLocked()
	}
	if s.controls.WasPressed(flight.KeyCycleProfile) {
		s.cycleProfileLocked()
	}
	if s.controls.WasPressed(flight.KeyTogglePause) {
		s.setPausedLocked(!s.paused)
	}
	s.controls.Apply(&s.state, s.profile(), dt)
}

func (s *Sim) dynamicsStage(dt float32) {
	s.sampler.Update(time.Now(), s.state.Position)

	wasOnGround := s.state.OnGround
	s.dynamics.Step(&s.state, s.sampler.Height(), dt)

	if s.state.OnGround != wasOnGround {
		ev := Event{
			Type:     util.Select(s.state.OnGround, TouchdownEvent, LiftoffEvent),
			Position: s.state.Position,
			Altitude: s.state.Altitude,
			Speed:    s.state.Speed,
		}
		s.events.Post(ev)
		s.lg.Info(util.Select(s.state.OnGround, "touchdown", "liftoff"),
			slog.Any("state", s.state))
	}
}

func (s *Sim) autopilotStage(dt float32) {
	wasEnabled := s.ap.Enabled
	s.ap.Update(&s.state, s.profile(), dt)
	if wasEnabled && !s.ap.Enabled {
		s.events.Post(Event{Type: AutopilotDisengagedEvent, Position: s.state.Position,
			Altitude: s.state.Altitude, Speed: s.state.Speed})
		s.lg.Warn("autopilot safety disengage", slog.Any("state", s.state))
	}
}

func (s *Sim) cameraStage(dt float32) {
	s.cam.Update(&s.state, dt)
}

func (s *Sim) commitStage(dt float32) {
	if s.poseSink != nil {
		s.poseSink.CommitPose(Pose{
			Position:    s.state.Position,
			Altitude:    s.state.Altitude,
			Orientation: s.state.Orientation(),
		})
	}
	if s.viewSink != nil && s.cam.Mode() != camera.Orbit {
		s.viewSink.CommitView(s.cam.View())
	}
	s.track.record(s.simTime, &s.state)
}

///////////////////////////////////////////////////////////////////////////
// control surface

func (s *Sim) KeyDown(k flight.Key) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.controls.KeyDown(k)
}

func (s *Sim) KeyUp(k flight.Key) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.controls.KeyUp(k)
}

func (s *Sim) JoystickDrag(dx, dy, radius float32) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.controls.JoystickDrag(dx, dy, radius)
}

func (s *Sim) JoystickRelease() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.controls.JoystickRelease()
}

func (s *Sim) SetThrottle(slider float32) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.controls.SetThrottle(slider)
}

func (s *Sim) EngageAutopilot() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.engageAutopilotLocked()
}

func (s *Sim) engageAutopilotLocked() {
	s.ap.Engage(&s.state)
	s.events.Post(Event{Type: AutopilotEngagedEvent, Position: s.state.Position,
		Altitude: s.state.Altitude, Speed: s.state.Speed})
	s.lg.Info("autopilot engaged", slog.Any("autopilot", s.ap))
}

func (s *Sim) DisengageAutopilot() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.disengageAutopilotLocked()
}

func (s *Sim) disengageAutopilotLocked() {
	if !s.ap.Enabled {
		return
	}
	s.ap.Disengage()
	s.events.Post(Event{Type: AutopilotDisengagedEvent, Position: s.state.Position,
		Altitude: s.state.Altitude, Speed: s.state.Speed})
	s.lg.Info("autopilot disengaged")
}

func (s *Sim) ToggleAutopilot() bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.toggleAutopilotLocked()
	return s.ap.Enabled
}

func (s *Sim) toggleAutopilotLocked() {
	if s.ap.Enabled {
		s.disengageAutopilotLocked()
	} else {
		s.engageAutopilotLocked()
	}
}

func (s *Sim) AutopilotEnabled() bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.ap.Enabled
}

// SetAutopilotAltitude sets the altitude-hold target, meters MSL.
func (s *Sim) SetAutopilotAltitude(alt float32) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.ap.SetTargetAltitude(alt)
	s.lg.Info("autopilot altitude target", slog.Float64("altitude", float64(alt)))
}

// SetAutopilotHeading sets the heading-hold target, radians.
func (s *Sim) SetAutopilotHeading(hdg float32) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.ap.SetTargetHeading(hdg)
	s.lg.Info("autopilot heading target",
		slog.Float64("compass", float64(math.HeadingToCompass(hdg))))
}

func (s *Sim) SetVerticalNav(on bool) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.ap.SetVerticalNav(on)
}

func (s *Sim) SetCameraMode(m camera.Mode) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	if m < 0 || m >= camera.NumModes {
		return ErrUnknownCameraMode
	}
	s.cam.SetMode(m)
	s.events.Post(Event{Type: CameraModeChangedEvent, CameraMode: m})
	return nil
}

func (s *Sim) CycleCamera() camera.Mode {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.cycleCameraLocked()
}

func (s *Sim) cycleCameraLocked() camera.Mode {
	m := s.cam.CycleMode()
	s.events.Post(Event{Type: CameraModeChangedEvent, CameraMode: m})
	s.lg.Info("camera mode", slog.String("mode", m.String()))
	return m
}

func (s *Sim) CameraMode() camera.Mode {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.cam.Mode()
}

func (s *Sim) CameraView() camera.View {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.cam.View()
}

func (s *Sim) CycleProfile() string {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.cycleProfileLocked()
}

func (s *Sim) cycleProfileLocked() string {
	s.profileIdx = (s.profileIdx + 1) % len(s.profiles)
	s.dynamics.Profile = s.profile()
	name := s.profile().Name
	s.events.Post(Event{Type: ProfileChangedEvent, Profile: name})
	s.lg.Info("aircraft profile", slog.String("profile", name))
	return name
}

func (s *Sim) SelectProfile(name string) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	for i, p := range s.profiles {
		if p.Name == name {
			s.profileIdx = i
			s.dynamics.Profile = p
			s.events.Post(Event{Type: ProfileChangedEvent, Profile: name})
			return nil
		}
	}
	return flight.ErrUnknownProfile
}

func (s *Sim) Profile() flight.Profile {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.profile()
}

func (s *Sim) SetWind(w wx.Wind) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	if err := w.Validate(); err != nil {
		return err
	}
	s.dynamics.Wind = w
	s.lg.Info("wind", slog.Any("wind", w))
	return nil
}

func (s *Sim) SetSimRate(r float32) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	if !math.IsFinite(r) || r < MinSimRate || r > MaxSimRate {
		return ErrInvalidSimRate
	}
	s.simRate = r
	s.lg.Info("sim rate", slog.Float64("rate", float64(r)))
	return nil
}

func (s *Sim) SimRate() float32 {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.simRate
}

func (s *Sim) Pause() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.setPausedLocked(true)
}

func (s *Sim) Resume() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.setPausedLocked(false)
}

func (s *Sim) TogglePause() bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.setPausedLocked(!s.paused)
	return s.paused
}

func (s *Sim) setPausedLocked(paused bool) {
	if s.paused == paused {
		return
	}
	s.paused = paused
	s.events.Post(Event{Type: util.Select(paused, PausedEvent, ResumedEvent)})
	s.lg.Info(util.Select(paused, "paused", "resumed"),
		slog.Duration("sim_time", s.simTime))
}

func (s *Sim) Paused() bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.paused
}

// GetState returns a copy of the aircraft state.
func (s *Sim) GetState() flight.State {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.state
}

func (s *Sim) SimTime() time.Duration {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.simTime
}

// Subscribe returns an event subscription; see EventStream.
func (s *Sim) Subscribe() *EventsSubscription {
	return s.events.Subscribe()
}

// Shutdown stops background work and persists the snapshot slots.
func (s *Sim) Shutdown() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	if err := s.persistSnapshotsLocked(); err != nil {
		s.lg.Warn("persisting snapshots", slog.Any("error", err))
	}
	s.events.Destroy()
	s.lg.Info("sim shut down", slog.Int64("ticks", s.ticks),
		slog.Duration("sim_time", s.simTime))
}

///////////////////////////////////////////////////////////////////////////
// status

// Status is a point-in-time summary for the HTTP handlers and the
// interactive prompt.
type Status struct {
	Scenario   string         `json:"scenario"`
	Profile    string         `json:"profile"`
	State      flight.State   `json:"state"`
	CompassDeg float32        `json:"compass"`
	Autopilot  map[string]any `json:"autopilot"`
	CameraMode string         `json:"camera_mode"`
	Wind       wx.Wind        `json:"wind"`
	Paused     bool           `json:"paused"`
	SimRate    float32        `json:"sim_rate"`
	SimTime    float64        `json:"sim_time"`
	Ticks      int64          `json:"ticks"`

	TerrainHeight   float32 `json:"terrain_height"`
	TerrainQueries  int64   `json:"terrain_queries"`
	TerrainFailures int64   `json:"terrain_failures"`
	StagePanics     int64   `json:"stage_panics"`

	VerticalSpeedTrend float32 `json:"vertical_speed_trend"`
	Slots              []bool  `json:"slots"`
}

func (s *Sim) Status() Status {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	q, f := s.sampler.Stats()
	slots := make([]bool, len(s.slots))
	for i, sn := range s.slots {
		slots[i] = sn != nil
	}

	return Status{
		Scenario:   s.scenario.Name,
		Profile:    s.profile().Name,
		State:      s.state,
		CompassDeg: math.HeadingToCompass(s.state.Heading),
		Autopilot: map[string]any{
			"enabled":         s.ap.Enabled,
			"altitude_hold":   s.ap.AltitudeHold,
			"heading_hold":    s.ap.HeadingHold,
			"vertical_nav":    s.ap.VerticalNav,
			"target_altitude": s.ap.TargetAltitude,
			"target_compass":  math.HeadingToCompass(s.ap.TargetHeading),
		},
		CameraMode:         s.cam.Mode().String(),
		Wind:               s.dynamics.Wind,
		Paused:             s.paused,
		SimRate:            s.simRate,
		SimTime:            s.simTime.Seconds(),
		Ticks:              s.ticks,
		TerrainHeight:      s.sampler.Height(),
		TerrainQueries:     q,
		TerrainFailures:    f,
		StagePanics:        s.stagePanics,
		VerticalSpeedTrend: s.verticalSpeedTrendLocked(),
		Slots:              slots,
	}
}

// verticalSpeedTrendLocked averages the last couple of seconds of
// vertical speed so displays don't flicker with every tick.
func (s *Sim) verticalSpeedTrendLocked() float32 {
	n := s.vsTrend.Size()
	if n == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += s.vsTrend.Get(i)
	}
	return sum / float32(n)
}
