// camera/camera.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package camera derives a viewpoint from the aircraft pose. Chase and
// first-person modes are computed here with exponential smoothing;
// orbit mode hands the camera to the host renderer's entity tracking
// and computes nothing.
package camera

import (
	"log/slog"

	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/math"
)

type Mode int

const (
	Orbit Mode = iota
	Chase
	FirstPerson
	NumModes
)

func (m Mode) String() string {
	return [...]string{"orbit", "chase", "first person"}[m]
}

// Next cycles through the modes in display order.
func (m Mode) Next() Mode {
	return (m + 1) % NumModes
}

// EntityTracker is the host renderer's built-in follow-camera. The
// follower engages it for orbit mode and must release it before doing
// any manual placement, or the two fight over the camera.
type EntityTracker interface {
	SetTrackedEntity(id string)
	ClearTrackedEntity()
}

// View is a computed camera placement. Forward and Up are unit vectors
// in local east/north/up coordinates.
type View struct {
	Position math.Point2LL `json:"position"`
	Altitude float32       `json:"altitude"`
	Forward  [3]float32    `json:"forward"`
	Up       [3]float32    `json:"up"`
}

const (
	// Body-frame offsets, meters.
	chaseBack  = 32
	chaseUp    = 12
	firstAhead = 7
	firstUp    = 2.6

	DefaultSmoothing = 0.05
)

// Follower tracks the aircraft with the currently selected mode. It is
// driven once per tick from the simulation and is not goroutine-safe.
type Follower struct {
	tracker  EntityTracker
	entityID string

	mode     Mode
	lastMode Mode
	started  bool

	// smoothing is the per-tick exponential factor in (0,1]; small
	// values lag more but kill jitter.
	smoothing float32

	smoothedPos math.Point2LL
	smoothedAlt float32
	view        View
}

// NewFollower returns a follower starting in orbit mode. tracker may
// be nil when the host has no entity tracking; orbit then simply
// leaves the camera alone.
func NewFollower(tracker EntityTracker, entityID string, smoothing float32) *Follower {
	if !(smoothing > 0 && smoothing <= 1) {
		smoothing = DefaultSmoothing
	}
	return &Follower{
		tracker:   tracker,
		entityID:  entityID,
		smoothing: smoothing,
	}
}

func (f *Follower) Mode() Mode { return f.mode }

// SetMode requests a mode change; the tracker handoff happens on the
// next Update so that tracker calls stay on the simulation tick.
func (f *Follower) SetMode(m Mode) {
	if m >= 0 && m < NumModes {
		f.mode = m
	}
}

// CycleMode advances to the next mode and returns it.
func (f *Follower) CycleMode() Mode {
	f.mode = f.mode.Next()
	return f.mode
}

// Update recomputes the view for the tick. Mode transitions engage or
// release the renderer's entity tracking; entering a manual mode
// re-seeds the smoothed position at the desired offset so the camera
// doesn't swoop in from wherever it last was.
func (f *Follower) Update(s *flight.State, dt float32) {
	reseed := false
	if !f.started || f.mode != f.lastMode {
		if f.tracker != nil {
			if f.started && f.lastMode == Orbit && f.mode != Orbit {
				f.tracker.ClearTrackedEntity()
			}
			if f.mode == Orbit {
				f.tracker.SetTrackedEntity(f.entityID)
			}
		}
		reseed = f.mode != Orbit
		f.lastMode = f.mode
		f.started = true
	}

	if f.mode == Orbit {
		// The renderer is tracking the entity; nothing to compute.
		return
	}

	q := s.Orientation()
	fwd := q.Rotate([3]float32{1, 0, 0})
	up := q.Rotate([3]float32{0, 0, 1})

	var offset [3]float32
	switch f.mode {
	case Chase:
		offset = math.Add3f(math.Scale3f(fwd, -chaseBack), math.Scale3f(up, chaseUp))
	case FirstPerson:
		offset = math.Add3f(math.Scale3f(fwd, firstAhead), math.Scale3f(up, firstUp))
	}

	desiredPos := math.Offset2LL(s.Position, offset[0], offset[1], s.Altitude)
	desiredAlt := s.Altitude + offset[2]

	if reseed {
		f.smoothedPos = desiredPos
		f.smoothedAlt = desiredAlt
	} else {
		f.smoothedPos[0] += (desiredPos[0] - f.smoothedPos[0]) * f.smoothing
		f.smoothedPos[1] += (desiredPos[1] - f.smoothedPos[1]) * f.smoothing
		f.smoothedAlt += (desiredAlt - f.smoothedAlt) * f.smoothing
	}

	dir := math.ENUBetween(f.smoothedPos, f.smoothedAlt, s.Position, s.Altitude)
	f.view = View{
		Position: f.smoothedPos,
		Altitude: f.smoothedAlt,
		Forward:  math.Normalize3f(dir),
		Up:       up,
	}
}

// View returns the last computed placement. Meaningful only in chase
// and first-person modes.
func (f *Follower) View() View { return f.view }

// Snapshot and Restore capture the follower state that belongs to the
// aircraft rather than to the host (the tracker itself is not saved).
type Snapshot struct {
	Mode        Mode          `json:"mode"`
	SmoothedPos math.Point2LL `json:"smoothed_pos"`
	SmoothedAlt float32       `json:"smoothed_alt"`
}

func (f *Follower) Snapshot() Snapshot {
	return Snapshot{Mode: f.mode, SmoothedPos: f.smoothedPos, SmoothedAlt: f.smoothedAlt}
}

// Restore reapplies a snapshot. The mode change takes the usual
// transition path on the next Update so tracker handoff stays correct.
func (f *Follower) Restore(sn Snapshot) {
	f.SetMode(sn.Mode)
	f.smoothedPos = sn.SmoothedPos
	f.smoothedAlt = sn.SmoothedAlt
}

func (f *Follower) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", f.mode.String()),
		slog.Any("position", f.smoothedPos),
		slog.Float64("altitude", float64(f.smoothedAlt)))
}
