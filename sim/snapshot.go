// sim/snapshot.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aloft-sim/aloft/camera"
	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/util"
	"github.com/brunoga/deep"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// slotsFilename is where the slots are persisted between runs, under
// the user cache directory.
const slotsFilename = "snapshots.msgpack"

// snapshotFormatVersion guards the export bundle; bump on incompatible
// changes.
const snapshotFormatVersion = 1

// Snapshot captures everything needed to put the flight back where it
// was: the aircraft state, the autopilot configuration, the camera,
// and which profile was selected. The PID accumulators inside the
// autopilot survive in-memory restores but not the disk roundtrip;
// a restored autopilot re-converges just as a freshly engaged one
// does.
type Snapshot struct {
	State     flight.State     `json:"state"`
	Autopilot flight.Autopilot `json:"autopilot"`
	Camera    camera.Snapshot  `json:"camera"`
	Profile   string           `json:"profile"`
	SimTime   time.Duration    `json:"sim_time"`
	SavedAt   time.Time        `json:"saved_at"`
}

func (sn *Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("state", sn.State),
		slog.String("profile", sn.Profile),
		slog.Time("saved_at", sn.SavedAt))
}

// SaveSnapshot captures the current simulation into the given slot,
// overwriting whatever was there.
func (s *Sim) SaveSnapshot(slot int) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if slot < 0 || slot >= len(s.slots) {
		return fmt.Errorf("slot %d: %w", slot, ErrInvalidSnapshotSlot)
	}

	sn := Snapshot{
		State:     s.state,
		Autopilot: *s.ap,
		Camera:    s.cam.Snapshot(),
		Profile:   s.profile().Name,
		SimTime:   s.simTime,
		SavedAt:   time.Now(),
	}
	// Deep-copy so later fields with reference types can't alias the
	// live simulation.
	s.slots[slot] = deep.MustCopy(&sn)

	s.events.Post(Event{Type: SnapshotSavedEvent, Slot: slot})
	s.metrics.SnapshotSaved()
	s.lg.Info("saved snapshot", slog.Int("slot", slot), slog.Any("snapshot", s.slots[slot]))
	return nil
}

// RestoreSnapshot rewinds the simulation to the snapshot in the given
// slot. The slot keeps its contents, so a restore can be repeated.
func (s *Sim) RestoreSnapshot(slot int) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if slot < 0 || slot >= len(s.slots) {
		return fmt.Errorf("slot %d: %w", slot, ErrInvalidSnapshotSlot)
	}
	sn := s.slots[slot]
	if sn == nil {
		return fmt.Errorf("slot %d: %w", slot, ErrEmptySnapshotSlot)
	}

	restored := deep.MustCopy(sn)
	s.state = restored.State
	*s.ap = restored.Autopilot
	s.cam.Restore(restored.Camera)
	for i, p := range s.profiles {
		if p.Name == restored.Profile {
			s.profileIdx = i
			s.dynamics.Profile = p
		}
	}
	s.simTime = restored.SimTime
	s.updateTimeSlop = 0

	s.events.Post(Event{Type: SnapshotRestoredEvent, Slot: slot})
	s.metrics.SnapshotRestored()
	s.lg.Info("restored snapshot", slog.Int("slot", slot), slog.Any("snapshot", sn))
	return nil
}

// PersistSnapshots writes the slots to the user cache directory; they
// are picked up again by LoadPersistedSnapshots on the next run.
func (s *Sim) PersistSnapshots() error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.persistSnapshotsLocked()
}

func (s *Sim) persistSnapshotsLocked() error {
	return util.CacheStoreObject(slotsFilename, s.slots)
}

// LoadPersistedSnapshots restores the slot contents saved by a
// previous run. Missing or undecodable files are not an error; the
// slots just start empty.
func (s *Sim) LoadPersistedSnapshots() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	var slots []*Snapshot
	if _, err := util.CacheRetrieveObject(slotsFilename, &slots); err != nil {
		s.lg.Debug("no persisted snapshots", slog.Any("error", err))
		return
	}
	n := 0
	for i := range s.slots {
		if i < len(slots) && slots[i] != nil {
			s.slots[i] = slots[i]
			n++
		}
	}
	s.lg.Info("loaded persisted snapshots", slog.Int("count", n))
}

// snapshotBundle is the export container: each occupied slot is
// msgpack-encoded on its own, the blobs are delta-encoded against each
// other (consecutive snapshots of one flight share most of their
// bytes), and the whole thing is zstd-compressed.
type snapshotBundle struct {
	Version int
	Slots   []int
	Blobs   [][]byte
}

// ExportSnapshots writes every occupied slot to w in a compact
// portable form, suitable for sharing a set of saved situations.
func (s *Sim) ExportSnapshots(w io.Writer) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	bundle := snapshotBundle{Version: snapshotFormatVersion}
	var blobs [][]byte
	for i, sn := range s.slots {
		if sn == nil {
			continue
		}
		b, err := msgpack.Marshal(sn)
		if err != nil {
			return err
		}
		bundle.Slots = append(bundle.Slots, i)
		blobs = append(blobs, b)
	}
	bundle.Blobs = util.DeltaEncodeBytesSlice(blobs)

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(bundle); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ImportSnapshots reads a bundle written by ExportSnapshots, filling
// the corresponding slots. Slots beyond this sim's configured count
// are dropped with a warning.
func (s *Sim) ImportSnapshots(r io.Reader) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var bundle snapshotBundle
	if err := msgpack.NewDecoder(zr).Decode(&bundle); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidSnapshotFile)
	}
	if bundle.Version != snapshotFormatVersion || len(bundle.Slots) != len(bundle.Blobs) {
		return ErrInvalidSnapshotFile
	}

	blobs := util.DeltaDecodeBytesSlice(bundle.Blobs)
	for i, slot := range bundle.Slots {
		var sn Snapshot
		if err := msgpack.Unmarshal(blobs[i], &sn); err != nil {
			return fmt.Errorf("slot %d: %v: %w", slot, err, ErrInvalidSnapshotFile)
		}
		if slot < 0 || slot >= len(s.slots) {
			s.lg.Warn("dropping imported snapshot: no such slot", slog.Int("slot", slot))
			continue
		}
		s.slots[slot] = &sn
	}
	s.lg.Info("imported snapshots", slog.Int("count", len(bundle.Slots)))
	return nil
}
