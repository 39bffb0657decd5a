// sim/track.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"io"
	"time"

	"github.com/aloft-sim/aloft/flight"
	"github.com/aloft-sim/aloft/math"
	"github.com/aloft-sim/aloft/util"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultTrackCapacity = 4096
	defaultTrackInterval = time.Second

	trackFormatVersion = 1
)

// TrackSample is one breadcrumb of the flight path.
type TrackSample struct {
	T             int64         `json:"t"` // sim time, milliseconds
	Position      math.Point2LL `json:"position"`
	Altitude      float32       `json:"altitude"`
	Speed         float32       `json:"speed"`
	VerticalSpeed float32       `json:"vertical_speed"`
	Heading       float32       `json:"heading"`
	OnGround      bool          `json:"on_ground"`
}

// trackRecorder keeps a bounded breadcrumb trail of the flight. Old
// samples fall off the back once the ring is full.
type trackRecorder struct {
	samples  *util.RingBuffer[TrackSample]
	interval time.Duration
	last     time.Duration
}

func newTrackRecorder(capacity int, interval time.Duration) *trackRecorder {
	return &trackRecorder{
		samples:  util.NewRingBuffer[TrackSample](capacity),
		interval: interval,
		last:     -interval, // record the first tick
	}
}

func (tr *trackRecorder) record(simTime time.Duration, s *flight.State) {
	if simTime-tr.last < tr.interval {
		return
	}
	tr.last = simTime
	tr.samples.Add(TrackSample{
		T:             simTime.Milliseconds(),
		Position:      s.Position,
		Altitude:      s.Altitude,
		Speed:         s.Speed,
		VerticalSpeed: s.VerticalSpeed,
		Heading:       s.Heading,
		OnGround:      s.OnGround,
	})
}

func (tr *trackRecorder) all() []TrackSample {
	out := make([]TrackSample, tr.samples.Size())
	for i := range out {
		out[i] = tr.samples.Get(i)
	}
	return out
}

// TrackSamples returns the recorded breadcrumbs, oldest first.
func (s *Sim) TrackSamples() []TrackSample {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.track.all()
}

// trackExport is the on-disk layout: struct-of-arrays with the
// timestamps delta-encoded, then msgpack and zstd. Successive samples
// are near-identical, so this compresses far better than an array of
// structs would.
type trackExport struct {
	Version       int
	Times         []int64
	Lon           []float32
	Lat           []float32
	Altitude      []float32
	Speed         []float32
	VerticalSpeed []float32
	Heading       []float32
	OnGround      []bool
}

// ExportTrack writes the recorded flight path to w.
func (s *Sim) ExportTrack(w io.Writer) error {
	samples := s.TrackSamples()

	ex := trackExport{Version: trackFormatVersion}
	for _, sm := range samples {
		ex.Times = append(ex.Times, sm.T)
		ex.Lon = append(ex.Lon, sm.Position[0])
		ex.Lat = append(ex.Lat, sm.Position[1])
		ex.Altitude = append(ex.Altitude, sm.Altitude)
		ex.Speed = append(ex.Speed, sm.Speed)
		ex.VerticalSpeed = append(ex.VerticalSpeed, sm.VerticalSpeed)
		ex.Heading = append(ex.Heading, sm.Heading)
		ex.OnGround = append(ex.OnGround, sm.OnGround)
	}
	ex.Times = util.DeltaEncode(ex.Times)

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(ex); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadTrack decodes a track written by ExportTrack.
func ReadTrack(r io.Reader) ([]TrackSample, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var ex trackExport
	if err := msgpack.NewDecoder(zr).Decode(&ex); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidTrackFile)
	}
	if ex.Version != trackFormatVersion {
		return nil, ErrInvalidTrackFile
	}
	n := len(ex.Times)
	for _, l := range []int{len(ex.Lon), len(ex.Lat), len(ex.Altitude), len(ex.Speed),
		len(ex.VerticalSpeed), len(ex.Heading), len(ex.OnGround)} {
		if l != n {
			return nil, ErrInvalidTrackFile
		}
	}

	times := util.DeltaDecode(ex.Times)
	samples := make([]TrackSample, n)
	for i := range samples {
		samples[i] = TrackSample{
			T:             times[i],
			Position:      math.Point2LL{ex.Lon[i], ex.Lat[i]},
			Altitude:      ex.Altitude[i],
			Speed:         ex.Speed[i],
			VerticalSpeed: ex.VerticalSpeed[i],
			Heading:       ex.Heading[i],
			OnGround:      ex.OnGround[i],
		}
	}
	return samples, nil
}
