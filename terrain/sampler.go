// terrain/sampler.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package terrain

import (
	"context"
	"log/slog"
	"time"

	"github.com/aloft-sim/aloft/log"
	"github.com/aloft-sim/aloft/math"
)

const (
	// How often a fresh sample is requested; between samples the clamp
	// works from the cached height.
	DefaultSampleInterval = 250 * time.Millisecond

	// How long a single provider query may take before it is abandoned.
	DefaultQueryTimeout = 2 * time.Second
)

type sample struct {
	height float32
	err    error
}

// Sampler mediates between the per-tick update and a possibly slow
// Provider. Queries are issued at most once per interval with at most one
// outstanding at a time; the tick always proceeds with the last known
// height, and a result is applied on whatever later tick it arrives
// (stale samples are accepted). With no provider, the ground is sea
// level.
type Sampler struct {
	provider Provider
	tiles    *TileCache
	interval time.Duration
	timeout  time.Duration
	lg       *log.Logger

	height     float32
	pending    bool
	lastLaunch time.Time
	ch         chan sample

	queries  int64
	failures int64
}

func NewSampler(p Provider, tiles *TileCache, interval time.Duration, lg *log.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{
		provider: p,
		tiles:    tiles,
		interval: interval,
		timeout:  DefaultQueryTimeout,
		lg:       lg,
		ch:       make(chan sample, 1),
	}
}

// Height returns the last known ground height in meters MSL, 0 until a
// first sample arrives.
func (s *Sampler) Height() float32 {
	return s.height
}

// Prime seeds the cached height, for spawn-time settling before any
// asynchronous sample has resolved.
func (s *Sampler) Prime(h float32) {
	s.height = h
}

// Stats returns the number of provider queries issued and how many of
// them failed.
func (s *Sampler) Stats() (queries, failures int64) {
	return s.queries, s.failures
}

// Update is called once per tick from the simulation goroutine: it drains
// a completed query, if any, and kicks off a new one if the sampling
// interval has passed. It never blocks.
func (s *Sampler) Update(now time.Time, p math.Point2LL) {
	select {
	case r := <-s.ch:
		s.pending = false
		if r.err != nil {
			// Keep the previous height; the next interval retries.
			s.failures++
			s.lg.Debug("terrain query failed", slog.Any("error", r.err))
		} else {
			s.height = r.height
			s.tiles.Add(p, r.height)
		}
	default:
	}

	if s.provider == nil || s.pending || now.Sub(s.lastLaunch) < s.interval {
		return
	}
	s.lastLaunch = now

	if h, ok := s.tiles.Get(p); ok {
		s.height = h
		return
	}

	s.pending = true
	s.queries++
	go s.query(p)
}

func (s *Sampler) query(p math.Point2LL) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	h, err := s.provider.HeightAt(ctx, p)
	// The channel is buffered and only one query is ever outstanding, so
	// this cannot block.
	s.ch <- sample{height: h, err: err}
}
