// terrain/terrain_test.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package terrain

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aloft-sim/aloft/math"
)

// Chosen away from tile boundaries so float32 rounding cannot flip the
// quantized key in the cache tests.
var testPoint = math.Point2LL{math.Radians(-122.3007), math.Radians(47.6003)}

type scriptedProvider struct {
	calls   atomic.Int32
	heights []float32
	errs    []error
}

func (p *scriptedProvider) HeightAt(ctx context.Context, pt math.Point2LL) (float32, error) {
	i := int(p.calls.Add(1)) - 1
	if i >= len(p.heights) {
		i = len(p.heights) - 1
	}
	return p.heights[i], p.errs[i]
}

type blockingProvider struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan sample
}

func (p *blockingProvider) HeightAt(ctx context.Context, pt math.Point2LL) (float32, error) {
	p.calls.Add(1)
	p.entered <- struct{}{}
	r := <-p.release
	return r.height, r.err
}

// drainUntil polls the sampler until cond holds or the deadline passes;
// the result of an async query can only be observed via a later Update.
func drainUntil(t *testing.T, s *Sampler, now time.Time, cond func() bool) {
	t.Helper()
	for start := time.Now(); time.Since(start) < 5*time.Second; {
		s.Update(now, testPoint)
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("sampler never observed expected result")
}

func TestSamplerSingleOutstanding(t *testing.T) {
	p := &blockingProvider{entered: make(chan struct{}, 1), release: make(chan sample)}
	s := NewSampler(p, nil, 10*time.Millisecond, nil)

	now := time.Now()
	s.Update(now, testPoint)
	<-p.entered

	// The first query is still in flight, so later updates must not
	// launch another one even though the interval has passed.
	s.Update(now.Add(time.Second), testPoint)
	s.Update(now.Add(2*time.Second), testPoint)
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("%d provider queries outstanding, expected 1", n)
	}
	if s.Height() != 0 {
		t.Errorf("height %v while query pending, expected fallback 0", s.Height())
	}

	p.release <- sample{height: 42}
	drainUntil(t, s, now, func() bool { return s.Height() == 42 })

	if q, f := s.Stats(); q != 1 || f != 0 {
		t.Errorf("stats (%d, %d), expected (1, 0)", q, f)
	}
}

func TestSamplerFailureKeepsHeight(t *testing.T) {
	p := &scriptedProvider{
		heights: []float32{120, 0},
		errs:    []error{nil, errors.New("terrain service unavailable")},
	}
	s := NewSampler(p, nil, 10*time.Millisecond, nil)

	now := time.Now()
	s.Update(now, testPoint)
	drainUntil(t, s, now, func() bool { return s.Height() == 120 })

	// Next interval: the query fails and the previous height is kept.
	now = now.Add(time.Second)
	s.Update(now, testPoint)
	drainUntil(t, s, now, func() bool { _, f := s.Stats(); return f == 1 })

	if s.Height() != 120 {
		t.Errorf("height %v after failed query, expected 120 retained", s.Height())
	}
}

func TestSamplerInterval(t *testing.T) {
	p := &scriptedProvider{heights: []float32{10}, errs: []error{nil}}
	s := NewSampler(p, nil, time.Minute, nil)

	now := time.Now()
	s.Update(now, testPoint)
	drainUntil(t, s, now, func() bool { return s.Height() == 10 })

	// Inside the sampling interval nothing new is issued.
	for i := range 10 {
		s.Update(now.Add(time.Duration(i)*time.Second), testPoint)
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("%d provider queries within one interval, expected 1", n)
	}
}

func TestSamplerTileCacheHit(t *testing.T) {
	tiles := NewTileCache(16, time.Hour)
	tiles.Add(testPoint, 77)

	p := &scriptedProvider{heights: []float32{0}, errs: []error{nil}}
	s := NewSampler(p, tiles, 10*time.Millisecond, nil)

	s.Update(time.Now(), testPoint)
	if s.Height() != 77 {
		t.Errorf("height %v, expected cached 77", s.Height())
	}
	if n := p.calls.Load(); n != 0 {
		t.Errorf("%d provider queries despite tile cache hit, expected 0", n)
	}
}

func TestSamplerNilProvider(t *testing.T) {
	s := NewSampler(nil, nil, 10*time.Millisecond, nil)
	s.Update(time.Now(), testPoint)
	if s.Height() != 0 {
		t.Errorf("height %v with no provider, expected 0", s.Height())
	}
	if q, _ := s.Stats(); q != 0 {
		t.Errorf("%d queries with no provider, expected 0", q)
	}
}

func TestSynthetic(t *testing.T) {
	var syn Synthetic
	ctx := context.Background()

	h0, err := syn.HeightAt(ctx, testPoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h1, _ := syn.HeightAt(ctx, testPoint)
	if h0 != h1 {
		t.Errorf("synthetic provider not deterministic: %v vs %v", h0, h1)
	}
	if h0 < 0 {
		t.Errorf("synthetic height %v below sea level", h0)
	}

	far := math.Point2LL{testPoint[0] + 0.01, testPoint[1] + 0.01}
	hf, _ := syn.HeightAt(ctx, far)
	if h0 == hf {
		t.Errorf("synthetic field is constant: %v at both test points", h0)
	}
}

func TestTileCache(t *testing.T) {
	tiles := NewTileCache(16, time.Hour)

	if _, ok := tiles.Get(testPoint); ok {
		t.Errorf("hit in empty tile cache")
	}

	tiles.Add(testPoint, 12)
	if h, ok := tiles.Get(testPoint); !ok || h != 12 {
		t.Errorf("got (%v, %v), expected (12, true)", h, ok)
	}

	// A point within the same tile shares the entry; a distant point does
	// not.
	near := math.Point2LL{testPoint[0] + math.Radians(0.0001), testPoint[1]}
	if h, ok := tiles.Get(near); !ok || h != 12 {
		t.Errorf("nearby point missed the tile: (%v, %v)", h, ok)
	}
	farAway := math.Point2LL{testPoint[0] + math.Radians(1), testPoint[1]}
	if _, ok := tiles.Get(farAway); ok {
		t.Errorf("distant point unexpectedly hit the tile cache")
	}
}
