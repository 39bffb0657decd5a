// terrain/provider.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package terrain supplies ground height samples to the flight dynamics
// update. Providers may be slow or unavailable; the Sampler hides both
// behind a cached last-known height so the per-tick update never waits.
package terrain

import (
	"context"

	"github.com/aloft-sim/aloft/math"
)

type Provider interface {
	// HeightAt returns the ground height in meters MSL at the given
	// point. It may block (network, disk) and is never called on the
	// simulation goroutine.
	HeightAt(ctx context.Context, p math.Point2LL) (float32, error)
}

// Flat is a constant-height provider, useful for ocean scenarios and
// tests.
type Flat struct {
	Height float32
}

func (f Flat) HeightAt(_ context.Context, p math.Point2LL) (float32, error) {
	return f.Height, nil
}

// Synthetic generates a deterministic rolling-hills elevation field from
// overlapping sine waves. It stands in for a real terrain database in the
// headless host; anything below sea level is reported as 0.
type Synthetic struct {
	// Scale exaggerates the field vertically; zero means 1.
	Scale float32
}

func (s Synthetic) HeightAt(_ context.Context, p math.Point2LL) (float32, error) {
	// Arc length at the equator is close enough for a height field.
	x := p[0] * math.EarthRadius
	y := p[1] * math.EarthRadius

	h := 120*math.Sin(x/9200) + 55*math.Sin((x+y)/4100)
	if s.Scale != 0 {
		h *= s.Scale
	}
	return max(0, h), nil
}
