// terrain/cache.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package terrain

import (
	"time"

	"github.com/aloft-sim/aloft/math"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Tile edge length in degrees; about 220 meters of latitude, which is
// plenty fine for a gear-clearance clamp.
const tileDegrees = 0.002

type tileKey struct {
	lon, lat int32
}

func keyFor(p math.Point2LL) tileKey {
	return tileKey{
		lon: int32(math.Floor(math.Degrees(p[0]) / tileDegrees)),
		lat: int32(math.Floor(math.Degrees(p[1]) / tileDegrees)),
	}
}

// TileCache memoizes provider samples on a quantized longitude-latitude
// grid so that circling near one spot does not keep re-querying the
// provider.
type TileCache struct {
	cache *expirable.LRU[tileKey, float32]
}

func NewTileCache(size int, ttl time.Duration) *TileCache {
	return &TileCache{cache: expirable.NewLRU[tileKey, float32](size, nil, ttl)}
}

func (tc *TileCache) Get(p math.Point2LL) (float32, bool) {
	if tc == nil {
		return 0, false
	}
	return tc.cache.Get(keyFor(p))
}

func (tc *TileCache) Add(p math.Point2LL, height float32) {
	if tc == nil {
		return
	}
	tc.cache.Add(keyFor(p), height)
}
