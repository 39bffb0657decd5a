// wx/wind.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package wx provides the little weather the simulation cares about: a
// wind model that drifts the aircraft track while airborne.
package wx

import (
	"fmt"
	"log/slog"

	"github.com/aloft-sim/aloft/math"
)

// Wind is a steady wind with an optional gust component. Direction is
// where the wind blows from, in compass degrees (0 = north, 90 = east),
// the way scenario authors expect to write it. The zero value is calm
// air.
type Wind struct {
	DirectionDeg float32 `json:"direction_deg"`
	SpeedMS      float32 `json:"speed_ms"`
	GustMS       float32 `json:"gust_ms,omitempty"`
}

// Gusts swell and fade over roughly this many seconds.
const gustPeriod = 23

// Vector returns the drift the wind imparts at simulation time t, in
// meters/second east and north.
func (w Wind) Vector(t float32) [2]float32 {
	speed := w.SpeedMS
	if w.GustMS > w.SpeedMS {
		g := (1 + math.Sin(math.TwoPi*t/gustPeriod)) / 2
		speed = math.Lerp(g, w.SpeedMS, w.GustMS)
	}
	if speed == 0 {
		return [2]float32{}
	}

	// Wind from compass direction c blows toward c+180.
	c := math.Radians(w.DirectionDeg)
	return [2]float32{-speed * math.Sin(c), -speed * math.Cos(c)}
}

func (w Wind) Validate() error {
	if w.SpeedMS < 0 {
		return fmt.Errorf("wind speed %v is negative", w.SpeedMS)
	}
	if w.GustMS != 0 && w.GustMS < w.SpeedMS {
		return fmt.Errorf("gust speed %v is below wind speed %v", w.GustMS, w.SpeedMS)
	}
	if w.DirectionDeg < 0 || w.DirectionDeg > 360 {
		return fmt.Errorf("wind direction %v outside [0, 360]", w.DirectionDeg)
	}
	return nil
}

func (w Wind) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("direction", float64(w.DirectionDeg)),
		slog.Float64("speed", float64(w.SpeedMS)),
		slog.Float64("gust", float64(w.GustMS)))
}
