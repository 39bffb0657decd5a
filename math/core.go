// math/core.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// The simulation state is float32 throughout, so wrap the float64-only
// standard library functions once here rather than sprinkling conversions
// through the callers.

const Pi = 3.1415926535897932384626433

func Sin(a float32) float32 {
	return float32(gomath.Sin(float64(a)))
}

func Cos(a float32) float32 {
	return float32(gomath.Cos(float64(a)))
}

func Tan(a float32) float32 {
	return float32(gomath.Tan(float64(a)))
}

func Atan2(y, x float32) float32 {
	return float32(gomath.Atan2(float64(y), float64(x)))
}

func Sqrt(a float32) float32 {
	return float32(gomath.Sqrt(float64(a)))
}

func Mod(a, b float32) float32 {
	return float32(gomath.Mod(float64(a), float64(b)))
}

func Exp(x float32) float32 {
	return float32(gomath.Exp(float64(x)))
}

func Pow(a, b float32) float32 {
	return float32(gomath.Pow(float64(a), float64(b)))
}

func Floor(v float32) float32 {
	return float32(gomath.Floor(float64(v)))
}

func Round(v float32) float32 {
	return float32(gomath.Round(float64(v)))
}

func Copysign(a, b float32) float32 {
	return float32(gomath.Copysign(float64(a), float64(b)))
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float32) bool {
	v64 := float64(v)
	return !gomath.IsNaN(v64) && !gomath.IsInf(v64, 0)
}

// Degrees converts an angle expressed in radians to degrees.
func Degrees(r float32) float32 {
	return r * 180 / Pi
}

// Radians converts an angle expressed in degrees to radians.
func Radians(d float32) float32 {
	return d / 180 * Pi
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V {
	return v * v
}

// Lerp performs linear interpolation between a and b: x=0 gives a, x=1
// gives b.
func Lerp(x, a, b float32) float32 {
	return (1-x)*a + x*b
}
