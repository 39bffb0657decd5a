// math/angle.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Headings are expressed in radians, measured from the local east axis
// toward north, and are always maintained in [0, 2pi).

const TwoPi = 2 * Pi

// NormalizeHeading returns the heading wrapped into [0, 2pi).
func NormalizeHeading(h float32) float32 {
	if h < 0 {
		return NormalizeHeading(h + TwoPi)
	}
	return Mod(h, TwoPi)
}

// HeadingDifference returns the minimum angle between the two headings,
// in [0, pi].
func HeadingDifference(a float32, b float32) float32 {
	var d float32
	if a > b {
		d = a - b
	} else {
		d = b - a
	}
	d = Mod(d, TwoPi)
	if d > Pi {
		d = TwoPi - d
	}
	return d
}

// HeadingSignedTurn returns the signed shortest turn, in [-pi, pi], that
// rotates the heading cur to the heading new. A positive result is a turn
// toward increasing heading.
func HeadingSignedTurn(cur, new float32) float32 {
	diff := NormalizeHeading(new - cur)
	if diff > Pi {
		diff -= TwoPi
	}
	return diff
}

// CompassToHeading converts an aviation compass direction in degrees
// (0 north, 90 east) to a heading.
func CompassToHeading(deg float32) float32 {
	return NormalizeHeading(Radians(90 - deg))
}

// HeadingToCompass is the inverse of CompassToHeading, returning
// degrees in [0, 360).
func HeadingToCompass(h float32) float32 {
	return Degrees(NormalizeHeading(Pi/2 - h))
}
