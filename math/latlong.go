// math/latlong.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import "fmt"

// EarthRadius is the mean radius of the Earth, in meters.
const EarthRadius = 6371000

// Point2LL represents a 2D point on the Earth in longitude-latitude, in
// radians. Important: 0 (x) is longitude, 1 (y) is latitude.
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 {
	return p[0]
}

func (p Point2LL) Latitude() float32 {
	return p[1]
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", Degrees(p[1]), Degrees(p[0])) // latitude, longitude
}

// Offset2LL translates p by the given displacement in meters east and
// north, on the tangent plane at p's latitude and the given altitude.
// This approximation degenerates at the poles, which the simulation does
// not visit.
func Offset2LL(p Point2LL, eastM, northM, altM float32) Point2LL {
	r := float32(EarthRadius) + altM
	return Point2LL{p[0] + eastM/(r*Cos(p[1])), p[1] + northM/r}
}

// ENUBetween returns the displacement from a (at altitude aAlt) to b (at
// altitude bAlt) in meters east, north, and up, on the tangent plane at
// a's latitude.
func ENUBetween(a Point2LL, aAlt float32, b Point2LL, bAlt float32) [3]float32 {
	r := float32(EarthRadius) + aAlt
	return [3]float32{(b[0] - a[0]) * r * Cos(a[1]), (b[1] - a[1]) * r, bAlt - aAlt}
}
