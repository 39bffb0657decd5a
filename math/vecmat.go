// math/vecmat.go
// Copyright(c) 2024-2026 aloft contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// point 2f

// Various useful functions for arithmetic with 2D points/vectors.
// Names are brief in order to avoid clutter when they're used.

// a+b
func Add2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] + b[0], a[1] + b[1]}
}

// a-b
func Sub2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] - b[0], a[1] - b[1]}
}

// a*s
func Scale2f(a [2]float32, s float32) [2]float32 {
	return [2]float32{s * a[0], s * a[1]}
}

// Length of v
func Length2f(v [2]float32) float32 {
	return Sqrt(v[0]*v[0] + v[1]*v[1])
}

///////////////////////////////////////////////////////////////////////////
// point 3f

// a+b
func Add3f(a [3]float32, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// a-b
func Sub3f(a [3]float32, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// a*s
func Scale3f(a [3]float32, s float32) [3]float32 {
	return [3]float32{s * a[0], s * a[1], s * a[2]}
}

func Dot3f(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func Cross3f(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

// Length of v
func Length3f(v [3]float32) float32 {
	return Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Normalizes the given vector.
func Normalize3f(a [3]float32) [3]float32 {
	l := Length3f(a)
	if l == 0 {
		return [3]float32{0, 0, 0}
	}
	return Scale3f(a, 1/l)
}

// DirectionENU returns the unit vector in the local east-north-up frame
// for the given heading (from east toward north) and elevation (positive
// above the horizon), both in radians.
func DirectionENU(heading, elevation float32) [3]float32 {
	ce := Cos(elevation)
	return [3]float32{ce * Cos(heading), ce * Sin(heading), Sin(elevation)}
}

///////////////////////////////////////////////////////////////////////////
// quaternion

// Quaternion is a rotation stored as (w, x, y, z).
type Quaternion [4]float32

// QMul composes two rotations; the result applies b first and then a.
func QMul(a, b Quaternion) Quaternion {
	return Quaternion{
		a[0]*b[0] - a[1]*b[1] - a[2]*b[2] - a[3]*b[3],
		a[0]*b[1] + a[1]*b[0] + a[2]*b[3] - a[3]*b[2],
		a[0]*b[2] - a[1]*b[3] + a[2]*b[0] + a[3]*b[1],
		a[0]*b[3] + a[1]*b[2] - a[2]*b[1] + a[3]*b[0]}
}

// HPRQuaternion returns the body-to-ENU rotation for an attitude given as
// heading, pitch, and roll in radians. The body frame is x forward, y
// left, z up; heading rotates about up from east toward north, positive
// pitch tips the nose below the horizon, and positive roll drops the
// right wing.
func HPRQuaternion(heading, pitch, roll float32) Quaternion {
	qh := Quaternion{Cos(heading / 2), 0, 0, Sin(heading / 2)}
	qp := Quaternion{Cos(pitch / 2), 0, Sin(pitch / 2), 0}
	qr := Quaternion{Cos(roll / 2), Sin(roll / 2), 0, 0}
	return QMul(qh, QMul(qp, qr))
}

// Rotate applies the rotation to v.
func (q Quaternion) Rotate(v [3]float32) [3]float32 {
	// v' = v + 2*qv x (qv x v + w*v)
	qv := [3]float32{q[1], q[2], q[3]}
	t := Cross3f(qv, Add3f(Cross3f(qv, v), Scale3f(v, q[0])))
	return Add3f(v, Scale3f(t, 2))
}
