package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

const parallelThreshold = 0.99999

// Quaternion is a rotation (x,y,z,w).
type Quaternion struct {
	X Element
	Y Element
	Z Element
	W Element
}

func NewQuaternion(x, y, z, w Element) Quaternion {
	return Quaternion{X: x, Y: y, Z: z, W: w}
}

func NewQuaternionFromArray(arr [4]Element) Quaternion {
	return Quaternion{X: arr[0], Y: arr[1], Z: arr[2], W: arr[3]}
}

func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

func NewQuaternionFromAxisAngle(axis Vector3, rad Element) Quaternion {
	a := axis.Normalize()
	s := math.Sin(rad / 2)
	return Quaternion{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math.Cos(rad / 2)}
}

// NewQuaternionBetween returns the shortest arc rotation from v1 to v2.
// Identity if either vector is zero.
func NewQuaternionBetween(v1, v2 Vector3) Quaternion {
	if v1.IsZero() || v2.IsZero() {
		return IdentityQuaternion()
	}
	a, b := v1.Normalize(), v2.Normalize()
	d := a.Dot(b)
	if d > parallelThreshold {
		return IdentityQuaternion()
	}
	if d < -parallelThreshold {
		// any axis perpendicular to a
		axis := a.Cross(a.Add(Vector3{1, 1, 1}))
		if axis.LenSqr() < 1e-12 {
			axis = a.Cross(Vector3{1, 0, 0})
		}
		return Quaternion{X: axis.X, Y: axis.Y, Z: axis.Z, W: 0}.Normalize()
	}
	c := a.Cross(b)
	return Quaternion{X: c.X, Y: c.Y, Z: c.Z, W: d + 1}.Normalize()
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

// Mul returns Hamilton product q*b. b is applied first.
func (q Quaternion) Mul(b Quaternion) Quaternion {
	return fromNumber(quat.Mul(q.number(), b.number()))
}

// Parented composes a local rotation with its parent's world rotation.
func (q Quaternion) Parented(parent Quaternion) Quaternion {
	return parent.Mul(q)
}

func (q Quaternion) Inverse() Quaternion {
	return fromNumber(quat.Conj(q.number()))
}

func (q Quaternion) Neg() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
}

func (q Quaternion) Sub(b Quaternion) Quaternion {
	return Quaternion{X: q.X - b.X, Y: q.Y - b.Y, Z: q.Z - b.Z, W: q.W - b.W}
}

func (q Quaternion) Dot(b Quaternion) Element {
	return q.X*b.X + q.Y*b.Y + q.Z*b.Z + q.W*b.W
}

func (q Quaternion) Len() Element {
	return quat.Abs(q.number())
}

// Normalize returns unit quaternion. Identity for zero.
func (q Quaternion) Normalize() Quaternion {
	l := q.Len()
	if l > 0 {
		return Quaternion{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
	}
	return IdentityQuaternion()
}

// Equivalent reports whether q and b represent the same rotation.
func (q Quaternion) Equivalent(b Quaternion, eps Element) bool {
	return math.Abs(math.Abs(q.Dot(b))-1) < eps
}

func (q Quaternion) ApplyTo(v Vector3) Vector3 {
	return v.Rotated(q)
}

func (q Quaternion) ToArray() [4]Element {
	return [4]Element{q.X, q.Y, q.Z, q.W}
}

func (q Quaternion) ToArray32() [4]float32 {
	return [4]float32{float32(q.X), float32(q.Y), float32(q.Z), float32(q.W)}
}
