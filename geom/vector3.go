package geom

import (
	"math"

	"github.com/pkg/errors"
)

type Element = float64

// ErrZeroVector is returned when a zero vector has to be given a direction.
var ErrZeroVector = errors.New("zero vector has no direction")

type Vector3 struct {
	X Element
	Y Element
	Z Element
}

func NewVector3(x, y, z Element) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

func NewVector3FromArray(arr [3]Element) Vector3 {
	return Vector3{X: arr[0], Y: arr[1], Z: arr[2]}
}

func NewVector3FromSlice(arr []Element) Vector3 {
	return Vector3{X: arr[0], Y: arr[1], Z: arr[2]}
}

func (v Vector3) Add(v2 Vector3) Vector3 {
	return Vector3{X: v.X + v2.X, Y: v.Y + v2.Y, Z: v.Z + v2.Z}
}

func (v Vector3) Sub(v2 Vector3) Vector3 {
	return Vector3{X: v.X - v2.X, Y: v.Y - v2.Y, Z: v.Z - v2.Z}
}

func (v Vector3) Neg() Vector3 {
	return Vector3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

func (v Vector3) Dot(v2 Vector3) Element {
	return v.X*v2.X + v.Y*v2.Y + v.Z*v2.Z
}

func (v Vector3) Cross(v2 Vector3) Vector3 {
	return Vector3{
		X: v.Y*v2.Z - v.Z*v2.Y,
		Y: v.Z*v2.X - v.X*v2.Z,
		Z: v.X*v2.Y - v.Y*v2.X,
	}
}

func (v Vector3) Scale(s Element) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Mul returns the component-wise product.
func (v Vector3) Mul(v2 Vector3) Vector3 {
	return Vector3{X: v.X * v2.X, Y: v.Y * v2.Y, Z: v.Z * v2.Z}
}

func (v Vector3) Len() Element {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vector3) LenSqr() Element {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Normalize returns unit vector. (1,0,0) for zero vector.
func (v Vector3) Normalize() Vector3 {
	l := v.Len()
	if l > 0 {
		return Vector3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
	}
	return Vector3{X: 1}
}

// ScaleTo returns a vector with the same direction and the given length.
func (v Vector3) ScaleTo(length Element) (Vector3, error) {
	l := v.Len()
	if l == 0 {
		if length == 0 {
			return Vector3{}, nil
		}
		return Vector3{}, ErrZeroVector
	}
	return v.Scale(length / l), nil
}

// Rotated rotates v by q using the rotation matrix of q.
func (v Vector3) Rotated(q Quaternion) Vector3 {
	l := v.Len()
	if l == 0 {
		return Vector3{}
	}
	return NewRotationMatrix4FromQuaternion(q).ApplyTo(v.Scale(1 / l)).Scale(l)
}

// AbsMax returns the index (0:x 1:y 2:z) and value of the largest component by magnitude.
// Ties prefer z, then y.
func (v Vector3) AbsMax() (int, Element) {
	axis, m := 2, v.Z
	if math.Abs(v.Y) > math.Abs(v.Z) {
		axis, m = 1, v.Y
		if math.Abs(v.X) > math.Abs(v.Y) {
			axis, m = 0, v.X
		}
	} else if math.Abs(v.X) > math.Abs(v.Z) {
		axis, m = 0, v.X
	}
	return axis, m
}

func (v Vector3) Get(axis int) Element {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (v *Vector3) Set(axis int, e Element) {
	switch axis {
	case 0:
		v.X = e
	case 1:
		v.Y = e
	default:
		v.Z = e
	}
}

func (v Vector3) ToArray() [3]Element {
	return [3]Element{v.X, v.Y, v.Z}
}

func (v Vector3) ToArray32() [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func (mat *Matrix4) ApplyTo(v Vector3) Vector3 {
	return Vector3{
		mat[0]*v.X + mat[4]*v.Y + mat[8]*v.Z + mat[12],
		mat[1]*v.X + mat[5]*v.Y + mat[9]*v.Z + mat[13],
		mat[2]*v.X + mat[6]*v.Y + mat[10]*v.Z + mat[14],
	}
}
