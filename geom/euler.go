package geom

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// RotationOrder names the axis sequence of the rotation matrix product.
// RotationOrderZXY means R = Rz * Rx * Ry.
type RotationOrder int

const (
	RotationOrderXYZ RotationOrder = iota
	RotationOrderYXZ
	RotationOrderZXY
	RotationOrderZYX
	RotationOrderYZX
	RotationOrderXZY
)

var rotationOrderNames = [...]string{"XYZ", "YXZ", "ZXY", "ZYX", "YZX", "XZY"}

func (o RotationOrder) String() string {
	if o < 0 || int(o) >= len(rotationOrderNames) {
		return "unknown"
	}
	return rotationOrderNames[o]
}

// ParseRotationOrder parses "xyz", "ZXY", etc.
func ParseRotationOrder(s string) (RotationOrder, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range rotationOrderNames {
		if n == s {
			return RotationOrder(i), nil
		}
	}
	return 0, errors.Errorf("unknown rotation order %q", s)
}

func (o RotationOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *RotationOrder) UnmarshalText(b []byte) error {
	r, err := ParseRotationOrder(string(b))
	if err != nil {
		return err
	}
	*o = r
	return nil
}

// EulerAngles in radians.
type EulerAngles struct {
	Vector3
	Order RotationOrder
}

func NewEuler(x, y, z Element, order RotationOrder) *EulerAngles {
	return &EulerAngles{Vector3: Vector3{x, y, z}, Order: order}
}

func NewEulerDegrees(x, y, z Element, order RotationOrder) *EulerAngles {
	return NewEuler(Rad(x), Rad(y), Rad(z), order)
}

func NewEulerFromQuaternion(q Quaternion, order RotationOrder) *EulerAngles {
	return NewEulerFromMatrix4(NewRotationMatrix4FromQuaternion(q), order)
}

func NewEulerFromMatrix4(mat *Matrix4, order RotationOrder) *EulerAngles {
	const threshold = 0.9999999
	m11, m21, m31 := mat[0], mat[1], mat[2]
	m12, m22, m32 := mat[4], mat[5], mat[6]
	m13, m23, m33 := mat[8], mat[9], mat[10]

	ret := &EulerAngles{Order: order}
	switch order {
	case RotationOrderXYZ:
		ret.Y = math.Asin(clamp(m13, -1, 1))
		if math.Abs(m13) < threshold {
			ret.X = math.Atan2(-m23, m33)
			ret.Z = math.Atan2(-m12, m11)
		} else {
			ret.X = math.Atan2(m32, m22)
		}
	case RotationOrderYXZ:
		ret.X = math.Asin(-clamp(m23, -1, 1))
		if math.Abs(m23) < threshold {
			ret.Y = math.Atan2(m13, m33)
			ret.Z = math.Atan2(m21, m22)
		} else {
			ret.Y = math.Atan2(-m31, m11)
		}
	case RotationOrderZXY:
		ret.X = math.Asin(clamp(m32, -1, 1))
		if math.Abs(m32) < threshold {
			ret.Y = math.Atan2(-m31, m33)
			ret.Z = math.Atan2(-m12, m22)
		} else {
			ret.Z = math.Atan2(m21, m11)
		}
	case RotationOrderZYX:
		ret.Y = math.Asin(-clamp(m31, -1, 1))
		if math.Abs(m31) < threshold {
			ret.X = math.Atan2(m32, m33)
			ret.Z = math.Atan2(m21, m11)
		} else {
			ret.Z = math.Atan2(-m12, m22)
		}
	case RotationOrderYZX:
		ret.Z = math.Asin(clamp(m21, -1, 1))
		if math.Abs(m21) < threshold {
			ret.X = math.Atan2(-m23, m22)
			ret.Y = math.Atan2(-m31, m11)
		} else {
			ret.Y = math.Atan2(m13, m33)
		}
	case RotationOrderXZY:
		ret.Z = math.Asin(-clamp(m12, -1, 1))
		if math.Abs(m12) < threshold {
			ret.X = math.Atan2(m32, m22)
			ret.Y = math.Atan2(m13, m11)
		} else {
			ret.X = math.Atan2(-m23, m33)
		}
	}
	return ret
}

func (v *EulerAngles) ToQuaternion() Quaternion {
	cx := math.Cos(v.X / 2)
	cy := math.Cos(v.Y / 2)
	cz := math.Cos(v.Z / 2)
	sx := math.Sin(v.X / 2)
	sy := math.Sin(v.Y / 2)
	sz := math.Sin(v.Z / 2)

	switch v.Order {
	case RotationOrderXYZ:
		return Quaternion{
			X: sx*cy*cz + cx*sy*sz,
			Y: cx*sy*cz - sx*cy*sz,
			Z: cx*cy*sz + sx*sy*cz,
			W: cx*cy*cz - sx*sy*sz}
	case RotationOrderYXZ:
		return Quaternion{
			X: sx*cy*cz + cx*sy*sz,
			Y: cx*sy*cz - sx*cy*sz,
			Z: cx*cy*sz - sx*sy*cz,
			W: cx*cy*cz + sx*sy*sz}
	case RotationOrderZXY:
		return Quaternion{
			X: sx*cy*cz - cx*sy*sz,
			Y: cx*sy*cz + sx*cy*sz,
			Z: cx*cy*sz + sx*sy*cz,
			W: cx*cy*cz - sx*sy*sz}
	case RotationOrderZYX:
		return Quaternion{
			X: sx*cy*cz - cx*sy*sz,
			Y: cx*sy*cz + sx*cy*sz,
			Z: cx*cy*sz - sx*sy*cz,
			W: cx*cy*cz + sx*sy*sz}
	case RotationOrderYZX:
		return Quaternion{
			X: sx*cy*cz + cx*sy*sz,
			Y: cx*sy*cz + sx*cy*sz,
			Z: cx*cy*sz - sx*sy*cz,
			W: cx*cy*cz - sx*sy*sz}
	case RotationOrderXZY:
		return Quaternion{
			X: sx*cy*cz - cx*sy*sz,
			Y: cx*sy*cz - sx*cy*sz,
			Z: cx*cy*sz + sx*sy*cz,
			W: cx*cy*cz + sx*sy*sz}
	default:
		return IdentityQuaternion()
	}
}

// Degrees returns the angles in degrees.
func (v *EulerAngles) Degrees() Vector3 {
	return Vector3{Deg(v.X), Deg(v.Y), Deg(v.Z)}
}

func Rad(deg Element) Element {
	return deg * math.Pi / 180
}

func Deg(rad Element) Element {
	return rad * 180 / math.Pi
}

func clamp(v, min, max Element) Element {
	return math.Max(min, math.Min(v, max))
}
