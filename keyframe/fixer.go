package keyframe

import (
	"math"

	"github.com/binzume/mocapconv/geom"
)

type axisState struct {
	prev, bias float64
}

// Fixer unwraps euler angle sequences so that consecutive samples never jump by more
// than 180 degrees. A renderer interpolating linearly then takes the short way.
type Fixer struct {
	last map[string]*[3]axisState
}

func NewFixer() *Fixer {
	return &Fixer{last: map[string]*[3]axisState{}}
}

// Fix returns the unwrapped angles (degrees) of the next sample of id.
// The first sample of an id is returned as is.
func (f *Fixer) Fix(id string, v geom.Vector3) geom.Vector3 {
	st, ok := f.last[id]
	if !ok {
		f.last[id] = &[3]axisState{{prev: v.X}, {prev: v.Y}, {prev: v.Z}}
		return v
	}
	var r geom.Vector3
	for axis := range st {
		r.Set(axis, st[axis].fix(v.Get(axis)))
	}
	return r
}

func (s *axisState) fix(a float64) float64 {
	a += s.bias
	if math.Abs(s.prev-a) > 180 {
		if s.prev < s.bias && s.bias < a {
			a -= 360
			s.bias -= 360
		} else if s.prev > s.bias && s.bias > a {
			a += 360
			s.bias += 360
		}
	}
	s.prev = a
	return a
}

// Reset forgets the state of id.
func (f *Fixer) Reset(id string) {
	delete(f.last, id)
}
