package retarget

import (
	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
)

const DefaultRootName = "origin"

// DeriveOptions controls NewTargetFromArmature.
type DeriveOptions struct {
	// Base is the first joint that gets a visible bone. Every joint is visible if empty.
	Base string
	// Scale applied to bone sizes. Default 1.
	Scale float64
	// RootName is the name of the added positional root.
	RootName string
}

const lengthWidthRatio = 8

// NewTargetFromArmature derives a target with one bone per source joint, aligned to the
// dominant axis of the joint's rest offset. Joints above Base are positional.
// The returned mapping maps each bone to the joint of the same name.
func NewTargetFromArmature(src *armature.Armature, opts *DeriveOptions) (*Target, Mapping, error) {
	o := DeriveOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.RootName == "" {
		o.RootName = DefaultRootName
	}
	if src.Root() == nil {
		return nil, nil, armature.ErrEmptyArmature
	}

	var bones []*Bone
	var derive func(j *armature.Joint, parent string, reachedBase bool)
	derive = func(j *armature.Joint, parent string, reachedBase bool) {
		var b *Bone
		if reachedBase {
			b = visibleBone(j, o.Scale)
		} else {
			b = &Bone{Name: j.Name, Positional: true}
			reachedBase = j.Name == o.Base
		}
		b.Parent = parent
		bones = append(bones, b)
		for _, c := range src.Children(j.Name) {
			derive(c, j.Name, reachedBase)
		}
	}
	derive(src.Root(), o.RootName, o.Base == "")

	t, err := NewTarget(src.Name, bones)
	if err != nil {
		return nil, nil, err
	}
	m := IdentityMapping(t)
	delete(m, o.RootName)
	return t, m, nil
}

func visibleBone(j *armature.Joint, scale float64) *Bone {
	axis, m := j.Rest.AbsMax()
	length := j.Rest.Len()
	width := length / lengthWidthRatio

	var dir, size, sizeOffset geom.Vector3
	dir.Set(axis, length)
	for i := 0; i < 3; i++ {
		if i == axis {
			size.Set(i, length)
		} else {
			size.Set(i, width)
			sizeOffset.Set(i, -width/2)
		}
	}
	sign := "+"
	if m < 0 {
		sign = "-"
		dir = dir.Neg()
		sizeOffset = sizeOffset.Add(dir)
	}
	return &Bone{
		Name: j.Name,
		Size: dir.Scale(scale),
		Display: &armature.Display{
			Offset: sizeOffset.Scale(scale),
			Size:   size.Scale(scale),
			Item:   sign + string("xyz"[axis]),
		},
	}
}
