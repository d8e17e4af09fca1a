package armature

import "github.com/binzume/mocapconv/geom"

// Display is static geometry attached to a joint for rendering.
type Display struct {
	Offset geom.Vector3
	Size   geom.Vector3
	Item   string
}

// Joint is a node of the armature. Parent and children are referenced by name.
type Joint struct {
	Name string
	// Rest is the bind pose offset from the parent.
	Rest geom.Vector3
	// Pivot is translation folded in from removed ancestors.
	Pivot geom.Vector3
	// Delta is the offset of the current frame relative to Rest.
	Delta geom.Vector3
	// Rotation is the local rotation of the current frame.
	Rotation geom.Quaternion

	// End marks end sites. They never carry channels.
	End bool
	// FixedLength joints ignore frame translations.
	FixedLength bool
	Display     *Display

	Parent   string
	Children []string
}

func NewJoint(name string, rest geom.Vector3) *Joint {
	return &Joint{Name: name, Rest: rest, Rotation: geom.IdentityQuaternion()}
}

// LocalOffset returns the offset from the parent for the current frame.
func (j *Joint) LocalOffset() geom.Vector3 {
	return j.Pivot.Add(j.Rest).Add(j.Delta)
}

// ResetPose clears the per-frame state.
func (j *Joint) ResetPose() {
	j.Delta = geom.Vector3{}
	j.Rotation = geom.IdentityQuaternion()
}

func (j *Joint) clone() *Joint {
	c := *j
	c.Children = nil
	if j.Display != nil {
		d := *j.Display
		c.Display = &d
	}
	return &c
}
