package armature

import (
	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
)

var (
	ErrJointNotFound  = errors.New("joint not found")
	ErrParentNotFound = errors.New("parent joint not found")
	ErrDuplicateJoint = errors.New("duplicate joint name")
	ErrEmptyArmature  = errors.New("armature has no root")
)

// Armature is a tree of joints keyed by name.
type Armature struct {
	Name   string
	root   string
	joints map[string]*Joint
}

func New(name string) *Armature {
	return &Armature{Name: name, joints: map[string]*Joint{}}
}

// AddJoint adds j under parent. The first joint becomes the root and parent is ignored.
func (a *Armature) AddJoint(j *Joint, parent string) error {
	if _, exists := a.joints[j.Name]; exists {
		return errors.Wrapf(ErrDuplicateJoint, "%q", j.Name)
	}
	if j.Rotation == (geom.Quaternion{}) {
		j.Rotation = geom.IdentityQuaternion()
	}
	j.Children = nil
	if len(a.joints) == 0 {
		j.Parent = ""
		a.root = j.Name
		a.joints[j.Name] = j
		return nil
	}
	p, ok := a.joints[parent]
	if !ok {
		return errors.Wrapf(ErrParentNotFound, "%q (parent of %q)", parent, j.Name)
	}
	j.Parent = p.Name
	p.Children = append(p.Children, j.Name)
	a.joints[j.Name] = j
	return nil
}

func (a *Armature) Root() *Joint {
	return a.joints[a.root]
}

// Joint returns the named joint or nil.
func (a *Armature) Joint(name string) *Joint {
	return a.joints[name]
}

// Parent returns the parent of the named joint or nil.
func (a *Armature) Parent(name string) *Joint {
	if j, ok := a.joints[name]; ok && j.Parent != "" {
		return a.joints[j.Parent]
	}
	return nil
}

func (a *Armature) Children(name string) []*Joint {
	j, ok := a.joints[name]
	if !ok {
		return nil
	}
	children := make([]*Joint, 0, len(j.Children))
	for _, c := range j.Children {
		children = append(children, a.joints[c])
	}
	return children
}

func (a *Armature) Len() int {
	return len(a.joints)
}

// Walk visits joints in depth-first pre-order.
func (a *Armature) Walk(fn func(j *Joint, depth int) error) error {
	if a.root == "" {
		return nil
	}
	var walk func(name string, depth int) error
	walk = func(name string, depth int) error {
		j := a.joints[name]
		if err := fn(j, depth); err != nil {
			return err
		}
		for _, c := range j.Children {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(a.root, 0)
}

// Names returns joint names in pre-order.
func (a *Armature) Names() []string {
	names := make([]string, 0, len(a.joints))
	_ = a.Walk(func(j *Joint, _ int) error {
		names = append(names, j.Name)
		return nil
	})
	return names
}

// Copy returns a deep copy. Topology is rebuilt from names.
func (a *Armature) Copy() *Armature {
	dst := New(a.Name)
	_ = a.Walk(func(j *Joint, _ int) error {
		return dst.AddJoint(j.clone(), j.Parent)
	})
	return dst
}

// RemoveJoint removes the named joint and moves its children to its parent.
// Removing the root leaves a fresh root with the same name.
// Kinematics are not preserved. See Delocalize.
func (a *Armature) RemoveJoint(name string) error {
	j, ok := a.joints[name]
	if !ok {
		return errors.Wrapf(ErrJointNotFound, "%q", name)
	}
	if name == a.root {
		a.joints = map[string]*Joint{}
		a.root = ""
		return a.AddJoint(NewJoint(name, geom.Vector3{}), "")
	}
	p := a.joints[j.Parent]
	children := make([]string, 0, len(p.Children)+len(j.Children))
	for _, c := range p.Children {
		if c == name {
			children = append(children, j.Children...)
		} else {
			children = append(children, c)
		}
	}
	p.Children = children
	for _, c := range j.Children {
		a.joints[c].Parent = p.Name
	}
	delete(a.joints, name)
	return nil
}

// SetFrame applies a frame to the joints. Must be called before any delocalization.
func (a *Armature) SetFrame(f Frame) error {
	for name, pose := range f {
		j, ok := a.joints[name]
		if !ok {
			return errors.Wrapf(ErrJointNotFound, "frame joint %q", name)
		}
		if !j.FixedLength {
			j.Delta = pose.Offset.Sub(j.Rest)
		}
		j.Rotation = pose.Rotation
	}
	return nil
}

// ResetPose clears the per-frame state of all joints.
func (a *Armature) ResetPose() {
	for _, j := range a.joints {
		j.ResetPose()
	}
}
