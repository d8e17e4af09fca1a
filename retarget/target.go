package retarget

import (
	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
)

var (
	ErrNoRoot        = errors.New("target has no root")
	ErrMultipleRoots = errors.New("target has multiple roots")
	ErrUnknownBone   = errors.New("unknown target bone")
	ErrDuplicateBone = errors.New("duplicate target bone")
)

// Bone is a bone of the target skeleton. A bone starts at the end of its parent
// (plus Offset) and extends by Size.
type Bone struct {
	Name   string
	Parent string
	Size   geom.Vector3
	Offset geom.Vector3
	// RestDirection is the modeled direction of the bone. Size is used if zero.
	RestDirection geom.Vector3
	Display       *armature.Display
	// Positional bones also follow the translation of their source joint.
	Positional bool

	children []string
}

func (b *Bone) Direction() geom.Vector3 {
	if b.RestDirection.IsZero() {
		return b.Size
	}
	return b.RestDirection
}

func (b *Bone) Children() []string {
	return b.children
}

// Target is the skeleton motion is retargeted onto.
type Target struct {
	Name         string
	RootOffset   geom.Vector3
	RootRotation geom.Quaternion

	root  string
	bones map[string]*Bone
	order []string
}

// NewTarget builds a target from bones in any order. The root is the only parent
// that is not itself a bone. It becomes a positional bone without size.
func NewTarget(name string, bones []*Bone) (*Target, error) {
	t := &Target{Name: name, RootRotation: geom.IdentityQuaternion(), bones: map[string]*Bone{}}
	for _, b := range bones {
		if _, exists := t.bones[b.Name]; exists {
			return nil, errors.Wrapf(ErrDuplicateBone, "%q", b.Name)
		}
		t.bones[b.Name] = b
	}

	var roots []string
	for _, b := range bones {
		if b.Parent == "" {
			roots = append(roots, b.Name)
			continue
		}
		if _, ok := t.bones[b.Parent]; !ok {
			found := false
			for _, r := range roots {
				found = found || r == b.Parent
			}
			if !found {
				roots = append(roots, b.Parent)
			}
		}
	}
	switch {
	case len(roots) == 0:
		return nil, ErrNoRoot
	case len(roots) > 1:
		return nil, errors.Wrapf(ErrMultipleRoots, "%v", roots)
	}
	t.root = roots[0]
	if _, ok := t.bones[t.root]; !ok {
		t.bones[t.root] = &Bone{Name: t.root, Positional: true}
	}

	for _, b := range bones {
		b.children = nil
	}
	for _, b := range bones {
		if b.Parent != "" {
			p := t.bones[b.Parent]
			p.children = append(p.children, b.Name)
		}
	}

	visited := map[string]bool{}
	var walk func(name string)
	walk = func(name string) {
		visited[name] = true
		t.order = append(t.order, name)
		for _, c := range t.bones[name].children {
			walk(c)
		}
	}
	walk(t.root)
	if len(visited) != len(t.bones) {
		return nil, errors.Wrap(ErrNoRoot, "bones not reachable from root (cycle)")
	}
	return t, nil
}

func (t *Target) Root() *Bone {
	return t.bones[t.root]
}

func (t *Target) Bone(name string) *Bone {
	return t.bones[name]
}

// Names returns bone names in pre-order.
func (t *Target) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *Target) Len() int {
	return len(t.bones)
}

// World resolves the target skeleton for a frame of local transforms.
// Frame offsets are applied to positional bones only.
func (t *Target) World(local armature.Frame) armature.Globals {
	g := make(armature.Globals, len(t.bones))
	g[t.root] = armature.Transform{Translation: t.RootOffset, Rotation: t.RootRotation}
	for _, name := range t.order[1:] {
		b := t.bones[name]
		parent := t.bones[b.Parent]
		pg := g[b.Parent]
		pose, ok := local[name]
		rot := geom.IdentityQuaternion()
		if ok {
			rot = pose.Rotation
		}
		tr := pg.Translation.Add(parent.Size.Add(b.Offset).Rotated(pg.Rotation))
		if b.Positional && ok {
			tr = tr.Add(pose.Offset)
		}
		g[name] = armature.Transform{Translation: tr, Rotation: rot.Parented(pg.Rotation)}
	}
	return g
}
