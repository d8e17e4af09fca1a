package retarget

import (
	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrMappingMiss = errors.New("retarget mapping lookup failed")

// Mapping maps target bone names to source joint names.
type Mapping map[string]string

// IdentityMapping maps every bone of t to the source joint of the same name.
func IdentityMapping(t *Target) Mapping {
	m := Mapping{}
	for _, name := range t.order {
		m[name] = name
	}
	return m
}

type Option func(*Retargeter)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Retargeter) {
		r.log = l
	}
}

// WithStrict makes mapping misses an error instead of an identity substitution.
func WithStrict(strict bool) Option {
	return func(r *Retargeter) {
		r.strict = strict
	}
}

type boneBinding struct {
	source       string
	sourceParent string
	// correction rotates the modeled rest direction onto the source rest offset.
	correction geom.Quaternion
}

// Retargeter computes target local transforms from source world transforms.
type Retargeter struct {
	target  *Target
	mapping Mapping
	log     *zap.SugaredLogger
	strict  bool

	bindings map[string]*boneBinding
}

// New binds the target to the rest pose of the source armature.
func New(target *Target, source *armature.Armature, mapping Mapping, opts ...Option) (*Retargeter, error) {
	r := &Retargeter{
		target:   target,
		mapping:  mapping,
		log:      zap.NewNop().Sugar(),
		bindings: map[string]*boneBinding{},
	}
	for _, o := range opts {
		o(r)
	}

	var errs error
	for name := range mapping {
		if target.Bone(name) == nil {
			errs = multierr.Append(errs, errors.Wrapf(ErrUnknownBone, "mapping %q", name))
		}
	}
	if errs != nil {
		return nil, errs
	}

	for _, name := range target.order {
		b := target.bones[name]
		src, ok := mapping[name]
		if !ok {
			if name != target.root {
				r.miss(&errs, "bone is not mapped", "bone", name)
			}
			continue
		}
		j := source.Joint(src)
		if j == nil {
			r.miss(&errs, "source joint not found", "bone", name, "source", src)
			continue
		}
		bb := &boneBinding{
			source:     src,
			correction: geom.NewQuaternionBetween(b.Direction(), j.Rest),
		}
		if p := source.Parent(src); p != nil {
			bb.sourceParent = p.Name
		} else {
			// the source root turns with the world frame
			r.log.Debugw("source joint has no parent", "bone", name, "source", src)
		}
		r.bindings[name] = bb
	}
	if r.strict && errs != nil {
		return nil, errs
	}
	return r, nil
}

func (r *Retargeter) miss(errs *error, msg string, keysAndValues ...interface{}) {
	r.log.Warnw(msg, keysAndValues...)
	*errs = multierr.Append(*errs, errors.Wrapf(ErrMappingMiss, "%s %v", msg, keysAndValues))
}

func (r *Retargeter) Target() *Target {
	return r.target
}

// SourceJoints returns the source joints the retargeter reads, with their parents.
func (r *Retargeter) SourceJoints() []string {
	var names []string
	seen := map[string]bool{}
	for _, name := range r.target.order {
		b, ok := r.bindings[name]
		if !ok {
			continue
		}
		for _, n := range []string{b.source, b.sourceParent} {
			if n != "" && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// realRotation is the world rotation a bone would have to take to follow its source.
func (r *Retargeter) realRotation(name string, g armature.Globals) (geom.Quaternion, bool) {
	b, ok := r.bindings[name]
	if !ok {
		return geom.IdentityQuaternion(), false
	}
	parent, ok := g.Rotation(b.sourceParent)
	return b.correction.Parented(parent), ok
}

func (r *Retargeter) translation(name string, g armature.Globals) geom.Vector3 {
	if b, ok := r.bindings[name]; ok {
		v, _ := g.Translation(b.source)
		return v
	}
	return geom.Vector3{}
}

// Local returns the local transforms of all non-root target bones.
// Offsets are set for positional bones only.
func (r *Retargeter) Local(g armature.Globals) armature.Frame {
	f := make(armature.Frame, len(r.target.order))
	for _, name := range r.target.order[1:] {
		b := r.target.bones[name]
		childReal, _ := r.realRotation(name, g)
		parentReal, _ := r.realRotation(b.Parent, g)
		pose := armature.Pose{Rotation: childReal.Parented(parentReal.Inverse())}
		if b.Positional {
			pose.Offset = r.translation(name, g).Sub(r.translation(b.Parent, g))
		}
		f[name] = pose
	}
	return f
}
