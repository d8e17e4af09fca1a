package armature

import (
	"github.com/pkg/errors"
)

// Action decides whether a joint survives a reduction and, if not, what its
// children take over from it.
type Action int

const (
	Keep Action = iota
	Delete
	DelocalizePosition
	DelocalizeRotation
	DelocalizeBoth
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Delete:
		return "delete"
	case DelocalizePosition:
		return "delocalize-position"
	case DelocalizeRotation:
		return "delocalize-rotation"
	case DelocalizeBoth:
		return "delocalize-both"
	}
	return "unknown"
}

func (a Action) position() bool {
	return a == DelocalizePosition || a == DelocalizeBoth
}

func (a Action) rotation() bool {
	return a == DelocalizeRotation || a == DelocalizeBoth
}

// Policy returns the action for a joint.
type Policy func(j *Joint) Action

func actionFor(position, rotation bool) Action {
	switch {
	case position && rotation:
		return DelocalizeBoth
	case position:
		return DelocalizePosition
	case rotation:
		return DelocalizeRotation
	}
	return Delete
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// KeepSet keeps the named joints. Removed joints pass the given components to their children.
func KeepSet(keep []string, position, rotation bool) Policy {
	k := toSet(keep)
	act := actionFor(position, rotation)
	return func(j *Joint) Action {
		if _, ok := k[j.Name]; ok {
			return Keep
		}
		return act
	}
}

// FilteredSet keeps the named joints. A removed joint passes its position if it is in
// positional and its rotation if it is in rotational.
func FilteredSet(keep, positional, rotational []string) Policy {
	k, p, r := toSet(keep), toSet(positional), toSet(rotational)
	return func(j *Joint) Action {
		if _, ok := k[j.Name]; ok {
			return Keep
		}
		_, pos := p[j.Name]
		_, rot := r[j.Name]
		return actionFor(pos, rot)
	}
}

// Delocalize folds the current parent of the named joint into it, so that the parent
// can be removed without moving the joint on the selected components.
func (a *Armature) Delocalize(name string, act Action) error {
	j, ok := a.joints[name]
	if !ok {
		return errors.Wrapf(ErrJointNotFound, "%q", name)
	}
	p, ok := a.joints[j.Parent]
	if !ok {
		return errors.Wrapf(ErrParentNotFound, "delocalize %q", name)
	}
	if act.rotation() {
		j.Pivot = j.Pivot.Rotated(p.Rotation)
		j.Rest = j.Rest.Rotated(p.Rotation)
		j.Delta = j.Delta.Rotated(p.Rotation)
		j.Rotation = j.Rotation.Parented(p.Rotation)
	}
	if act.position() {
		// p.Delta is already expressed in the frame of p's parent.
		j.Pivot = j.Pivot.Add(p.Pivot).Add(p.Rest)
		j.Delta = j.Delta.Add(p.Delta)
	}
	return nil
}

// Reduce removes every joint the policy does not keep. Children of removed joints are
// delocalized according to the action of the removed joint. The root is always kept.
func (a *Armature) Reduce(policy Policy) error {
	if a.root == "" {
		return ErrEmptyArmature
	}
	return a.reduce(a.root, policy)
}

func (a *Armature) action(name string, policy Policy) Action {
	if name == a.root {
		return Keep
	}
	return policy(a.joints[name])
}

func (a *Armature) reduce(name string, policy Policy) error {
	j := a.joints[name]
	children := append([]string(nil), j.Children...)

	if j.Parent != "" {
		if act := a.action(j.Parent, policy); act.position() || act.rotation() {
			if err := a.Delocalize(name, act); err != nil {
				return err
			}
		}
	}
	for _, c := range children {
		if err := a.reduce(c, policy); err != nil {
			return err
		}
	}
	if a.action(name, policy) != Keep {
		return a.RemoveJoint(name)
	}
	return nil
}

// Prune keeps only the named joints and the root, preserving position and rotation.
func (a *Armature) Prune(keep ...string) error {
	return a.Reduce(KeepSet(keep, true, true))
}
