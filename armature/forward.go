package armature

import "github.com/binzume/mocapconv/geom"

// Transform is a world space transform.
type Transform struct {
	Translation geom.Vector3
	Rotation    geom.Quaternion
}

// Globals maps joint names to world transforms of one frame.
type Globals map[string]Transform

// Rotation returns the world rotation of name, or identity and false.
func (g Globals) Rotation(name string) (geom.Quaternion, bool) {
	t, ok := g[name]
	if !ok {
		return geom.IdentityQuaternion(), false
	}
	return t.Rotation, true
}

// Translation returns the world translation of name, or zero and false.
func (g Globals) Translation(name string) (geom.Vector3, bool) {
	t, ok := g[name]
	return t.Translation, ok
}

// Resolve computes world transforms of the current frame.
func (a *Armature) Resolve() Globals {
	g := make(Globals, len(a.joints))
	root := a.Root()
	if root == nil {
		return g
	}
	g[root.Name] = Transform{Translation: root.LocalOffset(), Rotation: root.Rotation}

	var resolve func(j *Joint)
	resolve = func(j *Joint) {
		parent := g[j.Name]
		for _, name := range j.Children {
			c := a.joints[name]
			g[name] = Transform{
				Translation: parent.Translation.Add(c.LocalOffset().Rotated(parent.Rotation)),
				Rotation:    c.Rotation.Parented(parent.Rotation),
			}
			resolve(c)
		}
	}
	resolve(root)
	return g
}
