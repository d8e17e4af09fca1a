package converter

import (
	"path/filepath"
	"strings"

	"github.com/binzume/mocapconv/geom"
	"github.com/binzume/mocapconv/retarget"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

type TargetToGltfOption struct {
	// DisplayBoxes adds a box mesh node for bones with display geometry.
	DisplayBoxes bool
	Logger       *zap.SugaredLogger
}

type targetToGltf struct {
	*gltf.Document
	TargetToGltfOption
	target *retarget.Target

	BoneToNode map[string]uint32
	boxMesh    *uint32
}

func NewTargetToGltfConverter(target *retarget.Target, option *TargetToGltfOption) *targetToGltf {
	if option == nil {
		option = &TargetToGltfOption{}
	}
	c := &targetToGltf{
		Document:           gltf.NewDocument(),
		TargetToGltfOption: *option,
		target:             target,
		BoneToNode:         map[string]uint32{},
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	return c
}

// restTRS returns the bind pose of a bone relative to its parent node.
func (c *targetToGltf) restTRS(b *retarget.Bone) (geom.Vector3, geom.Quaternion) {
	if b.Parent == "" || c.target.Bone(b.Parent) == nil {
		return c.target.RootOffset, c.target.RootRotation
	}
	return c.target.Bone(b.Parent).Size.Add(b.Offset), geom.IdentityQuaternion()
}

// frameTRS returns the transform of a bone node relative to its parent for frame i.
// Positional offsets are world space and are turned into the parent frame.
func (c *targetToGltf) frameTRS(b *retarget.Bone, res *retarget.Result, i int) (geom.Vector3, geom.Quaternion) {
	t, r := c.restTRS(b)
	if b.Name == c.target.Root().Name {
		return t, r
	}
	pose, ok := res.Local[i][b.Name]
	if !ok {
		return t, r
	}
	if b.Positional {
		parentRot, _ := res.World[i].Rotation(b.Parent)
		t = t.Add(pose.Offset.Rotated(parentRot.Inverse()))
	}
	return t, pose.Rotation
}

func (c *targetToGltf) addBoxMesh() uint32 {
	if c.boxMesh != nil {
		return *c.boxMesh
	}
	var positions, normals [][3]float32
	var indices []uint16
	for axis := 0; axis < 3; axis++ {
		u, v := (axis+1)%3, (axis+2)%3
		for _, side := range []float32{0, 1} {
			var n [3]float32
			n[axis] = side*2 - 1
			base := uint16(len(positions))
			for _, uv := range [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
				var p [3]float32
				p[axis], p[u], p[v] = side, uv[0], uv[1]
				positions = append(positions, p)
				normals = append(normals, n)
			}
			if side == 1 {
				indices = append(indices, base, base+1, base+2, base, base+2, base+3)
			} else {
				indices = append(indices, base, base+2, base+1, base, base+3, base+2)
			}
		}
	}
	c.Meshes = append(c.Meshes, &gltf.Mesh{
		Name: "box",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(modeler.WriteIndices(c.Document, indices)),
			Attributes: map[string]uint32{
				"POSITION": modeler.WritePosition(c.Document, positions),
				"NORMAL":   modeler.WriteNormal(c.Document, normals),
			},
		}},
	})
	c.boxMesh = gltf.Index(uint32(len(c.Meshes) - 1))
	return *c.boxMesh
}

func (c *targetToGltf) addBoneNodes() {
	for _, name := range c.target.Names() {
		b := c.target.Bone(name)
		t, r := c.restTRS(b)
		idx := uint32(len(c.Nodes))
		c.Nodes = append(c.Nodes, &gltf.Node{
			Name:        name,
			Translation: t.ToArray32(),
			Rotation:    r.ToArray32(),
			Scale:       [3]float32{1, 1, 1},
		})
		c.BoneToNode[name] = idx
		if p, ok := c.BoneToNode[b.Parent]; ok {
			c.Nodes[p].Children = append(c.Nodes[p].Children, idx)
		} else {
			c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, idx)
		}

		if c.DisplayBoxes && b.Display != nil && !b.Display.Size.IsZero() {
			c.Nodes = append(c.Nodes, &gltf.Node{
				Name:        name + ".display",
				Mesh:        gltf.Index(c.addBoxMesh()),
				Translation: b.Display.Offset.ToArray32(),
				Rotation:    [4]float32{0, 0, 0, 1},
				Scale:       b.Display.Size.ToArray32(),
			})
			c.Nodes[idx].Children = append(c.Nodes[idx].Children, uint32(len(c.Nodes)-1))
		}
	}
}

func (c *targetToGltf) addSampler(a *gltf.Animation, keysAcc, samplesAcc, node uint32, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(keysAcc),
		Output:        gltf.Index(samplesAcc),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

func (c *targetToGltf) addAnimation(res *retarget.Result, name string) {
	n := len(res.Local)
	if n == 0 {
		return
	}
	keys := make([]float32, n)
	for i := range keys {
		keys[i] = float32(float64(i) / res.FPS)
	}
	keysAcc := modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, keys)

	a := &gltf.Animation{Name: name}
	for _, boneName := range c.target.Names()[1:] {
		b := c.target.Bone(boneName)
		rest, _ := c.restTRS(b)
		ident := [4]float32{0, 0, 0, 1}
		restT := rest.ToArray32()

		rotate, translate := false, false
		rotations := make([][4]float32, n)
		translations := make([][3]float32, n)
		for i := 0; i < n; i++ {
			t, r := c.frameTRS(b, res, i)
			rotations[i] = r.ToArray32()
			translations[i] = t.ToArray32()
			rotate = rotate || rotations[i] != ident
			translate = translate || translations[i] != restT
		}
		if rotate {
			c.Logger.Debugw("rotation channel", "bone", boneName)
			c.addSampler(a, keysAcc, modeler.WriteTangent(c.Document, rotations), c.BoneToNode[boneName], gltf.TRSRotation)
		}
		if translate && b.Positional {
			c.Logger.Debugw("translation channel", "bone", boneName)
			c.addSampler(a, keysAcc, modeler.WritePosition(c.Document, translations), c.BoneToNode[boneName], gltf.TRSTranslation)
		}
	}
	if len(a.Channels) > 0 {
		c.Animations = append(c.Animations, a)
	}
}

// Convert builds a document with one node per bone and an animation of the result.
// res may be nil for a skeleton without animation.
func (c *targetToGltf) Convert(res *retarget.Result, animationName string) (*gltf.Document, error) {
	c.addBoneNodes()
	if res != nil && res.FPS > 0 {
		c.addAnimation(res, animationName)
	}
	return c.Document, nil
}

// SaveGltf writes .glb as binary and anything else as json gltf with embedded buffers.
func SaveGltf(doc *gltf.Document, path string) error {
	if strings.ToLower(filepath.Ext(path)) == ".glb" {
		return gltf.SaveBinary(doc, path)
	}
	for _, b := range doc.Buffers {
		b.EmbeddedResource()
	}
	return gltf.Save(doc, path)
}
