package retarget

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const eps = 0.000001

func newSource(t *testing.T) *armature.Armature {
	t.Helper()
	a := armature.New("source")
	for _, j := range []struct {
		name, parent string
		rest         geom.Vector3
	}{
		{"hips", "", geom.Vector3{}},
		{"spine", "hips", geom.NewVector3(0, 1, 0)},
		{"chest", "spine", geom.NewVector3(0, 1, 0)},
		{"neck", "chest", geom.NewVector3(0, 0.5, 0)},
		{"head", "neck", geom.NewVector3(0, 0.5, 0)},
		{"leg", "hips", geom.NewVector3(0, -1, 0)},
	} {
		if err := a.AddJoint(armature.NewJoint(j.name, j.rest), j.parent); err != nil {
			t.Fatal(err)
		}
	}
	return a
}

func randomRotation(rnd *rand.Rand) geom.Quaternion {
	axis := geom.NewVector3(rnd.Float64()-0.5, rnd.Float64()-0.5, rnd.Float64()-0.5)
	return geom.NewQuaternionFromAxisAngle(axis.Normalize(), (rnd.Float64()*2-1)*math.Pi)
}

// randomFrame rotates every joint and moves the root.
func randomFrame(rnd *rand.Rand, a *armature.Armature) armature.Frame {
	f := armature.Frame{}
	for _, name := range a.Names() {
		f[name] = armature.Pose{Offset: a.Joint(name).Rest, Rotation: randomRotation(rnd)}
	}
	f[a.Root().Name] = armature.Pose{
		Offset:   geom.NewVector3(rnd.Float64(), rnd.Float64(), rnd.Float64()),
		Rotation: randomRotation(rnd),
	}
	return f
}

func resolveFrame(t *testing.T, a *armature.Armature, f armature.Frame) armature.Globals {
	t.Helper()
	a = a.Copy()
	if err := a.SetFrame(f); err != nil {
		t.Fatal(err)
	}
	return a.Resolve()
}

func TestTargetWorld(t *testing.T) {
	target, err := NewTarget("arm", []*Bone{
		{Name: "upper", Parent: "shoulder", Size: geom.NewVector3(0, 1, 0)},
		{Name: "lower", Parent: "upper", Size: geom.NewVector3(0, 1, 0)},
		{Name: "hand", Parent: "lower", Offset: geom.NewVector3(0, 0.5, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if target.Root().Name != "shoulder" || !target.Root().Positional {
		t.Fatal("root should be synthesized: ", target.Root())
	}
	if diff := cmp.Diff([]string{"shoulder", "upper", "lower", "hand"}, target.Names()); diff != "" {
		t.Error("names (-want +got):\n", diff)
	}

	target.RootOffset = geom.NewVector3(1, 0, 0)
	rot := geom.NewQuaternionFromAxisAngle(geom.NewVector3(0, 0, 1), geom.Rad(90))
	g := target.World(armature.Frame{
		"lower": {Rotation: rot},
		// not positional, ignored
		"hand": {Offset: geom.NewVector3(5, 5, 5), Rotation: geom.IdentityQuaternion()},
	})
	for name, want := range map[string]geom.Vector3{
		"shoulder": geom.NewVector3(1, 0, 0),
		"upper":    geom.NewVector3(1, 0, 0),
		"lower":    geom.NewVector3(1, 1, 0),
		"hand":     geom.NewVector3(-0.5, 1, 0),
	} {
		if g[name].Translation.Sub(want).Len() > eps {
			t.Error(name, ": ", g[name].Translation, " want ", want)
		}
	}
	if !g["hand"].Rotation.Equivalent(rot, eps) {
		t.Error("hand rotation: ", g["hand"].Rotation)
	}
}

func TestNewTargetErrors(t *testing.T) {
	tests := []struct {
		name  string
		bones []*Bone
		err   error
	}{
		{"empty", nil, ErrNoRoot},
		{"duplicate", []*Bone{{Name: "a", Parent: "r"}, {Name: "a", Parent: "r"}}, ErrDuplicateBone},
		{"two roots", []*Bone{{Name: "a", Parent: "r1"}, {Name: "b", Parent: "r2"}}, ErrMultipleRoots},
		{"cycle", []*Bone{{Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}}, ErrNoRoot},
		{"detached cycle", []*Bone{{Name: "x", Parent: "r"}, {Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}}, ErrNoRoot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTarget("t", tt.bones)
			if !errors.Is(err, tt.err) {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestDerivedTarget(t *testing.T) {
	src := newSource(t)
	target, mapping, err := NewTargetFromArmature(src, &DeriveOptions{Base: "hips"})
	if err != nil {
		t.Fatal(err)
	}
	if target.Root().Name != DefaultRootName {
		t.Error("root: ", target.Root().Name)
	}
	if _, ok := mapping[DefaultRootName]; ok {
		t.Error("root should not be mapped")
	}
	if len(mapping) != src.Len() {
		t.Error("mapping: ", mapping)
	}
	if b := target.Bone("hips"); !b.Positional || b.Display != nil {
		t.Error("hips should be positional: ", b)
	}
	if b := target.Bone("spine"); b.Positional {
		t.Error("spine should not be positional")
	}

	want := &armature.Display{
		Offset: geom.NewVector3(-1.0/16, -1, -1.0/16),
		Size:   geom.NewVector3(1.0/8, 1, 1.0/8),
		Item:   "-y",
	}
	if diff := cmp.Diff(want, target.Bone("leg").Display); diff != "" {
		t.Error("leg display (-want +got):\n", diff)
	}
	if b := target.Bone("leg"); b.Size != geom.NewVector3(0, -1, 0) {
		t.Error("leg size: ", b.Size)
	}
	if b := target.Bone("neck"); b.Display.Item != "+y" || b.Display.Offset != geom.NewVector3(-0.5/16, 0, -0.5/16) {
		t.Error("neck display: ", b.Display)
	}
}

func TestDerivedTargetFollowsSource(t *testing.T) {
	src := newSource(t)
	target, mapping, err := NewTargetFromArmature(src, &DeriveOptions{Base: "hips"})
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(target, src, mapping, WithLogger(zaptest.NewLogger(t).Sugar()), WithStrict(true))
	if err != nil {
		t.Fatal(err)
	}

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		g := resolveFrame(t, src, randomFrame(rnd, src))
		w := target.World(r.Local(g))

		if w["hips"].Translation.Sub(g["hips"].Translation).Len() > eps {
			t.Error("hips: ", w["hips"].Translation, g["hips"].Translation)
		}
		// each bone spans from the parent joint and turns with it
		for _, name := range src.Names()[1:] {
			p := src.Parent(name).Name
			if w[name].Translation.Sub(g[p].Translation).Len() > eps {
				t.Error(name, ": ", w[name].Translation, " want ", g[p].Translation)
			}
			if !w[name].Rotation.Equivalent(g[p].Rotation, eps) {
				t.Error(name, " rotation: ", w[name].Rotation, " want ", g[p].Rotation)
			}
		}
	}
}

func TestRestCorrection(t *testing.T) {
	src := armature.New("src")
	src.AddJoint(armature.NewJoint("root", geom.Vector3{}), "")
	src.AddJoint(armature.NewJoint("arm", geom.NewVector3(1, 0, 0)), "root")
	src.AddJoint(armature.NewJoint("hand", geom.NewVector3(1, 0, 0)), "arm")

	// modeled pointing up while the source arm points along x
	target, err := NewTarget("t", []*Bone{
		{Name: "arm", Parent: "root", Size: geom.NewVector3(0, 1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(target, src, Mapping{"arm": "hand"})
	if err != nil {
		t.Fatal(err)
	}

	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		g := resolveFrame(t, src, randomFrame(rnd, src))
		w := target.World(r.Local(g))
		dir := geom.NewVector3(0, 1, 0).Rotated(w["arm"].Rotation)
		want := g["hand"].Translation.Sub(g["arm"].Translation)
		if dir.Sub(want).Len() > eps {
			t.Error("arm should point at the source hand: ", dir, want)
		}
	}
}

func TestMappingMiss(t *testing.T) {
	src := newSource(t)
	target, err := NewTarget("t", []*Bone{
		{Name: "torso", Parent: "root", Size: geom.NewVector3(0, 2, 0)},
		{Name: "head", Parent: "torso", Size: geom.NewVector3(0, 1, 0)},
		{Name: "tail", Parent: "torso", Size: geom.NewVector3(0, -1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	mapping := Mapping{"torso": "spine", "head": "skull"}

	core, logs := observer.New(zap.WarnLevel)
	r, err := New(target, src, mapping, WithLogger(zap.New(core).Sugar()))
	if err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterMessage("bone is not mapped").Len(); n != 1 {
		t.Error("unmapped warnings: ", n)
	}
	if n := logs.FilterMessage("source joint not found").Len(); n != 1 {
		t.Error("not found warnings: ", n)
	}

	// misses are identity rotations
	g := resolveFrame(t, src, randomFrame(rand.New(rand.NewSource(3)), src))
	local := r.Local(g)
	if !local["tail"].Rotation.Equivalent(g["hips"].Rotation.Inverse(), eps) {
		t.Error("tail: ", local["tail"].Rotation)
	}
	if logs.Len() != 2 {
		t.Error("misses should be reported once: ", logs.Len())
	}

	_, err = New(target, src, mapping, WithStrict(true))
	if !errors.Is(err, ErrMappingMiss) {
		t.Error("strict: ", err)
	}

	_, err = New(target, src, Mapping{"wing": "spine"})
	if !errors.Is(err, ErrUnknownBone) {
		t.Error("unknown bone: ", err)
	}
}

func TestPipelineReduce(t *testing.T) {
	src := newSource(t)
	target, err := NewTarget("t", []*Bone{
		{Name: "torso", Parent: "root", Size: geom.NewVector3(0, 2, 0), Positional: true},
		{Name: "head", Parent: "torso", Size: geom.NewVector3(0, 1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(target, src, Mapping{"root": "hips", "torso": "spine", "head": "head"}, WithStrict(true))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"hips", "spine", "head", "neck"}, r.SourceJoints(), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Error("source joints (-want +got):\n", diff)
	}

	rnd := rand.New(rand.NewSource(4))
	anim := &armature.Animation{FPS: 30}
	for i := 0; i < 40; i++ {
		anim.Frames = append(anim.Frames, randomFrame(rnd, src))
	}

	run := func(reduce bool) *Result {
		p := &Pipeline{Source: src, Animation: anim, Retargeter: r, Reduce: reduce, Workers: 4, Logger: zaptest.NewLogger(t).Sugar()}
		res, err := p.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	full, reduced := run(false), run(true)
	if len(full.Local) != anim.Len() || len(full.World) != anim.Len() || full.FPS != 30 {
		t.Fatal("result size: ", len(full.Local), len(full.World))
	}
	if diff := cmp.Diff(full.Local, reduced.Local, cmpopts.EquateApprox(0, eps)); diff != "" {
		t.Error("reduced local (-full +reduced):\n", diff)
	}
	if diff := cmp.Diff(full.World, reduced.World, cmpopts.EquateApprox(0, eps)); diff != "" {
		t.Error("reduced world (-full +reduced):\n", diff)
	}

	// source is untouched
	if src.Len() != 6 || src.Joint("chest").Rotation != geom.IdentityQuaternion() {
		t.Error("source modified")
	}
}

func TestPipelineCancel(t *testing.T) {
	src := newSource(t)
	target, mapping, err := NewTargetFromArmature(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(target, src, mapping)
	if err != nil {
		t.Fatal(err)
	}
	anim := &armature.Animation{FPS: 30, Frames: []armature.Frame{{}, {}, {}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Pipeline{Source: src, Animation: anim, Retargeter: r}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Error("canceled: ", err)
	}
}

func TestPipelineBadFrame(t *testing.T) {
	src := newSource(t)
	target, mapping, err := NewTargetFromArmature(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(target, src, mapping)
	if err != nil {
		t.Fatal(err)
	}
	anim := &armature.Animation{FPS: 30, Frames: []armature.Frame{{"ghost": {}}}}
	_, err = (&Pipeline{Source: src, Animation: anim, Retargeter: r}).Run(context.Background())
	if !errors.Is(err, armature.ErrJointNotFound) {
		t.Error("bad frame: ", err)
	}
}
