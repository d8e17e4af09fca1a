package bvh

import (
	"strings"
	"testing"

	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/unicode"
)

const testBVH = `HIERARCHY
ROOT Hips
{
	OFFSET 0.0 0.0 0.0
	CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation
	JOINT Spine
	{
		OFFSET 0.0 1.0 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		End Site
		{
			OFFSET 0.0 1.0 0.0
		}
	}
	JOINT Left Leg
	{
		OFFSET 1.0 0.0 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		End Site
		{
			OFFSET 0.0 -1.0 0.0
		}
	}
}
MOTION
Frames: 4
Frame Time: 0.025
0 0 0 0 0 0 0 0 0 0 0 0
1 0 0 0 0 0 0 0 0 0 0 0
2 0 0 0 0 0 90 0 0 0 0 0
3 0 0 0 0 0 0 0 0 0 0 0
`

func TestParse(t *testing.T) {
	m, err := NewParser(strings.NewReader(testBVH), &Options{Name: "test", Logger: zaptest.NewLogger(t).Sugar()}).Parse()
	if err != nil {
		t.Fatal(err)
	}

	var names, parents []string
	for _, j := range m.Joints {
		names = append(names, j.Name)
		parents = append(parents, j.Parent)
	}
	if diff := cmp.Diff([]string{"Hips", "Spine", "End Site_Spine", "Left Leg", "End Site_Left Leg"}, names); diff != "" {
		t.Error("joints (-want +got):\n", diff)
	}
	if diff := cmp.Diff([]string{"", "Hips", "Spine", "Hips", "Left Leg"}, parents); diff != "" {
		t.Error("parents (-want +got):\n", diff)
	}
	if diff := cmp.Diff([]Channel{ZRotation, XRotation, YRotation}, m.Joints[1].Channels); diff != "" {
		t.Error("channels (-want +got):\n", diff)
	}
	if !m.Joints[2].End || len(m.Joints[2].Channels) != 0 {
		t.Error("end site: ", m.Joints[2])
	}
	if m.TotalFrames != 4 || m.FPS != 20 {
		t.Error("frames: ", m.TotalFrames, m.FPS)
	}
	if diff := cmp.Diff([]int{0, 2}, m.FrameIndices); diff != "" {
		t.Error("included frames (-want +got):\n", diff)
	}
	if m.Frames[1][0] != 2 {
		t.Error("frame 2 values: ", m.Frames[1])
	}
}

func TestDecode(t *testing.T) {
	const eps = 0.000001
	a, anim, err := Decode(strings.NewReader(testBVH), nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 5 || len(anim.Frames) != 2 {
		t.Fatal("decode: ", a.Names(), len(anim.Frames))
	}
	if _, ok := anim.Frames[0]["End Site_Spine"]; ok {
		t.Error("end sites should not have poses")
	}

	if err := a.SetFrame(anim.Frames[1]); err != nil {
		t.Fatal(err)
	}
	g := a.Resolve()
	if g["Hips"].Translation != geom.NewVector3(2, 0, 0) {
		t.Error("root position: ", g["Hips"].Translation)
	}
	// Spine rotates 90 degrees around z, so its end site points to -x.
	if g["End Site_Spine"].Translation.Sub(geom.NewVector3(1, 1, 0)).Len() > eps {
		t.Error("end site: ", g["End Site_Spine"].Translation)
	}
}

func TestDecodeRotation(t *testing.T) {
	const eps = 0.000001
	src := strings.Replace(testBVH, "2 0 0 0 0 0 90 0 0 0 0 0", "0 0 0 0 0 0 0 0 0 0 0 0", 1)
	src = strings.Replace(src, "0 0 0 0 0 0 0 0 0 0 0 0\n1", "0 0 0 0 0 0 90 0 0 0 0 0\n1", 1)
	a, anim, err := Decode(strings.NewReader(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetFrame(anim.Frames[0]); err != nil {
		t.Fatal(err)
	}
	g := a.Resolve()
	if g["End Site_Spine"].Translation.Sub(geom.NewVector3(-1, 1, 0)).Len() > eps {
		t.Error("end site: ", g["End Site_Spine"].Translation)
	}
}

func TestOptions(t *testing.T) {
	const eps = 0.000001
	order := geom.RotationOrderXYZ
	opts := &Options{
		Scale:       2,
		Orientation: geom.NewQuaternionFromAxisAngle(geom.NewVector3(0, 1, 0), geom.Rad(180)),
		Order:       &order,
		FPS:         40,
		StartFrame:  1,
		MaxFrames:   2,
	}
	m, err := NewParser(strings.NewReader(testBVH), opts).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2}, m.FrameIndices); diff != "" {
		t.Error("frames (-want +got):\n", diff)
	}
	a, err := m.Armature()
	if err != nil {
		t.Fatal(err)
	}
	if a.Joint("Left Leg").Rest.Sub(geom.NewVector3(-2, 0, 0)).Len() > eps {
		t.Error("oriented rest offset: ", a.Joint("Left Leg").Rest)
	}
	anim, err := m.Animation()
	if err != nil {
		t.Fatal(err)
	}
	if anim.Frames[0]["Hips"].Offset.Sub(geom.NewVector3(-2, 0, 0)).Len() > eps {
		t.Error("oriented position: ", anim.Frames[0]["Hips"].Offset)
	}
	// Z rotation is mirrored by the 180 degree turn around y.
	want := geom.NewQuaternionFromAxisAngle(geom.NewVector3(0, 0, -1), geom.Rad(90))
	if q := anim.Frames[1]["Spine"].Rotation; !q.Equivalent(want, eps) {
		t.Error("oriented rotation: ", q, want)
	}
}

func TestParseErrors(t *testing.T) {
	for _, c := range []struct {
		name string
		src  string
		err  error
	}{
		{"no hierarchy", strings.Replace(testBVH, "HIERARCHY", "HIERARCH", 1), ErrMalformed},
		{"value count", strings.Replace(testBVH, "3 0 0 0", "3 0 0", 1), ErrChannelCount},
		{"bad number", strings.Replace(testBVH, "2 0 0 0", "x 0 0 0", 1), ErrMalformed},
		{"duplicate", strings.Replace(testBVH, "JOINT Left Leg", "JOINT Spine", 1), armature.ErrDuplicateJoint},
		{"unbalanced", strings.Replace(testBVH, "MOTION", "}\nMOTION", 1), ErrMalformed},
		{"orphan joint", "HIERARCHY\nJOINT A\n{\n}\n", armature.ErrParentNotFound},
		{"missing brace", strings.Replace(testBVH, "JOINT Spine\n\t{", "JOINT Spine", 1), ErrMalformed},
		{"channel count", strings.Replace(testBVH, "CHANNELS 3", "CHANNELS 4", 1), ErrMalformed},
		{"frame time", strings.Replace(testBVH, "0.025", "0", 1), ErrMalformed},
		{"eof", "HIERARCHY\nROOT A\n{\n", ErrMalformed},
	} {
		_, err := NewParser(strings.NewReader(c.src), nil).Parse()
		if !errors.Is(err, c.err) {
			t.Error(c.name, ": ", err)
		}
	}
}

func TestParseUTF16(t *testing.T) {
	src, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(testBVH)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{src, "\xef\xbb\xbf" + testBVH} {
		m, err := NewParser(strings.NewReader(s), nil).Parse()
		if err != nil {
			t.Fatal(err)
		}
		if m.Joints[0].Name != "Hips" || len(m.Frames) != 2 {
			t.Error("decoded: ", m.Joints[0].Name, len(m.Frames))
		}
	}
}

func TestIncludedFrames(t *testing.T) {
	for _, c := range []struct {
		total    int
		src, dst float64
		want     []int
	}{
		{5, 30, 30, []int{0, 1, 2, 3, 4}},
		{5, 20, 60, []int{0, 1, 2, 3, 4}},
		{10, 30, 20, []int{0, 1, 3, 4, 6, 7, 9}},
		{7, 120, 20, []int{0, 6}},
		{0, 30, 20, nil},
	} {
		got := IncludedFrames(c.total, c.src, c.dst)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Error("IncludedFrames(", c.total, c.src, c.dst, ") (-want +got):\n", diff)
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Error("not strictly increasing: ", got)
			}
		}
	}
}
