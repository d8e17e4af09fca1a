package bvh

import (
	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
)

// JointDesc is a joint declared in the HIERARCHY section.
type JointDesc struct {
	Name     string
	Parent   string
	Offset   geom.Vector3
	Channels []Channel
	End      bool
}

// Motion is a parsed bvh file. Frames holds raw channel values of the included frames only.
type Motion struct {
	Name         string
	Joints       []*JointDesc
	FrameTime    float64
	TotalFrames  int
	FrameIndices []int
	Frames       [][]float64
	FPS          float64

	opts Options
}

// SourceRate returns the sample rate of the file.
func (m *Motion) SourceRate() float64 {
	if m.FrameTime <= 0 {
		return 0
	}
	return 1 / m.FrameTime
}

func (m *Motion) ChannelCount() int {
	n := 0
	for _, j := range m.Joints {
		n += len(j.Channels)
	}
	return n
}

func (m *Motion) correctOffset(v geom.Vector3) geom.Vector3 {
	return v.Scale(m.opts.Scale).Rotated(m.opts.Orientation)
}

func (m *Motion) correctRotation(q geom.Quaternion) geom.Quaternion {
	c := m.opts.Orientation
	return c.Mul(q).Mul(c.Inverse())
}

// Armature builds the joint tree with scaled and oriented rest offsets.
func (m *Motion) Armature() (*armature.Armature, error) {
	a := armature.New(m.Name)
	for _, d := range m.Joints {
		j := armature.NewJoint(d.Name, m.correctOffset(d.Offset))
		j.End = d.End
		if err := a.AddJoint(j, d.Parent); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Animation decodes the included frames.
func (m *Motion) Animation() (*armature.Animation, error) {
	anim := &armature.Animation{Name: m.Name, FPS: m.FPS, Frames: make([]armature.Frame, 0, len(m.Frames))}
	for i, values := range m.Frames {
		f, err := m.decodeFrame(values)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", m.FrameIndices[i])
		}
		anim.Frames = append(anim.Frames, f)
	}
	return anim, nil
}

func (m *Motion) decodeFrame(values []float64) (armature.Frame, error) {
	if len(values) != m.ChannelCount() {
		return nil, errors.Wrapf(ErrChannelCount, "%d != %d", len(values), m.ChannelCount())
	}
	f := armature.Frame{}
	pos := 0
	for _, j := range m.Joints {
		if len(j.Channels) == 0 {
			continue
		}
		offset := j.Offset
		var angles geom.Vector3
		for _, c := range j.Channels {
			if c.IsRotation() {
				angles.Set(c.axis(), geom.Rad(values[pos]))
			} else {
				offset.Set(c.axis(), values[pos])
			}
			pos++
		}
		order := m.opts.Order
		if order == nil {
			if o, ok := rotationOrder(j.Channels); ok {
				order = &o
			} else {
				o := geom.RotationOrderZXY
				order = &o
			}
		}
		e := geom.EulerAngles{Vector3: angles, Order: *order}
		f[j.Name] = armature.Pose{
			Offset:   m.correctOffset(offset),
			Rotation: m.correctRotation(e.ToQuaternion()),
		}
	}
	return f, nil
}
