package armature

import (
	"time"

	"github.com/binzume/mocapconv/geom"
)

// Pose is the local transform of a joint in a frame.
type Pose struct {
	Offset   geom.Vector3
	Rotation geom.Quaternion
}

// Frame maps joint names to poses. Only joints with channels are present.
type Frame map[string]Pose

// Animation is a sequence of frames sampled at FPS.
type Animation struct {
	Name   string
	FPS    float64
	Frames []Frame
}

func (a *Animation) Len() int {
	return len(a.Frames)
}

func (a *Animation) Duration() time.Duration {
	if a.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Frames)) / a.FPS * float64(time.Second))
}

// FrameTime returns the timestamp of frame i in seconds.
func (a *Animation) FrameTime(i int) float64 {
	if a.FPS <= 0 {
		return 0
	}
	return float64(i) / a.FPS
}
