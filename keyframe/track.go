package keyframe

import (
	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
)

// DefaultOrder is the euler order of exported rotations.
const DefaultOrder = geom.RotationOrderZYX

// Track is the animation of one bone as euler degrees.
type Track struct {
	Bone         string
	Order        geom.RotationOrder
	Times        []float64
	Rotations    []geom.Vector3
	Translations []geom.Vector3
}

func (t *Track) Len() int {
	return len(t.Times)
}

// BuildTracks converts local frames into one continuous track per bone. Bones missing
// from a frame hold identity for that frame.
func BuildTracks(frames []armature.Frame, fps float64, bones []string, order geom.RotationOrder) []*Track {
	fixer := NewFixer()
	tracks := make([]*Track, 0, len(bones))
	for _, name := range bones {
		tr := &Track{
			Bone:         name,
			Order:        order,
			Times:        make([]float64, len(frames)),
			Rotations:    make([]geom.Vector3, len(frames)),
			Translations: make([]geom.Vector3, len(frames)),
		}
		for i, f := range frames {
			if fps > 0 {
				tr.Times[i] = float64(i) / fps
			}
			pose, ok := f[name]
			if !ok {
				pose.Rotation = geom.IdentityQuaternion()
			}
			rot := geom.NewEulerFromQuaternion(pose.Rotation, order).Degrees()
			tr.Rotations[i] = fixer.Fix(name, rot)
			tr.Translations[i] = pose.Offset
		}
		tracks = append(tracks, tr)
	}
	return tracks
}
