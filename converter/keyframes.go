package converter

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/binzume/mocapconv/geom"
	"github.com/binzume/mocapconv/keyframe"
	"github.com/binzume/mocapconv/retarget"
)

const KeyframeFormatVersion = "1.8.0"

type BoneKeyframes struct {
	Rotation map[string][3]float64 `json:"rotation,omitempty"`
	Position map[string][3]float64 `json:"position,omitempty"`
}

type KeyframeAnimation struct {
	Loop   bool                      `json:"loop,omitempty"`
	Length float64                   `json:"animation_length"`
	Bones  map[string]*BoneKeyframes `json:"bones"`
}

// KeyframeDocument is a keyframe animation file keyed by time in seconds.
type KeyframeDocument struct {
	FormatVersion string                        `json:"format_version"`
	Animations    map[string]*KeyframeAnimation `json:"animations"`
}

type KeyframeOption struct {
	Order geom.RotationOrder
	// LeftHanded negates z of positions and y, z of rotations.
	LeftHanded bool
	Loop       bool
}

func timeKey(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// NewKeyframeDocument converts local transforms of every non-root bone to continuous
// euler keyframes. Positions are written for positional bones only.
func NewKeyframeDocument(target *retarget.Target, res *retarget.Result, name string, option *KeyframeOption) *KeyframeDocument {
	opt := KeyframeOption{Order: keyframe.DefaultOrder}
	if option != nil {
		opt = *option
	}
	bones := target.Names()[1:]
	tracks := keyframe.BuildTracks(res.Local, res.FPS, bones, opt.Order)

	anim := &KeyframeAnimation{Loop: opt.Loop, Bones: map[string]*BoneKeyframes{}}
	if res.FPS > 0 {
		anim.Length = float64(len(res.Local)) / res.FPS
	}
	for _, tr := range tracks {
		bk := &BoneKeyframes{Rotation: map[string][3]float64{}}
		positional := target.Bone(tr.Bone).Positional
		if positional {
			bk.Position = map[string][3]float64{}
		}
		for i := 0; i < tr.Len(); i++ {
			key := timeKey(tr.Times[i])
			r, p := tr.Rotations[i], tr.Translations[i]
			if opt.LeftHanded {
				r.Y, r.Z = -r.Y, -r.Z
				p.Z = -p.Z
			}
			bk.Rotation[key] = r.ToArray()
			if positional {
				bk.Position[key] = p.ToArray()
			}
		}
		anim.Bones[tr.Bone] = bk
	}
	return &KeyframeDocument{
		FormatVersion: KeyframeFormatVersion,
		Animations:    map[string]*KeyframeAnimation{name: anim},
	}
}

func WriteKeyframes(w io.Writer, doc *KeyframeDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
