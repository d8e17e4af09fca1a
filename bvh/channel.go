package bvh

import (
	"strings"

	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
)

type Channel int

const (
	XPosition Channel = iota
	YPosition
	ZPosition
	XRotation
	YRotation
	ZRotation
)

var channelNames = [...]string{"Xposition", "Yposition", "Zposition", "Xrotation", "Yrotation", "Zrotation"}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return "unknown"
	}
	return channelNames[c]
}

func (c Channel) IsRotation() bool {
	return c >= XRotation
}

func (c Channel) axis() int {
	return int(c) % 3
}

func ParseChannel(s string) (Channel, error) {
	for i, n := range channelNames {
		if strings.EqualFold(n, s) {
			return Channel(i), nil
		}
	}
	return 0, errors.Errorf("unknown channel %q", s)
}

// rotationOrder derives the euler order from the rotation channel sequence.
// "Zrotation Xrotation Yrotation" is RotationOrderZXY.
func rotationOrder(channels []Channel) (geom.RotationOrder, bool) {
	var axes []byte
	for _, c := range channels {
		if c.IsRotation() {
			axes = append(axes, "XYZ"[c.axis()])
		}
	}
	if len(axes) != 3 {
		return 0, false
	}
	o, err := geom.ParseRotationOrder(string(axes))
	return o, err == nil
}
