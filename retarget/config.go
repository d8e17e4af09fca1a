package retarget

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/bvh"
	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("invalid config")

// Vec is [x, y, z].
type Vec []float64

func (v Vec) vector(field string) (geom.Vector3, error) {
	if len(v) == 0 {
		return geom.Vector3{}, nil
	}
	if len(v) != 3 {
		return geom.Vector3{}, errors.Wrapf(ErrInvalidConfig, "%s: 3 values expected, got %d", field, len(v))
	}
	return geom.NewVector3(v[0], v[1], v[2]), nil
}

// Rotation is euler degrees [x, y, z] in Order (default xyz) or a quaternion [x, y, z, w].
type Rotation struct {
	Values []float64 `json:"values" yaml:"values"`
	Order  string    `json:"order,omitempty" yaml:"order,omitempty"`
}

func (r *Rotation) quaternion(field string) (geom.Quaternion, error) {
	if r == nil || len(r.Values) == 0 {
		return geom.IdentityQuaternion(), nil
	}
	switch len(r.Values) {
	case 3:
		order := geom.RotationOrderXYZ
		if r.Order != "" {
			o, err := geom.ParseRotationOrder(r.Order)
			if err != nil {
				return geom.Quaternion{}, errors.Wrapf(ErrInvalidConfig, "%s: %v", field, err)
			}
			order = o
		}
		return geom.NewEulerDegrees(r.Values[0], r.Values[1], r.Values[2], order).ToQuaternion(), nil
	case 4:
		return geom.NewQuaternion(r.Values[0], r.Values[1], r.Values[2], r.Values[3]).Normalize(), nil
	}
	return geom.Quaternion{}, errors.Wrapf(ErrInvalidConfig, "%s: 3 or 4 values expected, got %d", field, len(r.Values))
}

type DisplayConfig struct {
	Offset Vec    `json:"offset" yaml:"offset"`
	Size   Vec    `json:"size" yaml:"size"`
	Item   string `json:"item,omitempty" yaml:"item,omitempty"`
}

type BoneConfig struct {
	Name   string `json:"name" yaml:"name"`
	Parent string `json:"parent" yaml:"parent"`
	// Source joint. Overrides the mapping table.
	Source        string         `json:"source,omitempty" yaml:"source,omitempty"`
	Size          Vec            `json:"size,omitempty" yaml:"size,omitempty"`
	Offset        Vec            `json:"offset,omitempty" yaml:"offset,omitempty"`
	RestDirection Vec            `json:"rest_direction,omitempty" yaml:"rest_direction,omitempty"`
	Display       *DisplayConfig `json:"display,omitempty" yaml:"display,omitempty"`
	Positional    bool           `json:"positional,omitempty" yaml:"positional,omitempty"`
}

// SourceConfig holds import options for the source motion.
type SourceConfig struct {
	Scale      float64   `json:"scale,omitempty" yaml:"scale,omitempty"`
	Order      string    `json:"order,omitempty" yaml:"order,omitempty"`
	FPS        float64   `json:"fps,omitempty" yaml:"fps,omitempty"`
	StartFrame int       `json:"start_frame,omitempty" yaml:"start_frame,omitempty"`
	MaxFrames  int       `json:"max_frames,omitempty" yaml:"max_frames,omitempty"`
	FaceNorth  *Rotation `json:"face_north,omitempty" yaml:"face_north,omitempty"`
}

type FromArmatureConfig struct {
	Base  string  `json:"base,omitempty" yaml:"base,omitempty"`
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Root  string  `json:"root,omitempty" yaml:"root,omitempty"`
}

// Config describes a target skeleton and how it follows the source motion.
type Config struct {
	Name string `json:"name" yaml:"name"`
	// Unit divides all lengths of bones, e.g. 16 for pixel sizes.
	Unit         float64             `json:"unit,omitempty" yaml:"unit,omitempty"`
	Bones        []*BoneConfig       `json:"bones,omitempty" yaml:"bones,omitempty"`
	Mapping      map[string]string   `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	RootOffset   Vec                 `json:"root_offset,omitempty" yaml:"root_offset,omitempty"`
	RootRotation *Rotation           `json:"root_rotation,omitempty" yaml:"root_rotation,omitempty"`
	FromArmature *FromArmatureConfig `json:"from_armature,omitempty" yaml:"from_armature,omitempty"`
	Source       SourceConfig        `json:"source" yaml:"source"`
	// Reduce prunes the source to the joints the mapping reads before resolving.
	Reduce bool `json:"reduce,omitempty" yaml:"reduce,omitempty"`
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// LoadConfig reads a json or yaml (.yaml, .yml) config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &conf)
	default:
		err = json.Unmarshal(data, &conf)
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &conf, nil
}

// Validate reports all problems of the config at once.
func (c *Config) Validate() error {
	var errs error
	if c.Unit < 0 {
		errs = multierr.Append(errs, errors.Wrap(ErrInvalidConfig, "unit must be positive"))
	}
	if c.FromArmature == nil && len(c.Bones) == 0 {
		errs = multierr.Append(errs, errors.Wrap(ErrInvalidConfig, "bones or from_armature required"))
	}
	if c.FromArmature != nil && len(c.Bones) > 0 {
		errs = multierr.Append(errs, errors.Wrap(ErrInvalidConfig, "bones and from_armature are exclusive"))
	}
	names := map[string]bool{}
	for i, b := range c.Bones {
		if b.Name == "" {
			errs = multierr.Append(errs, errors.Wrapf(ErrInvalidConfig, "bones[%d]: name required", i))
		} else if names[b.Name] {
			errs = multierr.Append(errs, errors.Wrapf(ErrInvalidConfig, "bones[%d]: duplicate name %q", i, b.Name))
		}
		names[b.Name] = true
		if b.Parent == "" {
			errs = multierr.Append(errs, errors.Wrapf(ErrInvalidConfig, "bones[%d]: parent required", i))
		}
		for field, v := range map[string]Vec{"size": b.Size, "offset": b.Offset, "rest_direction": b.RestDirection} {
			if _, err := v.vector(field); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "bones[%d]", i))
			}
		}
		if b.Display != nil {
			if _, err := b.Display.Offset.vector("display.offset"); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "bones[%d]", i))
			}
			if _, err := b.Display.Size.vector("display.size"); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "bones[%d]", i))
			}
		}
	}
	for target := range c.Mapping {
		if len(c.Bones) > 0 && !names[target] && !isParent(c.Bones, target) {
			errs = multierr.Append(errs, errors.Wrapf(ErrInvalidConfig, "mapping: unknown bone %q", target))
		}
	}
	if _, err := c.RootOffset.vector("root_offset"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.RootRotation.quaternion("root_rotation"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.Source.FaceNorth.quaternion("source.face_north"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Source.Order != "" {
		if _, err := geom.ParseRotationOrder(c.Source.Order); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(ErrInvalidConfig, "source.order: %v", err))
		}
	}
	return errs
}

func isParent(bones []*BoneConfig, name string) bool {
	for _, b := range bones {
		if b.Parent == name {
			return true
		}
	}
	return false
}

// BVHOptions converts the source section to importer options.
func (c *Config) BVHOptions() (*bvh.Options, error) {
	face, err := c.Source.FaceNorth.quaternion("source.face_north")
	if err != nil {
		return nil, err
	}
	opts := &bvh.Options{
		Scale:       c.Source.Scale,
		Orientation: face,
		FPS:         c.Source.FPS,
		StartFrame:  c.Source.StartFrame,
		MaxFrames:   c.Source.MaxFrames,
	}
	if c.Source.Order != "" {
		o, err := geom.ParseRotationOrder(c.Source.Order)
		if err != nil {
			return nil, err
		}
		opts.Order = &o
	}
	return opts, nil
}

// Target builds the target skeleton and mapping. src is used by from_armature.
func (c *Config) Target(src *armature.Armature) (*Target, Mapping, error) {
	var t *Target
	var m Mapping
	if c.FromArmature != nil {
		var err error
		t, m, err = NewTargetFromArmature(src, &DeriveOptions{
			Base:     c.FromArmature.Base,
			Scale:    c.FromArmature.Scale,
			RootName: c.FromArmature.Root,
		})
		if err != nil {
			return nil, nil, err
		}
		for k, v := range c.Mapping {
			m[k] = v
		}
	} else {
		unit := c.Unit
		if unit == 0 {
			unit = 1
		}
		m = Mapping{}
		bones := make([]*Bone, 0, len(c.Bones))
		for _, bc := range c.Bones {
			b, err := bc.bone(1 / unit)
			if err != nil {
				return nil, nil, err
			}
			bones = append(bones, b)
			if bc.Source != "" {
				m[bc.Name] = bc.Source
			}
		}
		var err error
		if t, err = NewTarget(c.Name, bones); err != nil {
			return nil, nil, err
		}
		for k, v := range c.Mapping {
			if _, ok := m[k]; !ok {
				m[k] = v
			}
		}
	}
	if c.Name != "" {
		t.Name = c.Name
	}
	var err error
	if t.RootOffset, err = c.RootOffset.vector("root_offset"); err != nil {
		return nil, nil, err
	}
	if t.RootRotation, err = c.RootRotation.quaternion("root_rotation"); err != nil {
		return nil, nil, err
	}
	return t, m, nil
}

func (bc *BoneConfig) bone(scale float64) (*Bone, error) {
	b := &Bone{Name: bc.Name, Parent: bc.Parent, Positional: bc.Positional}
	var err error
	if b.Size, err = bc.Size.vector("size"); err != nil {
		return nil, err
	}
	if b.Offset, err = bc.Offset.vector("offset"); err != nil {
		return nil, err
	}
	if b.RestDirection, err = bc.RestDirection.vector("rest_direction"); err != nil {
		return nil, err
	}
	b.Size, b.Offset = b.Size.Scale(scale), b.Offset.Scale(scale)
	if bc.Display != nil {
		off, err := bc.Display.Offset.vector("display.offset")
		if err != nil {
			return nil, err
		}
		size, err := bc.Display.Size.vector("display.size")
		if err != nil {
			return nil, err
		}
		b.Display = &armature.Display{Offset: off.Scale(scale), Size: size.Scale(scale), Item: bc.Display.Item}
	}
	return b, nil
}
