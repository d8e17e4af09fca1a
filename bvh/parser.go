package bvh

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/geom"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const DefaultFPS = 20

var (
	ErrMalformed    = errors.New("malformed bvh")
	ErrChannelCount = errors.New("wrong number of channel values")
)

// Options for the bvh parser. Zero values select defaults.
type Options struct {
	Name string
	// Scale applied to offsets and position channels. Default 1.
	Scale float64
	// Orientation corrects the facing of the whole motion.
	Orientation geom.Quaternion
	// Order overrides the euler order of all joints.
	Order *geom.RotationOrder
	// FPS is the target sample rate. Default 20.
	FPS        float64
	StartFrame int
	// MaxFrames limits the number of decoded frames. 0 for no limit.
	MaxFrames int
	Logger    *zap.SugaredLogger
}

func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Orientation == (geom.Quaternion{}) {
		opts.Orientation = geom.IdentityQuaternion()
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.StartFrame < 0 {
		opts.StartFrame = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return opts
}

// Parser is parser for .bvh motion capture.
type Parser struct {
	s    *bufio.Scanner
	opts Options
	line int

	motion  *Motion
	joints  map[string]*JointDesc
	stack   []*JointDesc
	pending *JointDesc
}

// NewParser returns new parser. UTF-8 and UTF-16 with BOM are accepted.
func NewParser(r io.Reader, opts *Options) *Parser {
	o := opts.withDefaults()
	s := bufio.NewScanner(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	s.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &Parser{
		s:      s,
		opts:   o,
		motion: &Motion{Name: o.Name, opts: o},
		joints: map[string]*JointDesc{},
	}
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, "line %d: "+format, append([]interface{}{p.line}, args...)...)
}

func (p *Parser) next() ([]string, bool) {
	for p.s.Scan() {
		p.line++
		if words := strings.Fields(p.s.Text()); len(words) > 0 {
			return words, true
		}
	}
	return nil, false
}

func (p *Parser) parseFloats(words []string) ([]float64, error) {
	values := make([]float64, len(words))
	for i, w := range words {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", w)
		}
		values[i] = v
	}
	return values, nil
}

func (p *Parser) current() *JointDesc {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Parser) declare(j *JointDesc) error {
	if p.pending != nil {
		return p.errorf("%q is not followed by '{'", p.pending.Name)
	}
	if _, exists := p.joints[j.Name]; exists {
		return errors.Wrapf(armature.ErrDuplicateJoint, "line %d: %q", p.line, j.Name)
	}
	p.pending = j
	return nil
}

func (p *Parser) open() error {
	j := p.pending
	if j == nil {
		return p.errorf("unexpected '{'")
	}
	p.pending = nil
	if parent := p.current(); parent != nil {
		if parent.End {
			return p.errorf("end site %q can not have children", parent.Name)
		}
		j.Parent = parent.Name
	} else if len(p.motion.Joints) > 0 {
		return errors.Wrapf(armature.ErrParentNotFound, "line %d: %q", p.line, j.Name)
	}
	p.joints[j.Name] = j
	p.motion.Joints = append(p.motion.Joints, j)
	p.stack = append(p.stack, j)
	return nil
}

func (p *Parser) parseHierarchy() error {
	words, ok := p.next()
	if !ok || words[0] != "HIERARCHY" {
		return p.errorf("HIERARCHY expected")
	}
	for {
		words, ok := p.next()
		if !ok {
			return p.errorf("unexpected EOF in HIERARCHY")
		}
		switch words[0] {
		case "ROOT":
			if len(p.motion.Joints) > 0 {
				return p.errorf("multiple ROOT")
			}
			fallthrough
		case "JOINT":
			if len(words) < 2 {
				return p.errorf("joint name expected")
			}
			if words[0] == "JOINT" && len(p.stack) == 0 {
				return errors.Wrapf(armature.ErrParentNotFound, "line %d: %q", p.line, strings.Join(words[1:], " "))
			}
			if err := p.declare(&JointDesc{Name: strings.Join(words[1:], " ")}); err != nil {
				return err
			}
		case "End":
			parent := p.current()
			if parent == nil {
				return p.errorf("End Site outside of a joint")
			}
			if err := p.declare(&JointDesc{Name: "End Site_" + parent.Name, End: true}); err != nil {
				return err
			}
		case "{":
			if err := p.open(); err != nil {
				return err
			}
		case "}":
			if len(p.stack) == 0 {
				return p.errorf("unbalanced '}'")
			}
			p.stack = p.stack[:len(p.stack)-1]
		case "OFFSET":
			j := p.current()
			if j == nil || len(words) != 4 {
				return p.errorf("invalid OFFSET")
			}
			v, err := p.parseFloats(words[1:])
			if err != nil {
				return err
			}
			j.Offset = geom.NewVector3FromSlice(v)
		case "CHANNELS":
			j := p.current()
			if j == nil || j.End || len(words) < 2 {
				return p.errorf("invalid CHANNELS")
			}
			n, err := strconv.Atoi(words[1])
			if err != nil || n != len(words)-2 {
				return p.errorf("invalid channel count %q", words[1])
			}
			for _, w := range words[2:] {
				c, err := ParseChannel(w)
				if err != nil {
					return p.errorf("%v", err)
				}
				j.Channels = append(j.Channels, c)
			}
		case "MOTION":
			if len(p.stack) != 0 || p.pending != nil || len(p.motion.Joints) == 0 {
				return p.errorf("unexpected MOTION")
			}
			return nil
		default:
			return p.errorf("unexpected %q", words[0])
		}
	}
}

func (p *Parser) parseMotionHeader() error {
	words, ok := p.next()
	if !ok || words[0] != "Frames:" || len(words) != 2 {
		return p.errorf("Frames: expected")
	}
	total, err := strconv.Atoi(words[1])
	if err != nil || total < 0 {
		return p.errorf("invalid frame count %q", words[1])
	}
	p.motion.TotalFrames = total

	words, ok = p.next()
	if !ok || len(words) != 3 || words[0] != "Frame" || words[1] != "Time:" {
		return p.errorf("Frame Time: expected")
	}
	t, err := strconv.ParseFloat(words[2], 64)
	if err != nil || t <= 0 {
		return p.errorf("invalid frame time %q", words[2])
	}
	p.motion.FrameTime = t
	return nil
}

func (p *Parser) parseFrames() error {
	m := p.motion
	start := p.opts.StartFrame
	included := map[int]bool{}
	if m.TotalFrames > start {
		for _, f := range IncludedFrames(m.TotalFrames-start, m.SourceRate(), p.opts.FPS) {
			included[f+start] = true
		}
	}
	m.FPS = p.opts.FPS
	if src := m.SourceRate(); src < m.FPS {
		m.FPS = src
	}

	count := m.ChannelCount()
	frame := 0
	for {
		words, ok := p.next()
		if !ok {
			break
		}
		if frame >= m.TotalFrames {
			p.opts.Logger.Debugw("ignoring frames beyond declared count", "line", p.line, "frames", m.TotalFrames)
			break
		}
		if p.opts.MaxFrames > 0 && len(m.Frames) >= p.opts.MaxFrames {
			break
		}
		if len(words) != count {
			return errors.Wrapf(ErrChannelCount, "line %d: %d values, %d channels", p.line, len(words), count)
		}
		if included[frame] {
			values, err := p.parseFloats(words)
			if err != nil {
				return err
			}
			m.Frames = append(m.Frames, values)
			m.FrameIndices = append(m.FrameIndices, frame)
		}
		frame++
	}
	return p.s.Err()
}

// Parse reads the whole input.
func (p *Parser) Parse() (*Motion, error) {
	if err := p.parseHierarchy(); err != nil {
		return nil, err
	}
	if err := p.parseMotionHeader(); err != nil {
		return nil, err
	}
	if err := p.parseFrames(); err != nil {
		return nil, err
	}
	p.opts.Logger.Debugw("bvh loaded", "name", p.motion.Name, "joints", len(p.motion.Joints),
		"frames", len(p.motion.Frames), "total", p.motion.TotalFrames, "fps", p.motion.FPS)
	return p.motion, nil
}

// Decode parses r and returns the armature and its animation.
func Decode(r io.Reader, opts *Options) (*armature.Armature, *armature.Animation, error) {
	m, err := NewParser(r, opts).Parse()
	if err != nil {
		return nil, nil, err
	}
	a, err := m.Armature()
	if err != nil {
		return nil, nil, err
	}
	anim, err := m.Animation()
	if err != nil {
		return nil, nil, err
	}
	return a, anim, nil
}

// Load parses a .bvh file. The armature is named after the file if opts has no name.
func Load(path string, opts *Options) (*Motion, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	o := opts.withDefaults()
	if o.Name == "" {
		base := filepath.Base(path)
		o.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	m, err := NewParser(r, &o).Parse()
	return m, errors.Wrap(err, path)
}
