package main

import (
	"path/filepath"
	"strings"

	"github.com/binzume/mocapconv/armature"
	"github.com/binzume/mocapconv/bvh"
	"github.com/binzume/mocapconv/geom"
	"github.com/binzume/mocapconv/retarget"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// job is a loaded source motion and its target.
type job struct {
	input     string
	conf      *retarget.Config
	motion    *bvh.Motion
	source    *armature.Armature
	animation *armature.Animation
	target    *retarget.Target
	mapping   retarget.Mapping
}

func inputFile(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("one input .bvh file required")
	}
	return c.Args().First(), nil
}

func defaultOutputFile(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func loadConfig(c *cli.Context) (*retarget.Config, error) {
	var conf *retarget.Config
	if path := c.String(flagConfig); path != "" {
		var err error
		if conf, err = retarget.LoadConfig(path); err != nil {
			return nil, err
		}
	} else {
		conf = &retarget.Config{FromArmature: &retarget.FromArmatureConfig{}}
	}
	if c.IsSet(flagBase) {
		if conf.FromArmature == nil {
			return nil, errors.New("--base needs a target derived from the source")
		}
		conf.FromArmature.Base = c.String(flagBase)
	}
	if c.IsSet(flagScale) {
		conf.Source.Scale = c.Float64(flagScale)
	}
	if c.IsSet(flagFPS) {
		conf.Source.FPS = c.Float64(flagFPS)
	}
	if c.IsSet(flagOrder) {
		if _, err := geom.ParseRotationOrder(c.String(flagOrder)); err != nil {
			return nil, err
		}
		conf.Source.Order = c.String(flagOrder)
	}
	return conf, nil
}

func loadMotion(c *cli.Context, logger *zap.SugaredLogger) (*job, error) {
	input, err := inputFile(c)
	if err != nil {
		return nil, err
	}
	conf, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts, err := conf.BVHOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger
	m, err := bvh.Load(input, opts)
	if err != nil {
		return nil, err
	}
	j := &job{input: input, conf: conf, motion: m}
	if j.source, err = m.Armature(); err != nil {
		return nil, err
	}
	if j.animation, err = m.Animation(); err != nil {
		return nil, err
	}
	return j, nil
}

func loadJob(c *cli.Context, logger *zap.SugaredLogger) (*job, error) {
	j, err := loadMotion(c, logger)
	if err != nil {
		return nil, err
	}
	if j.target, j.mapping, err = j.conf.Target(j.source); err != nil {
		return nil, err
	}
	logger.Infow("loaded", "input", j.input, "joints", j.source.Len(), "bones", j.target.Len(),
		"frames", j.animation.Len(), "fps", j.animation.FPS)
	return j, nil
}

func (j *job) retarget(c *cli.Context, logger *zap.SugaredLogger) (*retarget.Result, error) {
	r, err := retarget.New(j.target, j.source, j.mapping,
		retarget.WithLogger(logger), retarget.WithStrict(j.conf.Strict || c.Bool(flagStrict)))
	if err != nil {
		return nil, err
	}
	p := &retarget.Pipeline{
		Source:     j.source,
		Animation:  j.animation,
		Retargeter: r,
		Reduce:     j.conf.Reduce || c.Bool(flagReduce),
		Workers:    c.Int(flagWorkers),
		Logger:     logger,
	}
	return p.Run(c.Context)
}
