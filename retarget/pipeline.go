package retarget

import (
	"context"
	"runtime"

	"github.com/binzume/mocapconv/armature"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline retargets every frame of an animation.
type Pipeline struct {
	Source     *armature.Armature
	Animation  *armature.Animation
	Retargeter *Retargeter
	// Reduce prunes the source to the joints the retargeter reads.
	Reduce  bool
	Workers int
	Logger  *zap.SugaredLogger
}

// Result holds local and world transforms of the target per frame.
type Result struct {
	FPS   float64
	Local []armature.Frame
	World []armature.Globals
}

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var policy armature.Policy
	if p.Reduce {
		keep := append([]string{p.Source.Root().Name}, p.Retargeter.SourceJoints()...)
		policy = armature.KeepSet(keep, true, true)
	}

	n := p.Animation.Len()
	res := &Result{
		FPS:   p.Animation.FPS,
		Local: make([]armature.Frame, n),
		World: make([]armature.Globals, n),
	}
	log.Debugw("retarget", "frames", n, "workers", workers, "reduce", p.Reduce)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := p.Source.Copy()
			if err := a.SetFrame(p.Animation.Frames[i]); err != nil {
				return errors.Wrapf(err, "frame %d", i)
			}
			if policy != nil {
				if err := a.Reduce(policy); err != nil {
					return errors.Wrapf(err, "frame %d", i)
				}
			}
			local := p.Retargeter.Local(a.Resolve())
			res.Local[i] = local
			res.World[i] = p.Retargeter.Target().World(local)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
