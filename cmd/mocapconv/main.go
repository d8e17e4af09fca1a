// Package main is the mocapconv command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	flagConfig  = "config"
	flagOutput  = "output"
	flagDebug   = "debug"
	flagScale   = "scale"
	flagFPS     = "fps"
	flagOrder   = "order"
	flagBase    = "base"
	flagReduce  = "reduce"
	flagStrict  = "strict"
	flagWorkers = "workers"
	flagBoxes   = "boxes"
	flagLeft    = "left-handed"
	flagLoop    = "loop"
	flagBone    = "bone"
	flagDiv     = "divisions"
	flagPattern = "pattern"
)

// newLoggerConfig is a console config without stacktraces.
func newLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	conf := newLoggerConfig()
	if debug {
		conf.Level.SetLevel(zap.DebugLevel)
	}
	l, err := conf.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().Named("mocapconv"), nil
}

var sourceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "retarget config `FILE` (.json, .yaml)",
	},
	&cli.Float64Flag{
		Name:  flagScale,
		Usage: "scale applied to source offsets",
	},
	&cli.Float64Flag{
		Name:  flagFPS,
		Usage: "output frame rate",
	},
	&cli.StringFlag{
		Name:  flagOrder,
		Usage: "override the euler order of source channels (xyz, zxy...)",
	},
	&cli.StringFlag{
		Name:  flagBase,
		Usage: "first visible joint of a target derived from the source",
	},
}

func withSourceFlags(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, sourceFlags...), flags...)
}

func newApp(logger **zap.SugaredLogger) *cli.App {
	return &cli.App{
		Name:      "mocapconv",
		Usage:     "retarget bvh motion capture onto other skeletons",
		ArgsUsage: "input.bvh",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			l, err := newLogger(c.Bool(flagDebug))
			if err != nil {
				return err
			}
			*logger = l
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print the joints of a bvh file",
				ArgsUsage: "input.bvh",
				Flags:     sourceFlags,
				Action:    func(c *cli.Context) error { return inspectAction(c, *logger) },
			},
			{
				Name:      "convert",
				Usage:     "retarget a bvh file and write .glb, .gltf or keyframe .json",
				ArgsUsage: "input.bvh",
				Flags: withSourceFlags(
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output `FILE`"},
					&cli.BoolFlag{Name: flagReduce, Usage: "prune unused source joints before resolving"},
					&cli.BoolFlag{Name: flagStrict, Usage: "fail on mapping misses"},
					&cli.IntFlag{Name: flagWorkers, Usage: "parallel frames (0: number of cpus)"},
					&cli.BoolFlag{Name: flagBoxes, Value: true, Usage: "add display boxes to gltf"},
					&cli.BoolFlag{Name: flagLeft, Usage: "left handed keyframes (json)"},
					&cli.BoolFlag{Name: flagLoop, Usage: "looping animation (json)"},
				),
				Action: func(c *cli.Context) error { return convertAction(c, *logger) },
			},
			{
				Name:      "plot",
				Usage:     "plot the exported rotation curves of a bone",
				ArgsUsage: "input.bvh",
				Flags: withSourceFlags(
					&cli.StringFlag{Name: flagBone, Required: true, Usage: "target bone `NAME`"},
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output `FILE` (.png, .svg, .pdf)"},
				),
				Action: func(c *cli.Context) error { return plotAction(c, *logger) },
			},
			{
				Name:      "dispatch",
				Usage:     "write a search tree selecting the frame for a tick counter",
				ArgsUsage: "input.bvh",
				Flags: withSourceFlags(
					&cli.IntFlag{Name: flagDiv, Value: 4, Usage: "branches per node"},
					&cli.StringFlag{Name: flagPattern, Value: "frame_%d", Usage: "payload of a frame"},
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output `FILE` (default stdout)"},
				),
				Action: func(c *cli.Context) error { return dispatchAction(c, *logger) },
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zap.NewNop().Sugar()
	app := newApp(&logger)
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	_ = logger.Sync()
}
