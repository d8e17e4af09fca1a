package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/mocapconv/converter"
	"github.com/binzume/mocapconv/dispatch"
	"github.com/binzume/mocapconv/keyframe"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func inspectAction(c *cli.Context, logger *zap.SugaredLogger) error {
	j, err := loadMotion(c, logger)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Name", "Parent", "Offset", "Channels"})
	for i, d := range j.motion.Joints {
		var channels []string
		for _, ch := range d.Channels {
			channels = append(channels, ch.String())
		}
		t.AppendRow(table.Row{
			i,
			d.Name,
			d.Parent,
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", d.Offset.X, d.Offset.Y, d.Offset.Z),
			strings.Join(channels, " "),
		})
	}
	t.AppendFooter(table.Row{"", "frames", j.motion.TotalFrames,
		fmt.Sprintf("%.2f fps -> %.2f fps", j.motion.SourceRate(), j.motion.FPS),
		fmt.Sprintf("%d included", len(j.motion.FrameIndices))})
	_, err = fmt.Fprintln(c.App.Writer, t.Render())
	return err
}

func convertAction(c *cli.Context, logger *zap.SugaredLogger) error {
	j, err := loadJob(c, logger)
	if err != nil {
		return err
	}
	res, err := j.retarget(c, logger)
	if err != nil {
		return err
	}
	output := c.String(flagOutput)
	if output == "" {
		output = defaultOutputFile(j.input, ".glb")
	}
	name := j.animation.Name

	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".glb", ".gltf":
		conv := converter.NewTargetToGltfConverter(j.target, &converter.TargetToGltfOption{
			DisplayBoxes: c.Bool(flagBoxes),
			Logger:       logger,
		})
		doc, err := conv.Convert(res, name)
		if err != nil {
			return err
		}
		if err := converter.SaveGltf(doc, output); err != nil {
			return err
		}
	case ".json":
		doc := converter.NewKeyframeDocument(j.target, res, "animation."+name, &converter.KeyframeOption{
			Order:      keyframe.DefaultOrder,
			LeftHanded: c.Bool(flagLeft),
			Loop:       c.Bool(flagLoop),
		})
		w, err := os.Create(output)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := converter.WriteKeyframes(w, doc); err != nil {
			return err
		}
	default:
		return errors.Errorf("unsupported output type: %v", ext)
	}
	logger.Infow("saved", "output", output, "frames", len(res.Local))
	return nil
}

func plotAction(c *cli.Context, logger *zap.SugaredLogger) error {
	j, err := loadJob(c, logger)
	if err != nil {
		return err
	}
	bone := c.String(flagBone)
	if j.target.Bone(bone) == nil {
		return errors.Errorf("unknown bone %q", bone)
	}
	res, err := j.retarget(c, logger)
	if err != nil {
		return err
	}
	output := c.String(flagOutput)
	if output == "" {
		output = defaultOutputFile(j.input, "."+bone+".png")
	}
	tracks := keyframe.BuildTracks(res.Local, res.FPS, []string{bone}, keyframe.DefaultOrder)
	if err := keyframe.SavePlot(tracks[0], output); err != nil {
		return err
	}
	logger.Infow("saved", "output", output)
	return nil
}

func dispatchAction(c *cli.Context, logger *zap.SugaredLogger) error {
	j, err := loadMotion(c, logger)
	if err != nil {
		return err
	}
	tree, err := dispatch.Build(j.animation.Len(), c.Int(flagDiv))
	if err != nil {
		return err
	}
	logger.Debugw("dispatch tree", "frames", j.animation.Len(), "depth", tree.Depth())

	var w io.Writer = c.App.Writer
	if output := c.String(flagOutput); output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	pattern := c.String(flagPattern)
	return tree.Render(w, func(i int) (string, error) {
		return fmt.Sprintf(pattern, i), nil
	})
}
