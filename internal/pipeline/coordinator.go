// Package pipeline runs one colour replacement from loading the image to
// showing the composited result.
package pipeline

import (
	"context"
	"fmt"

	"colour-replacer/internal/classify"
	"colour-replacer/internal/composite"
	"colour-replacer/internal/debug/timing"
	"colour-replacer/internal/editor"
	"colour-replacer/internal/gui"
	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/memory"
	"colour-replacer/internal/opencv/safe"
)

type Settings struct {
	ImagePath   string
	Range       classify.ColourRange
	Replacement composite.Colour
	Editor      editor.Options
	Layout      gui.Layout
}

// Report summarises a completed run.
type Report struct {
	Image   *ImageData
	Mask    *MaskMetrics
	Timings map[string]interface{}
}

type Coordinator struct {
	settings      Settings
	surface       Surface
	loader        *Loader
	compositor    *composite.Compositor
	memoryManager *memory.Manager
	timingTracker *timing.Tracker
	logger        logger.Logger
}

func NewCoordinator(settings Settings, surface Surface, mem *memory.Manager, tracker *timing.Tracker, log logger.Logger) *Coordinator {
	return &Coordinator{
		settings:      settings,
		surface:       surface,
		loader:        NewLoader(mem, tracker, log),
		compositor:    composite.NewCompositor(log, mem),
		memoryManager: mem,
		timingTracker: tracker,
		logger:        log,
	}
}

// Run walks the user through one replacement. The image is loaded before
// any window opens. Every window is closed when Run returns; Mats stay
// tracked by the memory manager until it is cleaned up.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	img, err := c.loader.Load(ctx, c.settings.ImagePath)
	if err != nil {
		return nil, err
	}

	defer c.surface.CloseAll()

	if err := c.showAndWait(ctx, gui.PanelOriginal, img.Mat); err != nil {
		return nil, err
	}

	classifyCtx := c.timingTracker.StartTiming(ctx, "classify")
	mask, err := classify.Classify(img.Mat, c.settings.Range)
	c.timingTracker.EndTiming(classifyCtx)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	c.memoryManager.Track(mask)

	confirmed, err := c.edit(ctx, mask)
	if err != nil {
		return nil, err
	}

	metrics, err := CalculateMaskMetrics(mask, confirmed)
	c.memoryManager.Release(mask)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Coordinator", "mask confirmed", metrics.Fields())

	compositeCtx := c.timingTracker.StartTiming(ctx, "composite")
	_, err = c.compositor.Composite(img.Mat, confirmed, c.settings.Replacement,
		func(stage composite.Stage, mat *safe.Mat) error {
			return c.showAndWait(ctx, string(stage), mat)
		})
	c.timingTracker.EndTiming(compositeCtx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Image:   img,
		Mask:    metrics,
		Timings: c.timingTracker.Summary(),
	}

	c.logger.Info("Coordinator", "replacement complete", report.Timings)

	return report, nil
}

func (c *Coordinator) edit(ctx context.Context, mask *safe.Mat) (*safe.Mat, error) {
	opts := c.settings.Editor
	panel, err := c.panel(opts.Panel)
	if err != nil {
		return nil, err
	}

	ed, err := editor.New(mask, opts, c.logger)
	if err != nil {
		return nil, fmt.Errorf("start editor: %w", err)
	}
	defer ed.Close()

	display := editor.DisplayFunc(func(m *safe.Mat) error {
		return c.surface.Show(panel, m)
	})

	editCtx := c.timingTracker.StartTiming(ctx, "edit")
	confirmed, err := ed.Run(ctx, c.surface, display)
	c.timingTracker.EndTiming(editCtx)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Coordinator", "editing finished", map[string]interface{}{
		"events":        ed.Stats().Events,
		"erase_strokes": ed.Stats().ErasedStrokes,
		"resets":        ed.Stats().Resets,
	})

	return c.memoryManager.Track(confirmed), nil
}

func (c *Coordinator) panel(name string) (gui.Panel, error) {
	p, ok := c.settings.Layout[name]
	if !ok {
		return gui.Panel{}, fmt.Errorf("no panel named %q", name)
	}
	return p, nil
}

func (c *Coordinator) showAndWait(ctx context.Context, name string, mat *safe.Mat) error {
	p, err := c.panel(name)
	if err != nil {
		return err
	}

	if err := c.surface.Show(p, mat); err != nil {
		return fmt.Errorf("show %s: %w", name, err)
	}

	return c.waitForKey(ctx, name)
}

// waitForKey blocks until any key is pressed. Pointer input is ignored and
// a closed window aborts the run.
func (c *Coordinator) waitForKey(ctx context.Context, panel string) error {
	waitCtx := c.timingTracker.StartTiming(ctx, "wait_"+panel)
	defer c.timingTracker.EndTiming(waitCtx)

	events := c.surface.Events()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", editor.ErrAborted, ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return editor.ErrAborted
			}

			switch ev.Kind {
			case editor.KeyPress:
				return nil
			case editor.WindowClosed:
				c.logger.Info("Coordinator", "window closed", map[string]interface{}{
					"panel":   ev.Panel,
					"waiting": panel,
				})
				return editor.ErrAborted
			}
		}
	}
}
