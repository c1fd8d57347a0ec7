// Package editor implements interactive mask refinement: a circular
// eraser driven by pointer events, a reset back to the classified mask and
// a confirm that hands the edited mask over.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/safe"
)

// ErrAborted is returned when editing ends without a confirm: a window
// was closed, the input stream ended or the context was cancelled.
var ErrAborted = errors.New("aborted")

type State int

const (
	Editing State = iota
	Confirmed
	Aborted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Confirmed:
		return "confirmed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	// Radius of the eraser disc in image pixels.
	Radius       int
	PollInterval time.Duration
	ResetKey     string
	ConfirmKey   string
	// Panel is the window whose pointer events drive the eraser.
	Panel string
}

func DefaultOptions() Options {
	return Options{
		Radius:       35,
		PollInterval: 10 * time.Millisecond,
		ResetKey:     "r",
		ConfirmKey:   "q",
		Panel:        "mask",
	}
}

func (o Options) validate() error {
	if o.Radius < 0 {
		return fmt.Errorf("%w: negative eraser radius %d", safe.ErrInvalidInput, o.Radius)
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", safe.ErrInvalidInput, o.PollInterval)
	}
	if o.ResetKey == "" || o.ConfirmKey == "" {
		return fmt.Errorf("%w: reset and confirm keys are required", safe.ErrInvalidInput)
	}
	if strings.EqualFold(o.ResetKey, o.ConfirmKey) {
		return fmt.Errorf("%w: reset and confirm keys must differ", safe.ErrInvalidInput)
	}
	return nil
}

// Stats counts what happened during a session.
type Stats struct {
	Events        int
	ErasedStrokes int
	ErasedPixels  int
	Resets        int
}

// Editor owns the live mask and its pristine snapshot for one session.
// It is not safe for concurrent use: a single loop folds events into it.
type Editor struct {
	live     *safe.Mat
	pristine *safe.Mat
	erasing  bool
	state    State
	opts     Options
	stats    Stats
	logger   logger.Logger
}

// New copies initial into a live mask and a pristine snapshot. initial is
// not retained.
func New(initial *safe.Mat, opts Options, log logger.Logger) (*Editor, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if err := safe.ValidateChannels(initial, "mask editing", 1); err != nil {
		return nil, err
	}

	pristine, err := initial.Clone("pristine_mask")
	if err != nil {
		return nil, fmt.Errorf("snapshot mask: %w", err)
	}

	live, err := initial.Clone("live_mask")
	if err != nil {
		pristine.Close()
		return nil, fmt.Errorf("copy mask: %w", err)
	}

	return &Editor{
		live:     live,
		pristine: pristine,
		state:    Editing,
		opts:     opts,
		logger:   log,
	}, nil
}

// Handle folds one event into the editor and returns the resulting state.
// Events arriving after a terminal state are ignored.
func (e *Editor) Handle(ev Event) State {
	if e.state != Editing {
		return e.state
	}

	e.stats.Events++

	if ev.Kind.isPointer() && ev.Panel != "" && ev.Panel != e.opts.Panel {
		return e.state
	}

	switch ev.Kind {
	case PointerDown:
		e.erasing = true
	case PointerMove:
		if e.erasing {
			e.erase(ev)
		}
	case PointerUp:
		e.erasing = false
	case KeyPress:
		switch {
		case strings.EqualFold(ev.Key, e.opts.ResetKey):
			e.reset()
		case strings.EqualFold(ev.Key, e.opts.ConfirmKey):
			e.state = Confirmed
			e.logger.Info("Editor", "mask confirmed", e.fields())
		}
	case WindowClosed:
		e.state = Aborted
		e.logger.Info("Editor", "window closed, editing aborted", map[string]interface{}{
			"panel": ev.Panel,
		})
	}

	return e.state
}

func (e *Editor) erase(ev Event) {
	changed, err := e.live.FillCircle(ev.Point.X, ev.Point.Y, e.opts.Radius, 0)
	if err != nil {
		e.logger.Error("Editor", err, map[string]interface{}{
			"x": ev.Point.X,
			"y": ev.Point.Y,
		})
		return
	}

	e.stats.ErasedStrokes++
	e.stats.ErasedPixels += changed
}

func (e *Editor) reset() {
	if err := e.pristine.CopyTo(e.live); err != nil {
		e.logger.Error("Editor", err, map[string]interface{}{"action": "reset"})
		return
	}

	e.stats.Resets++
	e.logger.Debug("Editor", "mask reset", map[string]interface{}{
		"erasing": e.erasing,
	})
}

// Run polls src every PollInterval, folds all pending events and then
// renders the live mask, whether or not it changed. It blocks until the
// user confirms, returning the live mask whose ownership passes to the
// caller. Any other ending yields ErrAborted.
func (e *Editor) Run(ctx context.Context, src InputSource, display Display) (*safe.Mat, error) {
	if e.state != Editing {
		return nil, fmt.Errorf("editor already %s", e.state)
	}

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	events := src.Events()

	e.logger.Info("Editor", "editing started", map[string]interface{}{
		"radius":      e.opts.Radius,
		"reset_key":   e.opts.ResetKey,
		"confirm_key": e.opts.ConfirmKey,
	})

	if err := display.Render(e.live); err != nil {
		return nil, fmt.Errorf("render mask: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			e.state = Aborted
			return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		case <-ticker.C:
		}

		if open := e.drain(events); !open && e.state == Editing {
			e.state = Aborted
			e.logger.Warning("Editor", "input closed before confirm", nil)
		}

		switch e.state {
		case Confirmed:
			live := e.live
			e.live = nil
			return live, nil
		case Aborted:
			return nil, ErrAborted
		}

		if err := display.Render(e.live); err != nil {
			return nil, fmt.Errorf("render mask: %w", err)
		}
	}
}

// drain folds every event already queued without blocking. It reports
// false once the channel is closed.
func (e *Editor) drain(events <-chan Event) bool {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if e.Handle(ev) != Editing {
				return true
			}
		default:
			return true
		}
	}
}

func (e *Editor) State() State {
	return e.state
}

func (e *Editor) Erasing() bool {
	return e.erasing
}

func (e *Editor) Stats() Stats {
	return e.stats
}

// Live exposes the live mask while the editor still owns it.
func (e *Editor) Live() *safe.Mat {
	return e.live
}

// IncludedPixels counts the 255 pixels of the live mask.
func (e *Editor) IncludedPixels() (int, error) {
	if e.live == nil {
		return 0, fmt.Errorf("live mask already handed off")
	}
	return e.live.CountNonZero()
}

func (e *Editor) fields() map[string]interface{} {
	return map[string]interface{}{
		"events":        e.stats.Events,
		"erase_strokes": e.stats.ErasedStrokes,
		"erased_pixels": e.stats.ErasedPixels,
		"resets":        e.stats.Resets,
	}
}

// Close releases the pristine mask and the live mask unless it was
// handed off by Run.
func (e *Editor) Close() {
	if e.live != nil {
		e.live.Close()
		e.live = nil
	}
	if e.pristine != nil {
		e.pristine.Close()
		e.pristine = nil
	}
}
