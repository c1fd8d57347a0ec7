// Package app wires configuration, the display and the workflow into a
// single fyne application run.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"colour-replacer/internal/config"
	"colour-replacer/internal/debug/timing"
	"colour-replacer/internal/gui"
	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/memory"
	"colour-replacer/internal/pipeline"
	"colour-replacer/internal/shutdown"

	"fyne.io/fyne/v2/app"
)

const (
	AppName    = "Colour Replacer"
	AppID      = "com.imageprocessing.colourreplacer"
	AppVersion = "1.0.0"
)

type Application struct {
	loop          eventLoop
	config        *config.Config
	logger        logger.Logger
	coordinator   *pipeline.Coordinator
	memoryManager *memory.Manager
	timingTracker *timing.Tracker
	shutdown      *shutdown.Manager
	lifecycle     *Lifecycle

	mu     sync.Mutex
	report *pipeline.Report
	err    error
}

func NewApplication(cfg *config.Config, log logger.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fyneApp := app.NewWithID(AppID)
	guiManager := gui.NewManager(fyneApp, log, gui.DefaultEventBuffer)

	log.Info("Application", "starting application", map[string]interface{}{
		"version":     AppVersion,
		"image":       cfg.ImagePath,
		"replacement": cfg.Replacement,
		"radius":      cfg.Eraser.Radius,
	})

	return newApplication(cfg, log, &fyneLoop{app: fyneApp}, guiManager, guiManager), nil
}

func newApplication(cfg *config.Config, log logger.Logger, loop eventLoop, surface pipeline.Surface, guiManager *gui.Manager) *Application {
	memoryManager := memory.NewManager(log)
	timingTracker := timing.NewTracker()

	settings := pipeline.Settings{
		ImagePath:   cfg.ImagePath,
		Range:       cfg.ColourRange(),
		Replacement: cfg.ReplacementColour(),
		Editor:      cfg.EditorOptions(gui.PanelMask),
		Layout:      gui.DefaultLayout(cfg.Display.Width, cfg.Display.Height),
	}
	coordinator := pipeline.NewCoordinator(settings, surface, memoryManager, timingTracker, log)

	// A signal only cancels the workflow and stops the display. Mats and
	// windows are released by Run once the workflow has returned.
	shutdownManager := shutdown.NewManager(log)
	shutdownManager.Register(shutdown.Func(loop.Quit))

	return &Application{
		loop:          loop,
		config:        cfg,
		logger:        log,
		coordinator:   coordinator,
		memoryManager: memoryManager,
		timingTracker: timingTracker,
		shutdown:      shutdownManager,
		lifecycle:     NewLifecycle(memoryManager, guiManager, timingTracker, log),
	}
}

// Run blocks on the event loop while the workflow runs on its own
// goroutine, and returns the workflow's error once both have finished.
func (a *Application) Run() error {
	a.shutdown.Listen()

	runCtx, cancelRun := context.WithCancel(a.shutdown.Context())
	defer cancelRun()

	finished := make(chan struct{})
	var started atomic.Bool

	a.loop.Start(func() {
		if !started.CompareAndSwap(false, true) {
			return
		}

		go func() {
			defer close(finished)

			report, err := a.coordinator.Run(runCtx)

			a.mu.Lock()
			a.report, a.err = report, err
			a.mu.Unlock()

			a.loop.Quit()
		}()
	})

	// The event loop can also end on its own, e.g. when the last window
	// goes away; the workflow is cancelled then.
	cancelRun()
	if started.Load() {
		<-finished
	} else {
		a.err = errors.New("display loop ended before the workflow started")
	}
	a.shutdown.Shutdown()
	a.lifecycle.Shutdown()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err == nil && a.report != nil {
		a.logger.Info("Application", "run complete", a.report.Mask.Fields())
	}
	return a.err
}
