package gui

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"colour-replacer/internal/editor"
	"colour-replacer/internal/gui/components"
	"colour-replacer/internal/gui/widgets"
	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/conversion"
	"colour-replacer/internal/opencv/safe"

	"fyne.io/fyne/v2"
)

var ErrShutdown = errors.New("display shut down")

const DefaultEventBuffer = 256

type panelWindow struct {
	panel   Panel
	window  fyne.Window
	display *components.ImageDisplay
	canvas  *widgets.MaskCanvas
}

func (pw *panelWindow) setImage(img image.Image) {
	if pw.canvas != nil {
		pw.canvas.SetImage(img)
		return
	}
	pw.display.SetImage(img)
}

// Manager opens one fyne window per panel and turns their input into
// editor events. Windows are only touched on the fyne thread.
type Manager struct {
	app    fyne.App
	logger logger.Logger

	mu         sync.Mutex
	windows    map[string]*panelWindow
	isShutdown bool

	events  chan editor.Event
	dropped atomic.Int64
	now     func() time.Time
}

func NewManager(app fyne.App, log logger.Logger, buffer int) *Manager {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	return &Manager{
		app:     app,
		logger:  log,
		windows: make(map[string]*panelWindow),
		events:  make(chan editor.Event, buffer),
		now:     time.Now,
	}
}

// Events delivers input from every window. The channel is never closed.
func (m *Manager) Events() <-chan editor.Event {
	return m.events
}

// Show displays mat in the window for p, creating it on first use. The
// pixels are copied before Show returns so mat may change afterwards.
func (m *Manager) Show(p Panel, mat *safe.Mat) error {
	m.mu.Lock()
	shut := m.isShutdown
	m.mu.Unlock()
	if shut {
		return ErrShutdown
	}

	img, err := conversion.MatToImage(mat)
	if err != nil {
		return fmt.Errorf("show %s: %w", p.Name, err)
	}

	fyne.Do(func() {
		pw := m.window(p)
		if pw == nil {
			return
		}
		pw.setImage(img)
	})

	return nil
}

// window returns the window for p, opening it when missing. Runs on the
// fyne thread.
func (m *Manager) window(p Panel) *panelWindow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isShutdown {
		return nil
	}

	if pw, ok := m.windows[p.Name]; ok {
		return pw
	}

	w := m.app.NewWindow(p.Title)
	pw := &panelWindow{panel: p, window: w}

	if p.Interactive {
		pw.canvas = widgets.NewMaskCanvas(p.Name, m.emit)
		w.SetContent(pw.canvas)
	} else {
		pw.display = components.NewImageDisplay(p.Width, p.Height)
		w.SetContent(pw.display.GetContainer())
	}

	w.Resize(fyne.NewSize(float32(p.Width), float32(p.Height)))
	w.Canvas().SetOnTypedRune(func(r rune) {
		m.emit(editor.Event{Kind: editor.KeyPress, Key: string(r), Panel: p.Name, Time: m.now()})
	})
	w.SetCloseIntercept(func() {
		m.emit(editor.Event{Kind: editor.WindowClosed, Panel: p.Name, Time: m.now()})
	})
	w.Show()

	m.windows[p.Name] = pw

	m.logger.Debug("GUIManager", "window opened", map[string]interface{}{
		"panel":       p.Name,
		"title":       p.Title,
		"x":           p.X,
		"y":           p.Y,
		"width":       p.Width,
		"height":      p.Height,
		"interactive": p.Interactive,
	})

	return pw
}

// emit never blocks; events are dropped when the buffer is full.
func (m *Manager) emit(ev editor.Event) {
	select {
	case m.events <- ev:
	default:
		n := m.dropped.Add(1)
		m.logger.Warning("GUIManager", "event buffer full, event dropped", map[string]interface{}{
			"kind":    ev.Kind.String(),
			"panel":   ev.Panel,
			"dropped": n,
		})
	}
}

func (m *Manager) Dropped() int64 {
	return m.dropped.Load()
}

// CloseAll closes every open window.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	windows := m.windows
	m.windows = make(map[string]*panelWindow)
	m.mu.Unlock()

	if len(windows) == 0 {
		return
	}

	fyne.Do(func() {
		for _, pw := range windows {
			pw.window.Close()
		}
	})

	m.logger.Debug("GUIManager", "windows closed", map[string]interface{}{
		"count": len(windows),
	})
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.isShutdown {
		m.mu.Unlock()
		return
	}
	m.isShutdown = true
	m.mu.Unlock()

	m.CloseAll()
	m.logger.Info("GUIManager", "shutdown complete", nil)
}
