package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"colour-replacer/internal/classify"
	"colour-replacer/internal/composite"
	"colour-replacer/internal/debug/timing"
	"colour-replacer/internal/editor"
	"colour-replacer/internal/gui"
	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/memory"
	"colour-replacer/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type shown struct {
	panel    string
	rows     int
	cols     int
	channels int
	data     []byte
}

// fakeSurface records every Show and lets a test react to it by queueing
// input, the way a user answers what a window displays.
type fakeSurface struct {
	mu       sync.Mutex
	shows    []shown
	counts   map[string]int
	events   chan editor.Event
	closed   int
	onShow   func(panel string, n int) []editor.Event
	failShow string
}

func newFakeSurface(onShow func(panel string, n int) []editor.Event) *fakeSurface {
	return &fakeSurface{
		counts: make(map[string]int),
		events: make(chan editor.Event, 128),
		onShow: onShow,
	}
}

func (s *fakeSurface) Show(p gui.Panel, mat *safe.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Name == s.failShow {
		return assert.AnError
	}

	s.counts[p.Name]++
	s.shows = append(s.shows, shown{
		panel:    p.Name,
		rows:     mat.Rows(),
		cols:     mat.Cols(),
		channels: mat.Channels(),
		data:     mat.Bytes(),
	})

	if s.onShow != nil {
		for _, ev := range s.onShow(p.Name, s.counts[p.Name]) {
			s.events <- ev
		}
	}
	return nil
}

func (s *fakeSurface) Events() <-chan editor.Event {
	return s.events
}

func (s *fakeSurface) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

// panels lists shown panels, collapsing repeated renders.
func (s *fakeSurface) panels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, sh := range s.shows {
		if len(out) > 0 && out[len(out)-1] == sh.panel {
			continue
		}
		out = append(out, sh.panel)
	}
	return out
}

func (s *fakeSurface) last(panel string) (shown, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.shows) - 1; i >= 0; i-- {
		if s.shows[i].panel == panel {
			return s.shows[i], true
		}
	}
	return shown{}, false
}

func key(k string) editor.Event {
	return editor.Event{Kind: editor.KeyPress, Key: k}
}

func pointer(kind editor.EventKind, x, y int) editor.Event {
	return editor.Event{Kind: kind, Point: image.Pt(x, y), Panel: gui.PanelMask}
}

func writePNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "image.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func settings(path string) Settings {
	opts := editor.DefaultOptions()
	opts.Radius = 0
	opts.PollInterval = time.Millisecond

	return Settings{
		ImagePath: path,
		Range: classify.ColourRange{
			Lower: [3]uint8{0, 0, 100},
			Upper: [3]uint8{30, 70, 255},
		},
		Replacement: composite.Colour{G: 255},
		Editor:      opts,
		Layout:      gui.DefaultLayout(450, 600),
	}
}

func newCoordinator(t *testing.T, s Settings, surface Surface) (*Coordinator, *memory.Manager) {
	t.Helper()
	mem := memory.NewManager(logger.NoOpLogger{})
	t.Cleanup(func() { mem.Cleanup() })
	return NewCoordinator(s, surface, mem, timing.NewTracker(), logger.NoOpLogger{}), mem
}

// eraseTopLeft answers every display with a key press, except the mask
// panel which gets one top-left erase stroke and a confirm.
func eraseTopLeft(panel string, n int) []editor.Event {
	if panel == gui.PanelMask {
		if n == 1 {
			return []editor.Event{
				pointer(editor.PointerDown, 0, 0),
				pointer(editor.PointerMove, 0, 0),
				pointer(editor.PointerUp, 0, 0),
				key("q"),
			}
		}
		return nil
	}
	return []editor.Event{key(" ")}
}

func TestRunReplacesWhiteWithGreen(t *testing.T) {
	surface := newFakeSurface(eraseTopLeft)
	c, mem := newCoordinator(t, settings(writePNG(t, 4, 4, color.White)), surface)

	report, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		gui.PanelOriginal,
		gui.PanelMask,
		gui.PanelInverseMask,
		gui.PanelKept,
		gui.PanelReplacement,
		gui.PanelResult,
	}, surface.panels())
	assert.Equal(t, 1, surface.closed)

	result, ok := surface.last(gui.PanelResult)
	require.True(t, ok)
	require.Equal(t, 3, result.channels)

	want := make([]byte, 0, 4*4*3)
	for i := 0; i < 16; i++ {
		if i == 0 {
			want = append(want, 255, 255, 255)
			continue
		}
		want = append(want, 0, 255, 0)
	}
	assert.Equal(t, want, result.data)

	require.NotNil(t, report)
	assert.Equal(t, 4, report.Image.Width)
	assert.Equal(t, "png", report.Image.Format)
	assert.Equal(t, 16, report.Mask.Classified)
	assert.Equal(t, 15, report.Mask.Confirmed)
	assert.Equal(t, 1, report.Mask.Erased)
	assert.Contains(t, report.Timings, "classify")
	assert.Contains(t, report.Timings, "edit")

	// The classified mask is released once the edit is confirmed; the
	// image, the confirmed mask and the four stages stay tracked.
	stats := mem.GetStats()
	assert.Equal(t, int64(16), stats.TotalReleased)
	assert.Equal(t, int64(6), stats.ActiveMats)
}

func TestRunWithoutErasingIsAllGreen(t *testing.T) {
	surface := newFakeSurface(func(panel string, n int) []editor.Event {
		if panel == gui.PanelMask {
			if n == 1 {
				return []editor.Event{key("q")}
			}
			return nil
		}
		return []editor.Event{key("x")}
	})
	c, _ := newCoordinator(t, settings(writePNG(t, 4, 4, color.White)), surface)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	result, _ := surface.last(gui.PanelResult)
	for i := 0; i < len(result.data); i += 3 {
		assert.Equal(t, []byte{0, 255, 0}, result.data[i:i+3])
	}
}

func TestRunKeepsPixelsOutsideRange(t *testing.T) {
	surface := newFakeSurface(func(panel string, n int) []editor.Event {
		if panel == gui.PanelMask && n > 1 {
			return nil
		}
		if panel == gui.PanelMask {
			return []editor.Event{key("q")}
		}
		return []editor.Event{key(" ")}
	})
	c, _ := newCoordinator(t, settings(writePNG(t, 3, 2, color.RGBA{B: 200, A: 255})), surface)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Mask.Classified)

	result, _ := surface.last(gui.PanelResult)
	for i := 0; i < len(result.data); i += 3 {
		assert.Equal(t, []byte{200, 0, 0}, result.data[i:i+3])
	}
}

func TestRunMissingFile(t *testing.T) {
	surface := newFakeSurface(nil)
	c, _ := newCoordinator(t, settings(filepath.Join(t.TempDir(), "missing.png")), surface)

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Empty(t, surface.panels())
	assert.Equal(t, 0, surface.closed)
}

func TestRunUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	surface := newFakeSurface(nil)
	c, _ := newCoordinator(t, settings(path), surface)

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, safe.ErrInvalidInput)
	assert.Empty(t, surface.panels())
}

func TestRunAbortsOnWindowClose(t *testing.T) {
	tests := []struct {
		name     string
		closeOn  string
		lastSeen string
	}{
		{"original", gui.PanelOriginal, gui.PanelOriginal},
		{"mask", gui.PanelMask, gui.PanelMask},
		{"kept", gui.PanelKept, gui.PanelKept},
		{"result", gui.PanelResult, gui.PanelResult},
	}

	for _, x := range tests {
		t.Run(x.name, func(t *testing.T) {
			surface := newFakeSurface(func(panel string, n int) []editor.Event {
				if panel == x.closeOn && n == 1 {
					return []editor.Event{{Kind: editor.WindowClosed, Panel: panel}}
				}
				return eraseTopLeft(panel, n)
			})
			c, _ := newCoordinator(t, settings(writePNG(t, 4, 4, color.White)), surface)

			report, err := c.Run(context.Background())
			assert.Nil(t, report)
			assert.ErrorIs(t, err, editor.ErrAborted)
			assert.Equal(t, 1, surface.closed)

			panels := surface.panels()
			assert.Equal(t, x.lastSeen, panels[len(panels)-1])
		})
	}
}

func TestWaitIgnoresPointerInput(t *testing.T) {
	surface := newFakeSurface(func(panel string, n int) []editor.Event {
		if panel == gui.PanelOriginal {
			return []editor.Event{
				pointer(editor.PointerDown, 1, 1),
				pointer(editor.PointerMove, 2, 2),
				pointer(editor.PointerUp, 2, 2),
				{Kind: editor.WindowClosed, Panel: panel},
			}
		}
		return nil
	})
	c, _ := newCoordinator(t, settings(writePNG(t, 4, 4, color.White)), surface)

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, editor.ErrAborted)
	assert.Equal(t, []string{gui.PanelOriginal}, surface.panels())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	surface := newFakeSurface(func(panel string, n int) []editor.Event {
		cancel()
		return nil
	})
	c, _ := newCoordinator(t, settings(writePNG(t, 4, 4, color.White)), surface)

	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, editor.ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunShowFailure(t *testing.T) {
	surface := newFakeSurface(eraseTopLeft)
	surface.failShow = gui.PanelOriginal
	c, _ := newCoordinator(t, settings(writePNG(t, 4, 4, color.White)), surface)

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, surface.closed)
}

func TestLoaderRejectsDirectory(t *testing.T) {
	l := NewLoader(memory.NewManager(logger.NoOpLogger{}), timing.NewTracker(), logger.NoOpLogger{})

	_, err := l.Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoaderReadsBGR(t *testing.T) {
	mem := memory.NewManager(logger.NoOpLogger{})
	defer mem.Cleanup()
	l := NewLoader(mem, timing.NewTracker(), logger.NoOpLogger{})

	img, err := l.Load(context.Background(), writePNG(t, 3, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	require.NoError(t, err)

	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, 3, img.Channels)
	assert.Equal(t, []byte{30, 20, 10}, img.Mat.Bytes()[:3])
	assert.Equal(t, int64(1), mem.GetStats().ActiveMats)
}

func TestCalculateMaskMetrics(t *testing.T) {
	classified, err := safe.NewMatFromScalar(2, 2, gocv.MatTypeCV8UC1, gocv.NewScalar(255, 0, 0, 0), "classified")
	require.NoError(t, err)
	defer classified.Close()

	confirmed, err := classified.Clone("confirmed")
	require.NoError(t, err)
	defer confirmed.Close()
	require.NoError(t, confirmed.SetUCharAt(0, 0, 0))

	m, err := CalculateMaskMetrics(classified, confirmed)
	require.NoError(t, err)
	assert.Equal(t, &MaskMetrics{Pixels: 4, Classified: 4, Confirmed: 3, Erased: 1, Coverage: 0.75}, m)

	other, err := safe.NewMat(3, 2, gocv.MatTypeCV8UC1, "other")
	require.NoError(t, err)
	defer other.Close()

	_, err = CalculateMaskMetrics(classified, other)
	assert.ErrorIs(t, err, safe.ErrDimensionMismatch)
}
