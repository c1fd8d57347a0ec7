package widgets

import (
	"image"
	"math"
	"time"

	"colour-replacer/internal/editor"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// MaskCanvas shows an image stretched over the widget and reports primary
// button presses and motion as pointer events in image pixel coordinates.
type MaskCanvas struct {
	widget.BaseWidget

	panel  string
	image  *canvas.Image
	bounds image.Rectangle
	emit   func(editor.Event)
	now    func() time.Time
}

func NewMaskCanvas(panel string, emit func(editor.Event)) *MaskCanvas {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels

	mc := &MaskCanvas{
		panel: panel,
		image: img,
		emit:  emit,
		now:   time.Now,
	}
	mc.ExtendBaseWidget(mc)
	return mc
}

func (mc *MaskCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(mc.image)
}

// SetImage replaces the displayed image. Must run on the fyne thread.
func (mc *MaskCanvas) SetImage(img image.Image) {
	mc.image.Image = img
	if img != nil {
		mc.bounds = img.Bounds()
	}
	mc.image.Refresh()
}

func (mc *MaskCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	mc.send(editor.PointerDown, ev.Position)
}

func (mc *MaskCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	mc.send(editor.PointerUp, ev.Position)
}

func (mc *MaskCanvas) MouseIn(*desktop.MouseEvent) {}

func (mc *MaskCanvas) MouseMoved(ev *desktop.MouseEvent) {
	mc.send(editor.PointerMove, ev.Position)
}

func (mc *MaskCanvas) MouseOut() {}

// Dragged covers drivers that stop delivering hover motion while a
// button is held.
func (mc *MaskCanvas) Dragged(ev *fyne.DragEvent) {
	mc.send(editor.PointerMove, ev.Position)
}

func (mc *MaskCanvas) DragEnd() {}

func (mc *MaskCanvas) send(kind editor.EventKind, pos fyne.Position) {
	if mc.emit == nil || mc.bounds.Empty() {
		return
	}

	mc.emit(editor.Event{
		Kind:  kind,
		Point: ToPixel(pos, mc.Size(), mc.bounds),
		Panel: mc.panel,
		Time:  mc.now(),
	})
}

// ToPixel maps a position inside a widget of the given size onto the
// pixel grid of bounds, assuming the image is stretched over the widget.
// Positions outside the widget map outside bounds; the disc is clipped later.
func ToPixel(pos fyne.Position, size fyne.Size, bounds image.Rectangle) image.Point {
	if size.Width <= 0 || size.Height <= 0 {
		return bounds.Min
	}

	x := int(math.Floor(float64(pos.X) * float64(bounds.Dx()) / float64(size.Width)))
	y := int(math.Floor(float64(pos.Y) * float64(bounds.Dy()) / float64(size.Height)))
	return image.Pt(bounds.Min.X+x, bounds.Min.Y+y)
}
