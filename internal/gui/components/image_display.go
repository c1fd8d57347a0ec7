package components

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// ImageDisplay is the read-only content of a panel window.
type ImageDisplay struct {
	image *canvas.Image
}

func NewImageDisplay(width, height int) *ImageDisplay {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth
	img.SetMinSize(fyne.NewSize(float32(width), float32(height)))

	return &ImageDisplay{image: img}
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.image
}

func (id *ImageDisplay) SetImage(img image.Image) {
	id.image.Image = img
	id.image.Refresh()
}
