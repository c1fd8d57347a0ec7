package pipeline

import (
	"colour-replacer/internal/editor"
	"colour-replacer/internal/gui"
	"colour-replacer/internal/opencv/safe"
)

// Surface shows images in named panels and delivers the user's input.
type Surface interface {
	Show(p gui.Panel, mat *safe.Mat) error
	Events() <-chan editor.Event
	CloseAll()
}

// ImageData is a loaded image and what is known about it.
type ImageData struct {
	Mat      *safe.Mat
	Path     string
	Width    int
	Height   int
	Channels int
	Format   string
}
