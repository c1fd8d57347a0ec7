package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"colour-replacer/internal/debug/timing"
	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/memory"
	"colour-replacer/internal/opencv/safe"

	"gocv.io/x/gocv"
)

var ErrFileNotFound = errors.New("file not found")

type Loader struct {
	memoryManager *memory.Manager
	logger        logger.Logger
	timingTracker *timing.Tracker
}

func NewLoader(mem *memory.Manager, tracker *timing.Tracker, log logger.Logger) *Loader {
	return &Loader{
		memoryManager: mem,
		logger:        log,
		timingTracker: tracker,
	}
}

// Load reads and decodes the image at path as 3-channel BGR. A missing or
// unreadable file yields ErrFileNotFound; data OpenCV cannot decode yields
// safe.ErrInvalidInput.
func (l *Loader) Load(ctx context.Context, path string) (*ImageData, error) {
	ctx = l.timingTracker.StartTiming(ctx, "load_image")
	defer l.timingTracker.EndTiming(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}

	l.logger.Debug("ImageLoader", "image data read", map[string]interface{}{
		"path":       path,
		"size_bytes": len(data),
	})

	return l.LoadFromBytes(ctx, data, path)
}

// LoadFromBytes decodes data with OpenCV. name is only used for logging
// and format detection.
func (l *Loader) LoadFromBytes(ctx context.Context, data []byte, name string) (*ImageData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", safe.ErrInvalidInput, name)
	}

	cvCtx := l.timingTracker.StartTiming(ctx, "opencv_decode")
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	l.timingTracker.EndTiming(cvCtx)

	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", safe.ErrInvalidInput, name, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: %s is not a decodable image", safe.ErrInvalidInput, name)
	}

	safeMat, err := safe.NewMatFromMat(mat, "original")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", safe.ErrInvalidInput, name, err)
	}
	l.memoryManager.Track(safeMat)

	imageData := &ImageData{
		Mat:      safeMat,
		Path:     name,
		Width:    safeMat.Cols(),
		Height:   safeMat.Rows(),
		Channels: safeMat.Channels(),
		Format:   detectFormat(data, name),
	}

	l.logger.Info("ImageLoader", "image loaded successfully", map[string]interface{}{
		"path":     name,
		"width":    imageData.Width,
		"height":   imageData.Height,
		"channels": imageData.Channels,
		"format":   imageData.Format,
	})

	return imageData, nil
}

func detectFormat(data []byte, name string) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return format
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}
