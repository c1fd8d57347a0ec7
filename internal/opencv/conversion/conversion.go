package conversion

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"colour-replacer/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatToImage converts GoCV Mat to standard Go image
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()
	channels := src.Channels()
	data := src.Bytes()

	if len(data) != rows*cols*channels {
		return nil, fmt.Errorf("%w: Mat data has %d bytes, want %d",
			safe.ErrInvalidInput, len(data), rows*cols*channels)
	}

	switch channels {
	case 1:
		return matToGray(data, rows, cols), nil
	case 3:
		return matToBGRToRGBA(data, rows, cols), nil
	case 4:
		return matToBGRAToRGBA(data, rows, cols), nil
	default:
		return nil, fmt.Errorf("%w: unsupported channel count: %d", safe.ErrInvalidInput, channels)
	}
}

// ImageToMat converts standard Go image to a BGR GoCV Mat
func ImageToMat(img image.Image, tag string) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: input image is nil", safe.ErrInvalidInput)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if err := safe.ValidateDimensions(width, height, "image to Mat conversion"); err != nil {
		return nil, err
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	rgbaMat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("RGBA Mat creation failed: %w", err)
	}
	defer rgbaMat.Close()

	dst, err := safe.NewMat(height, width, gocv.MatTypeCV8UC3, tag)
	if err != nil {
		return nil, err
	}

	dstMat := dst.GetMat()
	gocv.CvtColor(rgbaMat, &dstMat, gocv.ColorRGBAToBGR)

	return dst, nil
}

// matToGray converts single-channel Mat data to grayscale image
func matToGray(data []byte, rows, cols int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data)
	return img
}

// matToBGRToRGBA converts BGR Mat data to RGBA image
func matToBGRToRGBA(data []byte, rows, cols int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := (y*cols + x) * 3
			img.SetRGBA(x, y, color.RGBA{R: data[i+2], G: data[i+1], B: data[i], A: 255})
		}
	}

	return img
}

// matToBGRAToRGBA converts BGRA Mat data to RGBA image
func matToBGRAToRGBA(data []byte, rows, cols int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := (y*cols + x) * 4
			img.SetRGBA(x, y, color.RGBA{R: data[i+2], G: data[i+1], B: data[i], A: data[i+3]})
		}
	}

	return img
}
