package conversion

import (
	"fmt"

	"colour-replacer/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ConvertBGRToHSV converts a BGR or BGRA image to 8-bit HSV (H in 0..179,
// S and V in 0..255). The source is never written.
func ConvertBGRToHSV(src *safe.Mat) (*safe.Mat, error) {
	bgr, err := ToBGR(src)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	dst, err := safe.NewMat(bgr.Rows(), bgr.Cols(), gocv.MatTypeCV8UC3, "hsv")
	if err != nil {
		return nil, err
	}

	srcMat := bgr.GetMat()
	dstMat := dst.GetMat()
	gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToHSV)

	return dst, nil
}

// ToBGR returns a 3-channel copy of src, dropping alpha from BGRA input.
func ToBGR(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateChannels(src, "BGR conversion", 3, 4); err != nil {
		return nil, err
	}

	if src.Type() != gocv.MatTypeCV8UC3 && src.Type() != gocv.MatTypeCV8UC4 {
		return nil, fmt.Errorf("%w: BGR conversion requires 8-bit data, got type %d",
			safe.ErrInvalidInput, int(src.Type()))
	}

	if src.Channels() == 3 {
		return src.Clone("bgr")
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3, "bgr")
	if err != nil {
		return nil, err
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRAToBGR)

	return dst, nil
}
