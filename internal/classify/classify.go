// Package classify builds binary masks of the pixels whose HSV value lies
// inside a configured range.
package classify

import (
	"fmt"

	"colour-replacer/internal/opencv/conversion"
	"colour-replacer/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ColourRange bounds each HSV channel inclusively. Values use OpenCV's
// 8-bit encoding: hue in 0..179, saturation and value in 0..255.
type ColourRange struct {
	Lower [3]uint8
	Upper [3]uint8
}

// Validate rejects ranges whose lower bound exceeds the upper bound.
func (r ColourRange) Validate() error {
	for ch := 0; ch < 3; ch++ {
		if r.Lower[ch] > r.Upper[ch] {
			return fmt.Errorf("%w: channel %d lower bound %d exceeds upper bound %d",
				safe.ErrInvalidInput, ch, r.Lower[ch], r.Upper[ch])
		}
	}
	return nil
}

func (r ColourRange) lowerScalar() gocv.Scalar {
	return gocv.NewScalar(float64(r.Lower[0]), float64(r.Lower[1]), float64(r.Lower[2]), 0)
}

func (r ColourRange) upperScalar() gocv.Scalar {
	return gocv.NewScalar(float64(r.Upper[0]), float64(r.Upper[1]), float64(r.Upper[2]), 0)
}

// Classify returns a single-channel mask that is 255 where the pixel of
// img lies within r and 0 elsewhere. img must be a 3 or 4 channel BGR(A)
// image and is left untouched.
func Classify(img *safe.Mat, r ColourRange) (*safe.Mat, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	hsv, err := conversion.ConvertBGRToHSV(img)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer hsv.Close()

	mask, err := safe.NewMat(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8UC1, "mask")
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	hsvMat := hsv.GetMat()
	maskMat := mask.GetMat()
	gocv.InRangeWithScalar(hsvMat, r.lowerScalar(), r.upperScalar(), &maskMat)

	return mask, nil
}
