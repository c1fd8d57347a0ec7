package composite

import (
	"fmt"

	"colour-replacer/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Invert returns a new mask with every pixel flipped.
func Invert(mask *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateChannels(mask, "invert", 1); err != nil {
		return nil, err
	}

	dst, err := safe.NewMat(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1, "mask_inverse")
	if err != nil {
		return nil, fmt.Errorf("invert: %w", err)
	}

	srcMat := mask.GetMat()
	dstMat := dst.GetMat()
	gocv.BitwiseNot(srcMat, &dstMat)

	return dst, nil
}

// ApplyMask copies the pixels of src where mask is non-zero into a new,
// otherwise black image.
func ApplyMask(src, mask *safe.Mat, tag string) (*safe.Mat, error) {
	if err := safe.ValidateChannels(src, "apply mask", 3); err != nil {
		return nil, err
	}
	if err := safe.ValidateChannels(mask, "apply mask", 1); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(src, mask, "apply mask"); err != nil {
		return nil, err
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type(), tag)
	if err != nil {
		return nil, fmt.Errorf("apply mask: %w", err)
	}

	srcMat := src.GetMat()
	maskMat := mask.GetMat()
	dstMat := dst.GetMat()
	gocv.BitwiseAndWithMask(srcMat, srcMat, &dstMat, maskMat)

	return dst, nil
}

// SolidLayer returns a rows x cols BGR image filled with c.
func SolidLayer(rows, cols int, c Colour) (*safe.Mat, error) {
	layer, err := safe.NewMatFromScalar(rows, cols, gocv.MatTypeCV8UC3, c.Scalar(), "solid_layer")
	if err != nil {
		return nil, fmt.Errorf("solid layer: %w", err)
	}
	return layer, nil
}

// Add sums a and b per channel, saturating at 255.
func Add(a, b *safe.Mat, tag string) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(a, "add"); err != nil {
		return nil, err
	}
	if err := safe.ValidateMatForOperation(b, "add"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(a, b, "add"); err != nil {
		return nil, err
	}
	if a.Type() != b.Type() {
		return nil, fmt.Errorf("%w: add of type %d and type %d", safe.ErrInvalidInput, int(a.Type()), int(b.Type()))
	}

	dst, err := safe.NewMat(a.Rows(), a.Cols(), a.Type(), tag)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	aMat := a.GetMat()
	bMat := b.GetMat()
	dstMat := dst.GetMat()
	gocv.Add(aMat, bMat, &dstMat)

	return dst, nil
}
