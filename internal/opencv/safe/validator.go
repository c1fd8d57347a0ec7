package safe

import (
	"fmt"
)

const maxDimension = 32768

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("%w: Mat is nil for operation: %s", ErrInvalidInput, operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("%w: Mat is invalid for operation: %s", ErrInvalidInput, operation)
	}

	if mat.Empty() {
		return fmt.Errorf("%w: Mat is empty for operation: %s", ErrInvalidInput, operation)
	}

	return ValidateDimensions(mat.Cols(), mat.Rows(), operation)
}

// ValidateChannels accepts mat only if its channel count is one of allowed.
func ValidateChannels(mat *Mat, operation string, allowed ...int) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}

	channels := mat.Channels()
	for _, n := range allowed {
		if channels == n {
			return nil
		}
	}

	return fmt.Errorf("%w: unsupported channel count %d for operation: %s (want %v)",
		ErrInvalidInput, channels, operation, allowed)
}

// ValidateSameSize fails with ErrDimensionMismatch when a and b differ in
// width or height.
func ValidateSameSize(a, b *Mat, operation string) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return fmt.Errorf("%w: %s is %dx%d, %s is %dx%d for operation: %s",
			ErrDimensionMismatch, a.Tag(), a.Cols(), a.Rows(), b.Tag(), b.Cols(), b.Rows(), operation)
	}

	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d for operation: %s", ErrInvalidInput, width, height, operation)
	}

	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: dimensions %dx%d exceed maximum size for operation: %s", ErrInvalidInput, width, height, operation)
	}

	return nil
}

func ValidateCoordinates(row, col, rows, cols int, operation string) error {
	if row < 0 || row >= rows {
		return fmt.Errorf("row %d out of bounds [0, %d) for operation: %s", row, rows, operation)
	}

	if col < 0 || col >= cols {
		return fmt.Errorf("col %d out of bounds [0, %d) for operation: %s", col, cols, operation)
	}

	return nil
}

func ValidateChannel(channel, channels int, operation string) error {
	if channel < 0 || channel >= channels {
		return fmt.Errorf("channel %d out of bounds [0, %d) for operation: %s", channel, channels, operation)
	}

	return nil
}
