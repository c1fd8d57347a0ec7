package safe

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat owns a gocv.Mat and guards it against use after Close. Every
// image and mask in the application travels as a *Mat.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	id      uint64
	tag     string
}

var nextMatID uint64

// NewMat allocates a zero-filled Mat.
func NewMat(rows, cols int, matType gocv.MatType, tag string) (*Mat, error) {
	return NewMatFromScalar(rows, cols, matType, gocv.NewScalar(0, 0, 0, 0), tag)
}

// NewMatFromScalar allocates a Mat with every pixel set to s.
func NewMatFromScalar(rows, cols int, matType gocv.MatType, s gocv.Scalar, tag string) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, tag); err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSizeFromScalar(s, rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat, tag), nil
}

// NewMatFromMat clones srcMat into a new owned Mat. The caller keeps
// ownership of srcMat.
func NewMatFromMat(srcMat gocv.Mat, tag string) (*Mat, error) {
	if srcMat.Empty() {
		return nil, fmt.Errorf("%w: source Mat is empty", ErrInvalidInput)
	}

	if srcMat.Rows() <= 0 || srcMat.Cols() <= 0 {
		return nil, fmt.Errorf("%w: source Mat has invalid dimensions: %dx%d",
			ErrInvalidInput, srcMat.Cols(), srcMat.Rows())
	}

	clonedMat := srcMat.Clone()
	if clonedMat.Empty() {
		clonedMat.Close()
		return nil, fmt.Errorf("failed to clone Mat")
	}

	return wrap(clonedMat, tag), nil
}

func wrap(mat gocv.Mat, tag string) *Mat {
	safeMat := &Mat{
		mat:     mat,
		isValid: 1,
		id:      atomic.AddUint64(&nextMatID, 1),
		tag:     tag,
	}

	// Set finalizer for cleanup if Close() is not called
	runtime.SetFinalizer(safeMat, (*Mat).finalize)

	return safeMat
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return true
	}

	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}

	return sm.mat.Type()
}

// Tag names what the Mat holds, e.g. "live_mask".
func (sm *Mat) Tag() string {
	return sm.tag
}

func (sm *Mat) ID() uint64 {
	return sm.id
}

// Clone returns an independent deep copy tagged with tag.
func (sm *Mat) Clone(tag string) (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return nil, fmt.Errorf("cannot clone invalid Mat")
	}

	if sm.mat.Empty() {
		return nil, fmt.Errorf("cannot clone empty Mat")
	}

	return NewMatFromMat(sm.mat, tag)
}

// CopyTo overwrites dst with the pixels of sm. Both Mats must share size
// and type so dst is never reallocated.
func (sm *Mat) CopyTo(dst *Mat) error {
	if sm == dst {
		return nil
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return fmt.Errorf("source Mat is invalid")
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()

	if !dst.IsValid() {
		return fmt.Errorf("destination Mat is invalid")
	}

	if sm.mat.Empty() {
		return fmt.Errorf("source Mat is empty")
	}

	if sm.mat.Rows() != dst.mat.Rows() || sm.mat.Cols() != dst.mat.Cols() {
		return fmt.Errorf("%w: copy %dx%d into %dx%d", ErrDimensionMismatch,
			sm.mat.Cols(), sm.mat.Rows(), dst.mat.Cols(), dst.mat.Rows())
	}

	if sm.mat.Type() != dst.mat.Type() {
		return fmt.Errorf("%w: copy type %d into type %d", ErrInvalidInput,
			int(sm.mat.Type()), int(dst.mat.Type()))
	}

	sm.mat.CopyTo(&dst.mat)
	return nil
}

func (sm *Mat) GetUCharAt(row, col int) (uint8, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0, fmt.Errorf("Mat is invalid")
	}

	if err := ValidateCoordinates(row, col, sm.mat.Rows(), sm.mat.Cols(), "GetUCharAt"); err != nil {
		return 0, err
	}

	return sm.mat.GetUCharAt(row, col), nil
}

func (sm *Mat) SetUCharAt(row, col int, value uint8) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.IsValid() {
		return fmt.Errorf("Mat is invalid")
	}

	if err := ValidateCoordinates(row, col, sm.mat.Rows(), sm.mat.Cols(), "SetUCharAt"); err != nil {
		return err
	}

	sm.mat.SetUCharAt(row, col, value)
	return nil
}

func (sm *Mat) GetUCharAt3(row, col, channel int) (uint8, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0, fmt.Errorf("Mat is invalid")
	}

	if err := ValidateCoordinates(row, col, sm.mat.Rows(), sm.mat.Cols(), "GetUCharAt3"); err != nil {
		return 0, err
	}

	if err := ValidateChannel(channel, sm.mat.Channels(), "GetUCharAt3"); err != nil {
		return 0, err
	}

	return sm.mat.GetUCharAt3(row, col, channel), nil
}

// FillCircle sets every pixel within radius of (cx, cy) to value on a
// single-channel Mat. The centre may lie outside the Mat; only the part of
// the disc inside it is painted. It returns the number of pixels whose
// value changed.
func (sm *Mat) FillCircle(cx, cy, radius int, value uint8) (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.IsValid() || sm.mat.Empty() {
		return 0, fmt.Errorf("%w: Mat is invalid for FillCircle", ErrInvalidInput)
	}

	if sm.mat.Channels() != 1 {
		return 0, fmt.Errorf("%w: FillCircle requires 1 channel, got %d",
			ErrInvalidInput, sm.mat.Channels())
	}

	if radius < 0 {
		return 0, fmt.Errorf("%w: negative radius %d", ErrInvalidInput, radius)
	}

	rows, cols := sm.mat.Rows(), sm.mat.Cols()
	minY, maxY := max(cy-radius, 0), min(cy+radius, rows-1)
	minX, maxX := max(cx-radius, 0), min(cx+radius, cols-1)
	if minX > maxX || minY > maxY {
		return 0, nil
	}
	r2 := radius * radius

	changed := 0
	for y := minY; y <= maxY; y++ {
		dy := y - cy
		for x := minX; x <= maxX; x++ {
			dx := x - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			if sm.mat.GetUCharAt(y, x) != value {
				sm.mat.SetUCharAt(y, x, value)
				changed++
			}
		}
	}

	return changed, nil
}

// CountNonZero counts non-zero pixels of a single-channel Mat.
func (sm *Mat) CountNonZero() (int, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() || sm.mat.Empty() {
		return 0, fmt.Errorf("%w: Mat is invalid for CountNonZero", ErrInvalidInput)
	}

	if sm.mat.Channels() != 1 {
		return 0, fmt.Errorf("%w: CountNonZero requires 1 channel, got %d",
			ErrInvalidInput, sm.mat.Channels())
	}

	return gocv.CountNonZero(sm.mat), nil
}

// Bytes returns a copy of the raw pixel data in row-major order.
func (sm *Mat) Bytes() []byte {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() || sm.mat.Empty() {
		return nil
	}

	return sm.mat.ToBytes()
}

// Equal reports whether both Mats have the same size, type and pixels.
func (sm *Mat) Equal(other *Mat) bool {
	if sm == nil || other == nil {
		return sm == other
	}

	if sm.Rows() != other.Rows() || sm.Cols() != other.Cols() || sm.Type() != other.Type() {
		return false
	}

	return bytes.Equal(sm.Bytes(), other.Bytes())
}

func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.mat
}

func (sm *Mat) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		if !sm.mat.Empty() {
			sm.mat.Close()
		}

		// Clear finalizer since we're cleaning up manually
		runtime.SetFinalizer(sm, nil)
	}
}

// finalize is called by Go's garbage collector as last resort cleanup
func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}
