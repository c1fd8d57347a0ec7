package pipeline

import (
	"fmt"

	"colour-replacer/internal/opencv/safe"
)

// MaskMetrics compares the classified mask with the mask the user
// confirmed.
type MaskMetrics struct {
	Pixels     int
	Classified int
	Confirmed  int
	Erased     int
	// Coverage is the confirmed share of all pixels, in [0, 1].
	Coverage float64
}

func CalculateMaskMetrics(classified, confirmed *safe.Mat) (*MaskMetrics, error) {
	if err := safe.ValidateSameSize(classified, confirmed, "mask metrics"); err != nil {
		return nil, err
	}

	before, err := classified.CountNonZero()
	if err != nil {
		return nil, fmt.Errorf("mask metrics: %w", err)
	}

	after, err := confirmed.CountNonZero()
	if err != nil {
		return nil, fmt.Errorf("mask metrics: %w", err)
	}

	pixels := classified.Rows() * classified.Cols()
	m := &MaskMetrics{
		Pixels:     pixels,
		Classified: before,
		Confirmed:  after,
		Erased:     before - after,
	}
	if pixels > 0 {
		m.Coverage = float64(after) / float64(pixels)
	}

	return m, nil
}

func (m *MaskMetrics) Fields() map[string]interface{} {
	return map[string]interface{}{
		"pixels":     m.Pixels,
		"classified": m.Classified,
		"confirmed":  m.Confirmed,
		"erased":     m.Erased,
		"coverage":   fmt.Sprintf("%.4f", m.Coverage),
	}
}
