// Package composite replaces the masked region of an image with a solid
// colour while keeping every other pixel.
package composite

import (
	"fmt"

	"colour-replacer/internal/logger"
	"colour-replacer/internal/opencv/safe"
)

// Stage names one intermediate product of Composite.
type Stage string

const (
	StageInverseMask Stage = "mask_inverse"
	StageKept        Stage = "kept"
	StageReplacement Stage = "replacement"
	StageResult      Stage = "result"
)

// Observer is called after every stage. Returning an error stops
// compositing and the error is passed back to the caller.
type Observer func(stage Stage, mat *safe.Mat) error

// Artifacts holds every Mat produced by Composite. The caller owns them.
type Artifacts struct {
	InverseMask *safe.Mat
	Kept        *safe.Mat
	Replacement *safe.Mat
	Result      *safe.Mat
}

func (a *Artifacts) All() []*safe.Mat {
	return []*safe.Mat{a.InverseMask, a.Kept, a.Replacement, a.Result}
}

func (a *Artifacts) Close() {
	for _, m := range a.All() {
		if m != nil {
			m.Close()
		}
	}
}

// Tracker receives every Mat as soon as it is created.
type Tracker interface {
	Track(mat *safe.Mat) *safe.Mat
}

type Compositor struct {
	logger  logger.Logger
	tracker Tracker
}

// NewCompositor builds a Compositor. tracker may be nil.
func NewCompositor(log logger.Logger, tracker Tracker) *Compositor {
	return &Compositor{logger: log, tracker: tracker}
}

// Composite produces original where mask is 0 and colour where mask is
// 255. Neither original nor mask is written. On error every Mat created
// so far is closed.
func (c *Compositor) Composite(original, mask *safe.Mat, colour Colour, observe Observer) (*Artifacts, error) {
	if err := safe.ValidateChannels(original, "composite", 3); err != nil {
		return nil, err
	}
	if err := safe.ValidateChannels(mask, "composite", 1); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(original, mask, "composite"); err != nil {
		return nil, err
	}

	art := &Artifacts{}
	fail := func(err error) (*Artifacts, error) {
		art.Close()
		return nil, err
	}

	var err error

	if art.InverseMask, err = Invert(mask); err != nil {
		return fail(err)
	}
	if err = c.step(StageInverseMask, art.InverseMask, observe); err != nil {
		return fail(err)
	}

	if art.Kept, err = ApplyMask(original, art.InverseMask, string(StageKept)); err != nil {
		return fail(err)
	}
	if err = c.step(StageKept, art.Kept, observe); err != nil {
		return fail(err)
	}

	layer, err := SolidLayer(original.Rows(), original.Cols(), colour)
	if err != nil {
		return fail(err)
	}
	art.Replacement, err = ApplyMask(layer, mask, string(StageReplacement))
	layer.Close()
	if err != nil {
		return fail(err)
	}
	if err = c.step(StageReplacement, art.Replacement, observe); err != nil {
		return fail(err)
	}

	if art.Result, err = Add(art.Kept, art.Replacement, string(StageResult)); err != nil {
		return fail(err)
	}
	if err = c.step(StageResult, art.Result, observe); err != nil {
		return fail(err)
	}

	c.logger.Info("Compositor", "composite complete", map[string]interface{}{
		"width":  original.Cols(),
		"height": original.Rows(),
		"colour": colour.Hex(),
	})

	return art, nil
}

func (c *Compositor) step(stage Stage, mat *safe.Mat, observe Observer) error {
	if c.tracker != nil {
		c.tracker.Track(mat)
	}

	c.logger.Debug("Compositor", "stage produced", map[string]interface{}{
		"stage": string(stage),
		"mat":   mat.ID(),
	})

	if observe == nil {
		return nil
	}

	if err := observe(stage, mat); err != nil {
		return fmt.Errorf("observe %s: %w", stage, err)
	}
	return nil
}
