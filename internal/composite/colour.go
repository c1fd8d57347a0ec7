package composite

import (
	"fmt"

	"colour-replacer/internal/opencv/safe"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// Colour is an 8-bit RGB triple.
type Colour struct {
	R, G, B uint8
}

// ParseColour accepts "#rrggbb" or the short "#rgb" form.
func ParseColour(hex string) (Colour, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Colour{}, fmt.Errorf("%w: colour %q: %v", safe.ErrInvalidInput, hex, err)
	}

	r, g, b := c.RGB255()
	return Colour{R: r, G: g, B: b}, nil
}

// Scalar returns the colour in OpenCV's BGR channel order.
func (c Colour) Scalar() gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

func (c Colour) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Colour) String() string {
	return c.Hex()
}
