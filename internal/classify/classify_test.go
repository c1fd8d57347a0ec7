package classify

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"colour-replacer/internal/opencv/conversion"
	"colour-replacer/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var white = ColourRange{Lower: [3]uint8{0, 0, 100}, Upper: [3]uint8{30, 70, 255}}

func matFromImage(t *testing.T, img image.Image) *safe.Mat {
	t.Helper()
	m, err := conversion.ImageToMat(img, "original")
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestClassifyWhiteOnBlack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := color.RGBA{A: 255}
			if x < 2 {
				c = color.RGBA{R: 250, G: 250, B: 250, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	src := matFromImage(t, img)
	before := src.Bytes()

	mask, err := Classify(src, white)
	require.NoError(t, err)
	defer mask.Close()

	assert.Equal(t, 1, mask.Channels())
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v, _ := mask.GetUCharAt(y, x)
			want := uint8(0)
			if x < 2 {
				want = 255
			}
			assert.Equal(t, want, v, "pixel (%d,%d)", x, y)
		}
	}

	assert.Equal(t, before, src.Bytes(), "source must not be written")
}

func TestClassifyMaskIsBinary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	src := matFromImage(t, img)

	ranges := []ColourRange{
		white,
		{Lower: [3]uint8{0, 0, 0}, Upper: [3]uint8{179, 255, 255}},
		{Lower: [3]uint8{50, 100, 100}, Upper: [3]uint8{70, 255, 255}},
		{Lower: [3]uint8{90, 90, 90}, Upper: [3]uint8{90, 90, 90}},
	}

	for _, r := range ranges {
		mask, err := Classify(src, r)
		require.NoError(t, err)

		for _, b := range mask.Bytes() {
			if b != 0 && b != 255 {
				t.Fatalf("range %v produced non-binary value %d", r, b)
			}
		}
		mask.Close()
	}
}

func TestClassifyFullRangeSelectsEverything(t *testing.T) {
	src, err := safe.NewMatFromScalar(3, 3, gocv.MatTypeCV8UC3, gocv.NewScalar(12, 200, 80, 0), "original")
	require.NoError(t, err)
	defer src.Close()

	mask, err := Classify(src, ColourRange{Upper: [3]uint8{179, 255, 255}})
	require.NoError(t, err)
	defer mask.Close()

	n, err := mask.CountNonZero()
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestClassifyBGRA(t *testing.T) {
	src, err := safe.NewMatFromScalar(2, 2, gocv.MatTypeCV8UC4, gocv.NewScalar(255, 255, 255, 255), "bgra")
	require.NoError(t, err)
	defer src.Close()

	mask, err := Classify(src, white)
	require.NoError(t, err)
	defer mask.Close()

	n, _ := mask.CountNonZero()
	assert.Equal(t, 4, n)
}

func TestClassifyErrors(t *testing.T) {
	gray, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC1, "gray")
	require.NoError(t, err)
	defer gray.Close()

	closed, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC3, "closed")
	require.NoError(t, err)
	closed.Close()

	ok, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC3, "ok")
	require.NoError(t, err)
	defer ok.Close()

	tests := []struct {
		name string
		img  *safe.Mat
		r    ColourRange
	}{
		{"nil image", nil, white},
		{"single channel", gray, white},
		{"closed image", closed, white},
		{"inverted range", ok, ColourRange{Lower: [3]uint8{10, 0, 0}, Upper: [3]uint8{5, 255, 255}}},
	}

	for _, x := range tests {
		t.Run(x.name, func(t *testing.T) {
			mask, err := Classify(x.img, x.r)
			assert.Nil(t, mask)
			assert.ErrorIs(t, err, safe.ErrInvalidInput)
		})
	}
}
