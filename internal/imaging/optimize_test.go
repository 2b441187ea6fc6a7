package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// noisePNG compresses poorly, which forces the quality ladder and the
// shrink loop to actually run.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			img.Set(x, y, color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimizeUndecodableInput(t *testing.T) {
	_, _, err := Optimize([]byte("definitely not an image"), Defaults())
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestOptimizeSmallImageFirstQualityWins(t *testing.T) {
	out, res, err := Optimize(solidJPEG(t, 50, 50), Defaults())
	require.NoError(t, err)
	assert.True(t, res.WithinBudget)
	assert.Equal(t, 85, res.Quality)
	assert.Equal(t, 0, res.ShrinkIters)
	assert.NotEmpty(t, out)

	_, _, err = image.Decode(bytes.NewReader(out))
	assert.NoError(t, err, "output must be a decodable image")
}

func TestOptimizeCapsLongSide(t *testing.T) {
	opts := Defaults()
	opts.MaxSide = 100

	_, res, err := Optimize(solidJPEG(t, 300, 150), opts)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
}

func TestOptimizeShrinkLoopStopsAtIterationCap(t *testing.T) {
	opts := Defaults()
	// A JPEG header alone is bigger than this, so the budget can never be
	// met and only the cap ends the loop.
	opts.BudgetBytes = 64
	opts.MinSide = 1
	opts.MaxShrinkIters = 3

	out, res, err := Optimize(noisePNG(t, 64, 64), opts)
	require.NoError(t, err)
	assert.False(t, res.WithinBudget)
	assert.Equal(t, 3, res.ShrinkIters)
	assert.Equal(t, opts.FallbackQuality, res.Quality)
	assert.NotEmpty(t, out, "last encoding is still returned")
}

func TestOptimizeShrinkLoopStopsAtSideFloor(t *testing.T) {
	opts := Defaults()
	opts.BudgetBytes = 64
	opts.MinSide = 60
	opts.MaxShrinkIters = 10

	_, res, err := Optimize(noisePNG(t, 64, 64), opts)
	require.NoError(t, err)
	assert.False(t, res.WithinBudget)
	assert.Equal(t, 1, res.ShrinkIters, "48px side is under the 60px floor")
	assert.Equal(t, 48, res.Width)
}

func TestNormalizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.jpg"},
		{"photo.PNG", "photo.jpg"},
		{"photo.jpg", "photo.jpg"},
		{"photo.JPEG", "photo.JPEG"},
		{"archive.tar.png", "archive.tar.jpg"},
		{"noext", "noext.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeFileName(tt.in), tt.in)
	}
}
