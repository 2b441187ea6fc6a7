// Package imaging recompresses uploaded document images down to a byte
// budget. JPEG and PNG inputs are accepted; output is always JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// ErrUndecodable marks input bytes that are not a decodable image. Callers
// treat this as a no-op rather than a failure.
var ErrUndecodable = errors.New("imaging: undecodable image")

// Options bound the optimization pass. Zero values fall back to Defaults.
type Options struct {
	// BudgetBytes is the target encoded size.
	BudgetBytes int64
	// MaxSide caps the longer dimension before the first encode.
	MaxSide int
	// QualityLadder is tried in order; the first encode within budget wins.
	QualityLadder []int
	// FallbackQuality is used by the shrink loop when the ladder fails.
	FallbackQuality int
	// MinSide is the floor for the shrink loop's longer dimension.
	MinSide int
	// MaxShrinkIters hard-caps the shrink loop so it always terminates.
	MaxShrinkIters int
}

// Defaults returns the production optimization bounds.
func Defaults() Options {
	return Options{
		BudgetBytes:     500 * 1024,
		MaxSide:         2048,
		QualityLadder:   []int{85, 75, 65, 55, 45},
		FallbackQuality: 55,
		MinSide:         320,
		MaxShrinkIters:  8,
	}
}

// Result reports what the pass produced.
type Result struct {
	Width        int
	Height       int
	Quality      int
	ShrinkIters  int
	WithinBudget bool
}

func (o Options) withDefaults() Options {
	d := Defaults()
	if o.BudgetBytes <= 0 {
		o.BudgetBytes = d.BudgetBytes
	}
	if o.MaxSide <= 0 {
		o.MaxSide = d.MaxSide
	}
	if len(o.QualityLadder) == 0 {
		o.QualityLadder = d.QualityLadder
	}
	if o.FallbackQuality <= 0 {
		o.FallbackQuality = d.FallbackQuality
	}
	if o.MinSide <= 0 {
		o.MinSide = d.MinSide
	}
	if o.MaxShrinkIters <= 0 {
		o.MaxShrinkIters = d.MaxShrinkIters
	}
	return o
}

// Optimize re-encodes data as JPEG within opts.BudgetBytes. It first caps
// the longer side at opts.MaxSide, then walks the quality ladder, then
// shrinks the image 25% at a time at the fallback quality until the budget,
// the side floor, or the iteration cap is hit. The last encoding is returned
// even when the budget was not met; Result.WithinBudget says which.
func Optimize(data []byte, opts Options) ([]byte, Result, error) {
	opts = opts.withDefaults()

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Result{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	img := flatten(src)
	if longSide(img) > opts.MaxSide {
		img = scaleToMaxSide(img, opts.MaxSide)
	}

	var (
		encoded []byte
		res     Result
	)
	for _, q := range opts.QualityLadder {
		encoded, err = encodeJPEG(img, q)
		if err != nil {
			return nil, Result{}, err
		}
		res.Quality = q
		if int64(len(encoded)) <= opts.BudgetBytes {
			res.WithinBudget = true
			break
		}
	}

	if !res.WithinBudget {
		side := longSide(img)
		for int64(len(encoded)) > opts.BudgetBytes &&
			side > opts.MinSide &&
			res.ShrinkIters < opts.MaxShrinkIters {
			side = side * 3 / 4
			img = scaleToMaxSide(img, side)
			encoded, err = encodeJPEG(img, opts.FallbackQuality)
			if err != nil {
				return nil, Result{}, err
			}
			res.Quality = opts.FallbackQuality
			res.ShrinkIters++
		}
		res.WithinBudget = int64(len(encoded)) <= opts.BudgetBytes
	}

	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()
	return encoded, res, nil
}

// NormalizeFileName swaps the extension for .jpg, matching the encoded
// output format.
func NormalizeFileName(name string) string {
	lower := bytes.ToLower([]byte(name))
	if bytes.HasSuffix(lower, []byte(".jpg")) || bytes.HasSuffix(lower, []byte(".jpeg")) {
		return name
	}
	if i := bytes.LastIndexByte([]byte(name), '.'); i >= 0 {
		return name[:i] + ".jpg"
	}
	return name + ".jpg"
}

func flatten(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func longSide(img image.Image) int {
	b := img.Bounds()
	if b.Dx() > b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}

// scaleToMaxSide downscales so the longer dimension equals maxSide,
// preserving aspect ratio. Images already within the bound are returned
// unchanged.
func scaleToMaxSide(img *image.RGBA, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if long <= maxSide {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxSide
		nh = (h*maxSide + w/2) / w
	} else {
		nh = maxSide
		nw = (w*maxSide + h/2) / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
