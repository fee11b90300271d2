package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxWidth    = 1280
	MaxHeight   = 720
	JPEGQuality = 50

	// MaxSourcePixels caps the decoded size of an incoming image.
	MaxSourcePixels = 50_000_000
)

// ErrImageTooLarge is returned for images whose header declares more than
// MaxSourcePixels pixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// Normalize decodes an image from r, shrinks it to fit within maxW x maxH
// keeping its aspect ratio, and writes it to w as JPEG. Images that already
// fit are re-encoded at their own size.
func Normalize(r io.Reader, w io.Writer, maxW, maxH, quality int) (image.Point, error) {
	// Read the header first so the pixel buffer is never allocated for an
	// oversized image.
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return image.Point{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	size := fit(b.Dx(), b.Dy(), maxW, maxH)

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	// JPEG has no alpha; transparent regions become white instead of black.
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if size.X == b.Dx() && size.Y == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	if err := jpeg.Encode(w, dst, &jpeg.Options{Quality: quality}); err != nil {
		return image.Point{}, fmt.Errorf("failed to encode %s image as jpeg: %w", format, err)
	}
	return size, nil
}

// fit returns the largest size within maxW x maxH with the aspect ratio of
// w x h. It never enlarges.
func fit(w, h, maxW, maxH int) image.Point {
	if w <= 0 || h <= 0 {
		return image.Point{X: 1, Y: 1}
	}
	if w <= maxW && h <= maxH {
		return image.Point{X: w, Y: h}
	}

	// Compare w/maxW against h/maxH without floating point.
	if w*maxH >= h*maxW {
		nh := (h*maxW + w/2) / w
		return image.Point{X: maxW, Y: max(nh, 1)}
	}
	nw := (w*maxH + h/2) / h
	return image.Point{X: max(nw, 1), Y: maxH}
}
