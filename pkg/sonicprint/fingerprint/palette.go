package fingerprint

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/webp"
)

// ImagePalette samples colours from a decoded image. u runs along the x axis
// and v along the y axis of the image bounds.
type ImagePalette struct {
	img image.Image
}

func NewImagePalette(img image.Image) *ImagePalette {
	return &ImagePalette{img: img}
}

func (p *ImagePalette) ColorAt(u, v float64) color.RGBA {
	b := p.img.Bounds()
	if b.Empty() {
		return color.RGBA{A: 0xff}
	}
	x := b.Min.X + int(math.Round(clamp01(u)*float64(b.Dx()-1)))
	y := b.Min.Y + int(math.Round(clamp01(v)*float64(b.Dy()-1)))
	return color.RGBAModel.Convert(p.img.At(x, y)).(color.RGBA)
}

// LoadPalette decodes a PNG, JPEG, GIF or WebP image from path. Decoding runs
// in its own goroutine so a cancelled ctx returns promptly.
func LoadPalette(ctx context.Context, path string) (*ImagePalette, error) {
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)

	go func() {
		f, err := os.Open(path)
		if err != nil {
			done <- result{err: fmt.Errorf("opening palette: %w", err)}
			return
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			done <- result{err: fmt.Errorf("decoding palette %s: %w", path, err)}
			return
		}
		done <- result{img: img}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return NewImagePalette(r.img), nil
	}
}

// GradientPalette is an image-free ColorSource: hue follows u, brightness
// follows v.
type GradientPalette struct{}

func (GradientPalette) ColorAt(u, v float64) color.RGBA {
	h := clamp01(u) * 6
	l := 0.35 + 0.65*clamp01(v)
	sector := int(h) % 6
	f := h - math.Floor(h)
	var r, g, b float64
	switch sector {
	case 0:
		r, g, b = 1, f, 0
	case 1:
		r, g, b = 1-f, 1, 0
	case 2:
		r, g, b = 0, 1, f
	case 3:
		r, g, b = 0, 1-f, 1
	case 4:
		r, g, b = f, 0, 1
	default:
		r, g, b = 1, 0, 1-f
	}
	return color.RGBA{
		R: uint8(math.Round(r * l * 255)),
		G: uint8(math.Round(g * l * 255)),
		B: uint8(math.Round(b * l * 255)),
		A: 0xff,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
