package fingerprint

import (
	"context"
	"image/color"
	"math"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

// ColorSource maps a (u, v) lookup coordinate in [0,1]² to a colour.
type ColorSource interface {
	ColorAt(u, v float64) color.RGBA
}

// EnrichOptions shapes the 3D placement attached in phase 2.
type EnrichOptions struct {
	Depth        float64 // z spread driven by gradient
	BaseScale    float64
	FeatureScale float64 // added scale per unit of feature level
	Jitter       float64 // amplitude of the seeded per-point scale variation
}

func DefaultEnrichOptions() EnrichOptions {
	return EnrichOptions{
		Depth:        0.5,
		BaseScale:    0.2,
		FeatureScale: 1.0,
		Jitter:       0.1,
	}
}

// Enrich attaches theta, pos, scale, smoothhash and color to a copy of d.
//
// Each scale jitter is drawn with rnd.Deterministic seeded by d.FloatHash and
// the coordinate index, so enriching the same fingerprint twice yields
// identical output whatever state rnd is in. A nil palette falls back to
// GradientPalette.
func Enrich(ctx context.Context, d *Derived, palette ColorSource, rnd *random.Source, opts EnrichOptions) (*Derived, error) {
	if palette == nil {
		palette = GradientPalette{}
	}
	if rnd == nil {
		rnd = random.New(0)
	}

	out := &Derived{
		Shape:     d.Shape,
		Coords:    make([]Coordinate, len(d.Coords)),
		Hash:      d.Hash,
		FloatHash: d.FloatHash,
		Enriched:  true,
	}

	width, height := d.Shape[0], d.Shape[1]

	for i, c := range d.Coords {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		theta := 0.0
		if width > 0 {
			theta = 2 * math.Pi * c.X / width
		}
		rel := 0.0
		if height > 0 {
			rel = c.Smoothed / height
		}
		radius := 1 + rel

		c.Theta = theta
		c.Pos = Vec3{
			X: math.Cos(theta) * radius,
			Y: math.Sin(theta) * radius,
			Z: (c.Gradient - 0.5) * opts.Depth,
		}
		c.Scale = opts.BaseScale + c.FeatureLevel*opts.FeatureScale +
			opts.Jitter*rnd.Deterministic(d.FloatHash*float64(math.MaxInt32), float64(i))
		c.SmoothHash = frac(rel*0.5 + d.FloatHash)
		c.Color = palette.ColorAt(c.SmoothHash, c.Gradient)

		out.Coords[i] = c
	}
	return out, nil
}

func frac(v float64) float64 {
	return v - math.Floor(v)
}
