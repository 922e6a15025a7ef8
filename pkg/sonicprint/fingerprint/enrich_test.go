package fingerprint

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

func TestEnrichDoesNotMutateInput(t *testing.T) {
	d, err := Derive(syntheticFingerprint(300), DefaultOptions())
	require.NoError(t, err)
	before := append([]Coordinate(nil), d.Coords...)

	e, err := Enrich(context.Background(), d, nil, random.New(0), DefaultEnrichOptions())
	require.NoError(t, err)

	assert.True(t, e.Enriched)
	assert.False(t, d.Enriched)
	if diff := cmp.Diff(before, d.Coords); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
	assert.Equal(t, d.Hash, e.Hash)
}

func TestEnrichReproducibleAfterSourceUse(t *testing.T) {
	d, err := Derive(syntheticFingerprint(400), DefaultOptions())
	require.NoError(t, err)

	rnd := random.New(99)
	a, err := Enrich(context.Background(), d, GradientPalette{}, rnd, DefaultEnrichOptions())
	require.NoError(t, err)
	for i := 0; i < 17; i++ {
		rnd.Random()
	}
	b, err := Enrich(context.Background(), d, GradientPalette{}, rnd, DefaultEnrichOptions())
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("enrichment not reproducible:\n%s", diff)
	}
}

func TestEnrichIndependentOfSourceSeed(t *testing.T) {
	d, err := Derive(syntheticFingerprint(400), DefaultOptions())
	require.NoError(t, err)

	a, err := Enrich(context.Background(), d, GradientPalette{}, random.New(1), DefaultEnrichOptions())
	require.NoError(t, err)
	b, err := Enrich(context.Background(), d, GradientPalette{}, random.New(-7), DefaultEnrichOptions())
	require.NoError(t, err)
	c, err := Enrich(context.Background(), d, GradientPalette{}, nil, DefaultEnrichOptions())
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("scale jitter depends on the source seed:\n%s", diff)
	}
	if diff := cmp.Diff(a, c); diff != "" {
		t.Errorf("nil source differs from a seeded one:\n%s", diff)
	}
}

func TestEnrichGeometry(t *testing.T) {
	raw := &Raw{Shape: [2]float64{4, 10}, X: []float64{0, 1, 2, 3}, Y: []float64{0, 10, 0, 10}}
	d, err := Derive(raw, Options{SmoothingHalfWidth: 0, FeatureBaseCount: 1, FeatureExtraPerSamples: 0})
	require.NoError(t, err)

	opts := DefaultEnrichOptions()
	opts.Jitter = 0
	e, err := Enrich(context.Background(), d, GradientPalette{}, random.New(0), opts)
	require.NoError(t, err)

	c := e.Coords[1]
	assert.InDelta(t, math.Pi/2, c.Theta, 1e-12)
	assert.InDelta(t, 0, c.Pos.X, 1e-12)
	assert.InDelta(t, 2, c.Pos.Y, 1e-12)
	for i, c := range e.Coords {
		assert.InDelta(t, opts.BaseScale+c.FeatureLevel*opts.FeatureScale, c.Scale, 1e-12, "coord %d", i)
		assert.GreaterOrEqual(t, c.SmoothHash, 0.0)
		assert.Less(t, c.SmoothHash, 1.0)
		assert.Equal(t, uint8(0xff), c.Color.A)
	}
}

func TestEnrichHonoursCancellation(t *testing.T) {
	d, err := Derive(syntheticFingerprint(10), DefaultOptions())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Enrich(ctx, d, nil, nil, DefaultEnrichOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImagePaletteSamplesCorners(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	p := NewImagePalette(img)

	assert.Equal(t, color.RGBA{R: 255, A: 255}, p.ColorAt(0, 0))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, p.ColorAt(1, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, p.ColorAt(-4, 7))
}

func TestLoadPalettePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x * 60), A: 255})
	}
	path := filepath.Join(t.TempDir(), "palette.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	p, err := LoadPalette(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint8(180), p.ColorAt(1, 0).R)

	_, err = LoadPalette(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}
