package fingerprint

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

const (
	DefaultSmoothingHalfWidth     = 40
	DefaultFeatureBaseCount       = 7
	DefaultFeatureExtraPerSamples = 3000

	// MinFeatureLevel is the level given to the least dense selected feature.
	MinFeatureLevel = 0.05
	// gradientMidpoint is used when every gradient has the same value.
	gradientMidpoint = 0.5
)

// Options controls phase-1 derivation.
type Options struct {
	SmoothingHalfWidth     int
	FeatureBaseCount       int
	FeatureExtraPerSamples int
}

func DefaultOptions() Options {
	return Options{
		SmoothingHalfWidth:     DefaultSmoothingHalfWidth,
		FeatureBaseCount:       DefaultFeatureBaseCount,
		FeatureExtraPerSamples: DefaultFeatureExtraPerSamples,
	}
}

type Vec3 struct {
	X, Y, Z float64
}

// Coordinate is one derived sample. Theta, Pos, Scale, SmoothHash and Color
// are zero until the fingerprint has been through Enrich.
type Coordinate struct {
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Gradient     float64    `json:"gradient"`
	Smoothed     float64    `json:"smoothed"`
	FeatureLevel float64    `json:"featureLevel"`
	Theta        float64    `json:"theta,omitempty"`
	Pos          Vec3       `json:"pos"`
	Scale        float64    `json:"scale,omitempty"`
	SmoothHash   float64    `json:"smoothhash,omitempty"`
	Color        color.RGBA `json:"color"`
}

// IsFeature reports whether the coordinate was selected as a feature point.
func (c Coordinate) IsFeature() bool {
	return c.FeatureLevel != 0
}

// Derived is the render-ready form of a Raw fingerprint. A Derived value is
// never patched: every derivation or enrichment returns a fresh instance.
type Derived struct {
	Shape     [2]float64   `json:"shape"`
	Coords    []Coordinate `json:"coords"`
	Hash      int32        `json:"hash"`
	FloatHash float64      `json:"floatHash"`
	Enriched  bool         `json:"enriched"`
}

// Features returns the indices of coordinates with a non-zero feature level.
func (d *Derived) Features() []int {
	var idx []int
	for i, c := range d.Coords {
		if c.IsFeature() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Derive runs the synchronous derivation: smoothing, gradients, hashing and
// feature selection. Malformed input fails with a *ValidationError; empty
// input yields an empty fingerprint with Hash 0.
func Derive(raw *Raw, opts Options) (*Derived, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if opts.SmoothingHalfWidth < 0 {
		return nil, &ValidationError{Field: "smoothing half width", Reason: "must not be negative"}
	}
	if opts.FeatureBaseCount < 0 || opts.FeatureExtraPerSamples < 0 {
		return nil, &ValidationError{Field: "feature counts", Reason: "must not be negative"}
	}

	n := raw.Len()
	hash := Hash(raw.X, raw.Y)
	out := &Derived{
		Shape:     raw.Shape,
		Coords:    make([]Coordinate, n),
		Hash:      hash,
		FloatHash: FloatHash(hash),
	}
	if n == 0 {
		return out, nil
	}

	smoothed := Smooth(raw.Y, opts.SmoothingHalfWidth)
	gradient := Gradients(raw.X, raw.Y)
	levels := SelectFeatures(raw.X, raw.Y, raw.Shape[1], FeatureCount(n, opts))

	for i := range out.Coords {
		out.Coords[i] = Coordinate{
			X:            raw.X[i],
			Y:            raw.Y[i],
			Gradient:     gradient[i],
			Smoothed:     smoothed[i],
			FeatureLevel: levels[i],
		}
	}
	return out, nil
}

// Smooth returns the moving average of y over the inclusive window
// [i-halfWidth, i+halfWidth], clipped to the sequence bounds.
func Smooth(y []float64, halfWidth int) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	prefix := make([]float64, n+1)
	for i, v := range y {
		prefix[i+1] = prefix[i] + v
	}
	for i := range out {
		lo := max(0, i-halfWidth)
		hi := min(n-1, i+halfWidth)
		out[i] = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
	}
	return out
}

// Gradients returns the log-scaled slope from each sample to the next,
// rescaled into [0,1] over the sequence. The last sample has no successor and
// its gradient is always 0.
func Gradients(x, y []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n < 2 {
		return out
	}

	slopes := out[:n-1]
	for i := range slopes {
		dx := x[i+1] - x[i]
		dy := y[i+1] - y[i]
		if dx == 0 || dy == 0 {
			slopes[i] = 0
			continue
		}
		m := dy / dx
		slopes[i] = math.Copysign(math.Log(math.Abs(m)), m)
	}

	lo, hi := floats.Min(slopes), floats.Max(slopes)
	if hi == lo {
		for i := range slopes {
			slopes[i] = gradientMidpoint
		}
	} else {
		for i, v := range slopes {
			slopes[i] = (v - lo) / (hi - lo)
		}
	}
	out[n-1] = 0
	return out
}

// Hash folds the coordinates with the 31-multiplier string hash, wrapping at
// 32 bits after every step. It is order sensitive.
func Hash(x, y []float64) int32 {
	var h int32
	for i := range x {
		v := float64(h<<5) - float64(h) + x[i] - y[i]
		h = random.ToInt32(v)
	}
	return h
}

// FloatHash maps a hash onto [0,1].
func FloatHash(h int32) float64 {
	f := float64(h)/math.MaxInt32*0.5 + 0.5
	return math.Min(1, math.Max(0, f))
}

// FeatureCount is the target number of feature segments for n samples.
func FeatureCount(n int, opts Options) int {
	if n == 0 {
		return 0
	}
	count := opts.FeatureBaseCount
	if opts.FeatureExtraPerSamples > 0 {
		count += n / opts.FeatureExtraPerSamples
	}
	return count
}

// SelectFeatures splits the x range into count equal segments and picks the
// densest point of each. Density of p is the mean over every point q of the
// segment, p included, of 1 - |p-q|/maxDist, with
// maxDist = max(segmentWidth, height). A lone point therefore has density 1.
// Segments whose density is not finite (empty, or maxDist of 0) are dropped.
// Selected densities are rescaled into [MinFeatureLevel, 1]; all other points
// get level 0.
func SelectFeatures(x, y []float64, height float64, count int) []float64 {
	n := len(x)
	levels := make([]float64, n)
	if n == 0 || count <= 0 {
		return levels
	}

	xMin, xMax := floats.Min(x), floats.Max(x)
	width := (xMax - xMin) / float64(count)

	segments := make([][]int, count)
	for i, v := range x {
		seg := 0
		if width > 0 {
			seg = min(int((v-xMin)/width), count-1)
		}
		segments[seg] = append(segments[seg], i)
	}

	maxDist := math.Max(width, height)
	var picked []int
	var densities []float64
	for _, members := range segments {
		best, bestDensity := -1, math.Inf(-1)
		for _, p := range members {
			d := density(p, members, x, y, maxDist)
			if math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			if d > bestDensity {
				best, bestDensity = p, d
			}
		}
		if best < 0 {
			continue
		}
		picked = append(picked, best)
		densities = append(densities, bestDensity)
	}
	if len(picked) == 0 {
		return levels
	}

	lo, hi := floats.Min(densities), floats.Max(densities)
	for i, p := range picked {
		if hi == lo {
			levels[p] = 1
			continue
		}
		levels[p] = MinFeatureLevel + (densities[i]-lo)/(hi-lo)*(1-MinFeatureLevel)
	}
	return levels
}

func density(p int, members []int, x, y []float64, maxDist float64) float64 {
	if len(members) == 0 || maxDist <= 0 {
		return math.NaN()
	}
	var sum float64
	for _, q := range members {
		sum += 1 - math.Hypot(x[p]-x[q], y[p]-y[q])/maxDist
	}
	return sum / float64(len(members))
}
