// Package random provides the seeded pseudo-random stream used to pick and
// vary fingerprint features reproducibly.
//
// All arithmetic is 32-bit two's-complement: every mixing step wraps exactly
// like the integer hash it is derived from, so a given seed and call sequence
// always produces the same values on every platform.
package random

import "math"

const (
	mixSeed   uint32 = 0x7ED55D16
	mixXor    uint32 = 0xC761C23C
	stepXor   uint32 = 0xD3A2646C
	stepAdd   uint32 = 0xFD7046C5
	fracMask  uint32 = 0x0FFFFFFF
	fracScale        = float64(0x10000000)
)

// Source is a single seed register. The zero value is seeded with 0.
//
// A Source is not safe for concurrent use; callers that share one rely on
// call order for determinism anyway.
type Source struct {
	state uint32
}

// New returns a Source seeded with seed.
func New(seed int32) *Source {
	s := &Source{}
	s.SetSeed(seed)
	return s
}

// SetSeed replaces the internal state unconditionally.
func (s *Source) SetSeed(seed int32) {
	s.state = uint32(seed)
}

// Seed returns the current state as a signed 32-bit integer.
func (s *Source) Seed() int32 {
	return int32(s.state)
}

// Random advances the state by two mixing rounds and returns a value in [0,1).
func (s *Source) Random() float64 {
	s.state = (s.state + stepXor) ^ (s.state << 9)
	s.state = s.state + stepAdd + (s.state << 3)
	return float64(s.state&fracMask) / fracScale
}

// Deterministic folds seeds into the state and then returns one Random step.
//
// The first seed replaces the state via (seed + C1) + (seed << 12); every
// further seed is folded in as state ^ C2 ^ (state >>> 19) ^ seed. Seeds are
// truncated to int32 the way a bitwise operator truncates a float, so a
// fractional seed contributes only its integer part to the shift and xor
// terms while the addition in the first step is done before truncation.
func (s *Source) Deterministic(seeds ...float64) float64 {
	for i, seed := range seeds {
		if i == 0 {
			shifted := float64(int32(ToInt32(seed) << 12))
			s.state = uint32(ToInt32(seed + float64(mixSeed) + shifted))
			continue
		}
		s.state = s.state ^ mixXor ^ (s.state >> 19) ^ uint32(ToInt32(seed))
	}
	return s.Random()
}

// Range returns a value in [lo, hi) from one Random step.
func (s *Source) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Random()
}

// ToInt32 converts a float to int32 with modulo-2^32 wraparound, matching the
// conversion applied by bitwise operators on floating point numbers. NaN and
// infinities map to 0.
func ToInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	m := math.Mod(t, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return int32(uint32(m))
}
