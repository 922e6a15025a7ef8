package analyser

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// SpectrumOptions mirrors the knobs of a browser AnalyserNode.
type SpectrumOptions struct {
	Smoothing   float64 // time constant in [0,1)
	MinDecibels float64
	MaxDecibels float64
}

func DefaultSpectrumOptions() SpectrumOptions {
	return SpectrumOptions{
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

// SampleWindow supplies the most recent time-domain samples. Window fills dst
// with the len(dst) samples ending at the current playback position and
// reports false when nothing is playing.
type SampleWindow interface {
	Window(dst []float64) bool
}

// FrequencySource produces one byte-per-bin magnitude snapshot.
type FrequencySource interface {
	ByteFrequencyData(dst []uint8) bool
}

// Spectrum converts a time-domain window into byte frequency data: Blackman
// window, FFT, per-bin exponential smoothing over time, decibel conversion and
// linear mapping of [MinDecibels, MaxDecibels] onto [0, 255].
type Spectrum struct {
	mu     sync.Mutex
	src    SampleWindow
	opts   SpectrumOptions
	bins   int
	window []float64
	frame  []float64
	smooth []float64
}

// NewSpectrum analyses src into bins frequency bins, using an FFT of 2*bins
// samples.
func NewSpectrum(src SampleWindow, bins int, opts SpectrumOptions) (*Spectrum, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}
	if opts.Smoothing < 0 || opts.Smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be within [0,1), got %v", opts.Smoothing)
	}
	if opts.MaxDecibels <= opts.MinDecibels {
		return nil, fmt.Errorf("max decibels (%v) must exceed min decibels (%v)", opts.MaxDecibels, opts.MinDecibels)
	}
	size := bins * 2
	return &Spectrum{
		src:    src,
		opts:   opts,
		bins:   bins,
		window: window.Blackman(size),
		frame:  make([]float64, size),
		smooth: make([]float64, bins),
	}, nil
}

func (s *Spectrum) Bins() int {
	return s.bins
}

// ByteFrequencyData fills dst (up to Bins entries) and reports whether a new
// window was available.
func (s *Spectrum) ByteFrequencyData(dst []uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.src.Window(s.frame) {
		return false
	}
	s.analyse(s.frame)

	scale := 255 / (s.opts.MaxDecibels - s.opts.MinDecibels)
	n := min(len(dst), s.bins)
	for i := 0; i < n; i++ {
		db := DecibelFloor
		if s.smooth[i] > 0 {
			db = 20 * math.Log10(s.smooth[i])
		}
		v := math.Floor(scale * (db - s.opts.MinDecibels))
		dst[i] = uint8(min(255, max(0, v)))
	}
	return true
}

// DecibelFloor stands in for log10(0).
const DecibelFloor = -1000.0

func (s *Spectrum) analyse(frame []float64) {
	size := len(frame)
	for i := range frame {
		frame[i] *= s.window[i]
	}
	spectrum := fft.FFTReal(frame)
	tau := s.opts.Smoothing
	for k := 0; k < s.bins; k++ {
		mag := cmplx.Abs(spectrum[k]) / float64(size)
		s.smooth[k] = tau*s.smooth[k] + (1-tau)*mag
	}
}

// Reset forgets the smoothing history.
func (s *Spectrum) Reset() {
	s.mu.Lock()
	clear(s.smooth)
	s.mu.Unlock()
}
