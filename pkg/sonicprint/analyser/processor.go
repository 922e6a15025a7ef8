package analyser

import (
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultFFTSize          = 64
	DefaultNormalizeRate    = 1.0
	DefaultTriggerThreshold = 0.5

	// NotReady is the value of every numeric Frame field when no sample
	// arrived since the previous frame.
	NotReady = -1.0

	envelopeFloor   = 1.0
	envelopeCeiling = 255.0
	maxHeadroom     = 1.1
	minHeadroom     = 0.9
)

// Config holds the recognised processor options.
type Config struct {
	FFTSize          int     `json:"fft_size"`
	NormalizeRate    float64 `json:"normalize_rate"`
	TriggerThreshold float64 `json:"trigger_threshold"`
}

func DefaultConfig() Config {
	return Config{
		FFTSize:          DefaultFFTSize,
		NormalizeRate:    DefaultNormalizeRate,
		TriggerThreshold: DefaultTriggerThreshold,
	}
}

func (c Config) Validate() error {
	if c.FFTSize <= 0 {
		return fmt.Errorf("fft size must be positive, got %d", c.FFTSize)
	}
	if c.NormalizeRate < 0 {
		return fmt.Errorf("normalize rate must not be negative, got %v", c.NormalizeRate)
	}
	if c.TriggerThreshold < 0 || c.TriggerThreshold > 1 {
		return fmt.Errorf("trigger threshold must be within [0,1], got %v", c.TriggerThreshold)
	}
	return nil
}

// Frame is the per-tick snapshot handed to audio-reactive consumers. When
// Ready is false every numeric field is NotReady and the slices are nil;
// consumers skip the tick.
type Frame struct {
	Ready        bool      `json:"ready"`
	Trigger      bool      `json:"trigger"`
	FFT          []float64 `json:"fft"`
	AvgFrequency float64   `json:"avgFrequency"`
	Power        float64   `json:"power"`
	Progress     float64   `json:"progress"`
	RawFFT       []float64 `json:"rawFft"`
	MaxEnvelope  []float64 `json:"maxEnvelope"`
	MinEnvelope  []float64 `json:"minEnvelope"`
}

func notReadyFrame() Frame {
	return Frame{
		AvgFrequency: NotReady,
		Power:        NotReady,
		Progress:     NotReady,
	}
}

// PlaybackClock reports the position of the audio being analysed.
type PlaybackClock interface {
	Position() time.Duration
	Duration() time.Duration
}

// Processor turns raw frequency-bin snapshots into normalised frames.
//
// Sample may be called from a fast sampling goroutine while Frame is called
// from the frame loop: the peak-hold accumulator is the only state the two
// share and it is guarded by mu. Envelopes and the trigger latch are touched
// by Frame only.
type Processor struct {
	cfg   Config
	clock PlaybackClock

	mu     sync.Mutex
	acc    []float64
	hasNew bool

	maxEnv    []float64
	minEnv    []float64
	triggered bool
}

func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{
		cfg:    cfg,
		acc:    make([]float64, cfg.FFTSize),
		maxEnv: make([]float64, cfg.FFTSize),
		minEnv: make([]float64, cfg.FFTSize),
	}
	p.resetEnvelopes()
	return p, nil
}

// SetClock attaches the playback clock used for Frame.Progress. A nil clock
// reports progress as NotReady.
func (p *Processor) SetClock(c PlaybackClock) {
	p.clock = c
}

func (p *Processor) Config() Config {
	return p.cfg
}

// Sample folds one snapshot into the peak-hold accumulator. Bins beyond
// FFTSize are ignored; missing bins leave the accumulator untouched.
func (p *Processor) Sample(bins []uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := min(len(bins), len(p.acc))
	for i := 0; i < n; i++ {
		if v := float64(bins[i]); v > p.acc[i] {
			p.acc[i] = v
		}
	}
	p.hasNew = true
}

// take copies the accumulator out and clears it. It reports false when no
// sample arrived since the previous take.
func (p *Processor) take() ([]float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasNew {
		return nil, false
	}
	raw := make([]float64, len(p.acc))
	copy(raw, p.acc)
	clear(p.acc)
	p.hasNew = false
	return raw, true
}

// Frame consumes the accumulator and produces the frame for a tick lasting dt.
func (p *Processor) Frame(dt time.Duration) Frame {
	raw, ok := p.take()
	if !ok {
		return notReadyFrame()
	}

	decay := p.cfg.NormalizeRate * dt.Seconds()
	n := len(raw)
	fft := make([]float64, n)
	for i, v := range raw {
		p.maxEnv[i] = max(p.maxEnv[i]-decay, lerp(v, v*maxHeadroom, 0.5), envelopeFloor)
		p.minEnv[i] = min(p.minEnv[i]+decay, lerp(v, v*minHeadroom, 0.5), envelopeCeiling)

		span := p.maxEnv[i] - p.minEnv[i]
		if span <= 0 {
			continue
		}
		fft[i] = (v - p.minEnv[i]) / span
	}

	power := floats.Sum(fft) / float64(n)
	trigger := false
	switch {
	case power > p.cfg.TriggerThreshold:
		if !p.triggered {
			trigger = true
			p.triggered = true
		}
	case power < p.cfg.TriggerThreshold:
		p.triggered = false
	}

	return Frame{
		Ready:        true,
		Trigger:      trigger,
		FFT:          fft,
		AvgFrequency: floats.Sum(raw) / float64(n),
		Power:        power,
		Progress:     p.progress(),
		RawFFT:       raw,
		MaxEnvelope:  append([]float64(nil), p.maxEnv...),
		MinEnvelope:  append([]float64(nil), p.minEnv...),
	}
}

func (p *Processor) progress() float64 {
	if p.clock == nil {
		return NotReady
	}
	d := p.clock.Duration()
	if d <= 0 {
		return NotReady
	}
	return min(1, max(0, float64(p.clock.Position())/float64(d)))
}

// Reset clears the accumulator, envelopes and trigger latch.
func (p *Processor) Reset() {
	p.mu.Lock()
	clear(p.acc)
	p.hasNew = false
	p.mu.Unlock()
	p.resetEnvelopes()
	p.triggered = false
}

func (p *Processor) resetEnvelopes() {
	for i := range p.maxEnv {
		p.maxEnv[i] = envelopeFloor
		p.minEnv[i] = envelopeCeiling
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
