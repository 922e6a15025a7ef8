package sonicprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

const DefaultFrameRate = 60.0

// Duration is a time.Duration that reads and writes as "5ms" in JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string such as \"5ms\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Settings is every tunable of the pipeline. Zero values are not defaults:
// start from DefaultSettings and overlay.
type Settings struct {
	FFTSize          int     `json:"fft_size"`
	NormalizeRate    float64 `json:"normalize_rate"`
	TriggerThreshold float64 `json:"trigger_threshold"`

	SmoothingHalfWidth     int `json:"smoothing_half_width"`
	FeatureBaseCount       int `json:"feature_base_count"`
	FeatureExtraPerSamples int `json:"feature_extra_per_samples"`

	SampleInterval    Duration `json:"sample_interval"`
	FrameRate         float64  `json:"frame_rate"`
	AnalyserSmoothing float64  `json:"analyser_smoothing"`
	MinDecibels       float64  `json:"min_decibels"`
	MaxDecibels       float64  `json:"max_decibels"`
}

func DefaultSettings() Settings {
	return Settings{
		FFTSize:                analyser.DefaultFFTSize,
		NormalizeRate:          analyser.DefaultNormalizeRate,
		TriggerThreshold:       analyser.DefaultTriggerThreshold,
		SmoothingHalfWidth:     fingerprint.DefaultSmoothingHalfWidth,
		FeatureBaseCount:       fingerprint.DefaultFeatureBaseCount,
		FeatureExtraPerSamples: fingerprint.DefaultFeatureExtraPerSamples,
		SampleInterval:         Duration{analyser.DefaultSampleInterval},
		FrameRate:              DefaultFrameRate,
		AnalyserSmoothing:      analyser.DefaultSmoothing,
		MinDecibels:            analyser.DefaultMinDecibels,
		MaxDecibels:            analyser.DefaultMaxDecibels,
	}
}

// ParseSettings overlays the JSON document in r on the defaults. Unknown
// keys are rejected.
func ParseSettings(r io.Reader) (Settings, error) {
	s := DefaultSettings()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func LoadSettings(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()
	return ParseSettings(f)
}

func (s Settings) Validate() error {
	if err := s.Processor().Validate(); err != nil {
		return err
	}
	if s.SmoothingHalfWidth < 0 {
		return fmt.Errorf("smoothing half width must not be negative, got %d", s.SmoothingHalfWidth)
	}
	if s.FeatureBaseCount < 0 || s.FeatureExtraPerSamples < 0 {
		return fmt.Errorf("feature counts must not be negative")
	}
	if s.SampleInterval.Duration <= 0 {
		return fmt.Errorf("sample interval must be positive, got %v", s.SampleInterval)
	}
	if s.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %v", s.FrameRate)
	}
	if s.AnalyserSmoothing < 0 || s.AnalyserSmoothing >= 1 {
		return fmt.Errorf("analyser smoothing must be within [0,1), got %v", s.AnalyserSmoothing)
	}
	if s.MaxDecibels <= s.MinDecibels {
		return fmt.Errorf("max decibels (%v) must exceed min decibels (%v)", s.MaxDecibels, s.MinDecibels)
	}
	return nil
}

func (s Settings) Processor() analyser.Config {
	return analyser.Config{
		FFTSize:          s.FFTSize,
		NormalizeRate:    s.NormalizeRate,
		TriggerThreshold: s.TriggerThreshold,
	}
}

func (s Settings) Derivation() fingerprint.Options {
	return fingerprint.Options{
		SmoothingHalfWidth:     s.SmoothingHalfWidth,
		FeatureBaseCount:       s.FeatureBaseCount,
		FeatureExtraPerSamples: s.FeatureExtraPerSamples,
	}
}

func (s Settings) Spectrum() analyser.SpectrumOptions {
	return analyser.SpectrumOptions{
		Smoothing:   s.AnalyserSmoothing,
		MinDecibels: s.MinDecibels,
		MaxDecibels: s.MaxDecibels,
	}
}

// FrameInterval is the duration of one animation tick.
func (s Settings) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.FrameRate)
}

// Digest identifies the settings that affect derivation. Audio settings are
// left out so retuning the analyser does not invalidate cached fingerprints.
func (s Settings) Digest() string {
	b, _ := json.Marshal(s.Derivation())
	return digest(b)
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
