//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInvalidFingerprint
	ErrorDerivation
	ErrorInvalidSettings
)

// settings is the browser-side subset of the pipeline settings. Keys match
// the server's settings file; unknown keys are ignored.
type settings struct {
	FFTSize                int     `json:"fft_size"`
	NormalizeRate          float64 `json:"normalize_rate"`
	TriggerThreshold       float64 `json:"trigger_threshold"`
	SmoothingHalfWidth     int     `json:"smoothing_half_width"`
	FeatureBaseCount       int     `json:"feature_base_count"`
	FeatureExtraPerSamples int     `json:"feature_extra_per_samples"`
	Enrich                 bool    `json:"enrich"`
}

func defaultSettings() settings {
	cfg := analyser.DefaultConfig()
	opts := fingerprint.DefaultOptions()
	return settings{
		FFTSize:                cfg.FFTSize,
		NormalizeRate:          cfg.NormalizeRate,
		TriggerThreshold:       cfg.TriggerThreshold,
		SmoothingHalfWidth:     opts.SmoothingHalfWidth,
		FeatureBaseCount:       opts.FeatureBaseCount,
		FeatureExtraPerSamples: opts.FeatureExtraPerSamples,
	}
}

// parseSettings overlays an optional JSON string argument on the defaults.
func parseSettings(args []js.Value, i int) (settings, error) {
	s := defaultSettings()
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return s, nil
	}
	if args[i].Type() != js.TypeString {
		return s, fmt.Errorf("settings must be a JSON string")
	}
	if err := json.Unmarshal([]byte(args[i].String()), &s); err != nil {
		return s, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// deriveFingerprint(rawJSON, settingsJSON?) derives a raw fingerprint.
// Returns: {error: number, data: object | string}
func deriveFingerprint(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected a raw fingerprint JSON string")
	}
	s, err := parseSettings(args, 1)
	if err != nil {
		return makeErrorResponse(ErrorInvalidSettings, err.Error())
	}

	var raw fingerprint.Raw
	if err := json.Unmarshal([]byte(args[0].String()), &raw); err != nil {
		return makeErrorResponse(ErrorInvalidFingerprint, fmt.Sprintf("Invalid fingerprint JSON: %v", err))
	}
	if err := raw.Validate(); err != nil {
		return makeErrorResponse(ErrorInvalidFingerprint, err.Error())
	}

	d, err := fingerprint.Derive(&raw, fingerprint.Options{
		SmoothingHalfWidth:     s.SmoothingHalfWidth,
		FeatureBaseCount:       s.FeatureBaseCount,
		FeatureExtraPerSamples: s.FeatureExtraPerSamples,
	})
	if err != nil {
		return makeErrorResponse(ErrorDerivation, err.Error())
	}
	if s.Enrich {
		d, err = fingerprint.Enrich(context.Background(), d, fingerprint.GradientPalette{}, random.New(0), fingerprint.DefaultEnrichOptions())
		if err != nil {
			return makeErrorResponse(ErrorDerivation, err.Error())
		}
	}

	b, err := json.Marshal(d)
	if err != nil {
		return makeErrorResponse(ErrorDerivation, err.Error())
	}
	return makeResponse(js.Global().Get("JSON").Call("parse", string(b)))
}

// progressClock reports a playback position supplied by the page. A negative
// fraction means no playback is known.
type progressClock struct {
	fraction float64
}

func (c *progressClock) Position() time.Duration {
	return time.Duration(c.fraction * float64(time.Second))
}

func (c *progressClock) Duration() time.Duration {
	if c.fraction < 0 {
		return 0
	}
	return time.Second
}

// newAudioProcessor(settingsJSON?) returns an object with
//
//	sample(Uint8Array)           fold one getByteFrequencyData snapshot in
//	frame(dtMs, progress) object produce the frame for one animation tick
//	reset()                      forget envelopes, latch and pending samples
func newAudioProcessor(this js.Value, args []js.Value) any {
	s, err := parseSettings(args, 0)
	if err != nil {
		return makeErrorResponse(ErrorInvalidSettings, err.Error())
	}
	proc, err := analyser.NewProcessor(analyser.Config{
		FFTSize:          s.FFTSize,
		NormalizeRate:    s.NormalizeRate,
		TriggerThreshold: s.TriggerThreshold,
	})
	if err != nil {
		return makeErrorResponse(ErrorInvalidSettings, err.Error())
	}
	clock := &progressClock{fraction: -1}
	proc.SetClock(clock)
	buf := make([]uint8, s.FFTSize)

	obj := js.Global().Get("Object").New()
	obj.Set("sample", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 || args[0].Type() != js.TypeObject {
			return false
		}
		n := js.CopyBytesToGo(buf, args[0])
		proc.Sample(buf[:n])
		return true
	}))
	obj.Set("frame", js.FuncOf(func(this js.Value, args []js.Value) any {
		dt := time.Second / 60
		if len(args) > 0 && args[0].Type() == js.TypeNumber {
			dt = time.Duration(args[0].Float() * float64(time.Millisecond))
		}
		clock.fraction = -1
		if len(args) > 1 && args[1].Type() == js.TypeNumber {
			clock.fraction = args[1].Float()
		}
		return frameToJS(proc.Frame(dt))
	}))
	obj.Set("reset", js.FuncOf(func(this js.Value, args []js.Value) any {
		proc.Reset()
		return nil
	}))
	return makeResponse(obj)
}

func frameToJS(f analyser.Frame) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("ready", f.Ready)
	obj.Set("trigger", f.Trigger)
	obj.Set("avgFrequency", f.AvgFrequency)
	obj.Set("power", f.Power)
	obj.Set("progress", f.Progress)
	obj.Set("fft", floatArray(f.FFT))
	obj.Set("rawFft", floatArray(f.RawFFT))
	obj.Set("maxEnvelope", floatArray(f.MaxEnvelope))
	obj.Set("minEnvelope", floatArray(f.MinEnvelope))
	return obj
}

func floatArray(v []float64) js.Value {
	if v == nil {
		return js.Null()
	}
	arr := js.Global().Get("Float64Array").New(len(v))
	for i, x := range v {
		arr.SetIndex(i, x)
	}
	return arr
}

func makeResponse(data js.Value) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func logf(method, format string, args ...any) {
	console := js.Global().Get("console")
	if console.IsUndefined() {
		return
	}
	console.Call(method, fmt.Sprintf(format, args...))
}

func main() {
	logf("log", "sonicprint WASM module initializing...")

	js.Global().Set("deriveFingerprint", js.FuncOf(deriveFingerprint))
	js.Global().Set("newAudioProcessor", js.FuncOf(newAudioProcessor))

	window := js.Global().Get("window")
	if window.IsUndefined() {
		logf("error", "window object is undefined")
	} else {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	}

	logf("log", "sonicprint WASM module loaded and ready")
	select {}
}
