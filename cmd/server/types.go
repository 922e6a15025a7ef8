package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

const (
	// MaxSamplesHardLimit bounds the raw fingerprints accepted over HTTP.
	MaxSamplesHardLimit = 200000

	// SampleWarningThreshold triggers logging for large uploads
	SampleWarningThreshold = 20000
)

// CreateFingerprintRequest is the request body for POST /api/fingerprints
type CreateFingerprintRequest struct {
	Name        string           `json:"name"`
	Fingerprint *fingerprint.Raw `json:"fingerprint"`
}

// Validate checks if the request is valid
func (r *CreateFingerprintRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Fingerprint == nil {
		return fmt.Errorf("fingerprint is required")
	}
	if n := r.Fingerprint.Len(); n > MaxSamplesHardLimit {
		return fmt.Errorf("too many samples: %d (maximum: %d)", n, MaxSamplesHardLimit)
	}
	return r.Fingerprint.Validate()
}

// FingerprintResponse carries a derived fingerprint
type FingerprintResponse struct {
	sonicprint.FingerprintInfo
	Derived *fingerprint.Derived `json:"derived"`
}

// ListFingerprintsResponse is the response for GET /api/fingerprints
type ListFingerprintsResponse struct {
	Fingerprints []sonicprint.FingerprintInfo `json:"fingerprints"`
	Count        int                          `json:"count"`
}

// DeleteFingerprintResponse is the response for DELETE /api/fingerprints/{id}
type DeleteFingerprintResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// AnalyseResponse summarises the offline analysis of an uploaded file.
type AnalyseResponse struct {
	Name       string           `json:"name"`
	Source     *audio.Metadata  `json:"source,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	FrameRate  float64          `json:"frame_rate"`
	FrameCount int              `json:"frame_count"`
	TriggersMs []int64          `json:"triggers_ms"`
	MeanPower  float64          `json:"mean_power"`
	PeakPower  float64          `json:"peak_power"`
	Frames     []analyser.Frame `json:"frames,omitempty"`
}

func newAnalyseResponse(tl *sonicprint.Timeline, withFrames bool) AnalyseResponse {
	resp := AnalyseResponse{
		Name:       tl.Name,
		Source:     tl.Source,
		DurationMs: tl.Duration.Milliseconds(),
		FrameRate:  tl.FrameRate,
		FrameCount: len(tl.Frames),
		TriggersMs: make([]int64, len(tl.Triggers)),
		MeanPower:  tl.MeanPower,
		PeakPower:  tl.PeakPower,
	}
	for i, at := range tl.Triggers {
		resp.TriggersMs[i] = at.Milliseconds()
	}
	if withFrames {
		resp.Frames = tl.Frames
	}
	return resp
}

// MetricsResponse provides server health and storage metrics
type MetricsResponse struct {
	Status           string        `json:"status"`
	DatabasePath     string        `json:"database_path"`
	FingerprintCount int           `json:"fingerprint_count"`
	HasCurrent       bool          `json:"has_current"`
	Uptime           time.Duration `json:"uptime_ns"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
