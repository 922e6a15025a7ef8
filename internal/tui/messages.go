package tui

import (
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

// FingerprintMsg announces a newly loaded fingerprint.
type FingerprintMsg struct {
	Name    string
	Derived *fingerprint.Derived
}

// FrameMsg carries one ready audio frame.
type FrameMsg struct {
	Frame analyser.Frame
}

// DoneMsg ends the session, with an error if playback failed.
type DoneMsg struct {
	Err error
}
