package sonicprint

import (
	"time"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

// FingerprintInfo summarises a stored fingerprint without its coordinates.
type FingerprintInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hash      int32     `json:"hash"`
	FloatHash float64   `json:"float_hash"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Samples   int       `json:"samples"`
	Features  int       `json:"features"`
	CreatedAt time.Time `json:"created_at"`
}

// Fingerprint is a loaded fingerprint: its summary, the raw input and the
// derived structure handed to renderers.
type Fingerprint struct {
	FingerprintInfo
	Raw     *fingerprint.Raw     `json:"raw,omitempty"`
	Derived *fingerprint.Derived `json:"derived"`
}

// FingerprintRecord is the storage form. Raw holds the canonical raw JSON and
// Payload the phase-1 derivation as JSON.
type FingerprintRecord struct {
	FingerprintInfo
	RawDigest      string
	SettingsDigest string
	Raw            []byte
	Payload        []byte
}

func newInfo(name string, d *fingerprint.Derived) FingerprintInfo {
	return FingerprintInfo{
		Name:      name,
		Hash:      d.Hash,
		FloatHash: d.FloatHash,
		Width:     d.Shape[0],
		Height:    d.Shape[1],
		Samples:   len(d.Coords),
		Features:  len(d.Features()),
	}
}
