package sonicprint

import (
	"context"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

type Service interface {
	// LoadFingerprint derives raw and makes it the current fingerprint. A
	// load overtaken by a newer one returns ErrStaleDerivation.
	LoadFingerprint(ctx context.Context, name string, raw *fingerprint.Raw) (*Fingerprint, error)
	Current() *fingerprint.Derived
	GetFingerprint(id string) (*Fingerprint, error)
	ListFingerprints() ([]FingerprintInfo, error)
	DeleteFingerprint(id string) error
	OpenAudio(ctx context.Context, path string) (*AudioSession, error)
	AnalyseFile(ctx context.Context, path string) (*Timeline, error)
	Settings() Settings
	Close() error
}

type Storage interface {
	SaveFingerprint(rec *FingerprintRecord) (string, error)
	FindFingerprint(rawDigest, settingsDigest string) (*FingerprintRecord, error)
	GetFingerprint(id string) (*FingerprintRecord, error)
	ListFingerprints() ([]FingerprintInfo, error)
	DeleteFingerprint(id string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
