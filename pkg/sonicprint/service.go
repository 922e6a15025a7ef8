package sonicprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/himanishpuri/sonicprint/pkg/logger"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

// sonicService is the default implementation of the Service interface.
type sonicService struct {
	storage Storage
	log     Logger
	config  *Config

	generation atomic.Uint64
	swap       sync.Mutex
	current    atomic.Pointer[fingerprint.Derived]
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("sonicprint")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &sonicService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

func (s *sonicService) Settings() Settings {
	return s.config.Settings
}

func (s *sonicService) Current() *fingerprint.Derived {
	return s.current.Load()
}

func (s *sonicService) LoadFingerprint(ctx context.Context, name string, raw *fingerprint.Raw) (*Fingerprint, error) {
	gen := s.generation.Add(1)

	if raw == nil {
		return nil, &fingerprint.ValidationError{Field: "raw", Reason: "missing"}
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding raw fingerprint: %w", err)
	}
	rawDigest := digest(rawJSON)
	settingsDigest := s.config.Settings.Digest()

	derived, info := s.cached(rawDigest, settingsDigest)
	if derived == nil {
		derived, err = fingerprint.Derive(raw, s.config.Settings.Derivation())
		if err != nil {
			return nil, err
		}
		info = s.store(name, derived, rawDigest, settingsDigest, rawJSON)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.enrich(ctx, derived)
	if err != nil {
		return nil, err
	}

	s.swap.Lock()
	defer s.swap.Unlock()
	if gen != s.generation.Load() {
		s.log.Debugf("discarding load %d of %q: superseded", gen, name)
		return nil, ErrStaleDerivation
	}
	s.current.Store(out)

	s.log.Infof("Loaded fingerprint %q (%d samples, %d features, hash %d)", name, info.Samples, info.Features, out.Hash)
	return &Fingerprint{FingerprintInfo: info, Raw: raw, Derived: out}, nil
}

// cached returns a stored phase-1 derivation for the key, or nil.
func (s *sonicService) cached(rawDigest, settingsDigest string) (*fingerprint.Derived, FingerprintInfo) {
	if s.config.NoCache {
		return nil, FingerprintInfo{}
	}
	rec, err := s.storage.FindFingerprint(rawDigest, settingsDigest)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warnf("fingerprint cache lookup failed: %v", err)
		}
		return nil, FingerprintInfo{}
	}
	var d fingerprint.Derived
	if err := json.Unmarshal(rec.Payload, &d); err != nil {
		s.log.Warnf("discarding unreadable cached fingerprint %s: %v", rec.ID, err)
		return nil, FingerprintInfo{}
	}
	s.log.Debugf("fingerprint cache hit %s", rec.ID)
	return &d, rec.FingerprintInfo
}

// store saves a fresh derivation. A cache write failure is logged and the
// load carries on without an id.
func (s *sonicService) store(name string, d *fingerprint.Derived, rawDigest, settingsDigest string, rawJSON []byte) FingerprintInfo {
	info := newInfo(name, d)
	payload, err := json.Marshal(d)
	if err != nil {
		s.log.Warnf("encoding derived fingerprint: %v", err)
		return info
	}
	id, err := s.storage.SaveFingerprint(&FingerprintRecord{
		FingerprintInfo: info,
		RawDigest:       rawDigest,
		SettingsDigest:  settingsDigest,
		Raw:             rawJSON,
		Payload:         payload,
	})
	if err != nil {
		s.log.Warnf("storing fingerprint %q: %v", name, err)
		return info
	}
	info.ID = id
	return info
}

func (s *sonicService) enrich(ctx context.Context, d *fingerprint.Derived) (*fingerprint.Derived, error) {
	if s.config.Palette == nil {
		return d, nil
	}
	return fingerprint.Enrich(ctx, d, s.config.Palette, random.New(0), fingerprint.DefaultEnrichOptions())
}

func (s *sonicService) GetFingerprint(id string) (*Fingerprint, error) {
	rec, err := s.storage.GetFingerprint(id)
	if err != nil {
		return nil, err
	}

	var d fingerprint.Derived
	if err := json.Unmarshal(rec.Payload, &d); err != nil {
		return nil, fmt.Errorf("decoding stored fingerprint %s: %w", id, err)
	}
	var raw fingerprint.Raw
	if err := json.Unmarshal(rec.Raw, &raw); err != nil {
		return nil, fmt.Errorf("decoding stored raw fingerprint %s: %w", id, err)
	}

	out, err := s.enrich(context.Background(), &d)
	if err != nil {
		return nil, err
	}
	return &Fingerprint{FingerprintInfo: rec.FingerprintInfo, Raw: &raw, Derived: out}, nil
}

func (s *sonicService) ListFingerprints() ([]FingerprintInfo, error) {
	return s.storage.ListFingerprints()
}

func (s *sonicService) DeleteFingerprint(id string) error {
	if err := s.storage.DeleteFingerprint(id); err != nil {
		return err
	}
	s.log.Infof("Deleted fingerprint %s", id)
	return nil
}

// OpenAudio decodes path and wires a player, analyser and sampler around it.
// The session is idle until Start.
func (s *sonicService) OpenAudio(ctx context.Context, path string) (*AudioSession, error) {
	track, err := audio.Load(ctx, path, audio.LoadConfig{
		TempDir:    s.config.TempDir,
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		s.log.Errorf("opening audio %s: %v", path, err)
		return nil, err
	}
	s.log.Infof("Opened %s (%s, %d Hz)", track.Name, track.Duration(), track.SampleRate)
	return NewAudioSession(track, s.config.Settings, s.log)
}

// AnalyseFile loads path with the service's scratch dir and sample rate and
// replays it through AnalyseTrack.
func (s *sonicService) AnalyseFile(ctx context.Context, path string) (*Timeline, error) {
	track, err := audio.Load(ctx, path, audio.LoadConfig{
		TempDir:    s.config.TempDir,
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	return AnalyseTrack(ctx, track, s.config.Settings)
}

// Close releases all resources held by the service.
func (s *sonicService) Close() error {
	return s.storage.Close()
}
