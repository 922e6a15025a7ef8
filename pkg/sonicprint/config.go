package sonicprint

import (
	"os"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int
	Logger     Logger
	Storage    Storage
	Settings   Settings
	Palette    fingerprint.ColorSource
	NoCache    bool
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithSampleRate sets the rate non-WAV sources are converted to. 0 keeps
// the rate ffprobe reports for the source.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithSettings(s Settings) Option {
	return func(c *Config) {
		c.Settings = s
	}
}

// WithPalette enables enrichment of every loaded fingerprint.
func WithPalette(p fingerprint.ColorSource) Option {
	return func(c *Config) {
		c.Palette = p
	}
}

// WithoutCache always re-derives instead of reusing a stored derivation.
// Results are still stored.
func WithoutCache() Option {
	return func(c *Config) {
		c.NoCache = true
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:   envOr("SONICPRINT_DB_PATH", "sonicprint.sqlite3"),
		TempDir:  envOr("SONICPRINT_TEMP_DIR", os.TempDir()),
		Settings: DefaultSettings(),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
