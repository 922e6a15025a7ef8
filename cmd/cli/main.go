package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/himanishpuri/sonicprint/internal/cli"
	"github.com/himanishpuri/sonicprint/pkg/logger"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
)

var version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	DB       string `help:"Path to the SQLite fingerprint cache" env:"SONICPRINT_DB_PATH" default:"sonicprint.sqlite3" type:"path"`
	Temp     string `help:"Directory for temporary audio conversion files" env:"SONICPRINT_TEMP_DIR" default:"${tempdir}" type:"path"`
	Rate     int    `help:"Sample rate non-WAV sources are converted to (0 keeps the source rate)" default:"0"`
	Settings string `short:"s" help:"JSON settings file overlaid on the defaults" type:"existingfile" optional:""`
	LogLevel string `help:"Log level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
}

type CLI struct {
	Globals

	Derive      DeriveCmd      `cmd:"" help:"Derive a raw fingerprint and store it in the cache"`
	Analyse     AnalyseCmd     `cmd:"" help:"Analyse an audio file offline and report onsets"`
	Watch       WatchCmd       `cmd:"" help:"Play an audio file silently and show live audio-reactive meters"`
	Spectrogram SpectrogramCmd `cmd:"" help:"Render a spectrogram PNG of an audio file"`
	List        ListCmd        `cmd:"" help:"List cached fingerprints"`
	Show        ShowCmd        `cmd:"" help:"Show a cached fingerprint"`
	Delete      DeleteCmd      `cmd:"" help:"Delete a cached fingerprint"`
	Version     VersionCmd     `cmd:"" help:"Show version information"`
}

func main() {
	var c CLI
	ctx := kong.Parse(&c,
		kong.Name("sonicprint"),
		kong.Description("Fingerprint derivation and audio-reactive analysis"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"version": version,
			"tempdir": os.TempDir(),
		},
	)

	if level, ok := logger.ParseLevel(c.LogLevel); ok {
		logger.SetLevel(level)
	}

	if err := ctx.Run(&c.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func (g *Globals) settings() (sonicprint.Settings, error) {
	if g.Settings == "" {
		return sonicprint.DefaultSettings(), nil
	}
	s, err := sonicprint.LoadSettings(g.Settings)
	if err != nil {
		return s, fmt.Errorf("loading settings: %w", err)
	}
	return s, nil
}

// service opens the fingerprint service configured by the global flags.
func (g *Globals) service(extra ...sonicprint.Option) (sonicprint.Service, error) {
	s, err := g.settings()
	if err != nil {
		return nil, err
	}
	opts := append([]sonicprint.Option{
		sonicprint.WithDBPath(g.DB),
		sonicprint.WithTempDir(g.Temp),
		sonicprint.WithSampleRate(g.Rate),
		sonicprint.WithSettings(s),
	}, extra...)
	return sonicprint.NewService(opts...)
}

type VersionCmd struct{}

func (VersionCmd) Run() error {
	cli.PrintVersion(version)
	return nil
}
