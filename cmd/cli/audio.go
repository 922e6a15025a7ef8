package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/sonicprint/internal/cli"
	"github.com/himanishpuri/sonicprint/internal/tui"
	"github.com/himanishpuri/sonicprint/pkg/logger"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

type AnalyseCmd struct {
	File   string `arg:"" help:"Audio file (WAV directly, anything else through ffmpeg)" type:"existingfile"`
	JSON   bool   `help:"Print the timeline as JSON"`
	Frames bool   `help:"Include every frame in the JSON output"`
}

func (c *AnalyseCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := g.service(sonicprint.WithStorage(sonicprint.NewMemoryStorage()))
	if err != nil {
		return err
	}
	defer svc.Close()

	tl, err := svc.AnalyseFile(ctx, c.File)
	if err != nil {
		return err
	}

	if c.JSON {
		if !c.Frames {
			tl.Frames = nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tl)
	}

	fmt.Println(cli.TitleStyle.Render("Analysed " + tl.Name))
	if src := tl.Source; src != nil {
		if src.Title != "" {
			cli.PrintKV("Title:", src.Title)
		}
		if src.Artist != "" {
			cli.PrintKV("Artist:", src.Artist)
		}
		cli.PrintKV("Source:", fmt.Sprintf("%s, %d Hz, %d ch", src.Format, src.SampleRate, src.Channels))
	}
	cli.PrintKV("Duration:", tl.Duration.Round(time.Millisecond))
	cli.PrintKV("Frames:", humanize.Comma(int64(len(tl.Frames))))
	cli.PrintKV("Mean power:", fmt.Sprintf("%.3f", tl.MeanPower))
	cli.PrintKV("Peak power:", fmt.Sprintf("%.3f", tl.PeakPower))
	cli.PrintKV("Onsets:", len(tl.Triggers))

	const shown = 12
	if len(tl.Triggers) > 0 {
		var parts []string
		for _, at := range tl.Triggers[:min(shown, len(tl.Triggers))] {
			parts = append(parts, at.Round(10*time.Millisecond).String())
		}
		if len(tl.Triggers) > shown {
			parts = append(parts, fmt.Sprintf("… %d more", len(tl.Triggers)-shown))
		}
		cli.PrintKV("At:", strings.Join(parts, " "))
	}
	return nil
}

type WatchCmd struct {
	File        string  `arg:"" help:"Audio file to play" type:"existingfile"`
	Fingerprint string  `short:"f" help:"Raw fingerprint JSON to load alongside the audio" type:"existingfile" optional:""`
	ID          string  `help:"Cached fingerprint id to load alongside the audio" optional:""`
	FPS         float64 `help:"Frame rate of the meters (defaults to the settings frame rate)"`
	LogFile     string  `help:"Write logs here while the meters are on screen" type:"path" optional:""`
}

func (c *WatchCmd) Run(g *Globals) error {
	// the alternate screen owns the terminal; logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.Create(c.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger.SetOutput(logOut)

	svc, err := g.service()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := svc.OpenAudio(ctx, c.File)
	if err != nil {
		return err
	}
	defer session.Close()

	fps := c.FPS
	if fps <= 0 {
		fps = svc.Settings().FrameRate
	}

	p := tea.NewProgram(tui.NewModel(session.Track.Label(), session.Track.Duration()), tea.WithAltScreen())
	rt := sonicprint.NewRuntime(session, logger.GetLogger().With("runtime"))

	name, derived, err := c.loadFingerprint(ctx, svc)
	if err != nil {
		return err
	}
	rt.Register(tui.Consumer{Name: name, Send: p.Send})
	if derived != nil {
		rt.SetFingerprint(derived)
	}

	session.Start(ctx)
	go rt.Run(ctx, fps)
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !session.Player.Playing() {
					p.Send(tui.DoneMsg{})
					return
				}
			}
		}
	}()

	final, err := p.Run()
	cancel()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok {
		_, skipped := rt.Stats()
		fmt.Printf("%d onsets over %d frames (%d ticks without new audio)\n", m.Triggers, m.Frames, skipped)
		return m.Err
	}
	return nil
}

func (c *WatchCmd) loadFingerprint(ctx context.Context, svc sonicprint.Service) (string, *fingerprint.Derived, error) {
	switch {
	case c.ID != "":
		fp, err := svc.GetFingerprint(c.ID)
		if err != nil {
			return "", nil, err
		}
		return fp.Name, fp.Derived, nil
	case c.Fingerprint != "":
		raw, err := fingerprint.ReadRawFile(c.Fingerprint)
		if err != nil {
			return "", nil, err
		}
		fp, err := svc.LoadFingerprint(ctx, c.Fingerprint, raw)
		if err != nil {
			return "", nil, err
		}
		return fp.Name, fp.Derived, nil
	}
	return "", nil, nil
}

type SpectrogramCmd struct {
	File   string `arg:"" help:"Audio file" type:"existingfile"`
	Output string `short:"o" help:"PNG output path (defaults to <file>.png)" type:"path" optional:""`
	Width  int    `help:"Image width in pixels" default:"2048"`
	Height int    `help:"Image height in pixels, one frequency bin per row" default:"512"`
	Log10  bool   `help:"Logarithmic magnitude scale"`
}

func (c *SpectrogramCmd) Run(g *Globals) error {
	track, err := audio.Load(context.Background(), c.File, audio.LoadConfig{TempDir: g.Temp, SampleRate: g.Rate})
	if err != nil {
		return err
	}

	out := c.Output
	if out == "" {
		out = c.File + ".png"
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, c.Width, c.Height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		track.Samples,
		uint32(track.SampleRate),
		uint32(c.Height), // bins
		false,            // hamming window
		false,            // fft, not dft
		true,             // magnitude
		c.Log10,
	)

	if err := spectrogram.SavePng(img, out); err != nil {
		return fmt.Errorf("saving %s: %w", out, err)
	}

	size := "?"
	if st, err := os.Stat(out); err == nil {
		size = humanize.Bytes(uint64(st.Size()))
	}
	fmt.Printf("Saved spectrogram of %s (%s) to %s [%s]\n", track.Label(), track.Duration().Round(time.Millisecond), out, size)
	return nil
}
