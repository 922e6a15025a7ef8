package sonicprint

import (
	"context"
	"sync"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
)

// AudioSession is an opened audio source wired to the analysis pipeline:
// the player feeds the spectrum, the sampler polls the spectrum into the
// processor and the frame loop pulls frames with Frame.
type AudioSession struct {
	Track     *audio.Track
	Player    *audio.Player
	Spectrum  *analyser.Spectrum
	Processor *analyser.Processor

	sampler *analyser.Sampler
	log     Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAudioSession(t *audio.Track, s Settings, log Logger) (*AudioSession, error) {
	player := audio.NewPlayer(t)

	spectrum, err := analyser.NewSpectrum(player, s.FFTSize, s.Spectrum())
	if err != nil {
		return nil, err
	}
	proc, err := analyser.NewProcessor(s.Processor())
	if err != nil {
		return nil, err
	}
	proc.SetClock(player)

	return &AudioSession{
		Track:     t,
		Player:    player,
		Spectrum:  spectrum,
		Processor: proc,
		sampler:   analyser.NewSampler(spectrum, proc, s.SampleInterval.Duration, log),
		log:       log,
	}, nil
}

// Start begins playback and sampling. It is a no-op when already started.
func (a *AudioSession) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	a.Player.Start()

	go func(done chan struct{}) {
		defer close(done)
		if err := a.sampler.Run(ctx); err != nil && a.log != nil {
			a.log.Errorf("sampler stopped: %v", err)
		}
	}(a.done)
}

// Stop pauses playback and waits for the sampler to exit.
func (a *AudioSession) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	a.Player.Pause()
}

func (a *AudioSession) Seek(pos time.Duration) {
	a.Player.Seek(pos)
	a.Spectrum.Reset()
}

// Frame produces the frame for a tick lasting dt.
func (a *AudioSession) Frame(dt time.Duration) analyser.Frame {
	return a.Processor.Frame(dt)
}

func (a *AudioSession) Close() error {
	a.Stop()
	return nil
}
