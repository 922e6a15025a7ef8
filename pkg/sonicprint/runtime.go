package sonicprint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
)

// FrameSource yields at most one frame per tick. *analyser.Processor and
// *AudioSession both satisfy it.
type FrameSource interface {
	Frame(dt time.Duration) analyser.Frame
}

// Consumer is an audio-reactive element. OnFingerprint is called once per
// fingerprint instance; OnFrame once per ready tick. Consumers must treat
// both arguments as read-only.
type Consumer interface {
	OnFingerprint(d *fingerprint.Derived)
	OnFrame(f analyser.Frame)
}

// Runtime pulls frames from a FrameSource on every tick and broadcasts the
// ready ones to all registered consumers in the same tick.
type Runtime struct {
	src FrameSource
	log Logger

	mu        sync.Mutex
	consumers []Consumer
	current   *fingerprint.Derived
	ticks     uint64
	skipped   uint64
}

func NewRuntime(src FrameSource, log Logger) *Runtime {
	return &Runtime{src: src, log: log}
}

// Register adds c. If a fingerprint is already set, c receives it at once.
func (r *Runtime) Register(c Consumer) {
	r.mu.Lock()
	r.consumers = append(r.consumers, c)
	d := r.current
	r.mu.Unlock()

	if d != nil {
		c.OnFingerprint(d)
	}
}

// SetFingerprint publishes d to every consumer. Publishing the instance that
// is already current does nothing.
func (r *Runtime) SetFingerprint(d *fingerprint.Derived) {
	r.mu.Lock()
	if d == r.current {
		r.mu.Unlock()
		return
	}
	r.current = d
	consumers := append([]Consumer(nil), r.consumers...)
	r.mu.Unlock()

	for _, c := range consumers {
		c.OnFingerprint(d)
	}
}

func (r *Runtime) Fingerprint() *fingerprint.Derived {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Tick pulls one frame. Frames that are not ready are counted and dropped;
// the second result reports whether the frame was broadcast.
func (r *Runtime) Tick(dt time.Duration) (analyser.Frame, bool) {
	f := r.src.Frame(dt)

	r.mu.Lock()
	r.ticks++
	if !f.Ready {
		r.skipped++
		r.mu.Unlock()
		return f, false
	}
	consumers := append([]Consumer(nil), r.consumers...)
	r.mu.Unlock()

	for _, c := range consumers {
		c.OnFrame(f)
	}
	return f, true
}

// Stats returns the number of ticks and how many of them had no new data.
func (r *Runtime) Stats() (ticks, skipped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks, r.skipped
}

// Run ticks at fps until ctx is done. dt is the measured wall time since the
// previous tick.
func (r *Runtime) Run(ctx context.Context, fps float64) error {
	if fps <= 0 {
		return errors.New("frame rate must be positive")
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			if r.log != nil {
				ticks, skipped := r.Stats()
				r.log.Debugf("runtime stopped after %d ticks (%d skipped)", ticks, skipped)
			}
			return nil
		case now := <-ticker.C:
			r.Tick(now.Sub(last))
			last = now
		}
	}
}
