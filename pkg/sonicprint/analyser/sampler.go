package analyser

import (
	"context"
	"time"
)

// DefaultSampleInterval is how often raw frequency data is polled, several
// times per display frame.
const DefaultSampleInterval = 5 * time.Millisecond

// Logger is the subset of the project logger the sampler needs.
type Logger interface {
	Debugf(format string, args ...any)
}

// Sampler polls a FrequencySource on a fixed interval and feeds every
// snapshot into a Processor.
type Sampler struct {
	src      FrequencySource
	proc     *Processor
	interval time.Duration
	log      Logger
	buf      []uint8
}

func NewSampler(src FrequencySource, proc *Processor, interval time.Duration, log Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{
		src:      src,
		proc:     proc,
		interval: interval,
		log:      log,
		buf:      make([]uint8, proc.Config().FFTSize),
	}
}

// Poll takes a single snapshot. It reports whether the source had data.
func (s *Sampler) Poll() bool {
	if !s.src.ByteFrequencyData(s.buf) {
		return false
	}
	s.proc.Sample(s.buf)
	return true
}

// Run polls until ctx is done. It returns nil on cancellation.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	polls, empty := 0, 0
	for {
		select {
		case <-ctx.Done():
			if s.log != nil {
				s.log.Debugf("sampler stopped after %d polls (%d without data)", polls, empty)
			}
			return nil
		case <-ticker.C:
			polls++
			if !s.Poll() {
				empty++
			}
		}
	}
}
