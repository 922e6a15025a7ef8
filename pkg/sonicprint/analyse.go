package sonicprint

import (
	"context"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/analyser"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
)

// Timeline is the frame-by-frame analysis of a whole file.
type Timeline struct {
	Name      string           `json:"name"`
	Source    *audio.Metadata  `json:"source,omitempty"`
	Duration  time.Duration    `json:"duration"`
	FrameRate float64          `json:"frame_rate"`
	Frames    []analyser.Frame `json:"frames,omitempty"`
	Triggers  []time.Duration  `json:"triggers"`
	MeanPower float64          `json:"mean_power"`
	PeakPower float64          `json:"peak_power"`
}

// TimeAt returns the playback time at the end of frame i.
func (t *Timeline) TimeAt(i int) time.Duration {
	return time.Duration(float64(i+1) * float64(time.Second) / t.FrameRate)
}

// AnalyseTrack replays t faster than real time. Between two frames the
// spectrum is sampled every s.SampleInterval, exactly as the live sampler
// would, so the timeline matches what a live run would show.
func AnalyseTrack(ctx context.Context, t *audio.Track, s Settings) (*Timeline, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	cursor := audio.NewCursor(t)
	spectrum, err := analyser.NewSpectrum(cursor, s.FFTSize, s.Spectrum())
	if err != nil {
		return nil, err
	}
	proc, err := analyser.NewProcessor(s.Processor())
	if err != nil {
		return nil, err
	}
	proc.SetClock(cursor)

	tl := &Timeline{
		Name:      t.Name,
		Source:    t.Meta,
		Duration:  t.Duration(),
		FrameRate: s.FrameRate,
	}

	frameDt := s.FrameInterval()
	interval := s.SampleInterval.Duration
	buf := make([]uint8, s.FFTSize)

	var sampleAt time.Duration
	for i := 0; ; i++ {
		frameEnd := tl.TimeAt(i)
		if frameEnd > tl.Duration {
			break
		}
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for ; sampleAt <= frameEnd; sampleAt += interval {
			cursor.Seek(sampleAt)
			if spectrum.ByteFrequencyData(buf) {
				proc.Sample(buf)
			}
		}

		cursor.Seek(frameEnd)
		f := proc.Frame(frameDt)
		tl.Frames = append(tl.Frames, f)
		if f.Trigger {
			tl.Triggers = append(tl.Triggers, frameEnd)
		}
	}

	powers := make([]float64, 0, len(tl.Frames))
	for _, f := range tl.Frames {
		if f.Ready {
			powers = append(powers, f.Power)
		}
	}
	if len(powers) > 0 {
		tl.MeanPower = floats.Sum(powers) / float64(len(powers))
		tl.PeakPower = floats.Max(powers)
	}
	return tl, nil
}
