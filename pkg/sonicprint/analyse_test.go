package sonicprint

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

// noiseTrack is seeded white noise, silent wherever on reports false.
func noiseTrack(rate int, d time.Duration, on func(time.Duration) bool) *audio.Track {
	n := int(d * time.Duration(rate) / time.Second)
	rnd := random.New(7)
	s := make([]float64, n)
	for i := range s {
		v := rnd.Range(-0.5, 0.5)
		if on(time.Duration(i) * time.Second / time.Duration(rate)) {
			s[i] = v
		}
	}
	return &audio.Track{Name: "noise", Samples: s, SampleRate: rate}
}

// bursts is silent except for [0.5s,1s) and [1.5s,2s).
func bursts(t time.Duration) bool {
	return (t >= 500*time.Millisecond && t < time.Second) || t >= 1500*time.Millisecond
}

func TestAnalyseTrackTimeline(t *testing.T) {
	tr := noiseTrack(8000, 2*time.Second, bursts)

	tl, err := AnalyseTrack(context.Background(), tr, DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, tl.Duration)
	assert.InDelta(t, 120, len(tl.Frames), 1)

	last := -1.0
	for i, f := range tl.Frames {
		require.True(t, f.Ready, "frame %d not ready", i)
		require.GreaterOrEqual(t, f.Progress, last, "progress went backwards at %d", i)
		last = f.Progress
		for b, v := range f.FFT {
			if v < 0 || v > 1.0000001 {
				t.Fatalf("frame %d band %d out of range: %v", i, b, v)
			}
		}
	}
	assert.LessOrEqual(t, last, 1.0)

	require.GreaterOrEqual(t, len(tl.Triggers), 2)
	assert.InDelta(t, 0.5, tl.Triggers[0].Seconds(), 0.05, "first onset")

	second := false
	for _, at := range tl.Triggers {
		if at >= 1500*time.Millisecond && at < 1550*time.Millisecond {
			second = true
		}
	}
	assert.True(t, second, "expected a trigger at the second onset, got %v", tl.Triggers)

	assert.Greater(t, tl.PeakPower, 0.5)
	assert.Greater(t, tl.PeakPower, tl.MeanPower)
}

func TestAnalyseTrackIsDeterministic(t *testing.T) {
	tr := noiseTrack(8000, time.Second, bursts)

	a, err := AnalyseTrack(context.Background(), tr, DefaultSettings())
	require.NoError(t, err)
	b, err := AnalyseTrack(context.Background(), tr, DefaultSettings())
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("timelines differ:\n%s", diff)
	}
}

func TestAnalyseTrackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AnalyseTrack(ctx, noiseTrack(8000, time.Second, bursts), DefaultSettings())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyseTrackCarriesSourceTags(t *testing.T) {
	tr := noiseTrack(8000, time.Second, bursts)
	tr.Meta = &audio.Metadata{Filename: "noise.flac", Title: "Bursts", Format: "flac"}

	tl, err := AnalyseTrack(context.Background(), tr, DefaultSettings())
	require.NoError(t, err)
	require.NotNil(t, tl.Source)
	assert.Equal(t, "Bursts", tl.Source.Label())
	assert.Equal(t, "flac", tl.Source.Format)
}
