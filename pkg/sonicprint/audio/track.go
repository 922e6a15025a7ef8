package audio

import (
	"errors"
	"time"
)

// ErrLoad wraps every failure to open, convert or decode an audio source.
var ErrLoad = errors.New("audio load failed")

// DefaultSampleRate is used when converting non-WAV sources.
const DefaultSampleRate = 44100

// Track is decoded mono PCM normalised to [-1, 1].
type Track struct {
	Name       string
	Samples    []float64
	SampleRate int
	// Meta is set for sources that went through ffprobe.
	Meta *Metadata
}

// Label names the track for display, preferring its tags.
func (t *Track) Label() string {
	if t.Meta != nil && (t.Meta.Title != "" || t.Meta.Artist != "") {
		return t.Meta.Label()
	}
	return t.Name
}

func (t *Track) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(t.Samples)) * time.Second / time.Duration(t.SampleRate)
}

// Index returns the sample index at pos, clamped to [0, len(Samples)].
func (t *Track) Index(pos time.Duration) int {
	if pos <= 0 || t.SampleRate <= 0 {
		return 0
	}
	i := int(pos * time.Duration(t.SampleRate) / time.Second)
	return min(i, len(t.Samples))
}

// WindowAt fills dst with the len(dst) samples ending just before end.
// Positions before the start of the track read as silence.
func (t *Track) WindowAt(dst []float64, end int) {
	start := end - len(dst)
	for i := range dst {
		j := start + i
		if j < 0 || j >= len(t.Samples) {
			dst[i] = 0
			continue
		}
		dst[i] = t.Samples[j]
	}
}

// Cursor is a manually positioned playhead over a Track, used to walk a file
// faster than real time. It satisfies the same window and clock interfaces
// as Player.
type Cursor struct {
	track *Track
	pos   time.Duration
}

func NewCursor(t *Track) *Cursor {
	return &Cursor{track: t}
}

func (c *Cursor) Seek(pos time.Duration) {
	c.pos = max(0, pos)
}

func (c *Cursor) Position() time.Duration {
	return min(c.pos, c.track.Duration())
}

func (c *Cursor) Duration() time.Duration {
	return c.track.Duration()
}

// Window reports false once the cursor is past the end of the track.
func (c *Cursor) Window(dst []float64) bool {
	if c.pos > c.track.Duration() {
		return false
	}
	c.track.WindowAt(dst, c.track.Index(c.pos))
	return true
}
