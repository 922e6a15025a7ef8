package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Metadata is what ffprobe reports about a source before it is converted.
type Metadata struct {
	Filename   string        `json:"filename"`
	Title      string        `json:"title,omitempty"`
	Artist     string        `json:"artist,omitempty"`
	Duration   time.Duration `json:"duration"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	Format     string        `json:"format"`
}

// Label is "Artist - Title" when both tags are set, otherwise the title or
// the file name.
func (m *Metadata) Label() string {
	switch {
	case m.Title != "" && m.Artist != "":
		return m.Artist + " - " + m.Title
	case m.Title != "":
		return m.Title
	}
	return m.Filename
}

type streamInfo struct {
	Format struct {
		Duration string            `json:"duration"`
		Name     string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType     string `json:"codec_type"`
		SampleRate    string `json:"sample_rate"`
		Channels      int    `json:"channels"`
		BitsPerSample int    `json:"bits_per_sample"`
	} `json:"streams"`
}

// tag looks key up case-insensitively; Vorbis and FLAC tags are upper case.
func (d *streamInfo) tag(key string) string {
	for k, v := range d.Format.Tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ReadMetadata asks ffprobe for the first audio stream and the container tags of path.
func ReadMetadata(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-select_streams", "a:0",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	return decodeStreamInfo(path, out)
}

func decodeStreamInfo(path string, out []byte) (*Metadata, error) {
	var doc streamInfo
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	for _, st := range doc.Streams {
		if st.CodecType != "audio" {
			continue
		}
		seconds, _ := strconv.ParseFloat(doc.Format.Duration, 64)
		rate, _ := strconv.Atoi(st.SampleRate)
		return &Metadata{
			Filename:   filepath.Base(path),
			Title:      doc.tag("title"),
			Artist:     doc.tag("artist"),
			Duration:   time.Duration(seconds * float64(time.Second)),
			SampleRate: rate,
			Channels:   st.Channels,
			BitDepth:   st.BitsPerSample,
			Format:     doc.Format.Name,
		}, nil
	}
	return nil, errors.New("no audio stream found")
}

// conversionRate is the rate a non-WAV source is converted to: the requested
// rate, else the source's own rate, else DefaultSampleRate.
func conversionRate(requested int, meta *Metadata) int {
	switch {
	case requested > 0:
		return requested
	case meta != nil && meta.SampleRate > 0:
		return meta.SampleRate
	}
	return DefaultSampleRate
}
