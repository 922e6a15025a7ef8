package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/sonicprint/pkg/utils"
)

type ConvertConfig struct {
	SampleRate int // e.g. 22050, 44100
}

// ConvertToMonoWAV converts any ffmpeg-readable file to mono 16-bit PCM WAV
// in outputDir and returns the new path.
func ConvertToMonoWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertConfig) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := utils.ScratchPath(outputDir, "converted", base+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

type LoadConfig struct {
	TempDir string
	// SampleRate of converted sources; 0 keeps the source's own rate.
	SampleRate int
}

// Load opens path as a Track. WAV files are decoded directly; anything else
// is read with ffprobe and converted with ffmpeg first, and keeps the source
// tags in Track.Meta. Every failure wraps ErrLoad.
func Load(ctx context.Context, path string, cfg LoadConfig) (*Track, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	src := path
	var meta *Metadata
	if !IsWAV(path) {
		var err error
		if meta, err = ReadMetadata(ctx, path); err != nil {
			return nil, fmt.Errorf("%w: reading metadata of %s: %w", ErrLoad, filepath.Base(path), err)
		}
		dir := cfg.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		converted, err := ConvertToMonoWAV(ctx, path, dir, ConvertConfig{SampleRate: conversionRate(cfg.SampleRate, meta)})
		if err != nil {
			return nil, fmt.Errorf("%w: converting %s: %w", ErrLoad, filepath.Base(path), err)
		}
		defer os.Remove(converted)
		src = converted
	}

	t, err := ReadWAV(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	t.Name = filepath.Base(path)
	t.Meta = meta
	if len(t.Samples) == 0 || t.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %s contains no audio", ErrLoad, t.Name)
	}
	return t, nil
}
