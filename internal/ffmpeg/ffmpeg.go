// Package ffmpeg wraps the ffmpeg and ffprobe executables for formats the
// audio package cannot decode natively.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SampleRate is the rate ConvertToWAV resamples to.
const SampleRate = 16000

// MediaInfo describes the first audio stream of a file.
type MediaInfo struct {
	Duration   time.Duration
	Codec      string
	SampleRate int
	Channels   int
}

// Available reports whether both ffmpeg and ffprobe are on the PATH.
func Available() bool {
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(name); err != nil {
			return false
		}
	}
	return true
}

type probeOutput struct {
	Format struct {
		Duration decimal.Decimal `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// ProbeMedia reads the container duration and first audio stream of path.
// Returns an error when path has no audio stream.
func ProbeMedia(ctx context.Context, path string) (*MediaInfo, error) {
	out, err := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels:format=duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	info, err := parseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return info, nil
}

func parseProbe(out []byte) (*MediaInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio stream")
	}

	stream := probe.Streams[0]
	info := &MediaInfo{
		Duration: time.Duration(probe.Format.Duration.Shift(3).IntPart()) * time.Millisecond,
		Codec:    stream.CodecName,
		Channels: stream.Channels,
	}
	fmt.Sscanf(stream.SampleRate, "%d", &info.SampleRate)
	return info, nil
}

// ConvertToWAV decodes any ffmpeg-readable input into mono PCM WAV at
// SampleRate in dir and returns the output path. The caller removes the file.
func ConvertToWAV(ctx context.Context, inputPath, dir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out, err := os.CreateTemp(dir, "notewhisper_"+base+"_*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	outputPath := out.Name()
	out.Close()

	slog.Debug("converting audio", "input", filepath.Base(inputPath), "output", filepath.Base(outputPath))

	cmd := exec.CommandContext(ctx,
		"ffmpeg", "-y", "-i", inputPath,
		"-vn", "-ac", "1", "-ar", fmt.Sprint(SampleRate),
		"-f", "wav",
		outputPath,
	)
	if combined, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg convert failed: %w\n%s", err, combined)
	}
	return outputPath, nil
}

// IsVideoExtension reports whether ext names a video container whose audio
// track must be extracted first.
func IsVideoExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".mkv", ".mov", ".avi", ".webm":
		return true
	}
	return false
}

// LogMediaInfo logs the size of path and, when ffprobe can read it, its
// audio stream. It returns nil when probing fails.
func LogMediaInfo(ctx context.Context, path string) *MediaInfo {
	stat, err := os.Stat(path)
	if err != nil {
		slog.Warn("cannot stat input", "path", path, "err", err)
		return nil
	}
	attrs := []any{"file", filepath.Base(path), "size_mb", fmt.Sprintf("%.2f", float64(stat.Size())/(1<<20))}

	var info *MediaInfo
	if Available() {
		if info, err = ProbeMedia(ctx, path); err == nil {
			attrs = append(attrs,
				"duration", info.Duration.Round(time.Second),
				"codec", info.Codec,
				"sample_rate", info.SampleRate,
				"channels", info.Channels)
		} else {
			slog.Debug("probe failed", "err", err)
			info = nil
		}
	}
	slog.Info("media info", attrs...)
	return info
}
