// Package audio decodes lecture recordings and splits them into segments.
package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/maria2021831011/NoteWhisper/internal/b3"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/ffmpeg"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Ingestor validates lecture audio and segments it.
type Ingestor struct {
	Settings config.IngestSettings
	// TempDir receives intermediate WAV files for formats decoded by ffmpeg.
	TempDir string
}

// NewIngestor returns an Ingestor for the given settings.
func NewIngestor(settings config.IngestSettings) *Ingestor {
	return &Ingestor{Settings: settings}
}

// Ingest decodes path, checks its duration bounds and splits it into
// segments. Every failure is an *model.IngestionError.
func (in *Ingestor) Ingest(ctx context.Context, path string, declared model.Language) (*model.LectureAudio, []model.Segment, error) {
	fail := func(reason string, err error) (*model.LectureAudio, []model.Segment, error) {
		return nil, nil, &model.IngestionError{Path: path, Reason: reason, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail("unreadable", err)
	}
	hash, err := b3.HashReader(f)
	f.Close()
	if err != nil {
		return fail("unreadable", err)
	}

	samples, rate, err := in.decodeFile(ctx, path)
	if err != nil {
		return fail("decode", err)
	}

	duration := SampleDuration(len(samples), rate)
	if len(samples) == 0 || duration == 0 {
		return fail("empty audio", nil)
	}
	maxDuration := time.Duration(in.Settings.MaxDurationSeconds * float64(time.Second))
	if duration > maxDuration {
		return fail(fmt.Sprintf("duration %s exceeds maximum %s", duration.Round(time.Second), maxDuration), nil)
	}

	lecture := &model.LectureAudio{
		Path:             path,
		Hash:             hash,
		Duration:         duration,
		SampleRate:       rate,
		DeclaredLanguage: declared,
		Samples:          samples,
	}

	segments := NewSegmenter(in.Settings, rate).Split(samples, rate)

	slog.Info("audio ingested",
		"file", filepath.Base(path),
		"duration", duration.Round(time.Millisecond),
		"sample_rate", rate,
		"segments", len(segments))
	return lecture, segments, nil
}

func (in *Ingestor) decodeFile(ctx context.Context, path string) ([]float32, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		defer f.Close()
		return in.decode(wav.Decode(f))
	case ".mp3":
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		// On success the streamer owns f and its Close releases it.
		s, format, err := mp3.Decode(f)
		if err != nil {
			f.Close()
			return nil, 0, err
		}
		return in.decode(s, format, nil)
	}

	if !ffmpeg.Available() {
		return nil, 0, fmt.Errorf("unsupported format %s without ffmpeg", filepath.Ext(path))
	}
	// Reject long recordings before paying for the conversion.
	info, err := ffmpeg.ProbeMedia(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	if limit := time.Duration(in.Settings.MaxDurationSeconds * float64(time.Second)); info.Duration > limit {
		return nil, 0, fmt.Errorf("duration %s exceeds maximum %s", info.Duration.Round(time.Second), limit)
	}
	wavPath, err := ffmpeg.ConvertToWAV(ctx, path, in.TempDir)
	if err != nil {
		return nil, 0, err
	}
	defer os.Remove(wavPath)

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return in.decode(wav.Decode(f))
}

// decode drains a beep stream into mono float32 samples, rejecting streams
// whose declared length already exceeds the duration limit.
func (in *Ingestor) decode(s beep.StreamSeekCloser, format beep.Format, err error) ([]float32, int, error) {
	if err != nil {
		return nil, 0, err
	}
	defer s.Close()

	rate := int(format.SampleRate)
	if rate <= 0 {
		return nil, 0, fmt.Errorf("invalid sample rate %d", rate)
	}
	if n := s.Len(); n > 0 {
		limit := int(in.Settings.MaxDurationSeconds * float64(rate))
		if n > limit {
			return nil, 0, fmt.Errorf("duration %s exceeds maximum %.0fs",
				SampleDuration(n, rate).Round(time.Second), in.Settings.MaxDurationSeconds)
		}
	}

	samples, err := ReadMono(s, s.Len())
	if err != nil {
		return nil, 0, err
	}
	return samples, rate, nil
}

// ReadMono drains s, averaging the two channels. sizeHint preallocates.
func ReadMono(s beep.Streamer, sizeHint int) ([]float32, error) {
	out := make([]float32, 0, max(sizeHint, 0))
	buf := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			out = append(out, float32((frame[0]+frame[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return out, nil
}
