package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

func writeWAV(t *testing.T, name string, samples []float32, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := EncodeWAV(f, backend.Audio{Samples: samples, SampleRate: rate}); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return path
}

func TestIngest_WAV(t *testing.T) {
	rate := 8000
	samples := concat(tone(3*rate), silence(rate), tone(3*rate))
	path := writeWAV(t, "lecture.wav", samples, rate)

	settings := testSettings()
	in := NewIngestor(settings)
	lecture, segs, err := in.Ingest(context.Background(), path, model.English)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if lecture.SampleRate != rate {
		t.Errorf("SampleRate = %d, want %d", lecture.SampleRate, rate)
	}
	if lecture.Duration != 7*time.Second {
		t.Errorf("Duration = %v, want 7s", lecture.Duration)
	}
	if lecture.DeclaredLanguage != model.English {
		t.Errorf("DeclaredLanguage = %v, want en", lecture.DeclaredLanguage)
	}
	if len(lecture.Hash) != 64 {
		t.Errorf("Hash = %q, want 64 hex chars", lecture.Hash)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[1].End != lecture.Duration {
		t.Errorf("last segment ends at %v, want %v", segs[1].End, lecture.Duration)
	}
}

func TestIngest_SameFileSameHash(t *testing.T) {
	samples := tone(4000)
	a := writeWAV(t, "a.wav", samples, 8000)
	b := writeWAV(t, "b.wav", samples, 8000)

	in := NewIngestor(testSettings())
	la, _, err := in.Ingest(context.Background(), a, model.Unknown)
	if err != nil {
		t.Fatal(err)
	}
	lb, _, err := in.Ingest(context.Background(), b, model.Unknown)
	if err != nil {
		t.Fatal(err)
	}
	if la.Hash != lb.Hash {
		t.Error("identical audio produced different hashes")
	}
}

func TestIngest_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	settings := testSettings()
	settings.MaxDurationSeconds = 1

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.wav")},
		{"garbage", garbage},
		{"empty", writeWAV(t, "empty.wav", nil, 8000)},
		{"too long", writeWAV(t, "long.wav", tone(16000), 8000)},
	}

	in := NewIngestor(settings)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lecture, segs, err := in.Ingest(context.Background(), tt.path, model.Unknown)
			var ingestErr *model.IngestionError
			if !errors.As(err, &ingestErr) {
				t.Fatalf("err = %v, want *IngestionError", err)
			}
			if lecture != nil || segs != nil {
				t.Errorf("expected no audio and no segments, got %v, %d", lecture, len(segs))
			}
		})
	}
}
