// Package whisper runs a local Whisper command line as a speech recognizer.
package whisper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maria2021831011/NoteWhisper/internal/audio"
	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

type (
	transcribeResult struct {
		Segments []segment `json:"segments"`
	}

	segment struct {
		Text  string          `json:"text"`
		Start decimal.Decimal `json:"start"`
		End   decimal.Decimal `json:"end"`
	}
)

// Recognizer shells out to a whisper executable that writes JSON results.
type Recognizer struct {
	Command string
	Model   string
	TempDir string
}

var _ backend.Recognizer = (*Recognizer)(nil)

func (w *Recognizer) Name() string { return "whisper" }

// Recognize writes a to a temporary WAV file and runs whisper on it.
// Segments that start after the end of the audio are dropped.
func (w *Recognizer) Recognize(ctx context.Context, a backend.Audio, lang model.Language) (string, error) {
	outDir, err := os.MkdirTemp(w.TempDir, "notewhisper_whisper_*")
	if err != nil {
		return "", fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	wavPath, release, err := audio.TempWAV(outDir, a)
	if err != nil {
		return "", err
	}
	defer release()

	args := []string{wavPath,
		"--model", w.Model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--fp16", "False",
		"--verbose", "False",
	}
	if lang.Concrete() {
		args = append(args, "--language", string(lang))
	}

	cmd := exec.CommandContext(ctx, w.Command, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("whisper command %q not found", w.Command)
		}
		return "", fmt.Errorf("start whisper: %w", err)
	}

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.Debug("whisper", "line", scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// A crashed or killed run may succeed on retry.
		return "", &model.BackendUnavailableError{
			Backend: w.Name(),
			Err:     fmt.Errorf("transcribing with whisper: %w", err),
		}
	}

	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	resultFile, err := os.Open(filepath.Join(outDir, base+".json"))
	if err != nil {
		return "", fmt.Errorf("opening whisper transcribe result: %w", err)
	}
	defer resultFile.Close()

	var tr transcribeResult
	if err := json.NewDecoder(resultFile).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding whisper json result: %w", err)
	}
	return joinSegments(tr.Segments, decimal.NewFromFloat(a.Duration().Seconds())), nil
}

// joinSegments concatenates the text of segments starting before limit.
func joinSegments(segs []segment, limit decimal.Decimal) string {
	var parts []string
	for _, s := range segs {
		if s.Start.GreaterThanOrEqual(limit) {
			continue
		}
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
