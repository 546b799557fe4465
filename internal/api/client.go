// Package api holds the HTTP clients for the hosted speech and text
// services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/audio"
	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

const uploadTimeout = 10 * time.Minute

// countingReader tallies the bytes streamed into the request body.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// transcriptResponse is the subset of the ElevenLabs speech-to-text reply
// the pipeline reads.
type transcriptResponse struct {
	LanguageCode string `json:"language_code"`
	Text         string `json:"text"`
}

// ElevenLabs recognizes speech with the ElevenLabs speech-to-text API.
type ElevenLabs struct {
	APIKey  string
	URL     string
	Model   string
	TempDir string
	Client  *http.Client
}

var _ backend.Recognizer = (*ElevenLabs)(nil)

// NewElevenLabs returns a recognizer configured from settings.
func NewElevenLabs(settings config.BackendSettings) (*ElevenLabs, error) {
	if settings.ElevenLabsAPIKey == "" {
		return nil, errors.New("elevenlabs API key not set: set NOTEWHISPER_ELEVENLABS_API_KEY or backends.elevenlabs_api_key")
	}
	return &ElevenLabs{
		APIKey: settings.ElevenLabsAPIKey,
		URL:    settings.ElevenLabsURL,
		Model:  settings.ElevenLabsModel,
		Client: &http.Client{Timeout: uploadTimeout},
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Recognize uploads a as a WAV file. A concrete lang is sent as the ISO
// 639-2 language code, otherwise the service detects the language.
func (e *ElevenLabs) Recognize(ctx context.Context, a backend.Audio, lang model.Language) (string, error) {
	path, release, err := audio.TempWAV(e.TempDir, a)
	if err != nil {
		return "", err
	}
	defer release()

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open segment: %w", err)
	}
	defer f.Close()

	// The form streams through a pipe so the segment is never buffered whole.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := writeForm(mw, f, filepath.Base(path), e.Model, lang)
		mw.Close()
		pw.CloseWithError(err)
		errCh <- err
	}()

	body := &countingReader{r: pr}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, body)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, "xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.Client.Do(req)
	if err != nil {
		pr.Close()
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &model.BackendUnavailableError{Backend: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return "", fmt.Errorf("multipart write error: %w", writeErr)
	}
	slog.Debug("segment uploaded", "backend", e.Name(), "bytes", body.n.Load())

	if err := checkStatus(e.Name(), resp); err != nil {
		return "", err
	}

	var transcript transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcript); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(transcript.Text), nil
}

func writeForm(mw *multipart.Writer, f io.Reader, filename, modelID string, lang model.Language) error {
	if err := mw.WriteField("model_id", modelID); err != nil {
		return err
	}
	if err := mw.WriteField("tag_audio_events", "false"); err != nil {
		return err
	}
	if code := lang.ISO3(); code != "" {
		if err := mw.WriteField("language_code", code); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// checkStatus maps rate limiting and server errors to
// *model.BackendUnavailableError. Other non-200 replies are permanent.
func checkStatus(name string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &model.BackendUnavailableError{Backend: name, Err: err}
	}
	return err
}
