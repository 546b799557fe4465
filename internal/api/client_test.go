package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

func testAudio() backend.Audio {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.25
	}
	return backend.Audio{Samples: samples, SampleRate: 16000}
}

func testElevenLabs(t *testing.T, url string) *ElevenLabs {
	t.Helper()
	settings := config.Default().Backends
	settings.ElevenLabsAPIKey = "test-key"
	settings.ElevenLabsURL = url
	e, err := NewElevenLabs(settings)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	e.TempDir = t.TempDir()
	return e
}

func TestElevenLabs_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.FormValue("language_code"); got != "ben" {
			t.Errorf("language_code = %q, want ben", got)
		}
		if got := r.FormValue("model_id"); got != "scribe_v1" {
			t.Errorf("model_id = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if !strings.HasPrefix(string(data), "RIFF") || !strings.HasSuffix(header.Filename, ".wav") {
			t.Errorf("upload is not a wav file: %q", header.Filename)
		}
		json.NewEncoder(w).Encode(map[string]string{"language_code": "ben", "text": "  আমরা পড়ি  "})
	}))
	defer srv.Close()

	text, err := testElevenLabs(t, srv.URL).Recognize(context.Background(), testAudio(), model.Bangla)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "আমরা পড়ি" {
		t.Errorf("text = %q", text)
	}
}

func TestElevenLabs_UnknownLanguageOmitsCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if _, ok := r.MultipartForm.Value["language_code"]; ok {
			t.Error("language_code sent for unknown language")
		}
		w.Write([]byte(`{"text":"hello"}`))
	}))
	defer srv.Close()

	if _, err := testElevenLabs(t, srv.URL).Recognize(context.Background(), testAudio(), model.Unknown); err != nil {
		t.Fatal(err)
	}
}

func TestElevenLabs_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			http.Error(w, "nope", tt.status)
		}))
		_, err := testElevenLabs(t, srv.URL).Recognize(context.Background(), testAudio(), model.English)
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if got := model.IsTransient(err); got != tt.transient {
			t.Errorf("status %d: transient = %v, want %v (%v)", tt.status, got, tt.transient, err)
		}
	}
}

func TestElevenLabs_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testElevenLabs(t, url).Recognize(context.Background(), testAudio(), model.English)
	if !model.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestNewElevenLabs_RequiresKey(t *testing.T) {
	if _, err := NewElevenLabs(config.Default().Backends); err == nil {
		t.Error("expected error without API key")
	}
}

func TestAnthropic_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("headers = %v", r.Header)
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Errorf("temperature = %v, want 0", req.Temperature)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "summarize this" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"Force changes motion. "},{"type":"text","text":"Inertia resists."}]}`))
	}))
	defer srv.Close()

	settings := config.Default().Backends
	settings.AnthropicAPIKey = "k"
	settings.AnthropicURL = srv.URL
	gen, err := NewAnthropic(settings)
	if err != nil {
		t.Fatal(err)
	}
	text, err := gen.Generate(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Force changes motion. Inertia resists." {
		t.Errorf("text = %q", text)
	}
}

func TestAnthropic_Overloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
	}))
	defer srv.Close()

	gen := &Anthropic{APIKey: "k", URL: srv.URL, Model: "m", Client: srv.Client()}
	if _, err := gen.Generate(context.Background(), "x"); !model.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}
