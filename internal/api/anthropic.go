package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

const (
	anthropicVersion = "2023-06-01"
	generateTimeout  = 2 * time.Minute
	maxTokens        = 1024
)

const systemPrompt = "You help students study recorded lectures given in Bangla, English or a mix of both. " +
	"Stay faithful to the lecture content and answer in the requested language."

// Anthropic generates text with the Anthropic Messages API. Requests use
// temperature 0 so identical prompts give identical replies.
type Anthropic struct {
	APIKey string
	URL    string
	Model  string
	Client *http.Client
}

var _ backend.Generator = (*Anthropic)(nil)

// NewAnthropic returns a generator configured from settings.
func NewAnthropic(settings config.BackendSettings) (*Anthropic, error) {
	if settings.AnthropicAPIKey == "" {
		return nil, errors.New("anthropic API key not set: set NOTEWHISPER_ANTHROPIC_API_KEY or backends.anthropic_api_key")
	}
	return &Anthropic{
		APIKey: settings.AnthropicAPIKey,
		URL:    settings.AnthropicURL,
		Model:  settings.AnthropicModel,
		Client: &http.Client{Timeout: generateTimeout},
	}, nil
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := 0.0
	reqBody := anthropicRequest{
		Model:       a.Model,
		MaxTokens:   maxTokens,
		System:      systemPrompt,
		Temperature: &temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	setHeaders(req, "x-api-key", a.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &model.BackendUnavailableError{Backend: a.Name(), Err: fmt.Errorf("calling Anthropic API: %w", err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(a.Name(), resp); err != nil {
		return "", err
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("parsing Anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("empty response from Anthropic API")
	}
	return strings.TrimSpace(text.String()), nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
