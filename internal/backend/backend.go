// Package backend defines the call contracts for the opaque inference
// services the pipeline depends on.
package backend

import (
	"context"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Audio is mono PCM audio handed to a recognizer.
type Audio struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback length of a.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// AudioOf returns the audio slice of seg.
func AudioOf(seg model.Segment) Audio {
	return Audio{Samples: seg.Samples, SampleRate: seg.SampleRate}
}

// Recognizer converts speech to text. lang is Unknown when the backend should
// identify the language itself. Transient failures are returned as
// *model.BackendUnavailableError.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, audio Audio, lang model.Language) (string, error)
}

// Generator produces text for a prompt. Implementations must be
// deterministic for identical prompts.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
