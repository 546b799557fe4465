package model

import (
	"errors"
	"fmt"
)

// IngestionError reports unreadable, empty or oversized audio.
type IngestionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s", e.Path, e.Reason)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// TranscriptionError reports a segment whose recognition attempts were
// exhausted. It is recorded on a degraded fragment, not returned from a run.
type TranscriptionError struct {
	Segment  int
	Attempts int
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("segment %d: transcription failed after %d attempts: %v", e.Segment, e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ExtractionError reports that no keypoints could be extracted.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "extract keypoints: " + e.Reason
}

// GenerationError reports a summary or quiz stage that produced nothing.
type GenerationError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// BackendUnavailableError marks a transient backend failure that may succeed
// on retry.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// IsTransient reports whether err wraps a BackendUnavailableError.
func IsTransient(err error) bool {
	var unavailable *BackendUnavailableError
	return errors.As(err, &unavailable)
}
