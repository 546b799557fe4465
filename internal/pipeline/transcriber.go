package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Transcriber routes one segment to a language backend and retries
// transient failures. It never fails: exhausted segments come back as
// degraded fragments.
type Transcriber struct {
	Backends map[model.Language]backend.Recognizer
	Fallback []model.Language
	// MaxAttempts is the number of calls made to each backend before
	// moving on to the next one.
	MaxAttempts int
	Backoff     time.Duration
	Limiter     *rate.Limiter
}

// NewTranscriber builds a Transcriber from settings. A non-positive rate
// disables rate limiting.
func NewTranscriber(backends map[model.Language]backend.Recognizer, fallback []model.Language, settings config.TranscriptionSettings) *Transcriber {
	limit := rate.Inf
	if settings.RateLimitPerMin > 0 {
		limit = rate.Limit(float64(settings.RateLimitPerMin) / 60.0)
	}
	return &Transcriber{
		Backends:    backends,
		Fallback:    fallback,
		MaxAttempts: max(settings.RetryLimit, 0) + 1,
		Backoff:     settings.RetryBackoff(),
		Limiter:     rate.NewLimiter(limit, 1),
	}
}

// route returns the languages to try for tag, in order.
func (t *Transcriber) route(tag model.LanguageTag) []model.Language {
	if tag.Language.Concrete() {
		if _, ok := t.Backends[tag.Language]; ok {
			return []model.Language{tag.Language}
		}
	}
	var langs []model.Language
	for _, l := range t.Fallback {
		if _, ok := t.Backends[l]; ok {
			langs = append(langs, l)
		}
	}
	return langs
}

// Transcribe recognizes seg. The returned fragment carries the segment's
// ordinal and time range.
func (t *Transcriber) Transcribe(ctx context.Context, seg model.Segment, tag model.LanguageTag) model.Fragment {
	frag := model.Fragment{
		Ordinal: seg.Index,
		Start:   seg.Start,
		End:     seg.End,
		Tag:     tag,
	}

	langs := t.route(tag)
	if len(langs) == 0 {
		return degrade(frag, &model.TranscriptionError{
			Segment: seg.Index,
			Err:     fmt.Errorf("no backend configured for language %s", tag.Language),
		})
	}

	audio := backend.AudioOf(seg)
	attempts := 0
	var errs []error
	for _, l := range langs {
		rec := t.Backends[l]
		text, n, err := t.recognize(ctx, rec, audio, l, seg.Index)
		attempts += n
		if err == nil {
			frag.Text = text
			frag.Backend = rec.Name()
			return frag
		}
		errs = append(errs, fmt.Errorf("%s: %w", rec.Name(), err))
		if ctx.Err() != nil {
			break
		}
		if len(langs) > 1 {
			slog.Warn("backend failed, trying next language", "segment", seg.Index, "backend", rec.Name(), "err", err)
		}
	}

	return degrade(frag, &model.TranscriptionError{
		Segment:  seg.Index,
		Attempts: attempts,
		Err:      errors.Join(errs...),
	})
}

// recognize calls rec up to MaxAttempts times with exponential backoff.
// Only transient errors are retried. It returns the number of calls made.
func (t *Transcriber) recognize(ctx context.Context, rec backend.Recognizer, audio backend.Audio, l model.Language, index int) (string, int, error) {
	var lastErr error
	for attempt := 0; attempt < t.MaxAttempts; attempt++ {
		if err := t.Limiter.Wait(ctx); err != nil {
			return "", attempt, fmt.Errorf("rate limiter: %w", err)
		}

		text, err := rec.Recognize(ctx, audio, l)
		if err == nil {
			return text, attempt + 1, nil
		}
		lastErr = err
		if !model.IsTransient(err) {
			return "", attempt + 1, err
		}

		if attempt < t.MaxAttempts-1 {
			backoff := t.Backoff << uint(attempt)
			slog.Warn("segment failed, retrying",
				"segment", index,
				"backend", rec.Name(),
				"attempt", attempt+1,
				"backoff", backoff,
				"err", err)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", attempt + 1, errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}
		}
	}
	return "", t.MaxAttempts, lastErr
}

func degrade(frag model.Fragment, err *model.TranscriptionError) model.Fragment {
	slog.Warn("segment degraded", "segment", frag.Ordinal, "err", err)
	frag.Degraded = true
	frag.Text = ""
	frag.Reason = err.Error()
	return frag
}
