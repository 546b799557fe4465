// Package lang assigns a language tag to each audio segment.
package lang

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Scorer estimates, for one segment, how likely each concrete language is.
type Scorer interface {
	Scores(ctx context.Context, seg model.Segment) (map[model.Language]float64, error)
}

// HintScorer reports the declared lecture language with full confidence.
// An Unknown hint yields no mass.
type HintScorer struct {
	Hint model.Language
}

func (h HintScorer) Scores(ctx context.Context, seg model.Segment) (map[model.Language]float64, error) {
	if !h.Hint.Concrete() {
		return map[model.Language]float64{}, nil
	}
	return map[model.Language]float64{h.Hint: 1}, nil
}

// ProbeScorer runs an auto-language recognition pass and scores the script
// mix of the returned text. Code-switched speech shows up as a split between
// Bengali and Latin letters.
type ProbeScorer struct {
	Recognizer backend.Recognizer
}

func (p ProbeScorer) Scores(ctx context.Context, seg model.Segment) (map[model.Language]float64, error) {
	text, err := p.Recognizer.Recognize(ctx, backend.AudioOf(seg), model.Unknown)
	if err != nil {
		return nil, err
	}
	return ScriptScores(text), nil
}

// Detector turns scores into a LanguageTag.
type Detector struct {
	Scorer    Scorer
	Threshold float64
	Margin    float64
	Floor     float64
}

// NewDetector returns a Detector using the thresholds from settings.
func NewDetector(scorer Scorer, settings config.LanguageSettings) *Detector {
	return &Detector{
		Scorer:    scorer,
		Threshold: settings.ConfidenceThreshold,
		Margin:    settings.MixedMargin,
		Floor:     settings.MixedFloor,
	}
}

// Detect never fails: scorer errors yield Unknown.
func (d *Detector) Detect(ctx context.Context, seg model.Segment) model.LanguageTag {
	scores, err := d.Scorer.Scores(ctx, seg)
	if err != nil {
		slog.Warn("language detection failed, using unknown", "segment", seg.Index, "err", err)
		return model.LanguageTag{Language: model.Unknown}
	}
	tag := d.Classify(scores)
	slog.Debug("language detected", "segment", seg.Index, "language", tag.Language, "confidence", tag.Confidence)
	return tag
}

type scored struct {
	lang  model.Language
	score float64
}

// Classify applies the detection policy:
//   - no mass at all: Unknown
//   - top two within Margin, runner-up at least Floor: Mixed
//   - top below Threshold: Unknown
//   - otherwise the top language
func (d *Detector) Classify(scores map[model.Language]float64) model.LanguageTag {
	ranked := make([]scored, 0, len(scores))
	for l, s := range scores {
		if l.Concrete() {
			ranked = append(ranked, scored{l, clamp01(s)})
		}
	}
	// Ties resolve by language code so the verdict is stable.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].lang < ranked[j].lang
	})

	if len(ranked) == 0 || ranked[0].score == 0 {
		return model.LanguageTag{Language: model.Unknown}
	}
	top := ranked[0]

	if len(ranked) > 1 {
		second := ranked[1]
		if second.score >= d.Floor && top.score-second.score <= d.Margin {
			return model.LanguageTag{Language: model.Mixed, Confidence: math.Min(top.score+second.score, 1)}
		}
	}
	if top.score < d.Threshold {
		return model.LanguageTag{Language: model.Unknown, Confidence: top.score}
	}
	return model.LanguageTag{Language: top.lang, Confidence: top.score}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
