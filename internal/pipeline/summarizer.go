package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Summary strategies.
const (
	StrategyExtractive  = "extractive"
	StrategyAbstractive = "abstractive"
)

// keypointBonus lifts sentences inside a keypoint span.
const keypointBonus = 0.25

// Summarizer condenses a transcript and its keypoints into a bounded summary.
type Summarizer struct {
	Bound     model.LengthBound
	Strategy  string
	Generator backend.Generator
	Weights   Weights
}

// NewSummarizer configures a Summarizer. gen may be nil for extractive
// summaries.
func NewSummarizer(settings config.SummarySettings, kp config.KeypointSettings, gen backend.Generator) (*Summarizer, error) {
	bound, err := settings.Bound()
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		Bound:     bound,
		Strategy:  strings.ToLower(settings.Strategy),
		Generator: gen,
		Weights:   NewExtractor(kp).Weights,
	}, nil
}

// Summarize returns the summary and any degraded units. An abstractive
// failure falls back to extraction and is reported as a unit. Returns
// *model.GenerationError when no sentence fits the bound.
func (s *Summarizer) Summarize(ctx context.Context, tr *model.Transcript, kps []model.Keypoint) (*model.Summary, []model.Unit, error) {
	var units []model.Unit
	if s.Strategy == StrategyAbstractive {
		sum, err := s.abstractive(ctx, kps)
		if err == nil {
			return sum, nil, nil
		}
		slog.Warn("abstractive summary failed, falling back to extractive", "err", err)
		units = append(units, model.Unit{Stage: model.StageSummarize, Unit: "abstractive", Reason: err.Error()})
	}

	sum, err := s.extractive(tr, kps)
	if err != nil {
		return nil, units, err
	}
	return sum, units, nil
}

func (s *Summarizer) extractive(tr *model.Transcript, kps []model.Keypoint) (*model.Summary, error) {
	if tr == nil {
		return nil, &model.GenerationError{Stage: "summary", Reason: "no transcript"}
	}
	doc := newDocument(tr, 1)
	if len(doc.Sentences) == 0 {
		return nil, &model.GenerationError{Stage: "summary", Reason: "transcript has no recognized text"}
	}

	ranked := make([]candidate, len(doc.Sentences))
	for i, sent := range doc.Sentences {
		c := candidate{Span: sent.Span, Text: sent.Text, First: i, Last: i}
		doc.score(&c, s.Weights)
		for _, kp := range kps {
			if c.Span.Overlap(kp.Span) > 0 {
				c.Salience += keypointBonus
				break
			}
		}
		ranked[i] = c
	}
	sortCandidates(ranked)

	// Greedy in salience order; a sentence that would overflow the bound is
	// skipped so shorter ones further down can still be taken.
	var chosen []candidate
	var texts []string
	for _, c := range ranked {
		if !fits(append(texts, c.Text), s.Bound) {
			continue
		}
		texts = append(texts, c.Text)
		chosen = append(chosen, c)
	}
	if len(chosen) == 0 {
		return nil, &model.GenerationError{
			Stage:  "summary",
			Reason: fmt.Sprintf("no sentence fits within %s", s.Bound),
		}
	}

	sort.Slice(chosen, func(i, j int) bool {
		return chosen[i].Span.Start < chosen[j].Span.Start
	})
	sum := &model.Summary{Bound: s.Bound, Strategy: StrategyExtractive}
	for _, c := range chosen {
		sum.Sentences = append(sum.Sentences, c.Text)
	}
	return sum, nil
}

func (s *Summarizer) abstractive(ctx context.Context, kps []model.Keypoint) (*model.Summary, error) {
	if s.Generator == nil {
		return nil, &model.GenerationError{Stage: "summary", Reason: "no generator configured"}
	}
	if len(kps) == 0 {
		return nil, &model.GenerationError{Stage: "summary", Reason: "no keypoints"}
	}

	text, err := s.Generator.Generate(ctx, summaryPrompt(kps, s.Bound))
	if err != nil {
		return nil, &model.GenerationError{Stage: "summary", Reason: "generator failed", Err: err}
	}

	var sentences []string
	for _, sent := range splitSentences(strings.TrimSpace(text), 0) {
		sentences = append(sentences, sent.Text)
	}
	for len(sentences) > 0 && !fits(sentences, s.Bound) {
		sentences = sentences[:len(sentences)-1]
	}
	if len(sentences) == 0 {
		return nil, &model.GenerationError{Stage: "summary", Reason: "generator output does not fit the bound"}
	}
	return &model.Summary{Sentences: sentences, Bound: s.Bound, Strategy: StrategyAbstractive}, nil
}

// fits reports whether sentences joined by single spaces respect bound.
func fits(sentences []string, bound model.LengthBound) bool {
	if bound.Unit == model.BoundSentences {
		return len(sentences) <= bound.Limit
	}
	return utf8.RuneCountInString(strings.Join(sentences, " ")) <= bound.Limit
}

func summaryPrompt(kps []model.Keypoint, bound model.LengthBound) string {
	var b strings.Builder
	language := "English"
	if majorityBangla(kps) {
		language = "Bangla"
	}
	fmt.Fprintf(&b, "Write a concise study summary of a lecture in %s.\n", language)
	if bound.Unit == model.BoundSentences {
		fmt.Fprintf(&b, "Use at most %d sentences.\n", bound.Limit)
	} else {
		fmt.Fprintf(&b, "Use at most %d characters.\n", bound.Limit)
	}
	b.WriteString("Only use facts from these key points. Reply with the summary text only.\n\n")
	for _, kp := range kps {
		fmt.Fprintf(&b, "- %s\n", kp.Text)
	}
	return b.String()
}

func majorityBangla(kps []model.Keypoint) bool {
	bn := 0
	for _, kp := range kps {
		if kp.Language == model.Bangla {
			bn++
		}
	}
	return bn*2 > len(kps)
}
