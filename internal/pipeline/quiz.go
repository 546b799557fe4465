package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

const blank = "_____"

// QuizBuilder turns keypoints into fill-in-the-blank questions.
type QuizBuilder struct {
	Size            int
	MinSize         int
	DistractorCount int
	Seed            uint64
	// Rephraser, when set, rewrites template questions.
	Rephraser backend.Generator
}

// NewQuizBuilder configures a QuizBuilder. gen is only used when
// settings.Rephrase is set.
func NewQuizBuilder(settings config.QuizSettings, gen backend.Generator) *QuizBuilder {
	q := &QuizBuilder{
		Size:            settings.QuizSize,
		MinSize:         settings.MinQuizSize,
		DistractorCount: settings.DistractorCount,
		Seed:            settings.Seed,
	}
	if settings.Rephrase {
		q.Rephraser = gen
	}
	return q
}

// Build returns one question per keypoint, taken in salience order, and
// any degraded units. Every item references exactly one input keypoint.
// Returns *model.GenerationError when fewer than MinSize questions result.
func (q *QuizBuilder) Build(ctx context.Context, kps []model.Keypoint) ([]model.QuizItem, []model.Unit, error) {
	if len(kps) < q.MinSize {
		return nil, nil, &model.GenerationError{
			Stage:  "quiz",
			Reason: fmt.Sprintf("%d keypoints, need at least %d", len(kps), q.MinSize),
		}
	}

	var (
		items []model.QuizItem
		units []model.Unit
		used  = make(map[string]struct{})
	)
	for i, kp := range kps {
		if len(items) >= q.Size {
			break
		}
		if _, dup := used[kp.ID]; dup {
			continue
		}
		used[kp.ID] = struct{}{}

		item := q.item(i, kp, kps)
		item.Number = len(items) + 1

		if q.Rephraser != nil {
			question, err := q.rephrase(ctx, item, kp)
			if err != nil {
				slog.Warn("question rephrase failed, keeping template", "keypoint", kp.ID, "err", err)
				units = append(units, model.Unit{Stage: model.StageQuiz, Unit: kp.ID, Reason: err.Error()})
			} else {
				item.Question = question
			}
		}
		items = append(items, item)
	}

	if len(items) < q.MinSize {
		return nil, units, &model.GenerationError{
			Stage:  "quiz",
			Reason: fmt.Sprintf("generated %d questions, need at least %d", len(items), q.MinSize),
		}
	}
	return items, units, nil
}

// item builds the template question for kp. index seeds the distractor
// shuffle so each question is stable on its own.
func (q *QuizBuilder) item(index int, kp model.Keypoint, all []model.Keypoint) model.QuizItem {
	item := model.QuizItem{
		Explanation: kp.Text,
		KeypointIDs: []string{kp.ID},
	}

	question, answer, ok := cloze(kp)
	if !ok {
		item.Question = fmt.Sprintf(templates(kp.Language).open, kp.Text)
		item.Answer = kp.Text
		item.Distractors = q.distractors(index, kp, all, func(o model.Keypoint) []string {
			return []string{o.Text}
		})
		return item
	}

	item.Question = fmt.Sprintf(templates(kp.Language).cloze, question)
	item.Answer = answer
	item.Distractors = q.distractors(index, kp, all, func(o model.Keypoint) []string {
		return o.Terms
	})
	return item
}

// cloze blanks the first occurrence of kp's top term. ok is false when kp
// has no term that appears as a word of its text.
func cloze(kp model.Keypoint) (question, answer string, ok bool) {
	if len(kp.Terms) == 0 {
		return "", "", false
	}
	target := kp.Terms[0]
	for _, tok := range tokenize(kp.Text, 0) {
		if termOf(tok.Text) != target {
			continue
		}
		start, end := coreBounds(tok.Text)
		answer = tok.Text[start:end]
		question = kp.Text[:tok.Start+start] + blank + kp.Text[tok.Start+end:]
		return question, answer, true
	}
	return "", "", false
}

// distractors draws wrong answers from the other keypoints. Candidates
// equal to an answer term of kp are skipped.
func (q *QuizBuilder) distractors(index int, kp model.Keypoint, all []model.Keypoint, pick func(model.Keypoint) []string) []string {
	if q.DistractorCount <= 0 {
		return nil
	}
	exclude := make(map[string]struct{})
	for _, t := range kp.Terms {
		exclude[strings.ToLower(t)] = struct{}{}
	}
	exclude[strings.ToLower(kp.Text)] = struct{}{}

	var pool []string
	for _, o := range all {
		if o.ID == kp.ID {
			continue
		}
		for _, c := range pick(o) {
			key := strings.ToLower(c)
			if _, seen := exclude[key]; seen || c == "" {
				continue
			}
			exclude[key] = struct{}{}
			pool = append(pool, c)
		}
	}

	rng := rand.New(rand.NewPCG(q.Seed, uint64(index)))
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > q.DistractorCount {
		pool = pool[:q.DistractorCount]
	}
	return pool
}

func (q *QuizBuilder) rephrase(ctx context.Context, item model.QuizItem, kp model.Keypoint) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite this quiz question in %s as one clear question whose answer is %q. "+
			"Do not include the answer. Reply with the question only.\n\nQuestion: %s\nSource: %s",
		languageName(kp.Language), item.Answer, item.Question, kp.Text)
	text, err := q.Rephraser.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = collapseSpace(text)
	switch {
	case text == "":
		return "", fmt.Errorf("empty rephrase")
	case strings.Contains(strings.ToLower(text), strings.ToLower(item.Answer)):
		return "", fmt.Errorf("rephrase reveals the answer")
	}
	return text, nil
}

type questionTemplates struct {
	cloze string
	open  string
}

func templates(l model.Language) questionTemplates {
	if l == model.Bangla {
		return questionTemplates{
			cloze: "শূন্যস্থান পূরণ করো: %s",
			open:  "নিচের বিষয়টি ব্যাখ্যা করো: %s",
		}
	}
	return questionTemplates{
		cloze: "Fill in the blank: %s",
		open:  "What is: %s?",
	}
}

func languageName(l model.Language) string {
	if l == model.Bangla {
		return "Bangla"
	}
	return "English"
}
