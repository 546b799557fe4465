package pipeline

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/lang"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// maxKeypointTerms caps the terms kept on each keypoint.
const maxKeypointTerms = 5

// keypointNamespace scopes keypoint IDs.
var keypointNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("notewhisper.keypoint"))

// Extractor selects the most salient non-overlapping spans of a transcript.
type Extractor struct {
	MaxKeypoints     int
	MaxSpanSentences int
	MinSentenceWords int
	OverlapThreshold float64
	MinDistance      float64
	Weights          Weights
}

// Weights combine the salience signals of a candidate.
type Weights struct {
	Term     float64
	Position float64
	Cue      float64
}

// NewExtractor returns an Extractor configured from settings.
func NewExtractor(settings config.KeypointSettings) *Extractor {
	return &Extractor{
		MaxKeypoints:     settings.MaxKeypoints,
		MaxSpanSentences: max(settings.MaxSpanSentences, 1),
		MinSentenceWords: settings.MinSentenceWords,
		OverlapThreshold: settings.OverlapThreshold,
		MinDistance:      settings.MinDistance,
		Weights: Weights{
			Term:     settings.TermWeight,
			Position: settings.PositionWeight,
			Cue:      settings.CueWeight,
		},
	}
}

// candidate is a scored window of one or more consecutive sentences.
type candidate struct {
	Span     model.Span
	Text     string
	First    int // index of the first sentence
	Last     int
	Terms    []string
	termSet  map[string]struct{}
	Salience float64
}

// document is the sentence view of a transcript shared by the extractor and
// the summarizer.
type document struct {
	Text      string
	Sentences []sentence
	runs      [][]int // sentence indexes per run of recognized fragments
	tf        map[string]int
	maxTF     int
	firstSeen map[string]int
}

// newDocument splits the recognized fragments of tr into sentences.
// Degraded fragments break runs so no sentence spans a placeholder.
func newDocument(tr *model.Transcript, minWords int) *document {
	doc := &document{Text: tr.Text, tf: make(map[string]int), firstSeen: make(map[string]int)}

	var run []int
	flush := func() {
		if len(run) > 0 {
			doc.runs = append(doc.runs, run)
			run = nil
		}
	}

	for i := 0; i < len(tr.Fragments); {
		if tr.Fragments[i].Degraded {
			flush()
			i++
			continue
		}
		j := i
		for j+1 < len(tr.Fragments) && !tr.Fragments[j+1].Degraded {
			j++
		}
		start := tr.Fragments[i].Offset
		end := tr.Fragments[j].Offset + tr.Fragments[j].Length
		for _, s := range splitSentences(tr.Text[start:end], start) {
			if s.Words < minWords {
				flush()
				continue
			}
			s.Index = len(doc.Sentences)
			doc.Sentences = append(doc.Sentences, s)
			run = append(run, s.Index)
		}
		flush()
		i = j + 1
	}

	pos := 0
	for _, s := range doc.Sentences {
		for _, t := range termsOf(s.Text) {
			doc.tf[t]++
			doc.maxTF = max(doc.maxTF, doc.tf[t])
			if _, ok := doc.firstSeen[t]; !ok {
				doc.firstSeen[t] = pos
			}
			pos++
		}
	}
	return doc
}

// candidates returns every window of up to maxSpan consecutive sentences
// within a run.
func (d *document) candidates(maxSpan int) []candidate {
	var out []candidate
	for _, run := range d.runs {
		for i := range run {
			for w := 1; w <= maxSpan && i+w <= len(run); w++ {
				first, last := d.Sentences[run[i]], d.Sentences[run[i+w-1]]
				span := model.Span{Start: first.Span.Start, End: last.Span.End}
				out = append(out, candidate{
					Span:  span,
					Text:  collapseSpace(d.Text[span.Start:span.End]),
					First: first.Index,
					Last:  last.Index,
				})
			}
		}
	}
	return out
}

// score fills in the salience and terms of c.
func (d *document) score(c *candidate, w Weights) {
	terms := termsOf(c.Text)
	c.termSet = make(map[string]struct{}, len(terms))
	var termScore float64
	for _, t := range terms {
		c.termSet[t] = struct{}{}
		termScore += float64(d.tf[t]) / float64(max(d.maxTF, 1))
	}
	if len(terms) > 0 {
		termScore /= float64(len(terms))
	}

	// U-shaped: openings and closings carry the lecture's framing.
	position := 1.0
	if n := len(d.Sentences); n > 1 {
		mid := float64(c.First+c.Last) / 2 / float64(n-1)
		position = abs(2*mid - 1)
	}

	cue := 0.0
	if hasCue(c.Text) {
		cue = 1
	}

	c.Salience = w.Term*termScore + w.Position*position + w.Cue*cue
	c.Terms = d.rankTerms(c.termSet)
}

// rankTerms orders terms by document frequency, then length, then first
// appearance.
func (d *document) rankTerms(set map[string]struct{}) []string {
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		a, b := terms[i], terms[j]
		if d.tf[a] != d.tf[b] {
			return d.tf[a] > d.tf[b]
		}
		if la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b); la != lb {
			return la > lb
		}
		return d.firstSeen[a] < d.firstSeen[b]
	})
	if len(terms) > maxKeypointTerms {
		terms = terms[:maxKeypointTerms]
	}
	return terms
}

// Extract returns up to MaxKeypoints keypoints ordered by descending
// salience. Ties go to the earlier span. Returns *model.ExtractionError when
// the transcript has no recognized sentences.
func (e *Extractor) Extract(tr *model.Transcript) ([]model.Keypoint, error) {
	if tr == nil {
		return nil, &model.ExtractionError{Reason: "no transcript"}
	}
	doc := newDocument(tr, e.MinSentenceWords)
	if len(doc.Sentences) == 0 {
		// Short utterances still beat no notes at all.
		doc = newDocument(tr, 1)
	}
	if len(doc.Sentences) == 0 {
		return nil, &model.ExtractionError{Reason: "transcript has no recognized text"}
	}

	cands := doc.candidates(e.MaxSpanSentences)
	for i := range cands {
		doc.score(&cands[i], e.Weights)
	}
	sortCandidates(cands)

	var chosen []candidate
	for _, c := range cands {
		if len(chosen) >= e.MaxKeypoints {
			break
		}
		if e.admissible(c, chosen) {
			chosen = append(chosen, c)
		}
	}

	kps := make([]model.Keypoint, len(chosen))
	for i, c := range chosen {
		kps[i] = model.Keypoint{
			ID:       keypointID(c.Span, c.Text),
			Span:     c.Span,
			Text:     c.Text,
			Salience: c.Salience,
			Language: lang.Dominant(c.Text, model.English),
			Terms:    c.Terms,
		}
	}
	return kps, nil
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Salience != b.Salience {
			return a.Salience > b.Salience
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.Span.Len() < b.Span.Len()
	})
}

// admissible rejects candidates that overlap a chosen span beyond the
// threshold or repeat its terms too closely.
func (e *Extractor) admissible(c candidate, chosen []candidate) bool {
	for _, k := range chosen {
		shorter := min(c.Span.Len(), k.Span.Len())
		if shorter > 0 && float64(c.Span.Overlap(k.Span)) > e.OverlapThreshold*float64(shorter) {
			return false
		}
		if jaccardDistance(c.termSet, k.termSet) < e.MinDistance {
			return false
		}
	}
	return true
}

// jaccardDistance is 1 - |a∩b|/|a∪b|. Two empty sets are identical.
func jaccardDistance(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return 1 - float64(inter)/float64(union)
}

func keypointID(span model.Span, text string) string {
	return uuid.NewSHA1(keypointNamespace, []byte(fmt.Sprintf("%d:%d:%s", span.Start, span.End, text))).String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
