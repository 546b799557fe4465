package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Language identifies the spoken language of a segment.
type Language string

const (
	Bangla  Language = "bn"
	English Language = "en"
	Mixed   Language = "mixed"
	Unknown Language = "unknown"
)

// ParseLanguage accepts ISO 639-1/639-2 codes and English names.
// "auto" and the empty string map to Unknown.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bn", "ben", "bangla", "bengali":
		return Bangla, nil
	case "en", "eng", "english":
		return English, nil
	case "mixed":
		return Mixed, nil
	case "", "auto", "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unsupported language %q", s)
}

// Concrete reports whether l names a single spoken language.
func (l Language) Concrete() bool {
	return l == Bangla || l == English
}

// ISO3 returns the ISO 639-2 code, or "" when l is not concrete.
func (l Language) ISO3() string {
	switch l {
	case Bangla:
		return "ben"
	case English:
		return "eng"
	}
	return ""
}

// LanguageTag is the detector's verdict for one segment.
type LanguageTag struct {
	Language   Language `json:"language"`
	Confidence float64  `json:"confidence"`
}

// LectureAudio is decoded lecture audio. It is not modified after ingestion.
type LectureAudio struct {
	Path             string        `json:"path"`
	Hash             string        `json:"hash"`
	Duration         time.Duration `json:"duration"`
	SampleRate       int           `json:"sample_rate"`
	DeclaredLanguage Language      `json:"declared_language,omitempty"`
	Samples          []float32     `json:"-"`
}

// Segment is a contiguous slice of LectureAudio. Samples aliases the
// parent's sample slice.
type Segment struct {
	Index       int           `json:"index"`
	Start       time.Duration `json:"start"`
	End         time.Duration `json:"end"`
	StartSample int           `json:"start_sample"`
	EndSample   int           `json:"end_sample"`
	SampleRate  int           `json:"sample_rate"`
	Samples     []float32     `json:"-"`
}

// Duration returns End - Start.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Fragment is the transcript of one segment.
type Fragment struct {
	Ordinal  int           `json:"ordinal"`
	Start    time.Duration `json:"start"`
	End      time.Duration `json:"end"`
	Tag      LanguageTag   `json:"tag"`
	Text     string        `json:"text"`
	Degraded bool          `json:"degraded,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Backend  string        `json:"backend,omitempty"`

	// Byte offsets of this fragment inside Transcript.Text.
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Transcript is the assembled lecture transcript.
type Transcript struct {
	Fragments []Fragment `json:"fragments"`
	Text      string     `json:"text"`
}

// DegradedCount returns the number of degraded fragments.
func (t *Transcript) DegradedCount() int {
	n := 0
	for _, f := range t.Fragments {
		if f.Degraded {
			n++
		}
	}
	return n
}

// Span is a half-open byte range [Start, End) of Transcript.Text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlap returns the number of bytes shared by s and o.
func (s Span) Overlap(o Span) int {
	lo := max(s.Start, o.Start)
	hi := min(s.End, o.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Keypoint is a salient span of the transcript.
type Keypoint struct {
	ID       string   `json:"id"`
	Span     Span     `json:"span"`
	Text     string   `json:"text"`
	Salience float64  `json:"salience"`
	Language Language `json:"language"`
	Terms    []string `json:"terms,omitempty"`
}

// BoundUnit is the unit of a summary length bound.
type BoundUnit string

const (
	BoundChars     BoundUnit = "chars"
	BoundSentences BoundUnit = "sentences"
)

// LengthBound caps the size of a summary.
type LengthBound struct {
	Unit  BoundUnit `json:"unit"`
	Limit int       `json:"limit"`
}

// ParseLengthBound parses "600", "600c", "600chars", "5s" or "5sentences".
// A bare number counts characters.
func ParseLengthBound(s string) (LengthBound, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	unit := BoundChars
	for _, suffix := range []struct {
		text string
		unit BoundUnit
	}{
		{"sentences", BoundSentences},
		{"chars", BoundChars},
		{"s", BoundSentences},
		{"c", BoundChars},
	} {
		if strings.HasSuffix(s, suffix.text) {
			s = strings.TrimSuffix(s, suffix.text)
			unit = suffix.unit
			break
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return LengthBound{}, fmt.Errorf("invalid length bound %q", s)
	}
	return LengthBound{Unit: unit, Limit: n}, nil
}

// String renders the bound in the form accepted by ParseLengthBound.
func (b LengthBound) String() string {
	if b.Unit == BoundSentences {
		return fmt.Sprintf("%ds", b.Limit)
	}
	return fmt.Sprintf("%dc", b.Limit)
}

// Summary is a condensed narrative of the lecture.
type Summary struct {
	Sentences []string    `json:"sentences"`
	Bound     LengthBound `json:"bound"`
	Strategy  string      `json:"strategy"`
}

// Text joins the summary sentences with single spaces.
func (s *Summary) Text() string {
	return strings.Join(s.Sentences, " ")
}

// QuizItem is one question derived from keypoints.
type QuizItem struct {
	Number      int      `json:"number"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Distractors []string `json:"distractors,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	KeypointIDs []string `json:"keypoint_ids"`
}
