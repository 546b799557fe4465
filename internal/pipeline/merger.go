package pipeline

import (
	"sort"
	"strings"

	"github.com/maria2021831011/NoteWhisper/internal/lang"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// fragmentSeparator joins fragments in Transcript.Text.
const fragmentSeparator = "\n"

// Assembler merges per-segment fragments into one ordered transcript.
type Assembler struct {
	// MaxOverlapWords bounds how many duplicated words are trimmed where
	// two adjacent fragments repeat each other.
	MaxOverlapWords int
}

// NewAssembler returns an Assembler trimming up to maxOverlapWords words
// at fragment boundaries.
func NewAssembler(maxOverlapWords int) *Assembler {
	return &Assembler{MaxOverlapWords: maxOverlapWords}
}

// Assemble returns a transcript with exactly one fragment per segment in
// segment order. Segments without a fragment get a degraded placeholder.
// Fragments whose ordinal matches no segment are dropped.
func (a *Assembler) Assemble(segments []model.Segment, fragments []model.Fragment) *model.Transcript {
	sorted := make([]model.Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ordinal < sorted[j].Ordinal
	})

	byOrdinal := make(map[int]model.Fragment, len(sorted))
	for _, f := range sorted {
		if _, dup := byOrdinal[f.Ordinal]; !dup {
			byOrdinal[f.Ordinal] = f
		}
	}

	out := make([]model.Fragment, len(segments))
	for i, seg := range segments {
		f, ok := byOrdinal[seg.Index]
		if !ok {
			f = model.Fragment{Degraded: true, Reason: "no transcription result"}
		}
		f.Ordinal = i
		f.Start, f.End = seg.Start, seg.End
		if f.Degraded {
			f.Text = ""
		} else {
			f.Text = normalizeText(f.Text, usesBangla(f))
		}
		out[i] = f
	}

	for i := 1; i < len(out); i++ {
		prev, cur := &out[i-1], &out[i]
		if prev.Degraded || cur.Degraded {
			continue
		}
		cur.Text = trimBoundaryOverlap(prev.Text, cur.Text, a.MaxOverlapWords)
	}

	var b strings.Builder
	for i := range out {
		if i > 0 {
			b.WriteString(fragmentSeparator)
		}
		text := out[i].Text
		if out[i].Degraded {
			text = placeholderText(out[i].Start, out[i].End)
		}
		out[i].Offset = b.Len()
		out[i].Length = len(text)
		b.WriteString(text)
	}

	return &model.Transcript{Fragments: out, Text: b.String()}
}

// usesBangla reports whether Bangla punctuation rules apply to f.
func usesBangla(f model.Fragment) bool {
	switch f.Tag.Language {
	case model.Bangla, model.Mixed:
		return true
	case model.English:
		return false
	}
	return lang.Dominant(f.Text, model.English) == model.Bangla
}

// trimBoundaryOverlap removes the longest run of leading words of next that
// repeats the trailing words of prev, up to limit words.
func trimBoundaryOverlap(prev, next string, limit int) string {
	if limit <= 0 {
		return next
	}
	prevWords := strings.Fields(prev)
	nextTokens := tokenize(next, 0)
	n := min(limit, len(prevWords), len(nextTokens))

	for k := n; k > 0; k-- {
		if wordsMatch(prevWords[len(prevWords)-k:], nextTokens[:k]) {
			if k == len(nextTokens) {
				return ""
			}
			return next[nextTokens[k].Start:]
		}
	}
	return next
}

func wordsMatch(tail []string, head []token) bool {
	for i := range tail {
		a, b := wordKey(tail[i]), wordKey(head[i].Text)
		if a == "" || a != b {
			return false
		}
	}
	return true
}
