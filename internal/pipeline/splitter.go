package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Sentence length limits for unpunctuated speech.
const (
	longClauseWords  = 12
	maxSentenceWords = 40
)

// token is a whitespace-delimited word with its byte offsets.
type token struct {
	Text  string
	Start int
	End   int
}

// tokenize splits text on whitespace, keeping byte offsets relative to base.
func tokenize(text string, base int) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{Text: text[start:i], Start: base + start, End: base + i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{Text: text[start:], Start: base + start, End: base + len(text)})
	}
	return tokens
}

// sentence is a candidate unit of transcript text.
type sentence struct {
	Index int
	Span  model.Span
	Text  string
	Words int
}

// shouldSplitAtWord decides whether to end the sentence after word.
// accumulated is the number of words before it in the current sentence.
func shouldSplitAtWord(word string, accumulated int) bool {
	if accumulated+1 >= maxSentenceWords {
		return true
	}
	switch trailingClass(word) {
	case classTerminal:
		return !isAbbreviation(word)
	case classPause:
		return accumulated >= 3
	case classClause:
		return accumulated >= longClauseWords
	}
	return false
}

// isAbbreviation catches single-letter initials and dotted abbreviations
// ("e.g.", "Dr.") that end with a full stop.
func isAbbreviation(word string) bool {
	if !strings.HasSuffix(word, ".") {
		return false
	}
	core := strings.TrimSuffix(word, ".")
	if strings.Contains(core, ".") {
		return true
	}
	_, ok := abbreviations[strings.ToLower(core)]
	return ok || utf8.RuneCountInString(core) == 1 && unicode.IsUpper([]rune(core)[0])
}

var abbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {}, "etc": {}, "vs": {}, "fig": {}, "eq": {}, "no": {},
}

// splitSentences splits text into sentences. Spans are byte offsets into the
// document text, where text starts at base.
func splitSentences(text string, base int) []sentence {
	tokens := tokenize(text, base)
	if len(tokens) == 0 {
		return nil
	}

	var sentences []sentence
	first := 0
	for i, tok := range tokens {
		if shouldSplitAtWord(tok.Text, i-first) || i == len(tokens)-1 {
			span := model.Span{Start: tokens[first].Start, End: tok.End}
			sentences = append(sentences, sentence{
				Span:  span,
				Text:  collapseSpace(text[span.Start-base : span.End-base]),
				Words: i - first + 1,
			})
			first = i + 1
		}
	}
	return sentences
}

// collapseSpace joins the whitespace-separated fields of s with single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
