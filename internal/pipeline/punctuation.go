package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// punctClass ranks how strongly a trailing mark ends a sentence.
type punctClass int

const (
	classNone punctClass = iota
	classClause
	classPause
	classTerminal
)

const (
	danda       = '।' // ।
	doubleDanda = '॥' // ॥
)

var punctClasses = map[rune]punctClass{
	'.': classTerminal, '!': classTerminal, '?': classTerminal,
	'…': classTerminal, danda: classTerminal, doubleDanda: classTerminal,

	';': classPause, ':': classPause,

	',': classClause, '-': classClause, '–': classClause, '—': classClause,
}

// closingPunctuation never takes a space before it.
var closingPunctuation = map[rune]struct{}{
	'.': {}, ',': {}, '!': {}, '?': {}, ';': {}, ':': {}, ')': {}, ']': {},
	danda: {}, doubleDanda: {},
}

func isTrailingWrapper(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// trailingClass classifies the last mark of word, looking past closing
// quotes and brackets.
func trailingClass(word string) punctClass {
	word = strings.TrimRightFunc(word, isTrailingWrapper)
	last, size := utf8.DecodeLastRuneInString(word)
	if size == 0 || last == utf8.RuneError {
		return classNone
	}
	return punctClasses[last]
}

// isWordRune reports whether r belongs to a word. Bengali vowel signs are
// combining marks, so marks count as word runes.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r)
}

// coreBounds returns the byte range of word without leading and trailing
// non-word runes. start == end when word has no word runes.
func coreBounds(word string) (int, int) {
	start := strings.IndexFunc(word, isWordRune)
	if start < 0 {
		return 0, 0
	}
	end := strings.LastIndexFunc(word, isWordRune)
	_, size := utf8.DecodeRuneInString(word[end:])
	return start, end + size
}
