package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// formatClock converts a duration to HH:MM:SS, truncating fractions.
func formatClock(d time.Duration) string {
	totalSec := int(math.Abs(d.Seconds()))
	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	secs := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// placeholderText marks a transcript position whose audio could not be
// recognized.
func placeholderText(start, end time.Duration) string {
	return fmt.Sprintf("[unrecoverable segment %s-%s]", formatClock(start), formatClock(end))
}

// normalizeText collapses whitespace and fixes spacing around punctuation.
// Bangla text additionally gets danda sentence marks.
func normalizeText(text string, bangla bool) string {
	text = collapseSpace(text)
	if text == "" {
		return text
	}
	runes := []rune(text)
	if bangla {
		runes = toDanda(runes)
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range runes {
		if r == ' ' && i+1 < len(runes) {
			if _, ok := closingPunctuation[runes[i+1]]; ok {
				continue
			}
		}
		b.WriteRune(r)
		if needsSpaceAfter(r) && i+1 < len(runes) && isWordRune(runes[i+1]) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// needsSpaceAfter lists marks that always end a clause. '.' is left alone so
// decimals and abbreviations survive.
func needsSpaceAfter(r rune) bool {
	switch r {
	case '!', '?', ',', ';', danda, doubleDanda:
		return true
	}
	return false
}

// toDanda rewrites '|' and a full stop after Bengali text as '।'.
func toDanda(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		switch {
		case r == '|':
			r = danda
		case r == '.' && i > 0 && unicode.Is(unicode.Bengali, runes[i-1]) &&
			(i+1 == len(runes) || unicode.IsSpace(runes[i+1])):
			r = danda
		}
		out[i] = r
	}
	return out
}
