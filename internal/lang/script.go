package lang

import (
	"unicode"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// ScriptScores returns the share of Bengali-script and Latin-script letters
// in text. Other scripts, digits and punctuation are ignored. Both scores are
// zero when text has no letters of either script.
func ScriptScores(text string) map[model.Language]float64 {
	var bengali, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Bengali, r):
			if unicode.IsLetter(r) || unicode.IsMark(r) {
				bengali++
			}
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}

	total := bengali + latin
	if total == 0 {
		return map[model.Language]float64{model.Bangla: 0, model.English: 0}
	}
	return map[model.Language]float64{
		model.Bangla:  float64(bengali) / float64(total),
		model.English: float64(latin) / float64(total),
	}
}

// Dominant returns the script language with the larger share of text, or
// fallback when text has no letters of either script.
func Dominant(text string, fallback model.Language) model.Language {
	s := ScriptScores(text)
	switch {
	case s[model.Bangla] == 0 && s[model.English] == 0:
		return fallback
	case s[model.Bangla] >= s[model.English]:
		return model.Bangla
	default:
		return model.English
	}
}
