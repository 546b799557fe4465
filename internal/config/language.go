package config

import (
	"fmt"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// HintLanguage returns the declared lecture language, Unknown for "auto".
func (s LanguageSettings) HintLanguage() model.Language {
	l, err := model.ParseLanguage(s.Hint)
	if err != nil {
		return model.Unknown
	}
	return l
}

// DefaultLanguage returns the language used when detection is inconclusive.
func (s LanguageSettings) DefaultLanguage() model.Language {
	l, err := model.ParseLanguage(s.Default)
	if err != nil || !l.Concrete() {
		return model.Bangla
	}
	return l
}

// Fallback returns the order in which backends are tried for Unknown and
// Mixed segments. The default language always comes first and every
// concrete language appears exactly once.
func (s LanguageSettings) Fallback() ([]model.Language, error) {
	order := []model.Language{s.DefaultLanguage()}
	seen := map[model.Language]bool{order[0]: true}

	for _, code := range s.FallbackOrder {
		l, err := model.ParseLanguage(code)
		if err != nil {
			return nil, fmt.Errorf("fallback order: %w", err)
		}
		if !l.Concrete() {
			return nil, fmt.Errorf("fallback order: %q is not a spoken language", code)
		}
		if !seen[l] {
			seen[l] = true
			order = append(order, l)
		}
	}
	for _, l := range []model.Language{model.Bangla, model.English} {
		if !seen[l] {
			order = append(order, l)
		}
	}
	return order, nil
}
