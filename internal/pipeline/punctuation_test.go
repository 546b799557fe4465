package pipeline

import (
	"testing"
)

func TestTrailingClass(t *testing.T) {
	tests := []struct {
		word string
		want punctClass
	}{
		{"stop.", classTerminal},
		{"really?", classTerminal},
		{"wait…", classTerminal},
		{"বলো।", classTerminal},
		{"শেষ॥", classTerminal},
		{"done.\"", classTerminal},
		{"(and so.)", classTerminal},
		{"note;", classPause},
		{"as follows:", classPause},
		{"first,", classClause},
		{"well—", classClause},
		{"plain", classNone},
		{"(yes)", classNone},
		{"42", classNone},
		{"", classNone},
		{"\")", classNone},
	}

	for _, tt := range tests {
		if got := trailingClass(tt.word); got != tt.want {
			t.Errorf("trailingClass(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestCoreBounds(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"(hello),", "hello"},
		{"Newton's", "Newton's"},
		{"শিক্ষা।", "শিক্ষা"},
		{"...", ""},
		{"42.", "42"},
	}

	for _, tt := range tests {
		start, end := coreBounds(tt.word)
		if got := tt.word[start:end]; got != tt.want {
			t.Errorf("coreBounds(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestTermOf(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"Inertia,", "inertia"},
		{"the", ""},
		{"The.", ""},
		{"a", ""},
		{"এবং", ""},
		{"জড়তা।", "জড়তা"},
		{"—", ""},
	}

	for _, tt := range tests {
		if got := termOf(tt.word); got != tt.want {
			t.Errorf("termOf(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestHasCue(t *testing.T) {
	if !hasCue("In Summary, force changes motion.") {
		t.Error("expected english cue")
	}
	if !hasCue("এটা খুব গুরুত্বপূর্ণ বিষয়।") {
		t.Error("expected bangla cue")
	}
	if hasCue("The ball rolls down the hill.") {
		t.Error("unexpected cue")
	}
}
