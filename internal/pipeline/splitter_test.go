package pipeline

import (
	"strings"
	"testing"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

func TestSplitSentences_Empty(t *testing.T) {
	if got := splitSentences("   ", 0); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestSplitSentences_HighPrioritySplit(t *testing.T) {
	text := "Hello world. This is Go."
	got := splitSentences(text, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(got))
	}
	if got[0].Span != (model.Span{Start: 0, End: 12}) {
		t.Errorf("first span = %+v", got[0].Span)
	}
	if got[1].Span != (model.Span{Start: 13, End: 24}) {
		t.Errorf("second span = %+v", got[1].Span)
	}
	if got[1].Text != "This is Go." || got[1].Words != 3 {
		t.Errorf("second sentence = %+v", got[1])
	}
}

func TestSplitSentences_Danda(t *testing.T) {
	got := splitSentences("আমরা পড়ি। তোমরা খেলো।", 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(got))
	}
	if got[0].Text != "আমরা পড়ি।" {
		t.Errorf("first sentence = %q", got[0].Text)
	}
}

func TestSplitSentences_Abbreviations(t *testing.T) {
	got := splitSentences("Dr. Rahman explains e.g. gravity. Next one.", 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Dr. Rahman explains e.g. gravity." {
		t.Errorf("first sentence = %q", got[0].Text)
	}
}

func TestSplitSentences_MediumPriorityNeedThreeWords(t *testing.T) {
	if got := splitSentences("Hi; there", 0); len(got) != 1 {
		t.Fatalf("expected 1 sentence (pause mark, <3 words), got %d", len(got))
	}
	if got := splitSentences("one two three four; five", 0); len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(got))
	}
}

func TestSplitSentences_LongUnpunctuated(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 85))
	got := splitSentences(text, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(got))
	}
	if got[0].Words != maxSentenceWords || got[2].Words != 5 {
		t.Errorf("word counts = %d, %d, %d", got[0].Words, got[1].Words, got[2].Words)
	}
}

func TestSplitSentences_Base(t *testing.T) {
	doc := "xxxxxxxxxx" + "abc def."
	got := splitSentences(doc[10:], 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(got))
	}
	if s := got[0].Span; doc[s.Start:s.End] != "abc def." {
		t.Errorf("span %+v does not address the document", s)
	}
}

func TestSplitSentences_CollapsesNewlines(t *testing.T) {
	got := splitSentences("force is\nmass times acceleration.", 0)
	if len(got) != 1 || got[0].Text != "force is mass times acceleration." {
		t.Errorf("got %+v", got)
	}
}
