package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"bn", Bangla, false},
		{"Bengali", Bangla, false},
		{"ben", Bangla, false},
		{" EN ", English, false},
		{"auto", Unknown, false},
		{"", Unknown, false},
		{"mixed", Mixed, false},
		{"ko", Unknown, true},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLanguage(%q) = %s, %v; want %s, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if Mixed.Concrete() || !Bangla.Concrete() {
		t.Error("Concrete mismatch")
	}
	if Bangla.ISO3() != "ben" || Unknown.ISO3() != "" {
		t.Error("ISO3 mismatch")
	}
}

func TestParseLengthBound(t *testing.T) {
	tests := []struct {
		in      string
		want    LengthBound
		wantErr bool
	}{
		{"600", LengthBound{BoundChars, 600}, false},
		{"600c", LengthBound{BoundChars, 600}, false},
		{"600chars", LengthBound{BoundChars, 600}, false},
		{"5s", LengthBound{BoundSentences, 5}, false},
		{"5 sentences", LengthBound{BoundSentences, 5}, false},
		{"0", LengthBound{}, true},
		{"-3s", LengthBound{}, true},
		{"many", LengthBound{}, true},
		{"5x", LengthBound{}, true},
		{"12.5c", LengthBound{}, true},
		{"800cc", LengthBound{}, true},
	}
	for _, tt := range tests {
		got, err := ParseLengthBound(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLengthBound(%q) = %+v, %v; want %+v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
		if err == nil {
			again, err := ParseLengthBound(got.String())
			if err != nil || again != got {
				t.Errorf("String() of %+v does not parse back: %v", got, err)
			}
		}
	}
}

func TestSpanOverlap(t *testing.T) {
	tests := []struct {
		a, b Span
		want int
	}{
		{Span{0, 10}, Span{5, 15}, 5},
		{Span{0, 10}, Span{10, 20}, 0},
		{Span{3, 4}, Span{0, 10}, 1},
		{Span{20, 30}, Span{0, 10}, 0},
	}
	for _, tt := range tests {
		if got := tt.a.Overlap(tt.b); got != tt.want {
			t.Errorf("%v.Overlap(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := tt.b.Overlap(tt.a); got != tt.want {
			t.Errorf("Overlap is not symmetric for %v, %v", tt.a, tt.b)
		}
	}
}

func TestNewPipelineRun(t *testing.T) {
	run := NewPipelineRun("id", "quiz", time.Unix(10, 0))
	if run.State != StateCreated {
		t.Errorf("state = %s", run.State)
	}
	if len(run.Stages) != len(Stages) {
		t.Fatalf("stages = %d, want %d", len(run.Stages), len(Stages))
	}
	for i, s := range Stages {
		if run.Stages[i].Stage != s || run.Stages[i].Status != StatusPending {
			t.Errorf("stage %d = %+v", i, run.Stages[i])
		}
	}
	run.StageRecord(StageQuiz).Status = StatusFailed
	if run.Stages[len(run.Stages)-1].Status != StatusFailed {
		t.Error("StageRecord should point into the run")
	}
	if run.StageRecord("render") != nil {
		t.Error("unknown stage should have no record")
	}
	if !run.Report.Empty() {
		t.Error("new run has lost nothing")
	}
}

func TestIsTransient(t *testing.T) {
	unavailable := &BackendUnavailableError{Backend: "elevenlabs", Err: errors.New("503")}
	if !IsTransient(unavailable) {
		t.Error("BackendUnavailableError is transient")
	}
	if !IsTransient(fmt.Errorf("segment 3: %w", unavailable)) {
		t.Error("wrapped BackendUnavailableError is transient")
	}
	if IsTransient(&GenerationError{Stage: "quiz", Reason: "empty"}) {
		t.Error("GenerationError is not transient")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateCompleted, StatePartiallyCompleted, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StateQuizGenerating.Terminal() {
		t.Error("quiz_generating is not terminal")
	}
}
