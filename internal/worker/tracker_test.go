package worker

import (
	"testing"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		from, to model.State
		want     bool
	}{
		{model.StateCreated, model.StateIngested, true},
		{model.StateCreated, model.StateTranscribing, false},
		{model.StateIngested, model.StateTranscribing, true},
		{model.StateTranscribing, model.StateFailed, true},
		{model.StateTranscribing, model.StateCompleted, false},
		{model.StateTranscribed, model.StateCompleted, true},
		{model.StateTranscribed, model.StatePartiallyCompleted, true},
		{model.StateExtracted, model.StateSummarizing, true},
		{model.StateExtracted, model.StateQuizGenerating, false},
		{model.StateSummarized, model.StateCompleted, true},
		{model.StateQuizGenerating, model.StateCompleted, true},
		{model.StateCompleted, model.StateFailed, false},
		{model.StateFailed, model.StateCreated, false},
		{model.StatePartiallyCompleted, model.StateCompleted, false},
	}
	for _, tt := range tests {
		if got := allowed(tt.from, tt.to); got != tt.want {
			t.Errorf("allowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTracker_Transitions(t *testing.T) {
	tr := newTracker(model.NewPipelineRun("r", "quiz", time.Unix(0, 0)))
	for _, s := range []model.State{
		model.StateIngested, model.StateTranscribing, model.StateTranscribed,
		model.StateExtracting, model.StateExtracted,
	} {
		if err := tr.transition(s); err != nil {
			t.Fatalf("transition(%s): %v", s, err)
		}
	}
	if err := tr.transition(model.StateQuizGenerating); err == nil {
		t.Error("skipping the summary state should be rejected")
	}
	if tr.state() != model.StateExtracted {
		t.Errorf("state = %s after rejected transition", tr.state())
	}
	if err := tr.transition(model.StateFailed); err != nil {
		t.Fatal(err)
	}
	if err := tr.transition(model.StateFailed); err == nil {
		t.Error("terminal state accepted a transition")
	}
}

func TestTracker_Degraded(t *testing.T) {
	tr := newTracker(model.NewPipelineRun("r", "quiz", time.Unix(0, 0)))
	if tr.degraded() {
		t.Fatal("new run is not degraded")
	}

	tr.stage(model.StageIngest, model.StatusSucceeded, false, nil)
	tr.skipRemaining()
	if tr.degraded() {
		t.Error("skipped stages do not degrade a run")
	}
	if got := tr.stageStatus(model.StageQuiz); got != model.StatusSkipped {
		t.Errorf("quiz status = %s, want skipped", got)
	}

	tr.report(model.Unit{Stage: model.StageTranscribe, Unit: "segment 3", Reason: "timeout"})
	if !tr.degraded() {
		t.Error("a reported unit degrades the run")
	}
}
