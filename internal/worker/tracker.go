package worker

import (
	"fmt"
	"sync"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// next is the forward path through the run lifecycle.
var next = map[model.State]model.State{
	model.StateCreated:        model.StateIngested,
	model.StateIngested:       model.StateTranscribing,
	model.StateTranscribing:   model.StateTranscribed,
	model.StateTranscribed:    model.StateExtracting,
	model.StateExtracting:     model.StateExtracted,
	model.StateExtracted:      model.StateSummarizing,
	model.StateSummarizing:    model.StateSummarized,
	model.StateSummarized:     model.StateQuizGenerating,
	model.StateQuizGenerating: model.StateCompleted,
}

// finishable states may end the run once its target stage is reached.
var finishable = map[model.State]bool{
	model.StateTranscribed:    true,
	model.StateExtracted:      true,
	model.StateSummarized:     true,
	model.StateQuizGenerating: true,
}

func allowed(from, to model.State) bool {
	switch {
	case from.Terminal():
		return false
	case to == model.StateFailed:
		return true
	case next[from] == to:
		return true
	case to == model.StateCompleted || to == model.StatePartiallyCompleted:
		return finishable[from]
	}
	return false
}

// tracker is the only writer of a run's state, stage records and failure
// report.
type tracker struct {
	mu  sync.Mutex
	run *model.PipelineRun
}

func newTracker(run *model.PipelineRun) *tracker {
	return &tracker{run: run}
}

// transition moves the run to state to, rejecting illegal moves.
func (t *tracker) transition(to model.State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from := t.run.State
	if !allowed(from, to) {
		return fmt.Errorf("illegal run transition %s -> %s", from, to)
	}
	t.run.State = to
	return nil
}

func (t *tracker) state() model.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run.State
}

// stage records the outcome of stage s.
func (t *tracker) stage(s model.Stage, status model.StageStatus, cached bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.run.StageRecord(s)
	rec.Status = status
	rec.Cached = cached
	if err != nil {
		rec.Error = err.Error()
	}
}

func (t *tracker) stageStatus(s model.Stage) model.StageStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run.StageRecord(s).Status
}

// skipRemaining marks every still-pending stage skipped.
func (t *tracker) skipRemaining() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.run.Stages {
		if t.run.Stages[i].Status == model.StatusPending {
			t.run.Stages[i].Status = model.StatusSkipped
		}
	}
}

func (t *tracker) report(units ...model.Unit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.run.Report.Units = append(t.run.Report.Units, units...)
}

// degraded reports whether any stage lost work.
func (t *tracker) degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.run.Stages {
		if rec.Status == model.StatusPartial || rec.Status == model.StatusFailed {
			return true
		}
	}
	return !t.run.Report.Empty()
}

// with runs fn with the run locked.
func (t *tracker) with(fn func(run *model.PipelineRun)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.run)
}
