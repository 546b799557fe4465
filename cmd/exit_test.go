package cmd

import (
	"errors"
	"testing"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

func TestExitFor(t *testing.T) {
	tests := []struct {
		name  string
		state model.State
		err   error
		want  int
	}{
		{"completed", model.StateCompleted, nil, 0},
		{"partial", model.StatePartiallyCompleted, nil, 3},
		{"failed", model.StateFailed, errors.New("boom"), 1},
		{"export error", model.StateCompleted, errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitFor(&model.PipelineRun{State: tt.state}, tt.err)
			got := 0
			var exit *exitError
			if errors.As(err, &exit) {
				got = exit.code
			} else if err != nil {
				t.Fatalf("unexpected error type %T", err)
			}
			if got != tt.want {
				t.Errorf("exit code = %d, want %d", got, tt.want)
			}
		})
	}
}
