package model

import "time"

// State is the lifecycle state of a PipelineRun.
type State string

const (
	StateCreated            State = "created"
	StateIngested           State = "ingested"
	StateTranscribing       State = "transcribing"
	StateTranscribed        State = "transcribed"
	StateExtracting         State = "extracting"
	StateExtracted          State = "extracted"
	StateSummarizing        State = "summarizing"
	StateSummarized         State = "summarized"
	StateQuizGenerating     State = "quiz_generating"
	StateCompleted          State = "completed"
	StatePartiallyCompleted State = "partially_completed"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StatePartiallyCompleted || s == StateFailed
}

// Stage names a pipeline stage.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageTranscribe Stage = "transcribe"
	StageExtract    Stage = "extract"
	StageSummarize  Stage = "summarize"
	StageQuiz       Stage = "quiz"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageIngest, StageTranscribe, StageExtract, StageSummarize, StageQuiz}

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusSucceeded StageStatus = "succeeded"
	StatusPartial   StageStatus = "partial"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// StageRecord tracks one stage of a run.
type StageRecord struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Cached bool        `json:"cached,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Unit is one degraded or failed piece of work.
type Unit struct {
	Stage  Stage  `json:"stage"`
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
	Fatal  bool   `json:"fatal,omitempty"`
}

// FailureReport lists everything that was lost during a run.
type FailureReport struct {
	Units []Unit `json:"units"`
}

// Empty reports whether nothing was lost.
func (r FailureReport) Empty() bool {
	return len(r.Units) == 0
}

// PipelineRun binds one LectureAudio to its derived artifacts.
type PipelineRun struct {
	ID         string        `json:"id"`
	Command    string        `json:"command"`
	CreatedAt  time.Time     `json:"created_at"`
	Audio      *LectureAudio `json:"audio,omitempty"`
	State      State         `json:"state"`
	Stages     []StageRecord `json:"stages"`
	Segments   []Segment     `json:"-"`
	Transcript *Transcript   `json:"transcript,omitempty"`
	Keypoints  []Keypoint    `json:"keypoints,omitempty"`
	Summary    *Summary      `json:"summary,omitempty"`
	Quiz       []QuizItem    `json:"quiz,omitempty"`
	Report     FailureReport `json:"report"`
}

// NewPipelineRun returns a run in StateCreated with every stage pending.
func NewPipelineRun(id, command string, now time.Time) *PipelineRun {
	run := &PipelineRun{
		ID:        id,
		Command:   command,
		CreatedAt: now,
		State:     StateCreated,
		Stages:    make([]StageRecord, len(Stages)),
	}
	for i, s := range Stages {
		run.Stages[i] = StageRecord{Stage: s, Status: StatusPending}
	}
	return run
}

// StageRecord returns the record for stage s.
func (r *PipelineRun) StageRecord(s Stage) *StageRecord {
	for i := range r.Stages {
		if r.Stages[i].Stage == s {
			return &r.Stages[i]
		}
	}
	return nil
}
