// Package output writes run artifacts to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// Artifact file names.
const (
	TranscriptJSON = "transcript.json"
	TranscriptText = "transcript.txt"
	KeypointsJSON  = "keypoints.json"
	SummaryJSON    = "summary.json"
	QuizJSON       = "quiz.json"
	ReportJSON     = "report.json"
	NotesMarkdown  = "notes.md"
)

// Report is the machine-readable outcome of a run. It leaves out the run ID
// and timestamps so identical inputs give identical bytes.
type Report struct {
	Command   string              `json:"command"`
	State     model.State         `json:"state"`
	AudioHash string              `json:"audio_hash,omitempty"`
	Duration  string              `json:"duration,omitempty"`
	Segments  int                 `json:"segments"`
	Degraded  int                 `json:"degraded_segments"`
	Stages    []model.StageRecord `json:"stages"`
	Units     []model.Unit        `json:"units"`
}

// NewReport builds the report for run.
func NewReport(run *model.PipelineRun) Report {
	r := Report{
		Command:  run.Command,
		State:    run.State,
		Segments: len(run.Segments),
		Stages:   run.Stages,
		Units:    run.Report.Units,
	}
	if r.Units == nil {
		r.Units = []model.Unit{}
	}
	if run.Audio != nil {
		r.AudioHash = run.Audio.Hash
		r.Duration = run.Audio.Duration.Round(time.Millisecond).String()
	}
	if run.Transcript != nil {
		r.Segments = len(run.Transcript.Fragments)
		r.Degraded = run.Transcript.DegradedCount()
	}
	return r
}

// Write stores every artifact run has produced in dir and returns the
// written paths. The report is always written.
func Write(dir string, run *model.PipelineRun) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	save := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}
	saveJSON := func(name string, v any) error {
		data, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		return save(name, append(data, '\n'))
	}

	if run.Transcript != nil {
		if err := saveJSON(TranscriptJSON, run.Transcript); err != nil {
			return written, err
		}
		if err := save(TranscriptText, []byte(RenderTranscript(run.Transcript))); err != nil {
			return written, err
		}
	}
	if run.Keypoints != nil {
		if err := saveJSON(KeypointsJSON, run.Keypoints); err != nil {
			return written, err
		}
	}
	if run.Summary != nil {
		if err := saveJSON(SummaryJSON, run.Summary); err != nil {
			return written, err
		}
	}
	if run.Quiz != nil {
		if err := saveJSON(QuizJSON, run.Quiz); err != nil {
			return written, err
		}
	}
	if run.Keypoints != nil || run.Summary != nil || run.Quiz != nil {
		if err := save(NotesMarkdown, []byte(RenderNotes(run))); err != nil {
			return written, err
		}
	}
	if err := saveJSON(ReportJSON, NewReport(run)); err != nil {
		return written, err
	}
	return written, nil
}

// RenderTranscript renders one line per fragment with its start time and
// language tag.
func RenderTranscript(tr *model.Transcript) string {
	var b strings.Builder
	for _, f := range tr.Fragments {
		text := tr.Text[f.Offset : f.Offset+f.Length]
		lang := f.Tag.Language
		if lang == "" {
			lang = model.Unknown
		}
		fmt.Fprintf(&b, "[%s %s] %s\n", clock(f.Start), lang, text)
	}
	return b.String()
}

// RenderNotes renders the study notes as Markdown.
func RenderNotes(run *model.PipelineRun) string {
	var b strings.Builder
	title := "Lecture notes"
	if run.Audio != nil && run.Audio.Path != "" {
		base := filepath.Base(run.Audio.Path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	fmt.Fprintf(&b, "# %s\n", title)

	if run.Summary != nil {
		b.WriteString("\n## Summary\n\n")
		b.WriteString(run.Summary.Text())
		b.WriteString("\n")
	}

	if len(run.Keypoints) > 0 {
		b.WriteString("\n## Key points\n\n")
		for _, kp := range run.Keypoints {
			fmt.Fprintf(&b, "- %s\n", kp.Text)
		}
	}

	if len(run.Quiz) > 0 {
		b.WriteString("\n## Quiz\n")
		for _, q := range run.Quiz {
			fmt.Fprintf(&b, "\n%d. %s\n", q.Number, q.Question)
			for i, opt := range options(q) {
				fmt.Fprintf(&b, "   %c) %s\n", 'a'+i, opt)
			}
		}
		b.WriteString("\n### Answers\n\n")
		for _, q := range run.Quiz {
			fmt.Fprintf(&b, "%d. %s\n", q.Number, q.Answer)
		}
	}

	if !run.Report.Empty() {
		b.WriteString("\n## Gaps\n\n")
		for _, u := range run.Report.Units {
			fmt.Fprintf(&b, "- %s %s: %s\n", u.Stage, u.Unit, u.Reason)
		}
	}
	return b.String()
}

// options places the answer among the distractors at a position derived
// from the question number.
func options(q model.QuizItem) []string {
	if len(q.Distractors) == 0 {
		return nil
	}
	opts := append([]string(nil), q.Distractors...)
	pos := q.Number % (len(opts) + 1)
	opts = append(opts[:pos], append([]string{q.Answer}, opts[pos:]...)...)
	return opts
}

func clock(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
