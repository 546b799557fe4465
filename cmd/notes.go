package cmd

import "github.com/maria2021831011/NoteWhisper/internal/worker"

var notesCmd = newPipelineCommand(worker.TargetNotes,
	"Transcribe a lecture and write keypoints and a summary",
	`Transcribe a lecture recording, extract its most salient keypoints and
condense them into a summary bounded by --summary-length.`)

func init() {
	rootCmd.AddCommand(notesCmd)
}
