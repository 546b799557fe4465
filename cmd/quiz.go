package cmd

import "github.com/maria2021831011/NoteWhisper/internal/worker"

var quizCmd = newPipelineCommand(worker.TargetQuiz,
	"Generate notes and a quiz from a lecture",
	`Run the full pipeline: transcript, keypoints, summary and one quiz question
per keypoint with seeded distractors.`)

func init() {
	rootCmd.AddCommand(quizCmd)
}
