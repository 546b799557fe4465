package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/ffmpeg"
	"github.com/maria2021831011/NoteWhisper/internal/model"
	"github.com/maria2021831011/NoteWhisper/internal/worker"
)

var transcribeCmd = newPipelineCommand(worker.TargetTranscribe,
	"Transcribe a lecture recording",
	`Transcribe a lecture recording into an ordered transcript with one
language-annotated fragment per audio segment.`)

// pipelineFlags back the options shared by every pipeline command. Only flags
// set on the command line override the config file.
var pipelineFlags struct {
	language       string
	probe          bool
	maxDuration    float64
	maxSegment     float64
	silenceGap     int
	concurrency    int
	retries        int
	segmentTimeout int
	rateLimit      int
	maxKeypoints   int
	summaryBound   string
	strategy       string
	quizSize       int
	distractors    int
	seed           uint64
	rephrase       bool
	stageFallback  bool
}

func newPipelineCommand(target worker.Target, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(target) + " <audio-file>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, target, args[0])
		},
	}
	addPipelineFlags(cmd, target)
	return cmd
}

func addPipelineFlags(cmd *cobra.Command, target worker.Target) {
	d := config.Default()
	f := cmd.Flags()
	p := &pipelineFlags

	f.StringVarP(&p.language, "language", "l", d.Language.Hint, "lecture language: bn, en, auto")
	f.BoolVar(&p.probe, "probe", d.Language.Probe, "detect segment language with a probe recognition pass")
	f.Float64Var(&p.maxDuration, "max-duration", d.Ingest.MaxDurationSeconds, "maximum audio duration in seconds")
	f.Float64Var(&p.maxSegment, "max-segment", d.Ingest.MaxSegmentSeconds, "maximum segment duration in seconds")
	f.IntVar(&p.silenceGap, "silence-gap", d.Ingest.SilenceGapMs, "silence that splits segments, in milliseconds")
	f.IntVarP(&p.concurrency, "max-concurrent", "j", d.Transcription.ConcurrencyLimit, "segments transcribed at once")
	f.IntVar(&p.retries, "max-retries", d.Transcription.RetryLimit, "retries per segment and backend after the first attempt")
	f.IntVar(&p.segmentTimeout, "segment-timeout", d.Transcription.SegmentTimeoutMs, "per-segment timeout in milliseconds")
	f.IntVar(&p.rateLimit, "rate-limit", d.Transcription.RateLimitPerMin, "backend requests per minute (0 disables)")

	if target == worker.TargetTranscribe {
		return
	}
	f.IntVar(&p.maxKeypoints, "max-keypoints", d.Keypoints.MaxKeypoints, "maximum number of keypoints")
	f.StringVar(&p.summaryBound, "summary-length", d.Summary.LengthBound, "summary bound, e.g. 800c or 5s")
	f.StringVar(&p.strategy, "summary-strategy", d.Summary.Strategy, "summary strategy: extractive, abstractive")
	f.BoolVar(&p.stageFallback, "stage-fallback", d.StageFallback, "finish partially instead of failing when a text stage produces nothing")

	if target != worker.TargetQuiz {
		return
	}
	f.IntVar(&p.quizSize, "quiz-size", d.Quiz.QuizSize, "number of quiz questions")
	f.IntVar(&p.distractors, "distractors", d.Quiz.DistractorCount, "wrong answers per question")
	f.Uint64Var(&p.seed, "seed", d.Quiz.Seed, "distractor shuffle seed")
	f.BoolVar(&p.rephrase, "rephrase", d.Quiz.Rephrase, "rephrase questions with the text generator")
}

func applyPipelineFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	p := &pipelineFlags
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}

	set("language", func() { c.Language.Hint = p.language })
	set("probe", func() { c.Language.Probe = p.probe })
	set("max-duration", func() { c.Ingest.MaxDurationSeconds = p.maxDuration })
	set("max-segment", func() { c.Ingest.MaxSegmentSeconds = p.maxSegment })
	set("silence-gap", func() { c.Ingest.SilenceGapMs = p.silenceGap })
	set("max-concurrent", func() { c.Transcription.ConcurrencyLimit = p.concurrency })
	set("max-retries", func() { c.Transcription.RetryLimit = p.retries })
	set("segment-timeout", func() { c.Transcription.SegmentTimeoutMs = p.segmentTimeout })
	set("rate-limit", func() { c.Transcription.RateLimitPerMin = p.rateLimit })
	set("max-keypoints", func() { c.Keypoints.MaxKeypoints = p.maxKeypoints })
	set("summary-length", func() { c.Summary.LengthBound = p.summaryBound })
	set("summary-strategy", func() { c.Summary.Strategy = p.strategy })
	set("stage-fallback", func() { c.StageFallback = p.stageFallback })
	set("quiz-size", func() { c.Quiz.QuizSize = p.quizSize })
	set("distractors", func() { c.Quiz.DistractorCount = p.distractors })
	set("seed", func() { c.Quiz.Seed = p.seed })
	set("rephrase", func() { c.Quiz.Rephrase = p.rephrase })
}

var supportedExts = map[string]bool{
	".mp3": true, ".m4a": true, ".wav": true, ".flac": true,
	".ogg": true, ".aac": true, ".mp4": true, ".mov": true,
	".mkv": true, ".avi": true, ".webm": true,
}

func runPipeline(cmd *cobra.Command, target worker.Target, inputPath string) error {
	applyPipelineFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !supportedExts[ext] {
		return fmt.Errorf("unsupported file type: %s", ext)
	}
	if ffmpeg.IsVideoExtension(ext) && !ffmpeg.Available() {
		return fmt.Errorf("%s input needs ffmpeg on PATH", ext)
	}
	cmd.SilenceUsage = true

	// Setup signal handling for graceful cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ffmpeg.LogMediaInfo(ctx, absPath)

	stageCache, db, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer stageCache.Close()

	deps, err := buildBackends(cfg, target)
	if err != nil {
		return err
	}
	deps.Cache = stageCache
	if db != nil {
		deps.Runs = db
	}

	o, err := worker.New(cfg, deps)
	if err != nil {
		return err
	}
	run, err := o.Run(ctx, absPath, target)
	if !quiet {
		printRun(cmd.OutOrStdout(), run, cfg.OutputDir)
	}
	return exitFor(run, err)
}

// exitFor maps the final run state to the process exit code.
func exitFor(run *model.PipelineRun, err error) error {
	switch {
	case err != nil:
		return &exitError{code: 1, err: err}
	case run.State == model.StatePartiallyCompleted:
		return &exitError{code: 3}
	case run.State != model.StateCompleted:
		return &exitError{code: 1, err: fmt.Errorf("run ended %s", run.State)}
	}
	return nil
}

func printRun(w io.Writer, run *model.PipelineRun, dir string) {
	fmt.Fprintf(w, "run %s: %s\n", run.ID, run.State)
	for _, rec := range run.Stages {
		line := fmt.Sprintf("  %-10s %s", rec.Stage, rec.Status)
		if rec.Cached {
			line += " (cached)"
		}
		fmt.Fprintln(w, line)
	}
	for _, u := range run.Report.Units {
		fmt.Fprintf(w, "  lost %s %s: %s\n", u.Stage, u.Unit, u.Reason)
	}
	if run.State != model.StateFailed || run.Transcript != nil {
		fmt.Fprintf(w, "artifacts in %s\n", dir)
	}
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
}
