// Package worker runs lecture audio through every pipeline stage and owns the
// state of each PipelineRun.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/maria2021831011/NoteWhisper/internal/audio"
	"github.com/maria2021831011/NoteWhisper/internal/b3"
	"github.com/maria2021831011/NoteWhisper/internal/backend"
	"github.com/maria2021831011/NoteWhisper/internal/cache"
	"github.com/maria2021831011/NoteWhisper/internal/config"
	"github.com/maria2021831011/NoteWhisper/internal/lang"
	"github.com/maria2021831011/NoteWhisper/internal/model"
	"github.com/maria2021831011/NoteWhisper/internal/output"
	"github.com/maria2021831011/NoteWhisper/internal/pipeline"
)

// Target is the last stage a command asks for.
type Target string

const (
	TargetTranscribe Target = "transcribe"
	TargetNotes      Target = "notes"
	TargetQuiz       Target = "quiz"
)

// ParseTarget maps a command name to its Target.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetTranscribe, TargetNotes, TargetQuiz:
		return t, nil
	}
	return "", fmt.Errorf("unknown target %q", s)
}

// Includes reports whether stage s runs for target t.
func (t Target) Includes(s model.Stage) bool {
	switch s {
	case model.StageIngest, model.StageTranscribe:
		return true
	case model.StageExtract, model.StageSummarize:
		return t == TargetNotes || t == TargetQuiz
	case model.StageQuiz:
		return t == TargetQuiz
	}
	return false
}

// Ingestor decodes and segments lecture audio.
type Ingestor interface {
	Ingest(ctx context.Context, path string, declared model.Language) (*model.LectureAudio, []model.Segment, error)
}

// Detector tags one segment. It never fails.
type Detector interface {
	Detect(ctx context.Context, seg model.Segment) model.LanguageTag
}

// Transcriber recognizes one segment. It never fails; exhausted segments
// come back degraded.
type Transcriber interface {
	Transcribe(ctx context.Context, seg model.Segment, tag model.LanguageTag) model.Fragment
}

// RunStore records finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.PipelineRun) error
}

// Orchestrator sequences the stages of a run. It is the only writer of run
// state. One Orchestrator may serve concurrent runs.
type Orchestrator struct {
	Config      *config.Config
	Ingestor    Ingestor
	Detector    Detector
	Transcriber Transcriber
	Assembler   *pipeline.Assembler
	Extractor   *pipeline.Extractor
	Summarizer  *pipeline.Summarizer
	Quiz        *pipeline.QuizBuilder

	Cache cache.Cache
	// Runs is optional.
	Runs RunStore
	// OutputDir receives the artifacts of every run. Empty disables export.
	OutputDir string

	// Recognizer and generator names take part in cache keys.
	BackendNames  []string
	GeneratorName string

	Now   func() time.Time
	NewID func() string
}

// Deps are the collaborators New wires into an Orchestrator.
type Deps struct {
	Recognizers map[model.Language]backend.Recognizer
	// Probe, when set and probing is enabled, scores the language of
	// segments without a concrete hint.
	Probe     backend.Recognizer
	Generator backend.Generator
	Cache     cache.Cache
	Runs      RunStore
}

// New validates cfg and builds an Orchestrator from it.
func New(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	fallback, err := cfg.Language.Fallback()
	if err != nil {
		return nil, err
	}
	summarizer, err := pipeline.NewSummarizer(cfg.Summary, cfg.Keypoints, deps.Generator)
	if err != nil {
		return nil, err
	}

	if !cfg.Language.Probe {
		deps.Probe = nil
	} else if deps.Probe == nil {
		// Probe with the first routable backend, default language first.
		for _, l := range fallback {
			if rec, ok := deps.Recognizers[l]; ok {
				deps.Probe = rec
				break
			}
		}
	}

	var scorer lang.Scorer = lang.HintScorer{Hint: model.Unknown}
	switch hint := cfg.Language.HintLanguage(); {
	case hint.Concrete():
		scorer = lang.HintScorer{Hint: hint}
		deps.Probe = nil
	case deps.Probe != nil:
		scorer = lang.ProbeScorer{Recognizer: deps.Probe}
	}

	c := deps.Cache
	if c == nil {
		c = cache.Nop{}
	}

	o := &Orchestrator{
		Config:       cfg,
		Ingestor:     audio.NewIngestor(cfg.Ingest),
		Detector:     lang.NewDetector(scorer, cfg.Language),
		Transcriber:  pipeline.NewTranscriber(deps.Recognizers, fallback, cfg.Transcription),
		Assembler:    pipeline.NewAssembler(cfg.Transcription.MaxBoundaryOverlapWords),
		Extractor:    pipeline.NewExtractor(cfg.Keypoints),
		Summarizer:   summarizer,
		Quiz:         pipeline.NewQuizBuilder(cfg.Quiz, deps.Generator),
		Cache:        c,
		Runs:         deps.Runs,
		OutputDir:    cfg.OutputDir,
		BackendNames: backendNames(deps),
		Now:          time.Now,
		NewID:        uuid.NewString,
	}
	if deps.Generator != nil {
		o.GeneratorName = deps.Generator.Name()
	}
	return o, nil
}

func backendNames(deps Deps) []string {
	var names []string
	for l, rec := range deps.Recognizers {
		names = append(names, fmt.Sprintf("%s=%s", l, rec.Name()))
	}
	if deps.Probe != nil {
		names = append(names, "probe="+deps.Probe.Name())
	}
	sort.Strings(names)
	return names
}

// Run executes every stage up to target on the audio at path. The returned
// run is always non-nil and terminal. The error is the one that failed the
// run, or an export error.
func (o *Orchestrator) Run(ctx context.Context, path string, target Target) (*model.PipelineRun, error) {
	run := model.NewPipelineRun(o.NewID(), string(target), o.Now())
	t := newTracker(run)

	slog.Info("run started", "run", run.ID, "target", target, "input", path)
	start := time.Now()

	err := o.execute(ctx, t, path, target)
	if err != nil {
		o.fail(ctx, t, err)
	} else if ferr := o.finish(t); ferr != nil {
		err = ferr
		o.fail(ctx, t, err)
	}

	slog.Info("run finished",
		"run", run.ID,
		"state", t.state(),
		"units_lost", len(run.Report.Units),
		"elapsed", time.Since(start).Round(time.Millisecond))

	o.persist(ctx, run)
	if werr := o.export(run); werr != nil && err == nil {
		err = werr
	}
	return run, err
}

func (o *Orchestrator) execute(ctx context.Context, t *tracker, path string, target Target) error {
	lecture, segs, err := o.Ingestor.Ingest(ctx, path, o.Config.Language.HintLanguage())
	if err != nil {
		t.stage(model.StageIngest, model.StatusFailed, false, err)
		t.report(model.Unit{Stage: model.StageIngest, Unit: path, Reason: err.Error(), Fatal: true})
		return err
	}
	t.with(func(run *model.PipelineRun) {
		run.Audio = lecture
		run.Segments = segs
	})
	t.stage(model.StageIngest, model.StatusSucceeded, false, nil)
	if err := t.transition(model.StateIngested); err != nil {
		return err
	}

	steps := []struct {
		stage model.Stage
		run   func(context.Context, *tracker) error
	}{
		{model.StageTranscribe, o.transcribe},
		{model.StageExtract, o.extract},
		{model.StageSummarize, o.summarize},
		{model.StageQuiz, o.quiz},
	}
	for _, step := range steps {
		if !target.Includes(step.stage) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.stageStatus(step.stage) == model.StatusSkipped {
			continue
		}
		if err := step.run(ctx, t); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// finish ends the run in Completed, or PartiallyCompleted when anything was
// lost along the way.
func (o *Orchestrator) finish(t *tracker) error {
	t.skipRemaining()
	if t.degraded() {
		return t.transition(model.StatePartiallyCompleted)
	}
	return t.transition(model.StateCompleted)
}

// fail moves the run to Failed. A cancelled run keeps none of its
// artifacts.
func (o *Orchestrator) fail(ctx context.Context, t *tracker, err error) {
	t.skipRemaining()
	if ctx.Err() != nil {
		t.with(func(run *model.PipelineRun) {
			run.Transcript = nil
			run.Keypoints = nil
			run.Summary = nil
			run.Quiz = nil
		})
		slog.Warn("run cancelled, discarding partial results", "err", err)
	} else {
		slog.Error("run failed", "err", err)
	}
	if terr := t.transition(model.StateFailed); terr != nil {
		slog.Error("failed to mark run failed", "err", terr)
	}
}

func (o *Orchestrator) persist(ctx context.Context, run *model.PipelineRun) {
	if o.Runs == nil {
		return
	}
	if err := o.Runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("failed to save run history", "run", run.ID, "err", err)
	}
}

func (o *Orchestrator) export(run *model.PipelineRun) error {
	if o.OutputDir == "" {
		return nil
	}
	paths, err := output.Write(o.OutputDir, run)
	for _, p := range paths {
		slog.Info("artifact saved", "path", p)
	}
	if err != nil {
		return fmt.Errorf("export artifacts: %w", err)
	}
	return nil
}

func (o *Orchestrator) transcribe(ctx context.Context, t *tracker) error {
	if err := t.transition(model.StateTranscribing); err != nil {
		return err
	}
	var (
		lecture *model.LectureAudio
		segs    []model.Segment
	)
	t.with(func(run *model.PipelineRun) {
		lecture, segs = run.Audio, run.Segments
	})

	key, err := b3.Fingerprint(model.StageTranscribe, lecture.Hash,
		o.Config.Ingest, o.Config.Language, o.Config.Transcription, o.BackendNames)
	if err != nil {
		return err
	}

	tr := new(model.Transcript)
	hit := o.load(ctx, key, tr)
	if !hit {
		frags, err := o.transcribeSegments(ctx, segs)
		if err != nil {
			t.stage(model.StageTranscribe, model.StatusFailed, false, err)
			return err
		}
		tr = o.Assembler.Assemble(segs, frags)
	}

	units := degradedUnits(tr)
	if !hit && len(units) == 0 {
		o.save(ctx, key, tr)
	}
	t.with(func(run *model.PipelineRun) { run.Transcript = tr })
	o.complete(t, model.StageTranscribe, hit, units)
	return t.transition(model.StateTranscribed)
}

func degradedUnits(tr *model.Transcript) []model.Unit {
	var units []model.Unit
	for _, f := range tr.Fragments {
		if f.Degraded {
			units = append(units, model.Unit{
				Stage:  model.StageTranscribe,
				Unit:   fmt.Sprintf("segment %d [%s-%s]", f.Ordinal, f.Start, f.End),
				Reason: f.Reason,
			})
		}
	}
	return units
}

func (o *Orchestrator) extract(ctx context.Context, t *tracker) error {
	if err := t.transition(model.StateExtracting); err != nil {
		return err
	}
	var tr *model.Transcript
	t.with(func(run *model.PipelineRun) { tr = run.Transcript })

	key, err := b3.Fingerprint(model.StageExtract, tr, o.Config.Keypoints)
	if err != nil {
		return err
	}

	var kps []model.Keypoint
	hit := o.load(ctx, key, &kps)
	if !hit {
		kps, err = o.Extractor.Extract(tr)
		if err != nil {
			if ferr := o.stageFailed(t, model.StageExtract, err); ferr != nil {
				return ferr
			}
			// Summary and quiz both need keypoints.
			t.stage(model.StageSummarize, model.StatusSkipped, false, nil)
			t.stage(model.StageQuiz, model.StatusSkipped, false, nil)
			return t.transition(model.StateExtracted)
		}
		o.save(ctx, key, kps)
	}

	t.with(func(run *model.PipelineRun) { run.Keypoints = kps })
	o.complete(t, model.StageExtract, hit, nil)
	return t.transition(model.StateExtracted)
}

// summaryResult is the cached form of a summary.
type summaryResult struct {
	Summary *model.Summary `json:"summary"`
}

func (o *Orchestrator) summarize(ctx context.Context, t *tracker) error {
	if err := t.transition(model.StateSummarizing); err != nil {
		return err
	}
	var (
		tr  *model.Transcript
		kps []model.Keypoint
	)
	t.with(func(run *model.PipelineRun) { tr, kps = run.Transcript, run.Keypoints })

	key, err := b3.Fingerprint(model.StageSummarize, tr, kps,
		o.Config.Summary, o.Config.Keypoints, o.GeneratorName)
	if err != nil {
		return err
	}

	var res summaryResult
	hit := o.load(ctx, key, &res)
	var units []model.Unit
	if !hit {
		res.Summary, units, err = o.Summarizer.Summarize(ctx, tr, kps)
		t.report(units...)
		if err != nil {
			if ferr := o.stageFailed(t, model.StageSummarize, err); ferr != nil {
				return ferr
			}
			return t.transition(model.StateSummarized)
		}
		if len(units) == 0 {
			o.save(ctx, key, res)
		}
	}

	t.with(func(run *model.PipelineRun) { run.Summary = res.Summary })
	o.complete(t, model.StageSummarize, hit, units)
	return t.transition(model.StateSummarized)
}

func (o *Orchestrator) quiz(ctx context.Context, t *tracker) error {
	if err := t.transition(model.StateQuizGenerating); err != nil {
		return err
	}
	var kps []model.Keypoint
	t.with(func(run *model.PipelineRun) { kps = run.Keypoints })

	key, err := b3.Fingerprint(model.StageQuiz, kps, o.Config.Quiz, o.GeneratorName)
	if err != nil {
		return err
	}

	var items []model.QuizItem
	hit := o.load(ctx, key, &items)
	var units []model.Unit
	if !hit {
		items, units, err = o.Quiz.Build(ctx, kps)
		t.report(units...)
		if err == nil {
			err = checkReferences(items, kps)
		}
		if err != nil {
			return o.stageFailed(t, model.StageQuiz, err)
		}
		if len(units) == 0 {
			o.save(ctx, key, items)
		}
	}

	t.with(func(run *model.PipelineRun) { run.Quiz = items })
	o.complete(t, model.StageQuiz, hit, units)
	return nil
}

// checkReferences rejects items that point at a keypoint outside kps or test
// a keypoint twice.
func checkReferences(items []model.QuizItem, kps []model.Keypoint) error {
	known := make(map[string]bool, len(kps))
	for _, kp := range kps {
		known[kp.ID] = true
	}
	tested := make(map[string]bool, len(items))
	for _, item := range items {
		for _, id := range item.KeypointIDs {
			if !known[id] {
				return fmt.Errorf("quiz item %d references unknown keypoint %s", item.Number, id)
			}
			if tested[id] {
				return fmt.Errorf("quiz item %d tests keypoint %s again", item.Number, id)
			}
			tested[id] = true
		}
	}
	return nil
}

// complete records a finished stage, partial when units were lost.
func (o *Orchestrator) complete(t *tracker, s model.Stage, cached bool, units []model.Unit) {
	status := model.StatusSucceeded
	if len(units) > 0 {
		status = model.StatusPartial
	}
	if s == model.StageTranscribe {
		t.report(units...)
	}
	t.stage(s, status, cached, nil)
	slog.Info("stage completed", "stage", s, "status", status, "cached", cached)
}

// stageFailed records a stage that produced nothing. With stage fallback the
// run carries on and nil is returned; otherwise err is returned to fail the
// run.
func (o *Orchestrator) stageFailed(t *tracker, s model.Stage, err error) error {
	t.stage(s, model.StatusFailed, false, err)
	fatal := !o.Config.StageFallback
	t.report(model.Unit{Stage: s, Unit: string(s), Reason: err.Error(), Fatal: fatal})
	if fatal {
		return err
	}
	slog.Warn("stage failed, continuing without it", "stage", s, "err", err)
	return nil
}

// load decodes the cached value for key into v. Any cache problem counts as
// a miss.
func (o *Orchestrator) load(ctx context.Context, key string, v any) bool {
	data, err := o.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("cache read failed, recomputing", "err", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("cache entry unreadable, recomputing", "err", err)
		return false
	}
	slog.Debug("cache hit", "key", key)
	return true
}

func (o *Orchestrator) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "err", err)
		return
	}
	if err := o.Cache.Put(context.WithoutCancel(ctx), key, data); err != nil {
		slog.Warn("cache write failed", "err", err)
	}
}
