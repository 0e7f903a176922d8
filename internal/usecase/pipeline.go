package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/domain/repository"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/metrics"
	"github.com/hszk-dev/vidbrief/internal/transcoder"
	"github.com/hszk-dev/vidbrief/internal/transcription"
)

// eventBufferSize bounds how far the worker can run ahead of a slow consumer.
const eventBufferSize = 64

// Progress bands reported on the run's status events.
const (
	progressPreparing        = 0.05
	progressExtracting       = 0.1
	progressTranscribeStart  = 0.1
	progressTranscribeEnd    = 0.85
	progressCachedTranscript = 0.4
	progressSummarizing      = 0.9
	progressComplete         = 1.0
)

// SummaryService generates summaries and describes how they were generated.
type SummaryService interface {
	Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error)
	BuildMetadata() model.SummaryMetadata
}

// PipelineConfig holds settings for the pipeline.
type PipelineConfig struct {
	// TempDir receives the extracted audio of a run. Empty means the OS default.
	TempDir string
}

// Request asks the pipeline to process one video.
type Request struct {
	Path string

	// ForceSummary discards any cached summary and generates a new one.
	ForceSummary bool
}

// Pipeline runs fingerprint lookup, extraction, transcription and summarization
// for one video at a time.
type Pipeline struct {
	cache      FingerprintCache
	extractor  transcoder.AudioExtractor
	engine     transcription.Engine
	summarizer SummaryService
	recent     repository.RecentFiles
	config     PipelineConfig

	mu     sync.Mutex
	active *Run
}

// NewPipeline creates a Pipeline. recent may be nil.
func NewPipeline(
	cache FingerprintCache,
	extractor transcoder.AudioExtractor,
	engine transcription.Engine,
	summarizer SummaryService,
	recent repository.RecentFiles,
	cfg PipelineConfig,
) *Pipeline {
	return &Pipeline{
		cache:      cache,
		extractor:  extractor,
		engine:     engine,
		summarizer: summarizer,
		recent:     recent,
		config:     cfg,
	}
}

// Start validates the request and launches a run in its own goroutine.
// It returns ErrInvalidInput or ErrFileNotFound without taking the busy slot,
// and ErrBusy if another run is active.
//
// The run is detached from ctx cancellation; use Run.Cancel to stop it.
func (p *Pipeline) Start(ctx context.Context, req Request) (*Run, error) {
	if req.Path == "" {
		return nil, ErrInvalidInput
	}
	resolved, _, err := ResolveVideo(req.Path)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := newRun(resolved, cancel)

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		cancel()
		metrics.PipelineRunsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrBusy
	}
	p.active = run
	p.mu.Unlock()

	if p.recent != nil {
		if _, err := p.recent.Add(resolved); err != nil {
			slog.Warn("failed to update recent files", "path", resolved, "error", err)
		}
	}

	slog.Info("run started",
		"run_id", run.id,
		"path", resolved,
		"force_summary", req.ForceSummary,
	)

	go p.work(runCtx, run, req.ForceSummary)

	return run, nil
}

// Busy reports whether a run is active.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

func (p *Pipeline) release(run *Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == run {
		p.active = nil
	}
}

func (p *Pipeline) work(ctx context.Context, run *Run, force bool) {
	defer run.cancel()
	start := time.Now()

	message, err := p.execute(ctx, run, force)

	var terminal model.ProcessingStatus
	var outcome string
	switch {
	case err == nil:
		outcome = metrics.OutcomeComplete
		terminal = model.NewStatus(model.StageComplete, progressComplete, message)
	case errors.Is(err, ErrCancelled):
		outcome = metrics.OutcomeCancelled
		terminal = model.NewStatus(model.StageError, run.progress(), ErrCancelled.Error())
	default:
		outcome = metrics.OutcomeError
		terminal = model.NewStatus(model.StageError, run.progress(), err.Error())
	}
	run.finish(err)
	metrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		slog.Error("run failed",
			"run_id", run.id,
			"path", run.video,
			"error", err,
			"duration", time.Since(start),
		)
	} else {
		slog.Info("run completed",
			"run_id", run.id,
			"path", run.video,
			"duration", time.Since(start),
		)
	}

	// The busy slot is free before the terminal event is observable.
	p.release(run)
	run.send(model.StatusEvent(terminal))
	close(run.events)
	close(run.done)
}

// execute runs the stages and returns the completion message.
func (p *Pipeline) execute(ctx context.Context, run *Run, force bool) (string, error) {
	path := run.video

	run.enter(model.RunPreparing)
	run.status(model.StagePreparing, progressPreparing, "preparing "+filepath.Base(path))
	if ctx.Err() != nil {
		return "", ErrCancelled
	}

	run.enter(model.RunCacheCheck)
	record, hit := p.cache.Lookup(ctx, path)
	if force && hit && (record.HasSummary() || record.SummaryMetadata() != nil) {
		if err := p.cache.ClearSummary(ctx, path); err != nil {
			run.warn("could not clear cached summary", err)
		}
		record.ClearSummary()
	}

	var segments []model.TranscriptSegment
	var backend model.BackendInfo
	transcriptCached := hit && record.HasTranscript()

	if transcriptCached {
		run.enter(model.RunTranscribing)
		segments = record.Segments
		backend = p.engine.BackendInfo()
		if meta := record.SummaryMetadata(); meta != nil {
			if info, ok := meta.TranscriptionBackend(); ok {
				backend = info
			}
		}
		run.status(model.StageTranscribing, progressCachedTranscript, "transcript loaded from cache")
	} else {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		var err error
		segments, backend, err = p.transcribe(ctx, run, path)
		if err != nil {
			return "", err
		}
		if err := p.cache.SaveTranscript(ctx, path, segments); err != nil {
			run.warn("could not save transcript to cache", err)
		}
	}

	if ctx.Err() != nil {
		return "", ErrCancelled
	}

	run.setTranscript(segments, backend)
	run.send(model.SegmentsReadyEvent(slices.Clone(segments)))
	run.send(model.TranscriptTextEvent(model.TranscriptText(segments)))
	run.send(model.BackendInfoEvent(backend))

	if transcriptCached && record.HasSummary() && !force {
		run.setSummary(*record.Summary, record.SummaryMetadata())
		run.send(model.SummaryReadyEvent(*record.Summary, record.SummaryMetadata()))
		run.enter(model.RunComplete)
		return "summary loaded from cache", nil
	}

	if ctx.Err() != nil {
		return "", ErrCancelled
	}

	run.enter(model.RunSummarizing)
	run.status(model.StageSummarizing, progressSummarizing, "generating summary")

	stageStart := time.Now()
	summary, err := p.summarizer.Summarize(ctx, segments)
	metrics.StageDurationSeconds.WithLabelValues(string(model.StageSummarizing)).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return "", stageError(ctx, "summarization failed", err)
	}

	meta := p.summarizer.BuildMetadata().WithTranscriptionBackend(backend)
	if err := p.cache.SaveSummary(ctx, path, summary, &meta); err != nil {
		run.warn("could not save summary to cache", err)
	}

	run.setSummary(summary, &meta)
	run.send(model.SummaryReadyEvent(summary, &meta))
	run.enter(model.RunComplete)
	return "summary complete", nil
}

// transcribe extracts audio to a temp file and runs the engine on it.
// The temp file is removed on every path.
func (p *Pipeline) transcribe(ctx context.Context, run *Run, path string) ([]model.TranscriptSegment, model.BackendInfo, error) {
	run.enter(model.RunExtracting)
	run.status(model.StageExtracting, progressExtracting, "extracting audio")

	tmp, err := os.CreateTemp(p.config.TempDir, "vidbrief-*.wav")
	if err != nil {
		return nil, model.BackendInfo{}, fmt.Errorf("create temp audio file: %w", err)
	}
	audioPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temp audio", "path", audioPath, "error", err)
		}
	}()

	stageStart := time.Now()
	err = p.extractor.ExtractAudio(ctx, path, audioPath)
	metrics.StageDurationSeconds.WithLabelValues(string(model.StageExtracting)).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return nil, model.BackendInfo{}, stageError(ctx, "audio extraction failed", err)
	}

	if ctx.Err() != nil {
		return nil, model.BackendInfo{}, ErrCancelled
	}

	run.enter(model.RunTranscribing)
	run.status(model.StageTranscribing, progressTranscribeStart, "transcribing")

	stageStart = time.Now()
	segments, err := p.engine.Transcribe(ctx, audioPath, func(s model.ProcessingStatus) {
		progress := progressTranscribeStart + s.Progress*(progressTranscribeEnd-progressTranscribeStart)
		run.status(model.StageTranscribing, progress, s.Message)
	})
	metrics.StageDurationSeconds.WithLabelValues(string(model.StageTranscribing)).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return nil, model.BackendInfo{}, stageError(ctx, "transcription failed", err)
	}

	return model.NormalizeSegments(segments), p.engine.BackendInfo(), nil
}

func stageError(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Result is the outcome of a finished run.
type Result struct {
	Video      string
	State      model.RunState
	Segments   []model.TranscriptSegment
	Transcript string
	Backend    model.BackendInfo
	Summary    *model.VideoSummary
	Metadata   *model.SummaryMetadata
	Err        error
}

// Run is one execution of the pipeline. Its events must be drained by the consumer.
type Run struct {
	id     string
	video  string
	events chan model.Event
	done   chan struct{}
	cancel context.CancelFunc

	mu           sync.Mutex
	machine      *model.RunMachine
	lastProgress float64
	result       Result
}

func newRun(video string, cancel context.CancelFunc) *Run {
	return &Run{
		id:      uuid.New().String(),
		video:   video,
		events:  make(chan model.Event, eventBufferSize),
		done:    make(chan struct{}),
		cancel:  cancel,
		machine: model.NewRunMachine(),
		result:  Result{Video: video, State: model.RunIdle},
	}
}

func (r *Run) ID() string {
	return r.id
}

// Video returns the resolved path being processed.
func (r *Run) Video() string {
	return r.video
}

// Events returns the ordered event channel. It is closed after the terminal event.
func (r *Run) Events() <-chan model.Event {
	return r.events
}

// Cancel requests cooperative cancellation. It is safe to call more than once.
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed once the run has finished and its events channel is closed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// State returns the current state of the run.
func (r *Run) State() model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.machine.State()
}

// Result returns a copy of what the run has produced so far.
func (r *Run) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.result
	res.State = r.machine.State()
	res.Segments = slices.Clone(r.result.Segments)
	if r.result.Summary != nil {
		s := *r.result.Summary
		res.Summary = &s
	}
	if r.result.Metadata != nil {
		m := *r.result.Metadata
		res.Metadata = &m
	}
	return res
}

func (r *Run) send(ev model.Event) {
	r.events <- ev
}

func (r *Run) status(stage model.Stage, progress float64, message string) {
	s := model.NewStatus(stage, progress, message)
	r.mu.Lock()
	r.lastProgress = s.Progress
	r.mu.Unlock()
	r.send(model.StatusEvent(s))
}

// warn reports a non-fatal failure without ending the run.
func (r *Run) warn(msg string, err error) {
	slog.Warn(msg, "run_id", r.id, "path", r.video, "error", err)
	r.send(model.StatusEvent(model.NewStatus(model.StageWarning, r.progress(), fmt.Sprintf("%s: %v", msg, err))))
}

func (r *Run) progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastProgress
}

func (r *Run) enter(state model.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.machine.TransitionTo(state); err != nil {
		slog.Error("unexpected run state transition",
			"run_id", r.id,
			"from", r.machine.State(),
			"to", state,
		)
	}
}

func (r *Run) setTranscript(segments []model.TranscriptSegment, backend model.BackendInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Segments = slices.Clone(segments)
	r.result.Transcript = model.TranscriptText(segments)
	r.result.Backend = backend
}

func (r *Run) setSummary(summary model.VideoSummary, meta *model.SummaryMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Summary = &summary
	r.result.Metadata = meta
}

func (r *Run) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Err = err
	if err != nil && !r.machine.State().IsTerminal() {
		_ = r.machine.TransitionTo(model.RunError)
	}
}
