package usecase

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
)

// DefaultRunHistory is how many finished runs a RunRegistry remembers.
const DefaultRunHistory = 20

// RunSnapshot is a point-in-time view of a run assembled from its events.
type RunSnapshot struct {
	ID         string                    `json:"id"`
	Video      string                    `json:"video"`
	State      model.RunState            `json:"state"`
	Status     *model.ProcessingStatus   `json:"status,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`
	Done       bool                      `json:"done"`
	Segments   []model.TranscriptSegment `json:"segments,omitempty"`
	Transcript string                    `json:"transcript,omitempty"`
	Backend    *model.BackendInfo        `json:"backend,omitempty"`
	Summary    *model.VideoSummary       `json:"summary,omitempty"`
	Metadata   *model.SummaryMetadata    `json:"metadata,omitempty"`
	Error      string                    `json:"error,omitempty"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt *time.Time                `json:"finished_at,omitempty"`
}

// RunRegistry starts runs on a Pipeline and drains their events so that
// callers without a live consumer, such as HTTP clients, can poll them.
type RunRegistry struct {
	pipeline *Pipeline
	history  int
	now      func() time.Time

	mu    sync.Mutex
	runs  map[string]*trackedRun
	order []string
}

type trackedRun struct {
	run     *Run
	drained chan struct{}

	mu   sync.Mutex
	snap RunSnapshot
}

// NewRunRegistry creates a registry that keeps up to history finished runs.
func NewRunRegistry(pipeline *Pipeline, history int) *RunRegistry {
	if history <= 0 {
		history = DefaultRunHistory
	}
	return &RunRegistry{
		pipeline: pipeline,
		history:  history,
		now:      time.Now,
		runs:     make(map[string]*trackedRun),
	}
}

// Start launches a run and begins draining its events.
// Errors are those of Pipeline.Start.
func (r *RunRegistry) Start(ctx context.Context, req Request) (RunSnapshot, error) {
	run, err := r.pipeline.Start(ctx, req)
	if err != nil {
		return RunSnapshot{}, err
	}

	tr := &trackedRun{
		run:     run,
		drained: make(chan struct{}),
		snap: RunSnapshot{
			ID:        run.ID(),
			Video:     run.Video(),
			State:     run.State(),
			StartedAt: r.now(),
		},
	}

	r.mu.Lock()
	r.runs[run.ID()] = tr
	r.order = append(r.order, run.ID())
	r.evictLocked()
	r.mu.Unlock()

	go r.drain(tr)

	return tr.snapshot(), nil
}

// Get returns the latest snapshot of a run.
func (r *RunRegistry) Get(id string) (RunSnapshot, error) {
	tr, err := r.lookup(id)
	if err != nil {
		return RunSnapshot{}, err
	}
	return tr.snapshot(), nil
}

// Cancel requests cancellation of a run. Cancelling a finished run is a no-op.
func (r *RunRegistry) Cancel(id string) (RunSnapshot, error) {
	tr, err := r.lookup(id)
	if err != nil {
		return RunSnapshot{}, err
	}
	tr.run.Cancel()
	return tr.snapshot(), nil
}

// Wait blocks until the run finishes or ctx is done.
func (r *RunRegistry) Wait(ctx context.Context, id string) (RunSnapshot, error) {
	tr, err := r.lookup(id)
	if err != nil {
		return RunSnapshot{}, err
	}
	select {
	case <-tr.drained:
		return tr.snapshot(), nil
	case <-ctx.Done():
		return tr.snapshot(), ctx.Err()
	}
}

func (r *RunRegistry) lookup(id string) (*trackedRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return tr, nil
}

// evictLocked drops the oldest finished runs beyond the history limit.
func (r *RunRegistry) evictLocked() {
	for len(r.order) > r.history {
		evicted := false
		for i, id := range r.order {
			if tr := r.runs[id]; tr != nil && tr.snapshot().Done {
				delete(r.runs, id)
				r.order = slices.Delete(r.order, i, i+1)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (r *RunRegistry) drain(tr *trackedRun) {
	for ev := range tr.run.Events() {
		tr.apply(ev, tr.run.State())
	}

	res := tr.run.Result()
	finished := r.now()

	tr.mu.Lock()
	tr.snap.State = res.State
	tr.snap.Done = true
	tr.snap.FinishedAt = &finished
	if res.Err != nil {
		tr.snap.Error = res.Err.Error()
	}
	tr.mu.Unlock()
	close(tr.drained)
}

func (t *trackedRun) apply(ev model.Event, state model.RunState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.State = state
	switch ev.Kind {
	case model.EventStatus:
		if ev.Status.Stage == model.StageWarning {
			t.snap.Warnings = append(t.snap.Warnings, ev.Status.Message)
			return
		}
		status := *ev.Status
		t.snap.Status = &status
	case model.EventSegmentsReady:
		t.snap.Segments = ev.Segments
	case model.EventTranscriptTextReady:
		t.snap.Transcript = ev.Text
	case model.EventBackendInfoReady:
		t.snap.Backend = ev.Backend
	case model.EventSummaryReady:
		t.snap.Summary = ev.Summary
		t.snap.Metadata = ev.Metadata
	}
}

func (t *trackedRun) snapshot() RunSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.snap
	snap.Warnings = slices.Clone(t.snap.Warnings)
	snap.Segments = slices.Clone(t.snap.Segments)
	return snap
}
