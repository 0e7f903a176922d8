package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/transcription"
)

func waitRun(t *testing.T, reg *RunRegistry, id string) RunSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := reg.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return snap
}

func TestRunRegistry_StartAndGet(t *testing.T) {
	f := newPipelineFixture(t)
	reg := NewRunRegistry(f.pipeline, 0)

	started, err := reg.Start(context.Background(), Request{Path: f.video})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if started.ID == "" || started.Video != f.video {
		t.Fatalf("Start() = %+v, want id and resolved video", started)
	}

	snap := waitRun(t, reg, started.ID)

	if !snap.Done {
		t.Error("snapshot should be done")
	}
	if snap.State != model.RunComplete {
		t.Errorf("State = %s, want %s", snap.State, model.RunComplete)
	}
	if snap.Status == nil || snap.Status.Stage != model.StageComplete {
		t.Errorf("Status = %+v, want complete", snap.Status)
	}
	if snap.Transcript != model.TranscriptText(testSegments) {
		t.Errorf("Transcript = %q", snap.Transcript)
	}
	if len(snap.Segments) != len(testSegments) {
		t.Errorf("Segments = %d, want %d", len(snap.Segments), len(testSegments))
	}
	if snap.Backend == nil || *snap.Backend != localInfo {
		t.Errorf("Backend = %+v, want %+v", snap.Backend, localInfo)
	}
	if snap.Summary == nil || len(snap.Summary.Topics) != len(testSummary.Topics) {
		t.Errorf("Summary = %+v, want test summary", snap.Summary)
	}
	if snap.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if snap.Error != "" {
		t.Errorf("Error = %q, want empty", snap.Error)
	}

	got, err := reg.Get(started.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Done {
		t.Error("Get() after Wait should report done")
	}
}

func TestRunRegistry_StartErrors(t *testing.T) {
	f := newPipelineFixture(t)
	reg := NewRunRegistry(f.pipeline, 0)

	if _, err := reg.Start(context.Background(), Request{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Start(empty) error = %v, want ErrInvalidInput", err)
	}
	if _, err := reg.Start(context.Background(), Request{Path: f.video + ".missing"}); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Start(missing) error = %v, want ErrFileNotFound", err)
	}
}

func TestRunRegistry_Busy(t *testing.T) {
	f := newPipelineFixture(t)
	release := make(chan struct{})
	f.engine.transcribeFn = func(ctx context.Context, audioPath string, onStatus transcription.StatusFunc) ([]model.TranscriptSegment, error) {
		<-release
		return testSegments, nil
	}
	reg := NewRunRegistry(f.pipeline, 0)

	first, err := reg.Start(context.Background(), Request{Path: f.video})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := reg.Start(context.Background(), Request{Path: f.video}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}

	close(release)
	waitRun(t, reg, first.ID)
}

func TestRunRegistry_Cancel(t *testing.T) {
	f := newPipelineFixture(t)
	started := make(chan struct{})
	f.engine.transcribeFn = func(ctx context.Context, audioPath string, onStatus transcription.StatusFunc) ([]model.TranscriptSegment, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	reg := NewRunRegistry(f.pipeline, 0)

	snap, err := reg.Start(context.Background(), Request{Path: f.video})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	if _, err := reg.Cancel(snap.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	final := waitRun(t, reg, snap.ID)
	if final.State != model.RunError {
		t.Errorf("State = %s, want %s", final.State, model.RunError)
	}
	if final.Status == nil || final.Status.Message != ErrCancelled.Error() {
		t.Errorf("Status = %+v, want cancelled error status", final.Status)
	}
	if final.Error != ErrCancelled.Error() {
		t.Errorf("Error = %q, want %q", final.Error, ErrCancelled.Error())
	}
}

func TestRunRegistry_Warnings(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.putFn = func(ctx context.Context, key string, payload []byte) error {
		return errors.New("disk full")
	}
	reg := NewRunRegistry(f.pipeline, 0)

	snap, err := reg.Start(context.Background(), Request{Path: f.video})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final := waitRun(t, reg, snap.ID)
	if final.State != model.RunComplete {
		t.Errorf("State = %s, want %s", final.State, model.RunComplete)
	}
	if len(final.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2", final.Warnings)
	}
}

func TestRunRegistry_NotFound(t *testing.T) {
	f := newPipelineFixture(t)
	reg := NewRunRegistry(f.pipeline, 0)

	if _, err := reg.Get("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Get() error = %v, want ErrRunNotFound", err)
	}
	if _, err := reg.Cancel("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Cancel() error = %v, want ErrRunNotFound", err)
	}
	if _, err := reg.Wait(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Wait() error = %v, want ErrRunNotFound", err)
	}
}

func TestRunRegistry_EvictsOldestFinished(t *testing.T) {
	f := newPipelineFixture(t)
	reg := NewRunRegistry(f.pipeline, 2)

	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := reg.Start(context.Background(), Request{Path: f.video})
		if err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
		waitRun(t, reg, snap.ID)
		ids = append(ids, snap.ID)
	}

	if _, err := reg.Get(ids[0]); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("oldest run should be evicted, Get() error = %v", err)
	}
	for _, id := range ids[1:] {
		if _, err := reg.Get(id); err != nil {
			t.Errorf("Get(%s) error = %v", id, err)
		}
	}
}
