package transcription

import (
	"context"
	"errors"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	openai "github.com/sashabaranov/go-openai"
)

// mockAudioClient is a mock implementation of AudioClient.
type mockAudioClient struct {
	createTranscriptionFn func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)

	requests []openai.AudioRequest
}

func (m *mockAudioClient) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.requests = append(m.requests, req)
	if m.createTranscriptionFn != nil {
		return m.createTranscriptionFn(ctx, req)
	}
	return openai.AudioResponse{}, nil
}

// mockModel is a mock implementation of LocalModel.
type mockModel struct {
	transcribeFn func(ctx context.Context, audioPath string, onSegment func(model.TranscriptSegment)) error

	calls int
}

func (m *mockModel) Transcribe(ctx context.Context, audioPath string, onSegment func(model.TranscriptSegment)) error {
	m.calls++
	if m.transcribeFn != nil {
		return m.transcribeFn(ctx, audioPath, onSegment)
	}
	return nil
}

// mockLoader is a mock implementation of ModelLoader recording every spec it loads.
type mockLoader struct {
	loadFn func(ctx context.Context, spec ModelSpec) (LocalModel, error)

	specs []ModelSpec
}

func (m *mockLoader) Load(ctx context.Context, spec ModelSpec) (LocalModel, error) {
	m.specs = append(m.specs, spec)
	if m.loadFn != nil {
		return m.loadFn(ctx, spec)
	}
	return &mockModel{}, nil
}

// mockExecutor is a mock implementation of executor.Executor.
type mockExecutor struct {
	runFn    func(ctx context.Context, name string, args ...string) (string, error)
	streamFn func(ctx context.Context, onLine func(string) error, name string, args ...string) error

	runArgs    [][]string
	streamArgs [][]string
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	m.runArgs = append(m.runArgs, args)
	if m.runFn != nil {
		return m.runFn(ctx, name, args...)
	}
	return `{"ok": true}`, nil
}

func (m *mockExecutor) Stream(ctx context.Context, onLine func(string) error, name string, args ...string) error {
	m.streamArgs = append(m.streamArgs, args)
	if m.streamFn != nil {
		return m.streamFn(ctx, onLine, name, args...)
	}
	return errors.New("not implemented")
}

// statusRecorder collects statuses passed to a StatusFunc.
type statusRecorder struct {
	statuses []model.ProcessingStatus
}

func (r *statusRecorder) record(s model.ProcessingStatus) {
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) progress() []float64 {
	out := make([]float64, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, s.Progress)
	}
	return out
}
