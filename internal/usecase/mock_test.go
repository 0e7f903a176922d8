package usecase

import (
	"context"
	"os"
	"sync"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/domain/repository"
	"github.com/hszk-dev/vidbrief/internal/transcription"
)

// mockRecordStore is an in-memory repository.RecordStore whose operations can be overridden.
type mockRecordStore struct {
	getFn    func(ctx context.Context, key string) ([]byte, error)
	putFn    func(ctx context.Context, key string, payload []byte) error
	deleteFn func(ctx context.Context, key string) error

	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{data: make(map[string][]byte)}
}

func (m *mockRecordStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return data, nil
}

func (m *mockRecordStore) Put(ctx context.Context, key string, payload []byte) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return nil
}

func (m *mockRecordStore) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockRecordStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// mockExtractor is a mock implementation of transcoder.AudioExtractor.
// By default it writes a placeholder WAV to the output path.
type mockExtractor struct {
	extractAudioFn func(ctx context.Context, inputPath, outputPath string) error

	mu          sync.Mutex
	calls       int
	outputPaths []string
}

func (m *mockExtractor) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	m.mu.Lock()
	m.calls++
	m.outputPaths = append(m.outputPaths, outputPath)
	m.mu.Unlock()
	if m.extractAudioFn != nil {
		return m.extractAudioFn(ctx, inputPath, outputPath)
	}
	return os.WriteFile(outputPath, []byte("RIFF"), 0644)
}

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEngine is a mock implementation of transcription.Engine.
type mockEngine struct {
	transcribeFn func(ctx context.Context, audioPath string, onStatus transcription.StatusFunc) ([]model.TranscriptSegment, error)
	info         model.BackendInfo

	mu    sync.Mutex
	calls int
}

func (m *mockEngine) Transcribe(ctx context.Context, audioPath string, onStatus transcription.StatusFunc) ([]model.TranscriptSegment, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.transcribeFn != nil {
		return m.transcribeFn(ctx, audioPath, onStatus)
	}
	return nil, nil
}

func (m *mockEngine) BackendInfo() model.BackendInfo {
	return m.info
}

func (m *mockEngine) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSummaryService is a mock implementation of SummaryService.
type mockSummaryService struct {
	summarizeFn     func(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error)
	buildMetadataFn func() model.SummaryMetadata

	mu    sync.Mutex
	calls int
}

func (m *mockSummaryService) Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, segments)
	}
	return model.VideoSummary{Topics: []model.TopicSummary{}}, nil
}

func (m *mockSummaryService) BuildMetadata() model.SummaryMetadata {
	if m.buildMetadataFn != nil {
		return m.buildMetadataFn()
	}
	return model.SummaryMetadata{PromptVersion: "test", BackendModel: "mock-model", Extra: map[string]any{}}
}

func (m *mockSummaryService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRecentFiles is a mock implementation of repository.RecentFiles.
type mockRecentFiles struct {
	addFn func(path string) ([]string, error)

	mu    sync.Mutex
	added []string
}

func (m *mockRecentFiles) Load() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.added...)
}

func (m *mockRecentFiles) Add(path string) ([]string, error) {
	m.mu.Lock()
	m.added = append(m.added, path)
	m.mu.Unlock()
	if m.addFn != nil {
		return m.addFn(path)
	}
	return m.Load(), nil
}
