package transcription

import (
	"context"
	"fmt"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	openai "github.com/sashabaranov/go-openai"
)

// RemoteConfig holds configuration for the hosted transcription API.
type RemoteConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// DefaultRemoteConfig returns a RemoteConfig for the OpenAI Whisper API.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Model: openai.Whisper1,
	}
}

// AudioClient is the subset of the OpenAI client used for transcription.
type AudioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// NewOpenAIAudioClient creates an AudioClient for an OpenAI-compatible endpoint.
func NewOpenAIAudioClient(apiKey, baseURL string) AudioClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// RemoteEngine uploads audio to a hosted transcription service.
type RemoteEngine struct {
	client AudioClient
	config RemoteConfig
}

// Compile-time verification that RemoteEngine implements Engine.
var _ Engine = (*RemoteEngine)(nil)

// NewRemoteEngine creates a RemoteEngine.
func NewRemoteEngine(client AudioClient, cfg RemoteConfig) *RemoteEngine {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	return &RemoteEngine{client: client, config: cfg}
}

// Transcribe performs a single request. Failures are not retried.
func (e *RemoteEngine) Transcribe(ctx context.Context, audioPath string, onStatus StatusFunc) ([]model.TranscriptSegment, error) {
	emit(onStatus, 0.1, "uploading audio")

	ctx, cancel := withTimeout(ctx, e.config.Timeout)
	defer cancel()

	emit(onStatus, 0.4, "waiting for transcription service")

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       e.config.Model,
		FilePath:    audioPath,
		Format:      openai.AudioResponseFormatVerboseJSON,
		Temperature: 0,
		Language:    e.config.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("remote transcription: %w", err)
	}

	segments := make([]model.TranscriptSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, model.TranscriptSegment{Start: s.Start, End: s.End, Text: s.Text})
	}

	emit(onStatus, 1.0, "transcription complete")
	return model.NormalizeSegments(segments), nil
}

func (e *RemoteEngine) BackendInfo() model.BackendInfo {
	return model.BackendInfo{
		Backend: model.BackendRemote,
		Engine:  "openai",
		Model:   e.config.Model,
	}
}
