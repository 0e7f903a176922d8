// Package summarization produces structured topic summaries from transcripts.
package summarization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
)

// PromptVersion identifies the prompt revision recorded in summary metadata.
const PromptVersion = "2025-09-27"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var (
	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown summary provider")

	// ErrInvalidResponse is returned when a provider's output is not a valid VideoSummary.
	ErrInvalidResponse = errors.New("invalid summary response")
)

// Summarizer produces a VideoSummary from transcript segments.
type Summarizer interface {
	Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error)

	// Model names the backing model, recorded as SummaryMetadata.BackendModel.
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	Model         string
	Temperature   *float32
	MaxTokens     int
	OpenAIKey     string
	OpenAIURL     string
	GeminiAPIKeys []string
	Timeout       time.Duration
}

// Service applies the local summarization policy around a provider.
type Service struct {
	provider Summarizer
	timeout  time.Duration
	now      func() time.Time
}

// Compile-time verification that Service implements Summarizer.
var _ Summarizer = (*Service)(nil)

// NewService wraps provider.
func NewService(provider Summarizer, timeout time.Duration) *Service {
	return &Service{
		provider: provider,
		timeout:  timeout,
		now:      time.Now,
	}
}

// New creates a Service for the provider named in cfg.
func New(ctx context.Context, cfg Config) (*Service, error) {
	var provider Summarizer
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai summary provider requires an API key")
		}
		provider = NewOpenAIProvider(NewOpenAIChatClient(cfg.OpenAIKey, cfg.OpenAIURL), cfg)
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return NewService(provider, cfg.Timeout), nil
}

// Summarize returns an empty summary for an empty transcript without calling the provider.
func (s *Service) Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
	if len(segments) == 0 {
		return model.VideoSummary{Topics: []model.TopicSummary{}}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.provider.Summarize(ctx, segments)
	if err != nil {
		return model.VideoSummary{}, fmt.Errorf("summarize with %s: %w", s.provider.Model(), err)
	}
	return summary, nil
}

func (s *Service) Model() string {
	return s.provider.Model()
}

// BuildMetadata describes a summary generated now by this service.
func (s *Service) BuildMetadata() model.SummaryMetadata {
	return model.NewSummaryMetadata(PromptVersion, s.provider.Model(), s.now())
}
