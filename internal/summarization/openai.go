package summarization

import (
	"context"
	"fmt"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultMaxTokens   = 2500
)

// ChatClient is the subset of the OpenAI client used for summaries.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIChatClient creates a ChatClient for an OpenAI-compatible endpoint.
func NewOpenAIChatClient(apiKey, baseURL string) ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAIProvider summarizes with chat completions in JSON mode.
type OpenAIProvider struct {
	client      ChatClient
	model       string
	temperature *float32
	maxTokens   int
}

// Compile-time verification that OpenAIProvider implements Summarizer.
var _ Summarizer = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAIProvider.
func NewOpenAIProvider(client ChatClient, cfg Config) *OpenAIProvider {
	p := &OpenAIProvider{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	return p
}

func (p *OpenAIProvider) Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(segments)},
		},
		MaxTokens: p.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if p.temperature != nil {
		req.Temperature = *p.temperature
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.VideoSummary{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.VideoSummary{}, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	return decodeSummary(resp.Choices[0].Message.Content)
}

func (p *OpenAIProvider) Model() string {
	return p.model
}
