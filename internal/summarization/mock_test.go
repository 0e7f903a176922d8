package summarization

import (
	"context"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// mockSummarizer is a mock implementation of Summarizer.
type mockSummarizer struct {
	summarizeFn func(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error)
	model       string

	calls int
}

func (m *mockSummarizer) Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
	m.calls++
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, segments)
	}
	return model.VideoSummary{}, nil
}

func (m *mockSummarizer) Model() string {
	return m.model
}

// mockChatClient is a mock implementation of ChatClient.
type mockChatClient struct {
	createChatCompletionFn func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

	requests []openai.ChatCompletionRequest
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.createChatCompletionFn != nil {
		return m.createChatCompletionFn(ctx, req)
	}
	return openai.ChatCompletionResponse{}, nil
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

// mockGenerator is a mock implementation of ContentGenerator.
type mockGenerator struct {
	generateContentFn func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	calls int
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls++
	if m.generateContentFn != nil {
		return m.generateContentFn(ctx, model, contents, config)
	}
	return nil, nil
}

func genaiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}
