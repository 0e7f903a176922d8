package summarization

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const validSummaryJSON = `{"topics": [
  {"title": "Checkout", "timestamp": "02:10", "description": "Pay button hidden",
   "highlights": [{"title": "hidden", "timestamp": "02:11", "quote": "where is the button"}]},
  {"title": "Login", "timestamp": "00:05", "description": "Slow login", "impact_assessment": "Blocks onboarding",
   "highlights": []}
]}`

var sampleSegments = []model.TranscriptSegment{
	{Start: 5, End: 9, Text: " login is slow "},
	{Start: 130, End: 133, Text: "where is the button"},
}

func TestService_Summarize(t *testing.T) {
	t.Run("empty transcript short-circuits", func(t *testing.T) {
		provider := &mockSummarizer{model: "m"}
		svc := NewService(provider, 0)

		summary, err := svc.Summarize(context.Background(), nil)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if !summary.IsEmpty() || summary.Topics == nil {
			t.Errorf("Summarize() = %+v, want empty non-nil topics", summary)
		}
		if provider.calls != 0 {
			t.Errorf("provider calls = %d, want 0", provider.calls)
		}
	})

	t.Run("provider error is wrapped", func(t *testing.T) {
		providerErr := errors.New("rate limited")
		svc := NewService(&mockSummarizer{
			model: "m",
			summarizeFn: func(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
				return model.VideoSummary{}, providerErr
			},
		}, 0)

		_, err := svc.Summarize(context.Background(), sampleSegments)
		if !errors.Is(err, providerErr) {
			t.Errorf("Summarize() error = %v, want wrapped %v", err, providerErr)
		}
	})

	t.Run("timeout is applied", func(t *testing.T) {
		svc := NewService(&mockSummarizer{
			summarizeFn: func(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
				if _, ok := ctx.Deadline(); !ok {
					t.Error("expected a deadline on the provider context")
				}
				return model.VideoSummary{}, nil
			},
		}, time.Minute)

		if _, err := svc.Summarize(context.Background(), sampleSegments); err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
	})
}

func TestService_BuildMetadata(t *testing.T) {
	svc := NewService(&mockSummarizer{model: "gpt-4o-mini"}, 0)
	svc.now = func() time.Time { return time.Date(2025, 9, 27, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600)) }

	meta := svc.BuildMetadata()

	if meta.PromptVersion != PromptVersion {
		t.Errorf("PromptVersion = %q, want %q", meta.PromptVersion, PromptVersion)
	}
	if meta.BackendModel != "gpt-4o-mini" {
		t.Errorf("BackendModel = %q", meta.BackendModel)
	}
	if meta.RegeneratedAt != "2025-09-27T15:00:00Z" {
		t.Errorf("RegeneratedAt = %q, want UTC timestamp", meta.RegeneratedAt)
	}
}

func TestRenderTranscript(t *testing.T) {
	segments := []model.TranscriptSegment{
		{Start: 0, End: 1, Text: " hello "},
		{Start: 30, End: 31, Text: "  "},
		{Start: 75.8, End: 80, Text: "world"},
	}

	want := "[00:00] hello\n[01:15] world"
	if got := RenderTranscript(segments); got != want {
		t.Errorf("RenderTranscript() = %q, want %q", got, want)
	}
}

func TestDecodeSummary(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantTitles string
		wantErr    bool
	}{
		{"sorts topics", validSummaryJSON, "Login,Checkout", false},
		{"code fenced", "```json\n" + validSummaryJSON + "\n```", "Login,Checkout", false},
		{"no topics", `{"topics": []}`, "", false},
		{"missing topics key", `{}`, "", false},
		{"empty", "  ", "", true},
		{"not json", "Here is your summary", "", true},
		{"bad timestamp", `{"topics": [{"title": "a", "timestamp": "5:00", "description": "", "highlights": []}]}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := decodeSummary(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeSummary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidResponse) {
					t.Errorf("decodeSummary() error = %v, want %v", err, ErrInvalidResponse)
				}
				return
			}
			var titles []string
			for _, topic := range summary.Topics {
				titles = append(titles, topic.Title)
			}
			if strings.Join(titles, ",") != tt.wantTitles {
				t.Errorf("titles = %v, want %s", titles, tt.wantTitles)
			}
			if summary.Topics == nil {
				t.Error("Topics is nil, want empty slice")
			}
		})
	}
}

func TestOpenAIProvider_Summarize(t *testing.T) {
	temp := float32(0.2)
	client := &mockChatClient{
		createChatCompletionFn: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return chatResponse(validSummaryJSON), nil
		},
	}
	provider := NewOpenAIProvider(client, Config{Temperature: &temp})

	summary, err := provider.Summarize(context.Background(), sampleSegments)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(summary.Topics) != 2 || summary.Topics[1].Highlights[0].Quote != "where is the button" {
		t.Errorf("Summarize() = %+v", summary)
	}

	req := client.requests[0]
	if req.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want default", req.Model)
	}
	if req.MaxTokens != 2500 {
		t.Errorf("MaxTokens = %d, want 2500", req.MaxTokens)
	}
	if req.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", req.Temperature)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("ResponseFormat = %+v, want json_object", req.ResponseFormat)
	}
	if !strings.Contains(req.Messages[1].Content, "[02:10] where is the button") {
		t.Errorf("prompt does not contain rendered transcript:\n%s", req.Messages[1].Content)
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp openai.ChatCompletionResponse
		err  error
	}{
		{"transport error", openai.ChatCompletionResponse{}, errors.New("connection reset")},
		{"no choices", openai.ChatCompletionResponse{}, nil},
		{"invalid json", chatResponse("not json"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewOpenAIProvider(&mockChatClient{
				createChatCompletionFn: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
					return tt.resp, tt.err
				},
			}, Config{})

			if _, err := provider.Summarize(context.Background(), sampleSegments); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGeminiProvider_Summarize(t *testing.T) {
	t.Run("returns decoded summary", func(t *testing.T) {
		gen := &mockGenerator{
			generateContentFn: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				if model != defaultGeminiModel {
					t.Errorf("model = %q, want %q", model, defaultGeminiModel)
				}
				if config.ResponseMIMEType != "application/json" {
					t.Errorf("ResponseMIMEType = %q", config.ResponseMIMEType)
				}
				return genaiResponse(validSummaryJSON), nil
			},
		}
		provider, err := newGeminiProvider(Config{GeminiAPIKeys: []string{"k1"}}, func(ctx context.Context, key string) (ContentGenerator, error) {
			return gen, nil
		})
		if err != nil {
			t.Fatal(err)
		}

		summary, err := provider.Summarize(context.Background(), sampleSegments)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if len(summary.Topics) != 2 {
			t.Errorf("topics = %d, want 2", len(summary.Topics))
		}
	})

	t.Run("rotates keys on quota errors", func(t *testing.T) {
		var used []string
		factory := func(ctx context.Context, key string) (ContentGenerator, error) {
			return &mockGenerator{
				generateContentFn: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					used = append(used, key)
					if key == "k1" {
						return nil, errors.New("Error 429, RESOURCE_EXHAUSTED")
					}
					return genaiResponse(`{"topics": []}`), nil
				},
			}, nil
		}
		provider, err := newGeminiProvider(Config{GeminiAPIKeys: []string{"k1", " ", "k2"}}, factory)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := provider.Summarize(context.Background(), sampleSegments); err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if strings.Join(used, ",") != "k1,k2" {
			t.Errorf("keys used = %v, want k1,k2", used)
		}
	})

	t.Run("all keys exhausted", func(t *testing.T) {
		quotaErr := errors.New("quota exceeded")
		provider, _ := newGeminiProvider(Config{GeminiAPIKeys: []string{"k1", "k2"}}, func(ctx context.Context, key string) (ContentGenerator, error) {
			return &mockGenerator{
				generateContentFn: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					return nil, quotaErr
				},
			}, nil
		})

		_, err := provider.Summarize(context.Background(), sampleSegments)
		if !errors.Is(err, quotaErr) {
			t.Errorf("Summarize() error = %v, want wrapped %v", err, quotaErr)
		}
	})

	t.Run("empty response is invalid", func(t *testing.T) {
		provider, _ := newGeminiProvider(Config{GeminiAPIKeys: []string{"k1"}}, func(ctx context.Context, key string) (ContentGenerator, error) {
			return &mockGenerator{}, nil
		})

		_, err := provider.Summarize(context.Background(), sampleSegments)
		if !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("Summarize() error = %v, want %v", err, ErrInvalidResponse)
		}
	})

	t.Run("requires a key", func(t *testing.T) {
		if _, err := newGeminiProvider(Config{}, nil); err == nil {
			t.Error("expected error without API keys")
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"openai", Config{Provider: ProviderOpenAI, OpenAIKey: "sk"}, nil},
		{"unknown", Config{Provider: "llama"}, ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
