package summarization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the subset of the genai models service used for summaries.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeneratorFactory creates a ContentGenerator for one API key.
type GeneratorFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)

// NewGenAIGenerator creates a ContentGenerator backed by the Gemini API.
func NewGenAIGenerator(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client.Models, nil
}

// GeminiProvider summarizes with Gemini and rotates API keys on quota errors.
type GeminiProvider struct {
	model       string
	temperature *float32
	maxTokens   int
	keys        []string
	factory     GeneratorFactory

	mu         sync.Mutex
	currentKey int
	generators map[string]ContentGenerator
}

// Compile-time verification that GeminiProvider implements Summarizer.
var _ Summarizer = (*GeminiProvider)(nil)

// NewGeminiProvider creates a GeminiProvider using the genai client.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	return newGeminiProvider(cfg, NewGenAIGenerator)
}

func newGeminiProvider(cfg Config, factory GeneratorFactory) (*GeminiProvider, error) {
	var keys []string
	for _, k := range cfg.GeminiAPIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("gemini summary provider requires at least one API key")
	}

	p := &GeminiProvider{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		keys:        keys,
		factory:     factory,
		generators:  make(map[string]ContentGenerator),
	}
	if p.model == "" {
		p.model = defaultGeminiModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	return p, nil
}

func (p *GeminiProvider) Summarize(ctx context.Context, segments []model.TranscriptSegment) (model.VideoSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prompt := systemPrompt + "\n\n" + buildPrompt(segments)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  int32(p.maxTokens),
	}
	if p.temperature != nil {
		t := *p.temperature
		cfg.Temperature = &t
	}

	var lastErr error
	for range p.keys {
		gen, err := p.generator(ctx)
		if err != nil {
			lastErr = err
			p.rotateKey()
			continue
		}

		result, err := gen.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
		if err != nil {
			if isQuotaError(err) && ctx.Err() == nil {
				slog.Warn("gemini key rate limited, rotating", "key_index", p.currentKey+1, "error", err)
				lastErr = err
				p.rotateKey()
				continue
			}
			return model.VideoSummary{}, fmt.Errorf("generate content: %w", err)
		}

		return decodeSummary(responseText(result))
	}

	return model.VideoSummary{}, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) generator(ctx context.Context) (ContentGenerator, error) {
	key := p.keys[p.currentKey]
	if gen, ok := p.generators[key]; ok {
		return gen, nil
	}
	gen, err := p.factory(ctx, key)
	if err != nil {
		return nil, err
	}
	p.generators[key] = gen
	return gen, nil
}

func (p *GeminiProvider) rotateKey() {
	p.currentKey = (p.currentKey + 1) % len(p.keys)
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

func isQuotaError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
