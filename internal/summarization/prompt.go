package summarization

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
)

const systemPrompt = "You return only valid JSON that matches the VideoSummary schema."

const summaryPrompt = `You are an expert product analyst summarizing usability feedback videos.
Turn the transcript below into a VideoSummary JSON object.

Schema:
{"topics": [{"title": string (max 200 chars), "timestamp": "MM:SS" of first occurrence,
  "description": string, "impact_assessment": string (optional),
  "highlights": [{"title": string (max 200 chars), "timestamp": "MM:SS", "quote": string (max 500 chars)}]}]}

Rules:
- Include every relevant topic. Merge repeated issues into one topic with all highlights.
- Order topics chronologically by first occurrence.
- Quotes are verbatim from the transcript, truncated with "..." if needed.
- Focus on actionable UX and technical problems and concrete suggestions.
- Use only information present in the transcript.
- Respond only with the JSON object.

Transcript:
%s`

// RenderTranscript formats segments as "[MM:SS] text" lines, skipping blank texts.
func RenderTranscript(segments []model.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", model.FormatTimestamp(seg.Start), text)
	}
	return b.String()
}

func buildPrompt(segments []model.TranscriptSegment) string {
	return fmt.Sprintf(summaryPrompt, RenderTranscript(segments))
}

// decodeSummary parses a provider's JSON output into a validated, sorted VideoSummary.
func decodeSummary(raw string) (model.VideoSummary, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return model.VideoSummary{}, fmt.Errorf("%w: empty output", ErrInvalidResponse)
	}

	var summary model.VideoSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return model.VideoSummary{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if summary.Topics == nil {
		summary.Topics = []model.TopicSummary{}
	}

	summary.SortTopics()
	if err := summary.Validate(); err != nil {
		return model.VideoSummary{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return summary, nil
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
