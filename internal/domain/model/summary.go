package model

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"
)

// TranscriptionBackendKey is the reserved SummaryMetadata.Extra key holding the
// BackendInfo of the transcript a summary was generated from.
const TranscriptionBackendKey = "transcription_backend"

const (
	maxHighlightTitleLength = 200
	maxHighlightQuoteLength = 500
	maxTopicTitleLength     = 200
)

var (
	ErrInvalidTimestamp = errors.New("timestamp must be formatted as MM:SS")
	ErrFieldTooLong     = errors.New("field exceeds maximum length")
	ErrTopicsUnordered  = errors.New("topics are not in chronological order")
	ErrEmptyTopicTitle  = errors.New("topic title cannot be empty")
)

var timestampPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// TopicHighlight is a literal quote supporting a topic.
type TopicHighlight struct {
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
	Quote     string `json:"quote"`
}

// TopicSummary groups every highlight about one subject of the video.
type TopicSummary struct {
	Title            string           `json:"title"`
	Timestamp        string           `json:"timestamp"`
	Description      string           `json:"description"`
	ImpactAssessment string           `json:"impact_assessment,omitempty"`
	Highlights       []TopicHighlight `json:"highlights"`
}

// VideoSummary is the structured summary of a transcript.
// Topics are ordered by their first chronological occurrence.
type VideoSummary struct {
	Topics []TopicSummary `json:"topics"`
}

// IsEmpty reports whether the summary has no topics.
func (s VideoSummary) IsEmpty() bool {
	return len(s.Topics) == 0
}

// Validate checks field formats and the chronological ordering of topics.
func (s VideoSummary) Validate() error {
	prev := -1
	for i, topic := range s.Topics {
		if topic.Title == "" {
			return fmt.Errorf("topic %d: %w", i, ErrEmptyTopicTitle)
		}
		if utf8.RuneCountInString(topic.Title) > maxTopicTitleLength {
			return fmt.Errorf("topic %d title: %w", i, ErrFieldTooLong)
		}
		secs, err := ParseTimestamp(topic.Timestamp)
		if err != nil {
			return fmt.Errorf("topic %d: %w", i, err)
		}
		if secs < prev {
			return fmt.Errorf("topic %d: %w", i, ErrTopicsUnordered)
		}
		prev = secs
		for j, h := range topic.Highlights {
			if err := h.Validate(); err != nil {
				return fmt.Errorf("topic %d highlight %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// SortTopics stably orders topics by their first-occurrence timestamp.
// Topics with an unparseable timestamp keep their relative position at the end.
func (s *VideoSummary) SortTopics() {
	slices.SortStableFunc(s.Topics, func(a, b TopicSummary) int {
		ta, errA := ParseTimestamp(a.Timestamp)
		tb, errB := ParseTimestamp(b.Timestamp)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return ta - tb
	})
}

// Validate checks the highlight's timestamp and length limits.
func (h TopicHighlight) Validate() error {
	if _, err := ParseTimestamp(h.Timestamp); err != nil {
		return err
	}
	if utf8.RuneCountInString(h.Title) > maxHighlightTitleLength {
		return fmt.Errorf("title: %w", ErrFieldTooLong)
	}
	if utf8.RuneCountInString(h.Quote) > maxHighlightQuoteLength {
		return fmt.Errorf("quote: %w", ErrFieldTooLong)
	}
	return nil
}

// ParseTimestamp converts an MM:SS label back to whole seconds.
func ParseTimestamp(ts string) (int, error) {
	if !timestampPattern.MatchString(ts) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}
	minutes := int(ts[0]-'0')*10 + int(ts[1]-'0')
	seconds := int(ts[3]-'0')*10 + int(ts[4]-'0')
	if seconds > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}
	return minutes*60 + seconds, nil
}

// SummaryMetadata records the provenance of a summary. It is replaced wholesale
// whenever the summary is regenerated.
type SummaryMetadata struct {
	PromptVersion string         `json:"prompt_version,omitempty"`
	RegeneratedAt string         `json:"regenerated_at,omitempty"`
	BackendModel  string         `json:"backend_model,omitempty"`
	Extra         map[string]any `json:"extra"`
}

// NewSummaryMetadata stamps metadata with the current UTC time.
func NewSummaryMetadata(promptVersion, backendModel string, now time.Time) SummaryMetadata {
	return SummaryMetadata{
		PromptVersion: promptVersion,
		RegeneratedAt: now.UTC().Format(time.RFC3339),
		BackendModel:  backendModel,
		Extra:         map[string]any{},
	}
}

// WithTranscriptionBackend returns a copy carrying info under the reserved extra key.
func (m SummaryMetadata) WithTranscriptionBackend(info BackendInfo) SummaryMetadata {
	extra := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		extra[k] = v
	}
	extra[TranscriptionBackendKey] = info.Map()
	m.Extra = extra
	return m
}

// TranscriptionBackend extracts the reserved backend entry, if present.
func (m SummaryMetadata) TranscriptionBackend() (BackendInfo, bool) {
	if m.Extra == nil {
		return BackendInfo{}, false
	}
	return BackendInfoFromValue(m.Extra[TranscriptionBackendKey])
}
