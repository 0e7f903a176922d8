package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	ErrNegativeStart    = errors.New("segment start cannot be negative")
	ErrEndBeforeStart   = errors.New("segment end precedes its start")
	ErrSegmentsUnsorted = errors.New("segments are not ordered by start time")
)

// TranscriptSegment is one timed piece of recognized speech, in seconds.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the length of the segment in seconds.
func (s TranscriptSegment) Duration() float64 {
	return math.Max(0, s.End-s.Start)
}

// TimestampLabel formats the segment start as MM:SS.
func (s TranscriptSegment) TimestampLabel() string {
	return FormatTimestamp(s.Start)
}

// Validate checks the bounds of a single segment.
func (s TranscriptSegment) Validate() error {
	if s.Start < 0 {
		return ErrNegativeStart
	}
	if s.End < s.Start {
		return ErrEndBeforeStart
	}
	return nil
}

// ValidateSegments checks every segment and the ascending start ordering.
func ValidateSegments(segments []TranscriptSegment) error {
	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i > 0 && seg.Start < segments[i-1].Start {
			return fmt.Errorf("segment %d: %w", i, ErrSegmentsUnsorted)
		}
	}
	return nil
}

// NormalizeSegments returns a copy of segments with bounds clamped, text trimmed
// and a stable ascending order by start.
func NormalizeSegments(segments []TranscriptSegment) []TranscriptSegment {
	out := make([]TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		seg.Start = math.Max(0, seg.Start)
		seg.End = math.Max(seg.Start, seg.End)
		seg.Text = strings.TrimSpace(seg.Text)
		out = append(out, seg)
	}
	slices.SortStableFunc(out, func(a, b TranscriptSegment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	return out
}

// TranscriptText joins the non-empty segment texts with newlines.
func TranscriptText(segments []TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp renders whole seconds as MM:SS.
// Minutes are not capped at 59 (75 minutes renders as 75:00) but wrap after a day.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds) % secondsPerDay
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

const secondsPerDay = 24 * 60 * 60
