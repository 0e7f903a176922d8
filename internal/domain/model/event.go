package model

// EventKind discriminates the payload of a run Event.
type EventKind string

const (
	EventStatus              EventKind = "status"
	EventSegmentsReady       EventKind = "segments_ready"
	EventTranscriptTextReady EventKind = "transcript_text_ready"
	EventBackendInfoReady    EventKind = "backend_info_ready"
	EventSummaryReady        EventKind = "summary_ready"
)

// Event is one message on a run's ordered event channel.
// Only the fields matching Kind are populated.
type Event struct {
	Kind     EventKind           `json:"kind"`
	Status   *ProcessingStatus   `json:"status,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
	Text     string              `json:"text,omitempty"`
	Backend  *BackendInfo        `json:"backend,omitempty"`
	Summary  *VideoSummary       `json:"summary,omitempty"`
	Metadata *SummaryMetadata    `json:"metadata,omitempty"`
}

// IsTerminal reports whether the event is the final complete or error status.
func (e Event) IsTerminal() bool {
	return e.Kind == EventStatus && e.Status != nil && e.Status.IsTerminal()
}

func StatusEvent(s ProcessingStatus) Event {
	return Event{Kind: EventStatus, Status: &s}
}

func SegmentsReadyEvent(segments []TranscriptSegment) Event {
	return Event{Kind: EventSegmentsReady, Segments: segments}
}

func TranscriptTextEvent(text string) Event {
	return Event{Kind: EventTranscriptTextReady, Text: text}
}

func BackendInfoEvent(info BackendInfo) Event {
	return Event{Kind: EventBackendInfoReady, Backend: &info}
}

func SummaryReadyEvent(summary VideoSummary, metadata *SummaryMetadata) Event {
	return Event{Kind: EventSummaryReady, Summary: &summary, Metadata: metadata}
}
