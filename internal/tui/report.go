package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/usecase"
)

// WriteReport prints the transcript and summary of a finished run.
// Nothing is printed for artifacts the run did not produce.
func WriteReport(w io.Writer, res usecase.Result) error {
	var b strings.Builder

	if !res.Backend.IsZero() {
		fmt.Fprintf(&b, "%s %s\n\n", titleStyle.Render("Transcription"), dimStyle.Render(res.Backend.Label()))
	}

	if len(res.Segments) > 0 {
		for _, seg := range res.Segments {
			fmt.Fprintf(&b, "%s %s\n", timestampStyle.Render("["+seg.TimestampLabel()+"]"), seg.Text)
		}
		b.WriteString("\n")
	}

	if res.Summary != nil {
		writeSummary(&b, *res.Summary, res.Metadata)
	}

	if res.Err != nil {
		fmt.Fprintf(&b, "%s\n", errorStyle.Render("error: "+res.Err.Error()))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSummary(b *strings.Builder, summary model.VideoSummary, meta *model.SummaryMetadata) {
	header := titleStyle.Render("Summary")
	if meta != nil && meta.BackendModel != "" {
		header += " " + dimStyle.Render(meta.BackendModel)
	}
	b.WriteString(header + "\n\n")

	if summary.IsEmpty() {
		b.WriteString(dimStyle.Render("No topics.") + "\n")
		return
	}

	for _, topic := range summary.Topics {
		fmt.Fprintf(b, "%s %s\n", timestampStyle.Render("["+topic.Timestamp+"]"), topicTitleStyle.Render(topic.Title))
		if topic.Description != "" {
			fmt.Fprintf(b, "  %s\n", topic.Description)
		}
		if topic.ImpactAssessment != "" {
			fmt.Fprintf(b, "  %s %s\n", dimStyle.Render("impact:"), topic.ImpactAssessment)
		}
		for _, h := range topic.Highlights {
			fmt.Fprintf(b, "  - %s %s: %q\n", timestampStyle.Render("["+h.Timestamp+"]"), h.Title, h.Quote)
		}
		b.WriteString("\n")
	}
}
