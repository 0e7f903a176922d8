package model

import "math"

// Stage is the user-facing phase reported in a ProcessingStatus.
type Stage string

const (
	StagePreparing    Stage = "preparing"
	StageExtracting   Stage = "extracting"
	StageTranscribing Stage = "transcribing"
	StageSummarizing  Stage = "summarizing"
	StageComplete     Stage = "complete"
	StageWarning      Stage = "warning"
	StageError        Stage = "error"
)

func (s Stage) IsValid() bool {
	switch s {
	case StagePreparing, StageExtracting, StageTranscribing, StageSummarizing,
		StageComplete, StageWarning, StageError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the stage ends a run.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

func (s Stage) String() string {
	return string(s)
}

// ProcessingStatus is a point-in-time progress snapshot. It is never persisted.
type ProcessingStatus struct {
	Stage    Stage   `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// NewStatus builds a status with progress clamped to [0,1].
func NewStatus(stage Stage, progress float64, message string) ProcessingStatus {
	return ProcessingStatus{Stage: stage, Progress: ClampProgress(progress), Message: message}
}

// IsTerminal reports whether this status ends a run.
func (s ProcessingStatus) IsTerminal() bool {
	return s.Stage.IsTerminal()
}

// ClampProgress bounds p to [0,1]. NaN maps to 0.
func ClampProgress(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(1, math.Max(0, p))
}
