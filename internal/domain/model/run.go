package model

import "errors"

// RunState is the position of a pipeline run in its state machine.
type RunState string

const (
	RunIdle         RunState = "IDLE"
	RunPreparing    RunState = "PREPARING"
	RunCacheCheck   RunState = "CACHE_CHECK"
	RunExtracting   RunState = "EXTRACTING"
	RunTranscribing RunState = "TRANSCRIBING"
	RunSummarizing  RunState = "SUMMARIZING"
	RunComplete     RunState = "COMPLETE"
	RunError        RunState = "ERROR"
)

// ErrInvalidTransition is returned when a run attempts an illegal state change.
var ErrInvalidTransition = errors.New("invalid run state transition")

// Valid run transitions:
// IDLE -> PREPARING -> CACHE_CHECK -> EXTRACTING -> TRANSCRIBING -> SUMMARIZING -> COMPLETE
//
//	CACHE_CHECK -> TRANSCRIBING (cached transcript)
//	CACHE_CHECK -> SUMMARIZING  (cached transcript, summary regenerated)
//	TRANSCRIBING -> COMPLETE    (cached summary)
//	any non-terminal state -> ERROR
var validRunTransitions = map[RunState][]RunState{
	RunIdle:         {RunPreparing, RunError},
	RunPreparing:    {RunCacheCheck, RunError},
	RunCacheCheck:   {RunExtracting, RunTranscribing, RunSummarizing, RunError},
	RunExtracting:   {RunTranscribing, RunError},
	RunTranscribing: {RunSummarizing, RunComplete, RunError},
	RunSummarizing:  {RunComplete, RunError},
	RunComplete:     {},
	RunError:        {},
}

func (s RunState) IsValid() bool {
	_, ok := validRunTransitions[s]
	return ok
}

func (s RunState) IsTerminal() bool {
	return s == RunComplete || s == RunError
}

func (s RunState) CanTransitionTo(next RunState) bool {
	for _, state := range validRunTransitions[s] {
		if state == next {
			return true
		}
	}
	return false
}

func (s RunState) String() string {
	return string(s)
}

// RunMachine tracks the state of one run.
type RunMachine struct {
	state RunState
}

// NewRunMachine returns a machine in the IDLE state.
func NewRunMachine() *RunMachine {
	return &RunMachine{state: RunIdle}
}

// State returns the current state.
func (m *RunMachine) State() RunState {
	return m.state
}

// TransitionTo moves the machine to next or returns ErrInvalidTransition.
func (m *RunMachine) TransitionTo(next RunState) error {
	if !next.IsValid() || !m.state.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	m.state = next
	return nil
}
