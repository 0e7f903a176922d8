package tui

import "github.com/hszk-dev/vidbrief/internal/domain/model"

// EventMsg wraps one event read from the run's channel.
type EventMsg struct {
	Event model.Event
}

// EventsClosedMsg is sent once the run's event channel is closed.
type EventsClosedMsg struct{}
