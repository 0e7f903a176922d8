package usecase

import "errors"

var (
	// ErrInvalidInput is returned when a request is missing required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFileNotFound is returned when the requested video does not exist or is not a regular file.
	ErrFileNotFound = errors.New("file not found")

	// ErrBusy is returned when a run is requested while another run is active.
	ErrBusy = errors.New("a video is already being processed")

	// ErrCancelled is reported when a run is cancelled between stages.
	ErrCancelled = errors.New("cancelled")

	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")
)
