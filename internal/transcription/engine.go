// Package transcription turns an extracted audio file into timestamped transcript segments.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/executor"
)

// ErrUnknownBackend is returned when the configured backend is neither remote nor local.
var ErrUnknownBackend = errors.New("unknown transcription backend")

// StatusFunc receives progress for the transcribing stage.
// Progress values are relative to transcription alone, in [0,1].
type StatusFunc func(status model.ProcessingStatus)

// Engine transcribes one audio file.
type Engine interface {
	// Transcribe returns segments sorted by start time.
	// onStatus may be nil.
	Transcribe(ctx context.Context, audioPath string, onStatus StatusFunc) ([]model.TranscriptSegment, error)

	// BackendInfo describes the engine as it will run (or last ran).
	BackendInfo() model.BackendInfo
}

// Config selects and configures an Engine.
type Config struct {
	Backend model.Backend
	Remote  RemoteConfig
	Local   LocalConfig
}

// New creates the Engine selected by cfg.Backend.
func New(cfg Config, runner executor.Executor) (Engine, error) {
	switch cfg.Backend {
	case model.BackendRemote:
		if cfg.Remote.APIKey == "" {
			return nil, fmt.Errorf("remote transcription requires an API key")
		}
		return NewRemoteEngine(NewOpenAIAudioClient(cfg.Remote.APIKey, cfg.Remote.BaseURL), cfg.Remote), nil
	case model.BackendLocal:
		loader := NewScriptLoader(runner, cfg.Local.PythonPath, cfg.Local.ScriptPath)
		return NewLocalEngine(loader, cfg.Local), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func emit(onStatus StatusFunc, progress float64, message string) {
	if onStatus == nil {
		return
	}
	onStatus(model.NewStatus(model.StageTranscribing, progress, message))
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
