package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/metrics"
	"github.com/hszk-dev/vidbrief/internal/transcoder"
)

// Device and precision used when a GPU driver error forces a reload.
const (
	FallbackDevice    = "cpu"
	FallbackPrecision = "int8"
)

// driverErrorMarkers are lowercase fragments identifying GPU driver failures.
var driverErrorMarkers = []string{
	"cuda",
	"cudnn",
	"cublas",
	"invalid handle",
	"no kernel image",
	"device-side assert",
}

// ModelSpec identifies a local model and the hardware it runs on.
type ModelSpec struct {
	Model     string
	Device    string
	Precision string
	ModelDir  string
	Language  string
}

// OnSafeCPU reports whether the spec already uses the fallback device and precision.
func (s ModelSpec) OnSafeCPU() bool {
	return strings.EqualFold(s.Device, FallbackDevice) && strings.EqualFold(s.Precision, FallbackPrecision)
}

// LocalModel is a loaded on-device speech recognition model.
type LocalModel interface {
	// Transcribe calls onSegment for every segment as it is recognized.
	Transcribe(ctx context.Context, audioPath string, onSegment func(model.TranscriptSegment)) error
}

// ModelLoader creates a LocalModel for a spec.
type ModelLoader interface {
	Load(ctx context.Context, spec ModelSpec) (LocalModel, error)
}

// ModelLoaderFunc adapts a function to ModelLoader.
type ModelLoaderFunc func(ctx context.Context, spec ModelSpec) (LocalModel, error)

func (f ModelLoaderFunc) Load(ctx context.Context, spec ModelSpec) (LocalModel, error) {
	return f(ctx, spec)
}

// LocalConfig holds configuration for the on-device engine.
type LocalConfig struct {
	Model      string
	Device     string
	Precision  string
	ModelDir   string
	Language   string
	PythonPath string
	ScriptPath string
	Timeout    time.Duration
}

// DefaultLocalConfig returns a LocalConfig that runs the small model on CPU.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Model:      "small",
		Device:     FallbackDevice,
		Precision:  FallbackPrecision,
		PythonPath: "python3",
		ScriptPath: "scripts/faster_whisper_stream.py",
	}
}

func (c LocalConfig) spec() ModelSpec {
	return ModelSpec{
		Model:     c.Model,
		Device:    c.Device,
		Precision: c.Precision,
		ModelDir:  c.ModelDir,
		Language:  c.Language,
	}
}

// LocalEngine runs a local model and falls back to CPU once on GPU driver errors.
// The loaded model is kept between runs.
type LocalEngine struct {
	loader   ModelLoader
	timeout  time.Duration
	duration func(path string) (time.Duration, error)

	mu    sync.Mutex
	spec  ModelSpec
	model LocalModel
}

// Compile-time verification that LocalEngine implements Engine.
var _ Engine = (*LocalEngine)(nil)

// NewLocalEngine creates a LocalEngine. The model is loaded on first use.
func NewLocalEngine(loader ModelLoader, cfg LocalConfig) *LocalEngine {
	return &LocalEngine{
		loader:   loader,
		timeout:  cfg.Timeout,
		duration: transcoder.WAVDuration,
		spec:     cfg.spec(),
	}
}

func (e *LocalEngine) Transcribe(ctx context.Context, audioPath string, onStatus StatusFunc) ([]model.TranscriptSegment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	onStatus = monotonic(onStatus)
	emit(onStatus, 0, fmt.Sprintf("loading model %s on %s", e.spec.Model, e.spec.Device))
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	total := e.totalSeconds(audioPath)

	segments, err := e.run(ctx, audioPath, total, onStatus)
	if err != nil {
		if ctx.Err() != nil || !e.canFallback(err) {
			return nil, err
		}
		if fbErr := e.fallback(ctx, err); fbErr != nil {
			return nil, fbErr
		}
		emit(onStatus, 0, "retrying on cpu")
		segments, err = e.run(ctx, audioPath, total, onStatus)
		if err != nil {
			return nil, fmt.Errorf("transcription failed after cpu fallback: %w", err)
		}
	}

	emit(onStatus, 1.0, "transcription complete")
	return model.NormalizeSegments(segments), nil
}

func (e *LocalEngine) BackendInfo() model.BackendInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	return model.BackendInfo{
		Backend:   model.BackendLocal,
		Engine:    "faster-whisper",
		Model:     e.spec.Model,
		Device:    e.spec.Device,
		Precision: e.spec.Precision,
	}
}

func (e *LocalEngine) ensureLoaded(ctx context.Context) error {
	if e.model != nil {
		return nil
	}

	m, err := e.loader.Load(ctx, e.spec)
	if err == nil {
		e.model = m
		return nil
	}
	if ctx.Err() != nil || !e.canFallback(err) {
		return err
	}
	return e.fallback(ctx, err)
}

// fallback reloads the model on CPU with the safe precision.
func (e *LocalEngine) fallback(ctx context.Context, cause error) error {
	slog.Warn("GPU driver error, reloading transcription model on cpu",
		"model", e.spec.Model,
		"device", e.spec.Device,
		"precision", e.spec.Precision,
		"error", cause,
	)
	metrics.LocalFallbacksTotal.Inc()

	spec := e.spec
	spec.Device = FallbackDevice
	spec.Precision = FallbackPrecision

	m, err := e.loader.Load(ctx, spec)
	if err != nil {
		return fmt.Errorf("load model on cpu after driver error (%v): %w", cause, err)
	}
	e.spec = spec
	e.model = m
	return nil
}

func (e *LocalEngine) run(ctx context.Context, audioPath string, total float64, onStatus StatusFunc) ([]model.TranscriptSegment, error) {
	var segments []model.TranscriptSegment
	err := e.model.Transcribe(ctx, audioPath, func(seg model.TranscriptSegment) {
		segments = append(segments, seg)
		if total > 0 {
			emit(onStatus, seg.End/total, fmt.Sprintf("transcribed %s", model.FormatTimestamp(seg.End)))
		}
	})
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// monotonic holds progress at the highest value reported so far, so a retry
// after a failed attempt resumes from where the progress bar stood.
func monotonic(onStatus StatusFunc) StatusFunc {
	if onStatus == nil {
		return nil
	}
	var last float64
	return func(s model.ProcessingStatus) {
		if s.Progress < last {
			s.Progress = last
		}
		last = s.Progress
		onStatus(s)
	}
}

func (e *LocalEngine) canFallback(err error) bool {
	return !e.spec.OnSafeCPU() && IsDriverError(err)
}

func (e *LocalEngine) totalSeconds(audioPath string) float64 {
	d, err := e.duration(audioPath)
	if err != nil {
		slog.Debug("audio duration unavailable, progress will not advance", "path", audioPath, "error", err)
		return 0
	}
	return d.Seconds()
}

// IsDriverError reports whether err looks like a GPU driver or runtime failure.
func IsDriverError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range driverErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
