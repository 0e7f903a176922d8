package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/executor"
)

// scriptLine is one JSON object written by the helper script per stdout line.
type scriptLine struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
	Error string   `json:"error"`
}

// ScriptLoader loads faster-whisper models through a python helper script.
type ScriptLoader struct {
	exec       executor.Executor
	pythonPath string
	scriptPath string
}

// Compile-time verification that ScriptLoader implements ModelLoader.
var _ ModelLoader = (*ScriptLoader)(nil)

// NewScriptLoader creates a ScriptLoader.
func NewScriptLoader(runner executor.Executor, pythonPath, scriptPath string) *ScriptLoader {
	return &ScriptLoader{
		exec:       runner,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
	}
}

// Load verifies the interpreter and script, then probes the model on the requested device.
func (l *ScriptLoader) Load(ctx context.Context, spec ModelSpec) (LocalModel, error) {
	python, err := exec.LookPath(l.pythonPath)
	if err != nil {
		return nil, fmt.Errorf("python interpreter not found: %s", l.pythonPath)
	}
	if info, err := os.Stat(l.scriptPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("transcription script not found: %s", l.scriptPath)
	}

	m := &scriptModel{exec: l.exec, python: python, script: l.scriptPath, spec: spec}

	args := append(m.modelArgs(), "--probe")
	if _, err := l.exec.Run(ctx, python, args...); err != nil {
		return nil, fmt.Errorf("load model %s on %s/%s: %w", spec.Model, spec.Device, spec.Precision, err)
	}
	return m, nil
}

type scriptModel struct {
	exec   executor.Executor
	python string
	script string
	spec   ModelSpec
}

func (m *scriptModel) Transcribe(ctx context.Context, audioPath string, onSegment func(model.TranscriptSegment)) error {
	args := append(m.modelArgs(), "--audio", audioPath)

	err := m.exec.Stream(ctx, func(line string) error {
		seg, ok, err := parseScriptLine(line)
		if err != nil {
			return err
		}
		if ok {
			onSegment(seg)
		}
		return nil
	}, m.python, args...)
	if err != nil {
		return fmt.Errorf("local transcription: %w", err)
	}
	return nil
}

func (m *scriptModel) modelArgs() []string {
	args := []string{
		m.script,
		"--model", m.spec.Model,
		"--device", m.spec.Device,
		"--compute-type", m.spec.Precision,
	}
	if m.spec.ModelDir != "" {
		args = append(args, "--model-dir", m.spec.ModelDir)
	}
	if m.spec.Language != "" {
		args = append(args, "--language", m.spec.Language)
	}
	return args
}

// parseScriptLine decodes one output line. Blank and non-JSON lines are skipped.
func parseScriptLine(line string) (model.TranscriptSegment, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return model.TranscriptSegment{}, false, nil
	}

	var out scriptLine
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		return model.TranscriptSegment{}, false, fmt.Errorf("decode script output: %w", err)
	}
	if out.Error != "" {
		return model.TranscriptSegment{}, false, errors.New(out.Error)
	}
	if out.Start == nil || out.End == nil {
		return model.TranscriptSegment{}, false, nil
	}
	return model.TranscriptSegment{Start: *out.Start, End: *out.End, Text: out.Text}, true, nil
}
