// Package executor runs external commands and reports their stderr on failure.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// maxStderrTail bounds how much stderr is kept in a CommandError.
const maxStderrTail = 4096

// Executor defines the interface for executing external commands.
type Executor interface {
	// Run executes the command and returns its stdout.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// Stream executes the command and calls onLine for every stdout line as it is produced.
	Stream(ctx context.Context, onLine func(line string) error, name string, args ...string) error
}

// CommandError carries the tail of stderr of a failed command.
type CommandError struct {
	Name   string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command '%s' failed: %v\nstderr: %s", e.Name, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command '%s' failed: %v", e.Name, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type implExecutor struct {
	env []string
}

// New creates an Executor. env entries are appended to the inherited environment.
func New(env ...string) Executor {
	return &implExecutor{env: env}
}

func (e *implExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := e.command(ctx, name, args)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", newCommandError(ctx, name, err, stderr.String())
	}
	return stdout.String(), nil
}

func (e *implExecutor) Stream(ctx context.Context, onLine func(line string) error, name string, args ...string) error {
	cmd := e.command(ctx, name, args)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return newCommandError(ctx, name, err, "")
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var callbackErr error
	for scanner.Scan() {
		if callbackErr != nil {
			continue // drain so the process is not blocked on a full pipe
		}
		callbackErr = onLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil && callbackErr == nil {
		_, _ = io.Copy(io.Discard, stdout)
		callbackErr = fmt.Errorf("read stdout: %w", err)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		return newCommandError(ctx, name, waitErr, stderr.String())
	}
	return callbackErr
}

func (e *implExecutor) command(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(e.env) > 0 {
		cmd.Env = append(cmd.Environ(), e.env...)
	}
	return cmd
}

func newCommandError(ctx context.Context, name string, err error, stderr string) error {
	if ctx.Err() != nil {
		err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return &CommandError{Name: name, Err: err, Stderr: tail(strings.TrimSpace(stderr), maxStderrTail)}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
