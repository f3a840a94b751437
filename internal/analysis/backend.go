package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// Backend performs one unit of analysis work for one clip. Implementations
// map a command name and a parameter set onto the external analysis service
// and return its result payload.
type Backend interface {
	Invoke(ctx context.Context, command string, params map[string]any) (map[string]any, error)
}

// CommandLog captures one backend invocation for logs and UI.
type CommandLog struct {
	InvocationID string   `json:"invocationId"`
	Command      string   `json:"command"`
	Args         []string `json:"args"`
	ExitCode     int      `json:"exitCode"`
	Stdout       string   `json:"stdout"`
	Stderr       string   `json:"stderr"`
}

// BackendError is a command-aware error with optional invocation context.
type BackendError struct {
	Command string     `json:"command"`
	Message string     `json:"message"`
	Log     CommandLog `json:"log"`
	Err     error      `json:"-"`
}

// Error formats backend failures for logs and UI.
func (e *BackendError) Error() string {
	if e == nil {
		return ""
	}
	if e.Log.InvocationID == "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (invocation=%s exit=%d)",
		e.Command,
		e.Message,
		e.Log.InvocationID,
		e.Log.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// ExecBackend invokes the analysis tool as a subprocess, one command per
// call: `<tool> <command> --params <json>`. The tool replies with a JSON
// object on stdout.
type ExecBackend struct {
	toolPath string
	runner   commandRunner
	onLog    func(log CommandLog)
}

// NewExecBackend constructs the production backend for the given tool path.
// onLog, when non-nil, receives a log entry for every invocation.
func NewExecBackend(toolPath string, onLog func(CommandLog)) *ExecBackend {
	return &ExecBackend{
		toolPath: toolPath,
		runner:   &execRunner{},
		onLog:    onLog,
	}
}

// Invoke runs one backend command and decodes its JSON result payload.
func (b *ExecBackend) Invoke(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, &BackendError{
			Command: command,
			Message: "encode command parameters",
			Err:     err,
		}
	}

	args := []string{command, "--params", string(payload)}
	cmdResult, runErr := b.runner.Run(ctx, b.toolPath, args...)
	log := CommandLog{
		InvocationID: uuid.NewString(),
		Command:      command,
		Args:         args,
		ExitCode:     cmdResult.ExitCode,
		Stdout:       cmdResult.Stdout,
		Stderr:       cmdResult.Stderr,
	}
	if b.onLog != nil {
		b.onLog(log)
	}

	if runErr != nil {
		message := strings.TrimSpace(cmdResult.Stderr)
		if message == "" {
			message = "analysis backend command failed"
		}
		return nil, &BackendError{
			Command: command,
			Message: message,
			Log:     log,
			Err:     runErr,
		}
	}

	out := strings.TrimSpace(cmdResult.Stdout)
	if out == "" {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, &BackendError{
			Command: command,
			Message: "analysis backend returned malformed JSON",
			Log:     log,
			Err:     err,
		}
	}
	return result, nil
}

// NewExecBackendForTests constructs a backend with an injectable runner.
func NewExecBackendForTests(toolPath string, runner commandRunner, onLog func(CommandLog)) *ExecBackend {
	return &ExecBackend{
		toolPath: toolPath,
		runner:   runner,
		onLog:    onLog,
	}
}
