// Package executor spawns validated commands through a restricted shell
// invocation and enforces a wall-clock timeout. It never re-validates:
// policy belongs to the security package, execution belongs here.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/execbox/execbox-mcp/internal/security"
)

// DefaultMaxOutput caps captured stdout/stderr per stream.
const DefaultMaxOutput = 1 << 20

// ExecutionResult is the structured outcome of one execution attempt.
// ReturnCode is nil on timeout or spawn failure.
type ExecutionResult struct {
	Success          bool   `json:"success"`
	ReturnCode       *int   `json:"return_code"`
	Stdout           string `json:"stdout"`
	Stderr           string `json:"stderr"`
	Command          string `json:"command"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	TimedOut         bool   `json:"timed_out,omitempty"`
	Truncated        bool   `json:"truncated,omitempty"`
}

// Shell describes the restricted interpreter invocation: the binary plus
// the flags that disable profile loading, interactive prompts, and
// permissive script execution. The command string is appended last.
type Shell struct {
	Path string
	Args []string
}

// Argv builds the full argument vector for a command.
func (s Shell) Argv(command string) []string {
	argv := make([]string, 0, len(s.Args)+2)
	argv = append(argv, s.Path)
	argv = append(argv, s.Args...)
	return append(argv, command)
}

// Executor runs commands under the configured shell. Instances share no
// mutable state across calls; each spawn gets its own process and buffers.
type Executor struct {
	shell     Shell
	maxOutput int
}

// Option configures an Executor.
type Option func(*Executor)

// WithShell overrides the platform-default restricted shell invocation.
func WithShell(sh Shell) Option {
	return func(e *Executor) { e.shell = sh }
}

// WithMaxOutput limits captured bytes per stream; 0 means no limit.
func WithMaxOutput(n int) Option {
	return func(e *Executor) { e.maxOutput = n }
}

// New creates an Executor with the platform-default restricted shell.
func New(opts ...Option) *Executor {
	e := &Executor{
		shell:     defaultShell(),
		maxOutput: DefaultMaxOutput,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the command with the given timeout measured from spawn
// start. On timeout the whole process tree is terminated, partial output
// is preserved, and the result is marked TimedOut with a nil return code.
// Spawn failures are returned as populated results, never as panics or
// errors.
func (e *Executor) Execute(ctx context.Context, command, workingDirectory string, timeout time.Duration) ExecutionResult {
	result := ExecutionResult{Command: command}

	if workingDirectory != "" {
		normalized, err := security.NormalizePath(workingDirectory)
		if err != nil {
			result.Stderr = fmt.Sprintf("cannot resolve working directory %q: %v", workingDirectory, err)
			return result
		}
		result.WorkingDirectory = normalized
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := e.shell.Argv(command)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = result.WorkingDirectory

	var stdout, stderr bytes.Buffer
	var stdoutW, stderrW io.Writer = &stdout, &stderr
	var stdoutLW, stderrLW *limitedWriter
	if e.maxOutput > 0 {
		stdoutLW = &limitedWriter{buf: &stdout, limit: e.maxOutput}
		stderrLW = &limitedWriter{buf: &stderr, limit: e.maxOutput}
		stdoutW, stderrW = stdoutLW, stderrLW
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	setupProcessGroup(cmd)

	err := cmd.Run()

	result.Stdout = strings.TrimSpace(stdout.String())
	result.Stderr = strings.TrimSpace(stderr.String())
	if stdoutLW != nil && (stdoutLW.truncated || stderrLW.truncated) {
		result.Truncated = true
	}

	if timedOut(err, runCtx.Err()) {
		result.TimedOut = true
		notice := fmt.Sprintf("command timed out after %s", timeout)
		if result.Stderr != "" {
			result.Stderr += "\n"
		}
		result.Stderr += notice
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			result.ReturnCode = &code
			return result
		}
		if result.Stderr != "" {
			result.Stderr += "\n"
		}
		result.Stderr += err.Error()
		return result
	}

	code := 0
	result.ReturnCode = &code
	result.Success = true
	return result
}

// timedOut attributes the run outcome to the deadline only when the
// process was actually killed. A zero exit racing the deadline is still a
// completed run.
func timedOut(runErr, ctxErr error) bool {
	return runErr != nil && errors.Is(ctxErr, context.DeadlineExceeded)
}

// limitedWriter stops accepting bytes once limit is reached, marking the
// overflow. Writes always report full success so the child is not killed
// by a broken pipe.
type limitedWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
