package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout applies when a command sets no timeout
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when a command outlives its timeout
var ErrTimeout = errors.New("command timed out")

// Command describes one external process invocation
type Command struct {
	Path    string
	Args    []string
	Stdin   io.Reader
	Dir     string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result is the captured output of a finished command
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// ExitError reports a non-zero exit status
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Runner launches external processes
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs commands with os/exec
type Exec struct {
	logger *slog.Logger
}

// NewExec creates an os/exec backed runner
func NewExec(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exec{logger: logger.With("component", "executor")}
}

// Run executes cmd, capturing stdout and stderr
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(execCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	e.logger.Debug("Executing command", "command", cmd.String())

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%w: %s after %v", ErrTimeout, cmd.Path, timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			e.logger.Warn("Command failed",
				"command", cmd.String(),
				"exit_code", exitErr.ExitCode(),
				"stderr", strings.TrimSpace(stderr.String()),
			)
			return result, &ExitError{
				Command:  cmd.Path,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return result, fmt.Errorf("failed to run %s: %w", cmd.Path, err)
	}

	return result, nil
}
