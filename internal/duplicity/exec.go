package duplicity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// ExecCommander runs duplicity through os/exec, capturing combined
// stdout/stderr lines of the most recent run.
type ExecCommander struct {
	binaryPath string
	logger     *slog.Logger
	output     []string
}

// ExecOption configures an ExecCommander.
type ExecOption func(*ExecCommander)

// WithBinaryPath sets an explicit path to the duplicity binary. When unset
// the binary is resolved from PATH.
func WithBinaryPath(path string) ExecOption {
	return func(e *ExecCommander) {
		e.binaryPath = path
	}
}

// WithExecLogger sets the logger.
func WithExecLogger(logger *slog.Logger) ExecOption {
	return func(e *ExecCommander) {
		e.logger = logger
	}
}

// NewExecCommander creates a new ExecCommander.
func NewExecCommander(opts ...ExecOption) *ExecCommander {
	e := &ExecCommander{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes duplicity with the given arguments and environment entries,
// blocking until it exits. The environment map is appended to the current
// process environment as discrete entries; nothing is shell-interpolated.
// A non-zero exit is returned as a code, not an error.
func (e *ExecCommander) Run(ctx context.Context, args []string, env map[string]string) (int, error) {
	path, err := e.resolveBinary()
	if err != nil {
		return -1, err
	}

	e.logger.Debug("executing duplicity", "path", path, "args", args)

	// #nosec G204 -- path is from config or PATH lookup, not user input
	cmd := exec.CommandContext(ctx, path, args...)

	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()
	e.output = splitLines(buf.String())

	if runErr != nil {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, &domain.ToolNotFoundError{Path: path}
	}

	return 0, nil
}

// Output returns the captured output lines of the most recent run.
func (e *ExecCommander) Output() []string {
	return e.output
}

// resolveBinary returns the duplicity binary path, preferring the configured
// one over a PATH lookup.
func (e *ExecCommander) resolveBinary() (string, error) {
	if e.binaryPath != "" {
		return e.binaryPath, nil
	}

	path, err := exec.LookPath(productToken)
	if err != nil {
		return "", &domain.ToolNotFoundError{}
	}
	return path, nil
}

// splitLines splits captured process output into lines, dropping a single
// trailing empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Ensure ExecCommander implements domain.Commander.
var _ domain.Commander = (*ExecCommander)(nil)
