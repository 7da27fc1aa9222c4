package pmset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPath is where macOS ships pmset.
const DefaultPath = "/usr/bin/pmset"

// ErrNotFound is returned when the pmset binary cannot be started.
var ErrNotFound = errors.New("pmset not found")

// ExitError is returned when pmset runs but exits with a non-zero status.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("pmset %s exited with status %d: %s", strings.Join(e.Args, " "), e.Code, msg)
}

// Runner invokes pmset.
type Runner struct {
	// Path to the pmset binary. DefaultPath if empty.
	Path string
	// Sudo runs pmset through `sudo -n`, for callers that are allowed to
	// elevate without a password prompt.
	Sudo bool
}

func New(path string) *Runner {
	return &Runner{Path: path}
}

func (r *Runner) path() string {
	if r == nil || r.Path == "" {
		return DefaultPath
	}
	return r.Path
}

// Command returns the command line Run would execute, for display.
func (r *Runner) Command(args ...string) string {
	name, full := r.command(args)
	return strings.Join(append([]string{name}, full...), " ")
}

func (r *Runner) command(args []string) (string, []string) {
	if r != nil && r.Sudo {
		return "sudo", append([]string{"-n", r.path()}, args...)
	}
	return r.path(), args
}

// Run executes pmset with args and returns its standard output.
//
// A binary that cannot be started yields an error wrapping ErrNotFound.
// A non-zero exit yields an *ExitError carrying what pmset wrote to stderr.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	name, full := r.command(args)

	logrus.WithFields(logrus.Fields{
		"cmd":  name,
		"args": full,
	}).Debug("running pmset")

	cmd := exec.CommandContext(ctx, name, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Args:   args,
				Code:   exitErr.ExitCode(),
				Stderr: stderr.String(),
			}
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", pkgerrors.Wrapf(ErrNotFound, "failed to start %s: %v", name, err)
		}
		return "", pkgerrors.Wrapf(err, "failed to run %s", name)
	}

	return stdout.String(), nil
}

// Status returns the output of `pmset -g sched`.
func (r *Runner) Status(ctx context.Context) (string, error) {
	return r.Run(ctx, "-g", "sched")
}

// Repeat runs `pmset repeat ...` with the given arguments, which must
// start with "repeat".
func (r *Runner) Repeat(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "repeat" {
		return fmt.Errorf("not a repeat invocation: %v", args)
	}
	_, err := r.Run(ctx, args...)
	return err
}
