package synchronizer

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/poweron/poweron/pkg/config"
	"github.com/poweron/poweron/pkg/pmset"
	"github.com/poweron/poweron/pkg/schedule"
)

// Executor runs the privileged half of an apply: `pmset repeat ...` with
// the given records. An empty list cancels every repeating event.
type Executor interface {
	Apply(ctx context.Context, records []schedule.Record) error
}

// StatusReader returns the text of `pmset -g sched`.
type StatusReader interface {
	Status(ctx context.Context) (string, error)
}

// DirectExecutor runs pmset in this process. The caller must be root, or
// the runner must use sudo.
type DirectExecutor struct {
	Runner *pmset.Runner
}

var (
	_ Executor     = &DirectExecutor{}
	_ StatusReader = &DirectExecutor{}
)

func (d *DirectExecutor) Apply(ctx context.Context, records []schedule.Record) error {
	args, err := schedule.RepeatArgs(records)
	if err != nil {
		return newError(InvalidConfiguration, err, err.Error())
	}
	if err := d.Runner.Repeat(ctx, args); err != nil {
		return pmsetError(err)
	}
	return nil
}

func (d *DirectExecutor) Status(ctx context.Context) (string, error) {
	out, err := d.Runner.Status(ctx)
	if err != nil {
		return "", pmsetError(err)
	}
	return out, nil
}

// pmsetError classifies a failure of a local pmset invocation.
func pmsetError(err error) error {
	var exitErr *pmset.ExitError
	if errors.As(err, &exitErr) {
		detail := strings.TrimSpace(exitErr.Stderr)
		if detail == "" {
			detail = exitErr.Error()
		}
		return newError(ExternalToolLaunchFailure, err, detail)
	}
	return newError(ExternalToolLaunchFailure, err, err.Error())
}

// HelperExecutor forwards records to the privileged helper.
type HelperExecutor struct {
	Bridge *Bridge
}

var (
	_ Executor     = &HelperExecutor{}
	_ StatusReader = &HelperExecutor{}
)

func (h *HelperExecutor) Apply(ctx context.Context, records []schedule.Record) error {
	if len(records) == 0 {
		return h.Bridge.CancelAllSchedules(ctx)
	}
	return h.Bridge.SetSchedules(ctx, records)
}

func (h *HelperExecutor) Status(ctx context.Context) (string, error) {
	return h.Bridge.GetSchedule(ctx)
}

var geteuid = os.Geteuid

// NewExecutor picks how pmset is run for the given privilege mode.
// PrivilegeAuto runs pmset directly when already root and goes through the
// helper otherwise.
func NewExecutor(mode config.PrivilegeMode, runner *pmset.Runner, bridge *Bridge) Executor {
	if mode == config.PrivilegeAuto {
		if geteuid() == 0 {
			mode = config.PrivilegeDirect
		} else {
			mode = config.PrivilegeHelper
		}
		logrus.Debugf("privilege mode auto resolved to %s", mode)
	}

	switch mode {
	case config.PrivilegeDirect:
		return &DirectExecutor{Runner: &pmset.Runner{Path: runner.Path}}
	case config.PrivilegeSudo:
		return &DirectExecutor{Runner: &pmset.Runner{Path: runner.Path, Sudo: true}}
	default:
		return &HelperExecutor{Bridge: bridge}
	}
}
