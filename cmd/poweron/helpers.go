package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/poweron/poweron/pkg/i18n"
	"github.com/poweron/poweron/pkg/pmset"
	"github.com/poweron/poweron/pkg/schedule"
	"github.com/poweron/poweron/pkg/synchronizer"
	daemonutils "github.com/poweron/poweron/pkg/utils/daemon"
)

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted by user")

// helperInstaller maps a dismissed administrator prompt to an
// authorization failure.
type helperInstaller struct {
	daemonutils.AuthorizedInstaller
}

func (h *helperInstaller) Install(ctx context.Context) error {
	err := h.AuthorizedInstaller.Install(ctx)
	if errors.Is(err, daemonutils.ErrAuthorizationCanceled) {
		return &synchronizer.Error{Kind: synchronizer.AuthorizationFailed, Detail: err.Error(), Err: err}
	}
	return err
}

func newBridge(installOnDemand bool) *synchronizer.Bridge {
	var inst synchronizer.Installer
	if installOnDemand {
		// The user who authorized the install must be able to use it.
		inst = &helperInstaller{daemonutils.AuthorizedInstaller{
			SocketPath: unixSocketPath,
			Args:       []string{"--config", configPath, "--helper-socket", unixSocketPath, "--allow-non-root-access"},
		}}
	}
	return synchronizer.NewBridge(unixSocketPath, inst)
}

// newSynchronizer wires a Synchronizer from the loaded config.
func newSynchronizer(statusFromHelper bool) *synchronizer.Synchronizer {
	runner := pmset.New(conf.PmsetPath())
	bridge := newBridge(true)
	exec := synchronizer.NewExecutor(conf.Privilege(), runner, bridge)

	opts := synchronizer.Options{
		Runner:      runner,
		Executor:    exec,
		Defaults:    schedule.NewSet(conf.DefaultPowerOnTime(), conf.DefaultShutdownTime()),
		MinCycleGap: conf.MinCycleGap(),
	}
	if statusFromHelper {
		opts.Status = &synchronizer.HelperExecutor{Bridge: bridge}
	}
	if d, ok := exec.(*synchronizer.DirectExecutor); ok {
		opts.Runner = d.Runner
	}
	return synchronizer.New(opts)
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// confirm asks a yes/no question. Ctrl-C counts as no.
func confirm(msg string, def bool) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: msg, Default: def}, &ok)
	if errors.Is(err, terminal.InterruptErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("survey failed: %w", err)
	}
	return ok, nil
}

// applyWithConfirm shows the command that will run, asks for confirmation
// unless yes is set, re-confirms validation warnings and applies set.
func applyWithConfirm(ctx context.Context, w io.Writer, sync *synchronizer.Synchronizer, set schedule.Set, yes bool) error {
	warnings, err := sync.Validate(set)
	if err != nil {
		return err
	}

	cmdline, err := sync.Command(set)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, i18n.T("apply.command"))
	fmt.Fprintln(w, "  "+color.CyanString(cmdline))

	if !yes {
		if !isInteractive() {
			return fmt.Errorf("refusing to apply without confirmation, stdin is not a terminal. Use --yes")
		}
		ok, err := confirm(i18n.T("apply.confirm"), true)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	for _, wn := range warnings {
		if wn.Code != schedule.WarnCloseTimes {
			logrus.Warn(wn.Message)
			continue
		}
		msg := i18n.T("apply.closeTimes", set.PowerOn.Time.Distance(set.Shutdown.Time))
		if yes {
			logrus.Warn(wn.Message)
			continue
		}
		ok, err := confirm(msg, false)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	if err := <-sync.ApplyAsync(ctx, set); err != nil {
		return err
	}

	fmt.Fprintln(w, color.GreenString(i18n.T("apply.done")))
	return nil
}
