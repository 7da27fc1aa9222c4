package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/poweron/poweron/pkg/i18n"
	"github.com/poweron/poweron/pkg/schedule"
)

// entryFlags are the flags that change one entry on top of the loaded
// schedule.
type entryFlags struct {
	prefix  string
	enabled bool
	days    string
	time    string
}

func (f *entryFlags) register(fs *pflag.FlagSet, what string) {
	fs.BoolVar(&f.enabled, f.prefix, false, "Enable or disable the "+what+" event (--"+f.prefix+"=false disables it)")
	fs.StringVar(&f.days, f.prefix+"-days", "", "Days of the "+what+" event: weekdays, weekend, everyday, a day code like MTWRF, or mon,wed,fri")
	fs.StringVar(&f.time, f.prefix+"-time", "", "Time of the "+what+" event, HH:MM in 24-hour format")
}

// update applies the flags that were set to e. Setting days or time
// without the enable flag enables the entry.
func (f *entryFlags) update(fs *pflag.FlagSet, e schedule.Entry) (schedule.Entry, error) {
	touched := false
	if fs.Changed(f.prefix + "-days") {
		d, ok := schedule.ParseDays(f.days)
		if !ok {
			return e, fmt.Errorf("invalid --%s-days %q", f.prefix, f.days)
		}
		e.Days = d
		touched = true
	}
	if fs.Changed(f.prefix + "-time") {
		c, err := schedule.ParseUserClock(f.time)
		if err != nil {
			return e, fmt.Errorf("invalid --%s-time: %w", f.prefix, err)
		}
		e.Time = c
		touched = true
	}
	switch {
	case fs.Changed(f.prefix):
		e.Enabled = f.enabled
	case touched:
		e.Enabled = true
	}
	return e, nil
}

func NewApplyCommand() *cobra.Command {
	powerOn := &entryFlags{prefix: "power-on"}
	shutdown := &entryFlags{prefix: "shutdown"}
	yes := false

	cmd := &cobra.Command{
		Use:     "apply",
		Short:   "Change the repeating power-on and shutdown events",
		GroupID: gBasic,
		Long: `Change the repeating power-on and shutdown events.

The current schedule is read from pmset first and the flags are applied on
top of it, so only what you pass changes. Both events are then written with
a single 'pmset repeat' call.

Examples:
  poweron apply --power-on-days weekdays --power-on-time 7:30
  poweron apply --shutdown-days everyday --shutdown-time 23:00
  poweron apply --power-on=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			sync := newSynchronizer(false)

			set, err := sync.Load(ctx)
			if err != nil {
				cmd.PrintErrln(color.YellowString(i18n.T("show.notice", err)))
			}

			fs := cmd.Flags()
			if set.PowerOn, err = powerOn.update(fs, set.PowerOn); err != nil {
				return err
			}
			if set.Shutdown, err = shutdown.update(fs, set.Shutdown); err != nil {
				return err
			}

			err = applyWithConfirm(ctx, cmd.OutOrStdout(), sync, set, yes)
			if errors.Is(err, errAborted) {
				cmd.Println(i18n.T("apply.aborted"))
				return nil
			}
			return err
		},
	}

	f := cmd.Flags()
	powerOn.register(f, "power-on")
	shutdown.register(f, "shutdown")
	f.BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation.")

	return cmd
}

func NewCancelCommand() *cobra.Command {
	yes := false

	cmd := &cobra.Command{
		Use:     "cancel",
		Short:   "Cancel all repeating power events",
		GroupID: gBasic,
		Long: `Cancel all repeating power events.

This runs 'pmset repeat cancel', which removes both the power-on and the
shutdown event.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				if !isInteractive() {
					return fmt.Errorf("refusing to cancel without confirmation, stdin is not a terminal. Use --yes")
				}
				ok, err := confirm(i18n.T("cancel.confirm"), false)
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println(i18n.T("apply.aborted"))
					return nil
				}
			}

			if err := newSynchronizer(false).Cancel(context.Background()); err != nil {
				return err
			}

			cmd.Println(color.GreenString(i18n.T("cancel.done")))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation.")

	return cmd
}
