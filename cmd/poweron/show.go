package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/poweron/poweron/pkg/i18n"
	"github.com/poweron/poweron/pkg/schedule"
)

func entryLabel(k schedule.Kind) string {
	if k == schedule.Shutdown {
		return i18n.T("show.shutdown")
	}
	return i18n.T("show.powerOn")
}

// printSet writes both entries and when they fire next.
func printSet(w io.Writer, set schedule.Set, now time.Time) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, i18n.T("show.title"))

	for _, e := range set.Entries() {
		label := fmt.Sprintf("%-12s", entryLabel(e.Kind))
		if !e.Enabled {
			fmt.Fprintf(w, "  %s %s  %s\n", label, e.Time.Short(), color.New(color.Faint).Sprint(i18n.T("show.disabled")))
			continue
		}

		days := strings.Join(e.Days.Names(), ", ")
		if days == "" {
			days = "-"
		}
		fmt.Fprintf(w, "  %s %s  %s  [%s]", color.GreenString(label), e.Time.Short(), days, e.Days.Code())
		if next, ok := e.Next(now); ok {
			fmt.Fprintf(w, "  (%s)", i18n.T("show.next", next.Format("Mon Jan 2 15:04")))
		}
		fmt.Fprintln(w)
	}
}

func NewShowCommand() *cobra.Command {
	fromHelper := false

	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"status"},
		Short:   "Show the repeating power-on and shutdown events",
		GroupID: gBasic,
		Long: `Show the repeating power-on and shutdown events.

The events are read from 'pmset -g sched'. Lines that cannot be understood
are ignored and the corresponding event is shown as disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sync := newSynchronizer(fromHelper)

			set, err := sync.Load(context.Background())
			if err != nil {
				// Not fatal, defaults are shown instead.
				cmd.PrintErrln(color.YellowString(i18n.T("show.notice", err)))
			}

			printSet(cmd.OutOrStdout(), set, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromHelper, "from-helper", false, "Read the schedule through the privileged helper instead of running pmset directly.")

	return cmd
}
