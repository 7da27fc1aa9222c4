package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/poweron/poweron/pkg/i18n"
	"github.com/poweron/poweron/pkg/schedule"
)

type editAction int

const (
	actionNone editAction = iota
	actionApply
	actionQuit
)

// editor holds the schedule being edited in the interactive shell.
type editor struct {
	set    schedule.Set
	loaded schedule.Set
	out    io.Writer
	now    func() time.Time
}

func newEditor(set schedule.Set, out io.Writer) *editor {
	return &editor{set: set, loaded: set, out: out, now: time.Now}
}

func (e *editor) dirty() bool {
	return e.set != e.loaded
}

// exec runs one shell command. Errors are meant to be printed, not to end
// the session.
func (e *editor) exec(tokens []string) (editAction, error) {
	if len(tokens) == 0 {
		return actionNone, nil
	}

	switch cmd, args := strings.ToLower(tokens[0]), tokens[1:]; cmd {
	case "help", "?":
		printEditHelp(e.out)
	case "show", "ls":
		printSet(e.out, e.set, e.now())
	case "enable", "disable":
		entry, err := e.entryArg(cmd, args, 1)
		if err != nil {
			return actionNone, err
		}
		entry.Enabled = cmd == "enable"
		e.set = e.set.WithEntry(entry)
	case "days":
		entry, err := e.entryArg(cmd, args, 2)
		if err != nil {
			return actionNone, err
		}
		d, ok := schedule.ParseDays(args[1])
		if !ok {
			return actionNone, fmt.Errorf("invalid days %q", args[1])
		}
		entry.Days = d
		e.set = e.set.WithEntry(entry)
	case "time":
		entry, err := e.entryArg(cmd, args, 2)
		if err != nil {
			return actionNone, err
		}
		c, err := schedule.ParseUserClock(args[1])
		if err != nil {
			return actionNone, err
		}
		entry.Time = c
		e.set = e.set.WithEntry(entry)
	case "reset":
		e.set = e.loaded
	case "apply", "save":
		return actionApply, nil
	case "exit", "quit", "q":
		return actionQuit, nil
	default:
		return actionNone, errors.New(i18n.T("edit.unknown", tokens[0]))
	}
	return actionNone, nil
}

func (e *editor) entryArg(cmd string, args []string, n int) (schedule.Entry, error) {
	if len(args) != n {
		return schedule.Entry{}, fmt.Errorf("usage: %s", editUsage[cmd])
	}
	k, err := schedule.ParseKind(args[0])
	if err != nil {
		return schedule.Entry{}, err
	}
	return e.set.Entry(k), nil
}

// applied records that the current set is now what pmset has.
func (e *editor) applied() {
	e.loaded = e.set
}

var editUsage = map[string]string{
	"enable":  "enable <on|off>",
	"disable": "disable <on|off>",
	"days":    "days <on|off> <weekdays|weekend|everyday|MTWRF|mon,wed,...>",
	"time":    "time <on|off> <HH:MM>",
}

func printEditHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands ("on" is the power-on event, "off" the shutdown event):
  show                          # show the schedule being edited
  enable on|off                 # enable an event
  disable on|off                # disable an event
  days on|off <days>            # weekdays, weekend, everyday, MTWRF or mon,wed,fri
  time on|off <HH:MM>           # 24-hour time
  reset                         # undo all changes
  apply                         # write the schedule to pmset
  exit / quit                   # leave the editor`)
}

func runEditor(ctx context.Context, w io.Writer, ed *editor, apply func(schedule.Set) error) error {
	historyFile := filepath.Join(os.TempDir(), "poweron-edit.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "poweron> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(w, i18n.T("edit.welcome"))
	printSet(w, ed.set, time.Now())

	return editLoop(ctx, w, rl, ed, apply)
}

// lineReader is the part of *readline.Instance the editor loop uses.
type lineReader interface {
	Readline() (string, error)
}

func editLoop(ctx context.Context, w io.Writer, rl lineReader, ed *editor, apply func(schedule.Set) error) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Fprintln(w)
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(w, "Parse error: %v\n", err)
			continue
		}

		action, err := ed.exec(tokens)
		if err != nil {
			fmt.Fprintln(w, err)
			continue
		}

		switch action {
		case actionApply:
			err := apply(ed.set)
			switch {
			case errors.Is(err, errAborted):
				fmt.Fprintln(w, i18n.T("apply.aborted"))
			case err != nil:
				handleCmdError(err)
			default:
				ed.applied()
			}
		case actionQuit:
			if ed.dirty() {
				ok, err := confirm(i18n.T("edit.unsaved"), false)
				if err != nil || !ok {
					continue
				}
			}
			return nil
		}
	}
}

func NewEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "edit",
		Short:   "Edit the schedule interactively",
		GroupID: gBasic,
		Long: `Edit the schedule interactively.

Starts a small shell on top of the current schedule. Changes are only
written to pmset when you type 'apply'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isInteractive() {
				return fmt.Errorf("edit needs a terminal, use 'poweron apply' in scripts")
			}

			ctx := context.Background()
			sync := newSynchronizer(false)
			set, err := sync.Load(ctx)
			if err != nil {
				cmd.PrintErrln(i18n.T("show.notice", err))
			}

			w := cmd.OutOrStdout()
			return runEditor(ctx, w, newEditor(set, w), func(set schedule.Set) error {
				return applyWithConfirm(ctx, w, sync, set, false)
			})
		},
	}
}
