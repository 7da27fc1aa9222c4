package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/poweron/poweron/pkg/config"
	"github.com/poweron/poweron/pkg/i18n"
	"github.com/poweron/poweron/pkg/synchronizer"
	"github.com/poweron/poweron/pkg/types"
	"github.com/poweron/poweron/pkg/utils/osver"
)

var (
	logLevel       = "info"
	unixSocketPath = types.DefaultHelperSocket
	configPath     = types.DefaultConfigPath
	lang           = ""

	conf config.Config
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gInstallation,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

// loadConfig reads the config file. A broken file is reported and the
// defaults are used, so read-only commands keep working.
func loadConfig() {
	f, err := config.NewFile(configPath)
	if err != nil {
		logrus.Warnf("failed to load config, using defaults: %v", err)
		f = config.NewFileFromConfig(nil, configPath)
	}
	logrus.WithFields(f.LogrusFields()).Debug("config loaded")
	conf = f
}

func errorTitle(err error) string {
	if errors.Is(err, synchronizer.ErrBusy) {
		return i18n.T("error.busy")
	}
	switch synchronizer.KindOf(err) {
	case synchronizer.HelperConnectionFailed:
		return i18n.T("error.helperConnection")
	case synchronizer.HelperInstallationFailed:
		return i18n.T("error.helperInstallation")
	case synchronizer.AuthorizationFailed:
		return i18n.T("error.authorization")
	case synchronizer.InvalidConfiguration:
		return i18n.T("error.invalidConfiguration")
	case synchronizer.HelperCommunicationError:
		return i18n.T("error.helperCommunication")
	case synchronizer.ExternalToolLaunchFailure:
		return i18n.T("error.externalTool")
	default:
		return i18n.T("error.generic")
	}
}

// handleCmdError prints err the way the desktop app showed its alerts:
// a title and the detail underneath.
func handleCmdError(err error) {
	var e *synchronizer.Error
	detail := err.Error()
	if errors.As(err, &e) && e.Detail != "" {
		detail = e.Detail
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint(errorTitle(err)))
	fmt.Fprintln(os.Stderr, "  "+detail)

	switch synchronizer.KindOf(err) {
	case synchronizer.HelperConnectionFailed:
		fmt.Fprintln(os.Stderr, "  - Is the helper installed? Try 'sudo poweron install'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall it with '--allow-non-root-access' to use it without sudo")
	case synchronizer.ExternalToolLaunchFailure:
		fmt.Fprintln(os.Stderr, "  - Changing the schedule requires root, try again with 'sudo' or set \"privilege\" to \"helper\" in "+configPath)
	}
}

func main() {
	if runtime.GOOS == "darwin" && osver.Get().Known() && !osver.IsAtLeast(10, 15, 0) {
		fmt.Fprintln(os.Stderr, "poweron requires macOS 10.15 or later")
		os.Exit(1)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poweron",
		Short: "poweron schedules power-on and shutdown of your Mac",
		Long: `poweron schedules power-on and shutdown of your Mac.

It reads and writes the repeating power events of pmset(1). Changing them
requires root, so poweron either runs pmset itself (as root or through sudo)
or asks its privileged helper to do it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			loadConfig()
			i18n.SetLanguage(lang, conf.Language(), os.Getenv("LC_ALL"), os.Getenv("LANG"))
			logrus.Debugf("language: %s", i18n.Lang())

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "helper-socket", unixSocketPath, "poweron helper unix socket path")
	globalFlags.StringVar(&lang, "lang", "", "display language (en, fr, de, ja), defaults to the config or $LANG")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewShowCommand(),
		NewApplyCommand(),
		NewCancelCommand(),
		NewEditCommand(),
		NewHelperCommand(),
		NewVersionCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
