package main

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/poweron/poweron/pkg/config"
	daemonutils "github.com/poweron/poweron/pkg/utils/daemon"
)

var installHelper = daemonutils.Install

// helperArgs are the arguments launchd starts the helper with.
func helperArgs(allowNonRoot bool) []string {
	args := []string{"--config", configPath, "--helper-socket", unixSocketPath}
	if allowNonRoot {
		args = append(args, "--always-allow-non-root-access")
	}
	return args
}

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install the privileged helper (system-wide)",
		GroupID: gInstallation,
		Long: `Install the poweron helper to launchd (system-wide).

The helper runs pmset as root on behalf of poweron, so changing the schedule
does not need sudo. You must run this command as root. poweron runs it for
you, behind the administrator prompt, the first time the helper is needed.

By default, only root user is allowed to access the helper for security reasons. If you want to allow non-root users, i.e., you, to access the helper, use the --allow-non-root-access flag.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("allow-non-root-access") {
				f.SetAllowNonRootAccess(allowNonRootAccess)
			}
			if f.AllowNonRootAccess() {
				logrus.Info("non-root users are allowed to access the poweron helper.")
			} else {
				logrus.Info("only root user is allowed to access the poweron helper.")
			}

			// launchd starts the helper as soon as it is loaded, and the
			// helper reads the config only once.
			err = f.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = installHelper(helperArgs(f.AllowNonRootAccess())...)
			if err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return pkgerrors.Wrapf(err, "failed to install helper")
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("`launchd' will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run ``poweron install'' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access the poweron helper.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the privileged helper (system-wide)",
		GroupID: gInstallation,
		Long: `Uninstall the poweron helper from launchd (system-wide).

This stops the helper and removes it from launchd. The repeating power
events stay in place, use 'poweron cancel' first to remove them.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return pkgerrors.Wrapf(err, "failed to uninstall helper")
			}

			cmd.Println("helper uninstalled")

			cmd.Printf("Your config is kept in %s, in case you want to use the helper again. If you want a complete uninstall, you can remove both config file and poweron itself manually.\n", configPath)

			return nil
		},
	}

	return cmd
}
