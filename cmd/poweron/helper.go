package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/poweron/poweron/pkg/helper"
	"github.com/poweron/poweron/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the helper.
	alwaysAllowNonRootAccess = false
)

// NewHelperCommand .
func NewHelperCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "helper",
		Hidden:  true,
		Short:   "Run the privileged helper in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("poweron helper starting")
			return helper.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the helper.")

	return cmd
}
