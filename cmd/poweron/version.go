package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/poweron/poweron/pkg/synchronizer"
	"github.com/poweron/poweron/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print client and helper versions",
		GroupID: gAdvanced,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("client: %s %s\n", version.Version, version.GitCommit)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Never install just to print a version.
			v, err := newBridge(false).Version(ctx)
			switch {
			case err == nil:
				cmd.Printf("helper: %s\n", v)
				if !version.Compatible(v, version.Version) {
					cmd.Println("warning: client and helper versions are not compatible, reinstall the helper with 'sudo poweron install'")
				}
			case errors.Is(err, synchronizer.HelperConnectionFailed):
				cmd.Println("helper: not running")
			default:
				cmd.Printf("helper: unknown (%v)\n", err)
			}
		},
	}
}
