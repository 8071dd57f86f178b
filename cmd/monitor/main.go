// cmd/monitor/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:           "modem-monitor <config.yaml>",
		Short:         "Poll a fleet of field modems over Modbus TCP",
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			if check {
				fmt.Fprintln(cmd.OutOrStdout(), "config ok")
				return nil
			}

			if err := run(cmd.Context(), cfg); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "validate the config and exit")
	return cmd
}
