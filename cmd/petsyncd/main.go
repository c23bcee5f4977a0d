// Command petsyncd runs the PetSync daemon in the foreground. It is meant for
// service managers; interactive users start the same runtime with
// `petsync start`.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"petsync/internal/config"
	"petsync/internal/daemonrun"
)

type flags struct {
	configPath string
	socketPath string
	logLevel   string
	diagnostic bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "petsyncd",
		Short:         "PetSync offline action queue daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(f.configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, f.options())
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&f.socketPath, "socket", "", "IPC socket path (defaults to <data_dir>/petsync.sock)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&f.diagnostic, "diagnostic", false, "Write a separate DEBUG log for this run")
	return cmd
}

func (f flags) options() daemonrun.Options {
	return daemonrun.Options{
		LogLevel:   strings.TrimSpace(f.logLevel),
		Diagnostic: f.diagnostic,
		SocketPath: strings.TrimSpace(f.socketPath),
	}
}
