package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"petsync/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFilePath()
			out := cmd.OutOrStdout()

			emit := func(line string) {
				entry := logs.ParseEntry(line)
				if !filter.Match(entry) {
					return
				}
				if raw {
					fmt.Fprintln(out, entry.Raw)
					return
				}
				fmt.Fprintln(out, entry.Format())
			}

			// -n counts lines read, not lines matched.
			result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				emit(line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, result.Offset, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print lines as stored instead of formatting them")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Only show entries at or above this level")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show entries from this component")
	cmd.Flags().StringVar(&filter.ActionID, "action", "", "Only show entries for this action id")
	return cmd
}
