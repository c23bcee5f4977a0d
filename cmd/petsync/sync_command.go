package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending actions against the backend now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				result, err := q.Sync(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.Skipped {
					fmt.Fprintln(out, "A sync is already running")
					return nil
				}
				if result.Attempted == 0 {
					fmt.Fprintln(out, "Nothing to sync")
					return nil
				}
				fmt.Fprintf(out, "Synced %d of %d %s", result.Completed, result.Attempted, pluralize(result.Attempted, "action", "actions"))
				if result.Failed > 0 {
					fmt.Fprintf(out, " (%d failed, see `petsync queue failed`)", result.Failed)
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
