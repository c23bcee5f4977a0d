package main

import (
	"github.com/spf13/cobra"
)

const (
	groupDaemon = "daemon"
	groupQueue  = "queue"
	groupSetup  = "setup"
)

func newRootCommand() *cobra.Command {
	var (
		socketFlag string
		configFlag string
		jsonFlag   bool
	)
	ctx := newCommandContext(&socketFlag, &configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:   "petsync",
		Short: "Queue pet-safety actions while offline and sync them later",
		Long: "petsync keeps a durable queue of actions that could not reach the backend\n" +
			"and replays them in order once connectivity returns.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&socketFlag, "socket", "", "Path to the petsync daemon socket")
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.BoolVar(&jsonFlag, "json", false, "Print machine-readable JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupDaemon, Title: "Daemon:"},
		&cobra.Group{ID: groupQueue, Title: "Queue:"},
		&cobra.Group{ID: groupSetup, Title: "Setup and diagnostics:"},
	)

	grouped := map[string][]*cobra.Command{
		groupDaemon: append(newDaemonCommands(ctx), newLogsCommand(ctx)),
		groupQueue:  {newQueueCommand(ctx), newSyncCommand(ctx)},
		groupSetup:  {newConfigCommand(ctx), newPreflightCommand(ctx), newTestNotifyCommand(ctx)},
	}
	for group, cmds := range grouped {
		for _, cmd := range cmds {
			cmd.GroupID = group
			rootCmd.AddCommand(cmd)
		}
	}
	// Hidden; launched by `petsync start`.
	rootCmd.AddCommand(newDaemonRunCommand(ctx))

	return rootCmd
}
