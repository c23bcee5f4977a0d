package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"petsync/internal/ipc"
	"petsync/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		Long: "Send a test notification to the configured ntfy topic.\n\n" +
			"The daemon sends it when running; otherwise the CLI publishes directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ipc.TestNotificationResponse
			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				result = *resp
			} else {
				cfg, cfgErr := ctx.ensureConfig()
				if cfgErr != nil {
					return cfgErr
				}
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
					result.Message = "ntfy topic not configured"
				} else if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				} else {
					result = ipc.TestNotificationResponse{Sent: true, Message: "test notification sent"}
				}
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
}
