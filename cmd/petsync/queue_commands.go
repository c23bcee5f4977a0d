package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"petsync/internal/api"
	"petsync/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued actions",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueFailedCommand(ctx))
	queueCmd.AddCommand(newQueueEnqueueCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueDismissCommand(ctx))
	queueCmd.AddCommand(newQueueRequeueCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				rows := buildQueueStatusRows(health)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(statusCountColumns, rows))
				return nil
			})
		},
	}
}

var statusCountColumns = []column{
	{Header: "Status"},
	{Header: "Count", Right: true},
}

func buildQueueStatusRows(health queue.HealthSummary) [][]string {
	counts := []struct {
		status queue.Status
		count  int
	}{
		{queue.StatusPending, health.Pending},
		{queue.StatusInFlight, health.InFlight},
		{queue.StatusFailed, health.Failed},
	}
	rows := make([][]string, 0, len(counts))
	for _, entry := range counts {
		if entry.count == 0 {
			continue
		}
		rows = append(rows, []string{displayStatus(string(entry.status)), strconv.Itoa(entry.count)})
	}
	return rows
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued actions in enqueue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseStatuses(statuses); err != nil {
				return err
			}
			return listActions(cmd, ctx, statuses, "Queue is empty")
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, in_flight, failed)")
	return cmd
}

func newQueueFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "List failed actions awaiting retry or dismissal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listActions(cmd, ctx, []string{string(queue.StatusFailed)}, "No failed actions")
		},
	}
}

func listActions(cmd *cobra.Command, ctx *commandContext, statuses []string, emptyMessage string) error {
	return ctx.withQueue(func(q queueAPI) error {
		actions, err := q.List(cmd.Context(), statuses)
		if err != nil {
			return err
		}
		if ctx.JSONMode() {
			return writeJSON(cmd, api.ActionListResponse{Actions: actions})
		}
		if len(actions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), emptyMessage)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTable(actionColumns, buildActionRows(actions, time.Now())))
		return nil
	})
}

var actionColumns = []column{
	{Header: "ID"},
	{Header: "Action"},
	{Header: "Status"},
	{Header: "Retries", Right: true},
	{Header: "Queued"},
	{Header: "Error", MaxWidth: 48},
}

func buildActionRows(actions []api.Action, now time.Time) [][]string {
	rows := make([][]string, 0, len(actions))
	for _, action := range actions {
		status := displayStatus(action.Status)
		if action.Status == string(queue.StatusFailed) && action.Permanent {
			status += " (rejected)"
		}
		rows = append(rows, []string{
			action.ID,
			action.Label,
			status,
			strconv.Itoa(action.RetryCount),
			formatAge(api.ParseTime(action.EnqueuedAt), now),
			action.ErrorMessage,
		})
	}
	return rows
}

func formatAge(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	age := now.Sub(ts)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return ts.Local().Format("2006-01-02 15:04")
	}
}

func newQueueEnqueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "enqueue <type> <payload|@file|->",
		Aliases: []string{"add"},
		Short:    "Queue an action for the next sync",
		Long: "Queue an action for the next sync.\n\n" +
			"The payload is a JSON object given inline, read from a file with @path, or read from stdin with -.\n" +
			"Known types: " + strings.Join(actionTypeNames(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := queue.ParseActionType(args[0]); err != nil {
				return fmt.Errorf("%w (known types: %s)", err, strings.Join(actionTypeNames(), ", "))
			}
			payload, err := readPayload(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				action, err := q.Enqueue(cmd.Context(), args[0], payload)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, action)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (%s)\n", action.Label, action.ID)
				return nil
			})
		},
	}
}

func actionTypeNames() []string {
	types := queue.ActionTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func readPayload(arg string, stdin io.Reader) (json.RawMessage, error) {
	var data []byte
	var err error
	switch {
	case arg == "-":
		data, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		data = []byte(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return nil, errors.New("payload is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed actions now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIDsOrAll(args, all); err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				if all {
					summary, err := q.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, summary)
					}
					fmt.Fprintln(out, retryAllMessage(summary))
					return nil
				}

				results := make([]api.RetryResult, 0, len(args))
				for _, id := range args {
					result, err := q.Retry(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("retry %s: %w", id, err)
					}
					results = append(results, result)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, results)
				}
				for _, result := range results {
					if result.Succeeded {
						fmt.Fprintf(out, "Action %s synced\n", result.ID)
						continue
					}
					fmt.Fprintf(out, "Action %s failed again: %s\n", result.ID, result.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Retry every failed action below the retry cap")
	return cmd
}

func retryAllMessage(summary api.RetryAllResult) string {
	if summary.Attempted == 0 && summary.Skipped == 0 {
		return "No failed actions to retry"
	}
	msg := fmt.Sprintf("Retried %d: %d synced, %d failed", summary.Attempted, summary.Succeeded, summary.Failed)
	if summary.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped (rejected or retry cap reached)", summary.Skipped)
	}
	return msg
}

func newQueueDismissCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "dismiss [id...]",
		Short: "Discard failed actions without syncing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIDsOrAll(args, all); err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				var removed int64
				if all {
					count, err := q.DismissAll(cmd.Context())
					if err != nil {
						return err
					}
					removed = count
				} else {
					for _, id := range args {
						count, err := q.Dismiss(cmd.Context(), id)
						if err != nil {
							return fmt.Errorf("dismiss %s: %w", id, err)
						}
						removed += count
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.DismissResult{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %d failed %s\n", removed, pluralize(int(removed), "action", "actions"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Dismiss every failed action")
	return cmd
}

func newQueueRequeueCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "requeue [id...]",
		Short: "Move failed actions back to pending for the next sync",
		Long: "Move failed actions back to pending for the next sync.\n\n" +
			"Unlike retry, requeue does not contact the backend. Retry counts are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIDsOrAll(args, all); err != nil {
				return err
			}
			ids := args
			if all {
				ids = nil
			}
			return ctx.withQueue(func(q queueAPI) error {
				updated, err := q.Requeue(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.RequeueResult{Updated: updated})
				}
				if updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed actions to requeue")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d %s\n", updated, pluralize(int(updated), "action", "actions"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Requeue every failed action")
	return cmd
}

func requireIDsOrAll(ids []string, all bool) error {
	switch {
	case all && len(ids) > 0:
		return errors.New("pass action ids or --all, not both")
	case !all && len(ids) == 0:
		return errors.New("pass at least one action id or --all")
	}
	return nil
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				health, err := q.DatabaseHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "queued_actions table present: %s\n", yesNo(health.TableExists))
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total actions: %d\n", health.TotalActions)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func parseStatuses(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, raw := range values {
		for _, value := range strings.Split(raw, ",") {
			if strings.TrimSpace(value) == "" {
				continue
			}
			status, ok := queue.ParseStatus(value)
			if !ok {
				return nil, fmt.Errorf("unknown status %q (use pending, in_flight or failed)", value)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func pluralize(count int, one, many string) string {
	if count == 1 {
		return one
	}
	return many
}
