package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anshumantekriwal/kadena-agents/internal/client"
	"github.com/anshumantekriwal/kadena-agents/pkg/models"
	"github.com/anshumantekriwal/kadena-agents/pkg/printer"
)

type logsOptions struct {
	tail      int
	start     string
	end       string
	limit     int
	nextToken string
}

func newLogsCmd(g *globalOptions) *cobra.Command {
	o := &logsOptions{}
	cmd := &cobra.Command{
		Use:   "logs <agent-id>",
		Short: "Show the logs of a deployed agent",
		Long: `Shows an agent's log events, oldest first. With --tail the newest events are
shown instead, newest first. --start and --end accept RFC3339 timestamps, epoch
milliseconds or a duration relative to now (e.g. 30m).`,
		Example: `  agentctl logs abc123 --start 1h --limit 50
  agentctl logs abc123 --tail 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := requireArg(args, "agent id")
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tail") {
				if o.start != "" || o.end != "" || o.nextToken != "" {
					return errors.New("--tail cannot be combined with --start, --end or --next-token")
				}
				return runTail(cmd, g, agentID, o.tail)
			}

			now := time.Now()
			q := client.LogsQuery{Limit: o.limit, NextToken: o.nextToken}
			if q.StartTime, err = parseTimeFlag(o.start, now); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if q.EndTime, err = parseTimeFlag(o.end, now); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if !q.StartTime.IsZero() && !q.EndTime.IsZero() && q.StartTime.After(q.EndTime) {
				return errors.New("--start must not be after --end")
			}

			result, err := g.client.GetLogs(cmd.Context(), agentID, q)
			if err != nil {
				return err
			}
			if g.printer.Structured() {
				return g.printer.PrintStructured(result)
			}
			if err := printEvents(g.printer, result.Events, result.Message); err != nil {
				return err
			}
			if result.NextToken != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "More events available: --next-token %s\n", result.NextToken)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&o.tail, "tail", 0, "Show the newest N events (0 uses the server default)")
	cmd.Flags().StringVar(&o.start, "start", "", "Only events at or after this time")
	cmd.Flags().StringVar(&o.end, "end", "", "Only events at or before this time")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Maximum number of events")
	cmd.Flags().StringVar(&o.nextToken, "next-token", "", "Continue a previous query")
	return cmd
}

func runTail(cmd *cobra.Command, g *globalOptions, agentID string, lines int) error {
	result, err := g.client.Tail(cmd.Context(), agentID, lines)
	if err != nil {
		return err
	}
	if g.printer.Structured() {
		return g.printer.PrintStructured(result)
	}
	return printEvents(g.printer, result.Events, result.Message)
}

func printEvents(p *printer.Printer, events []models.LogEvent, message string) error {
	if len(events) == 0 {
		msg := printer.EmptyValueOrDefault(message, "No log events found.")
		_, err := fmt.Fprintln(p.Out(), msg)
		return err
	}
	t := p.Table(
		printer.Column{Header: "Timestamp"},
		printer.Column{Header: "Stream", Wide: true},
		printer.Column{Header: "Message"},
	)
	for _, e := range events {
		msg := strings.TrimRight(e.Message, "\n")
		if !p.Wide() {
			msg = printer.TruncateString(msg, 120)
		}
		t.AddRow(printer.FormatMillis(e.Timestamp), emptyDash(e.LogStreamName), msg)
	}
	return t.Render()
}

// parseTimeFlag accepts RFC3339, epoch milliseconds or a duration before now.
func parseTimeFlag(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			d = -d
		}
		return now.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}
