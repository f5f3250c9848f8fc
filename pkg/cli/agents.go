package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anshumantekriwal/kadena-agents/pkg/printer"
)

func newAgentsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "agents",
		Aliases: []string{"ls"},
		Short:   "List deployed agents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents, err := g.client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			if g.printer.Structured() {
				return g.printer.PrintStructured(agents)
			}
			if len(agents) == 0 {
				_, err := fmt.Fprintln(g.printer.Out(), "No agents found.")
				return err
			}

			t := g.printer.Table(
				printer.Column{Header: "Agent"},
				printer.Column{Header: "Status"},
				printer.Column{Header: "Logs"},
				printer.Column{Header: "URL"},
				printer.Column{Header: "Service", Wide: true},
				printer.Column{Header: "Log Group", Wide: true},
				printer.Column{Header: "Age", Wide: true},
			)
			for _, a := range agents {
				age := "-"
				if a.CreatedAt != nil {
					age = printer.FormatAge(*a.CreatedAt)
				}
				t.AddRow(a.AgentID, emptyDash(a.Status), strconv.FormatBool(a.HasLogs), emptyDash(a.ServiceURL),
					a.ServiceName, emptyDash(a.LogGroupName), age)
			}
			return t.Render()
		},
	}
}

func newLogGroupsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log-groups",
		Short: "List the log groups of the managed service namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := g.client.ListLogGroups(cmd.Context())
			if err != nil {
				return err
			}
			if g.printer.Structured() {
				return g.printer.PrintStructured(groups)
			}
			if len(groups) == 0 {
				_, err := fmt.Fprintln(g.printer.Out(), "No log groups found.")
				return err
			}

			t := g.printer.Table(
				printer.Column{Header: "Name"},
				printer.Column{Header: "Created"},
				printer.Column{Header: "Stored Bytes", Wide: true},
				printer.Column{Header: "Retention"},
			)
			for _, lg := range groups {
				retention := "never expires"
				if lg.RetentionInDays > 0 {
					retention = fmt.Sprintf("%dd", lg.RetentionInDays)
				}
				created := "-"
				if lg.CreationTime > 0 {
					created = printer.FormatMillis(lg.CreationTime)
				}
				t.AddRow(lg.Name, created, lg.StoredBytes, retention)
			}
			return t.Render()
		},
	}
}
