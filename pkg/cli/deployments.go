package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anshumantekriwal/kadena-agents/pkg/models"
	"github.com/anshumantekriwal/kadena-agents/pkg/printer"
)

func newDeploymentCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deployment <deployment-id>",
		Short: "Show the progress of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "deployment id")
			if err != nil {
				return err
			}
			d, err := g.client.GetDeployment(cmd.Context(), id)
			if err != nil {
				return err
			}
			if g.printer.Structured() {
				return g.printer.PrintStructured(d)
			}

			out := g.printer.Out()
			_, _ = fmt.Fprintf(out, "ID:        %s\n", d.ID)
			_, _ = fmt.Fprintf(out, "Agent:     %s\n", d.AgentID)
			_, _ = fmt.Fprintf(out, "Status:    %s\n", d.Status)
			_, _ = fmt.Fprintf(out, "Progress:  %s\n", progress(*d))
			_, _ = fmt.Fprintf(out, "Completed: %s\n", emptyDash(strings.Join(d.Completed, ", ")))
			if d.Result != nil {
				_, _ = fmt.Fprintf(out, "URL:       %s\n", d.Result.AgentURL)
				_, _ = fmt.Fprintf(out, "Image:     %s\n", d.Result.ImageURI)
			}
			if d.Error != "" {
				_, _ = fmt.Fprintf(out, "Error:     %s\n", d.Error)
			}
			_, _ = fmt.Fprintf(out, "Updated:   %s\n", printer.FormatTimestamp(d.UpdatedAt))
			return nil
		},
	}
}

func newDeploymentsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deployments",
		Short: "List recent deployments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deployments, err := g.client.ListDeployments(cmd.Context())
			if err != nil {
				return err
			}
			if g.printer.Structured() {
				return g.printer.PrintStructured(deployments)
			}
			if len(deployments) == 0 {
				_, err := fmt.Fprintln(g.printer.Out(), "No deployments found.")
				return err
			}

			t := g.printer.Table(
				printer.Column{Header: "ID"},
				printer.Column{Header: "Agent"},
				printer.Column{Header: "Status"},
				printer.Column{Header: "Progress"},
				printer.Column{Header: "Age"},
				printer.Column{Header: "Error", Wide: true},
			)
			for _, d := range deployments {
				t.AddRow(d.ID, d.AgentID, d.Status, progress(d), printer.FormatAge(d.CreatedAt), emptyDash(d.Error))
			}
			return t.Render()
		},
	}
}

// progress renders "completed/total (step)".
func progress(d models.DeploymentStatus) string {
	s := fmt.Sprintf("%d/%d", len(d.Completed), d.Total)
	if d.Step != "" {
		s += " (" + d.Step + ")"
	}
	return s
}
