package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anshumantekriwal/kadena-agents/internal/version"
)

func newVersionCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the CLI and deployer versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := g.printer.Out()
			_, _ = fmt.Fprintf(out, "agentctl version %s\n", version.Version)
			_, _ = fmt.Fprintf(out, "Git commit: %s\n", version.GitCommit)
			_, _ = fmt.Fprintf(out, "Build date: %s\n", version.BuildDate)

			server, err := g.client.Version(cmd.Context())
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to reach deployer at %s: %v\n", g.client.BaseURL, err)
				return nil
			}
			_, _ = fmt.Fprintf(out, "\nDeployer version: %s\n", server.Version)
			_, _ = fmt.Fprintf(out, "Deployer git commit: %s\n", server.GitCommit)
			_, _ = fmt.Fprintf(out, "Deployer build date: %s\n", server.BuildTime)
			return nil
		},
	}
}
