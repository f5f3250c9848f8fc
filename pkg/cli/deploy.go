package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

type deployOptions struct {
	agentID      string
	baselineFile string
	intervalFile string
	publicKey    string
	privateKey   string
}

func newDeployCmd(g *globalOptions) *cobra.Command {
	o := &deployOptions{}
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy an agent from its baseline and interval sources",
		Long: `Builds the agent image, publishes it and creates its managed service.
The command returns once the service creation is accepted; the agent may still be starting.`,
		Example: `  agentctl deploy --agent-id abc123 --baseline-file baseline.js --interval-file interval.js --public-key k:...`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.privateKey == "" {
				return errors.New("--private-key or " + envPrivateKey + " is required")
			}
			baseline, err := readSource(cmd.InOrStdin(), o.baselineFile)
			if err != nil {
				return fmt.Errorf("read baseline: %w", err)
			}
			interval, err := readSource(cmd.InOrStdin(), o.intervalFile)
			if err != nil {
				return fmt.Errorf("read interval: %w", err)
			}

			result, err := g.client.Deploy(cmd.Context(), models.DeployAgentRequest{
				AgentID:          o.agentID,
				BaselineFunction: baseline,
				IntervalFunction: interval,
				PublicKey:        o.publicKey,
				PrivateKey:       o.privateKey,
			})
			if err != nil {
				return err
			}

			if g.printer.Structured() {
				return g.printer.PrintStructured(result)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Agent %s deployment accepted\n", result.AgentID)
			_, _ = fmt.Fprintf(out, "  URL:        %s\n", result.AgentURL)
			_, _ = fmt.Fprintf(out, "  Image:      %s\n", emptyDash(result.ImageURI))
			_, _ = fmt.Fprintf(out, "  Deployment: %s\n", emptyDash(result.DeploymentID))
			return nil
		},
	}

	cmd.Flags().StringVar(&o.agentID, "agent-id", "", "Agent identifier")
	cmd.Flags().StringVar(&o.baselineFile, "baseline-file", "", "File holding the baseline routine (- for stdin)")
	cmd.Flags().StringVar(&o.intervalFile, "interval-file", "", "File holding the interval routine (- for stdin)")
	cmd.Flags().StringVar(&o.publicKey, "public-key", "", "Agent public key")
	cmd.Flags().StringVar(&o.privateKey, "private-key", os.Getenv(envPrivateKey), "Agent private key (defaults to "+envPrivateKey+")")
	for _, name := range []string{"agent-id", "baseline-file", "interval-file", "public-key"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
