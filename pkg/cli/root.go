// Package cli implements agentctl, the command-line client of the deployer.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anshumantekriwal/kadena-agents/internal/client"
	"github.com/anshumantekriwal/kadena-agents/pkg/printer"
)

const (
	envURL        = "AGENTCTL_URL"
	envAPIKey     = "AGENTCTL_API_KEY"
	envPrivateKey = "AGENTCTL_PRIVATE_KEY"
)

// globalOptions are shared by every command.
type globalOptions struct {
	url          string
	apiKey       string
	apiKeyHeader string
	output       string
	noHeaders    bool

	client  *client.Client
	printer *printer.Printer
}

// NewRootCmd builds the agentctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Agent deployer CLI",
		Long:          `agentctl deploys trading agents and reads their logs through the agent deployer API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			outputType, err := printer.ParseOutputType(opts.output)
			if err != nil {
				return err
			}
			opts.printer = printer.New(outputType)
			opts.printer.SetOutput(cmd.OutOrStdout())
			opts.printer.SetNoHeaders(opts.noHeaders)
			opts.client = client.NewClient(normalizeBaseURL(opts.url), opts.apiKey, client.WithAPIKeyHeader(opts.apiKeyHeader))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", os.Getenv(envURL), "Deployer base URL (overrides "+envURL+"; default "+client.DefaultBaseURL+")")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv(envAPIKey), "Shared API key (overrides "+envAPIKey+")")
	flags.StringVar(&opts.apiKeyHeader, "api-key-header", client.DefaultAPIKeyHeader, "Header the API key is sent in")
	flags.StringVarP(&opts.output, "output", "o", string(printer.OutputTypeTable), "Output format: table, wide, json or yaml")
	flags.BoolVar(&opts.noHeaders, "no-headers", false, "Omit table headers")

	root.AddCommand(
		newDeployCmd(opts),
		newLogsCmd(opts),
		newAgentsCmd(opts),
		newLogGroupsCmd(opts),
		newDeploymentCmd(opts),
		newDeploymentsCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// Execute runs agentctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		printer.PrintError(err.Error())
		os.Exit(1)
	}
}

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return client.DefaultBaseURL
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "http://" + trimmed
}

func emptyDash(s string) string {
	return printer.EmptyValueOrDefault(s, "-")
}

func requireArg(args []string, name string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return args[0], nil
}
