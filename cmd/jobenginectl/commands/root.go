// Package commands implements jobenginectl's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/minisource/jobengine/internal/version"
)

var serverAddr string

// NewRootCmd builds the root command with every subcommand registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "jobenginectl",
		Short:   "Operate a running job engine scheduler over its HTTP API",
		Version: version.String(),
		Long: `jobenginectl is an operational CLI for the job engine.

Examples:
  jobenginectl jobs list
  jobenginectl jobs trigger DEFAULT my-job
  jobenginectl jobs pause DEFAULT my-job
  jobenginectl executions list --job-name my-job`,
	}

	root.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:5003", "job engine base URL")

	root.AddCommand(
		newJobsCmd(),
		newExecutionsCmd(),
		newHistoryCmd(),
		newHealthCmd(),
	)
	return root
}

func client() *apiClient { return newAPIClient(serverAddr) }
