package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check liveness and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env, err := client().get("/healthz"); err == nil {
				printJSON(env.Data)
			} else {
				fmt.Println("live: unreachable:", err)
			}
			if env, err := client().get("/readyz"); err == nil {
				printJSON(env.Data)
			} else {
				fmt.Println("ready: not ready:", err)
			}
			return nil
		},
	}
}
