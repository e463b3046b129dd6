package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <group> <name>",
		Short: "Show a job's recent execution history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/history/%s/%s", args[0], args[1])
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			env, err := client().get(path)
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}
