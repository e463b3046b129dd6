package commands

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Query execution history",
	}
	cmd.AddCommand(newExecutionsListCmd(), newExecutionsGetCmd(), newExecutionsStatsCmd())
	return cmd
}

func newExecutionsListCmd() *cobra.Command {
	var jobName, jobGroup, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if jobName != "" {
				q.Set("job_name", jobName)
			}
			if jobGroup != "" {
				q.Set("job_group", jobGroup)
			}
			if status != "" {
				q.Set("status", status)
			}
			path := "/api/v1/executions"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			env, err := client().get(path)
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobName, "job-name", "", "filter by job name")
	cmd.Flags().StringVar(&jobGroup, "job-group", "", "filter by job group")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newExecutionsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <fire-instance-id>",
		Short: "Show a single execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := client().get("/api/v1/executions/" + args[0])
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
}

func newExecutionsStatsCmd() *cobra.Command {
	var jobName, jobGroup string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate execution counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if jobName != "" {
				q.Set("job_name", jobName)
			}
			if jobGroup != "" {
				q.Set("job_group", jobGroup)
			}
			path := "/api/v1/executions/stats"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			env, err := client().get(path)
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobName, "job-name", "", "filter by job name")
	cmd.Flags().StringVar(&jobGroup, "job-group", "", "filter by job group")
	return cmd
}
