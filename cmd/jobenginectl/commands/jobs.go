package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage scheduled jobs",
	}
	cmd.AddCommand(
		newJobsListCmd(),
		newJobsGetCmd(),
		newJobsDeleteCmd(),
		newJobsTriggerCmd(),
		newJobsPauseCmd(),
		newJobsResumeCmd(),
		newJobsTriggersCmd(),
	)
	return cmd
}

func newJobsListCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by group",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/jobs"
			if group != "" {
				path += "?group=" + url.QueryEscape(group)
			}
			env, err := client().get(path)
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "filter by group")
	return cmd
}

func newJobsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <group> <name>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := client().get(fmt.Sprintf("/api/v1/jobs/%s/%s", args[0], args[1]))
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
}

func newJobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group> <name>",
		Short: "Delete a job and every trigger bound to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := client().delete(fmt.Sprintf("/api/v1/jobs/%s/%s", args[0], args[1]))
			if err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func newJobsTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <group> <name>",
		Short: "Fire a job immediately",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := client().post(fmt.Sprintf("/api/v1/jobs/%s/%s/trigger", args[0], args[1]), nil)
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
}

func newJobsPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <group> <name>",
		Short: "Pause every trigger bound to a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := client().post(fmt.Sprintf("/api/v1/jobs/%s/%s/pause", args[0], args[1]), nil)
			if err != nil {
				return err
			}
			fmt.Println("paused")
			return nil
		},
	}
}

func newJobsResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <group> <name>",
		Short: "Resume every trigger bound to a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := client().post(fmt.Sprintf("/api/v1/jobs/%s/%s/resume", args[0], args[1]), nil)
			if err != nil {
				return err
			}
			fmt.Println("resumed")
			return nil
		},
	}
}

func newJobsTriggersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triggers <group> <name>",
		Short: "List the triggers bound to a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := client().get(fmt.Sprintf("/api/v1/jobs/%s/%s/triggers", args[0], args[1]))
			if err != nil {
				return err
			}
			printJSON(env.Data)
			return nil
		},
	}
}
