package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task <command>",
		Short: "Inspect and control tasks",
	}
	cmd.AddCommand(newTaskListCommand())
	cmd.AddCommand(newTaskRunsCommand())
	cmd.AddCommand(newTaskLogCommand())
	cmd.AddCommand(newTaskKillCommand())
	return cmd
}

func newTaskListCommand() *cobra.Command {
	var collaborationID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := client.ListTasks(ctx, collaborationID)
			if err != nil {
				return err
			}
			return printTasks(tasks)
		},
	}
	cmd.Flags().Int64Var(&collaborationID, "collaboration", 0, "Restrict to one collaboration")
	return cmd
}

func newTaskRunsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <task-id>",
		Short: "List the per-node runs of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			runs, err := client.TaskRuns(ctx, id)
			if err != nil {
				return err
			}
			return printRuns(runs)
		},
	}
}

func newTaskLogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "log <run-id>",
		Short: "Print the log of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			runLog, err := client.RunLog(ctx, id)
			if err != nil {
				return err
			}
			fmt.Print(runLog)
			return nil
		},
	}
}

func newTaskKillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <task-id>",
		Short: "Terminate a running task on every node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := client.KillTask(ctx, id); err != nil {
				return err
			}
			if !quiet {
				fmt.Printf("Killed task %s\n", color.BlueString(args[0]))
			}
			return nil
		},
	}
}
