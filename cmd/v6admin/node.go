package main

import (
	"github.com/spf13/cobra"

	"github.com/vantage6/console/pkg/platform"
)

func newNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node <command>",
		Short: "Inspect nodes",
	}
	cmd.AddCommand(newNodeListCommand())
	cmd.AddCommand(newNodeGetCommand())
	return cmd
}

func newNodeListCommand() *cobra.Command {
	var collaborationID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := client.ListNodes(ctx, collaborationID)
			if err != nil {
				return err
			}
			return printNodes(nodes)
		},
	}
	cmd.Flags().Int64Var(&collaborationID, "collaboration", 0, "Restrict to one collaboration")
	return cmd
}

func newNodeGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <node-id>",
		Short: "Display one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			node, err := client.GetNode(ctx, id)
			if err != nil {
				return err
			}
			return printNodes([]platform.Node{*node})
		},
	}
}
