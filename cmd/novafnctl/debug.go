package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func debugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug <name>",
		Short: "Restart a function's worker with its debugger port open",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/v1/admin/debug/%s/%s/%s", cctx.project, cctx.region, args[0])
			return postAdminDebug(cmd.Context(), cctx, path)
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>",
		Short: "Restart a function's worker with Node-style inspector protocol open",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/v1/admin/debug/%s/%s/%s?inspect=true", cctx.project, cctx.region, args[0])
			return postAdminDebug(cmd.Context(), cctx, path)
		},
	}
}

func resetCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "reset <name>",
		Short: "Close a function's worker, optionally recreating it immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			path := fmt.Sprintf("/v1/admin/reset/%s/%s/%s", cctx.project, cctx.region, args[0])
			if keep {
				path += "?keep=true"
			}
			return postAdmin(cmd.Context(), cctx, path)
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "recreate the worker immediately instead of leaving it absent")
	return cmd
}
