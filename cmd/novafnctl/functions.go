package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/novafn/novafn/internal/deployspec"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/names"
	"github.com/novafn/novafn/internal/output"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deployed functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			fns, err := cctx.client.ListFunctions(cmd.Context(), cctx.project, cctx.region)
			if err != nil {
				return err
			}
			rows := make([]output.FunctionRow, 0, len(fns))
			for _, fn := range fns {
				rows = append(rows, toRow(cctx, fn))
			}
			return printer().PrintFunctions(rows)
		},
	}
}

func toRow(cctx *cliContext, fn domain.Function) output.FunctionRow {
	return output.FunctionRow{
		Name:     fn.Name,
		Trigger:  string(fn.Trigger.Kind),
		Resource: fn.Trigger.Resource,
		URL:      functionURL(cctx, fn),
		Runtime:  fn.Runtime,
		Updated:  fn.UpdatedAt.Format(time.RFC3339),
	}
}

func functionURL(cctx *cliContext, fn domain.Function) string {
	if fn.Trigger.Kind != domain.TriggerHTTP {
		return ""
	}
	return fmt.Sprintf("http://%s:%d/%s/%s/%s",
		orDefault(cctx.active.Host, "localhost"), orDefaultInt(cctx.active.RestPort, 8080),
		fn.Project, fn.Location, fn.ShortName)
}

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name>",
		Short: "Show one function's full configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			fqname := names.FormatName(cctx.project, cctx.region, args[0])
			fn, err := cctx.client.GetFunction(cmd.Context(), fqname)
			if err != nil {
				return err
			}
			detail := output.FunctionDetail{
				Name: fn.Name, Runtime: fn.Runtime, EntryPoint: fn.EntryPoint,
				SourcePath: fn.SourcePath, Trigger: string(fn.Trigger.Kind), Resource: fn.Trigger.Resource,
				TimeoutS: int(fn.Timeout.Seconds()), EnvVars: fn.EnvVars,
				Created: fn.CreatedAt.Format(time.RFC3339), Updated: fn.UpdatedAt.Format(time.RFC3339),
			}
			return printer().PrintFunctionDetail(detail)
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a deployed function",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			fqname := names.FormatName(cctx.project, cctx.region, args[0])
			op, err := cctx.client.DeleteFunction(cmd.Context(), fqname)
			if err != nil {
				return err
			}
			op, err = waitForOperation(cmd.Context(), cctx, op)
			if err != nil {
				return err
			}
			if op.Error != nil {
				return fmt.Errorf("delete failed: %s", op.Error.Message)
			}
			printer().Success("deleted %s", args[0])
			return nil
		},
	}
}

func deployCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy one or more functions from a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				return validationErrorf("deploy requires -f <manifest.yaml>")
			}
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			specs, err := deployspec.ParseFile(manifestPath)
			if err != nil {
				return validationErrorf("%w", err)
			}
			for _, s := range specs.Functions {
				fqname := names.FormatName(cctx.project, cctx.region, s.Name)
				fn, err := s.ToFunction(fqname)
				if err != nil {
					return validationErrorf("%w", err)
				}
				fn.Project, fn.Location = cctx.project, cctx.region

				op, err := cctx.client.CreateFunction(cmd.Context(), cctx.project, cctx.region, fn)
				if err != nil {
					return err
				}
				op, err = waitForOperation(cmd.Context(), cctx, op)
				if err != nil {
					return err
				}
				if op.Error != nil {
					return fmt.Errorf("deploy %s failed: %s", s.Name, op.Error.Message)
				}
				printer().Success("deployed %s", s.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "file", "f", "", "path to a deploy manifest (YAML)")
	return cmd
}

func callCmd() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Invoke a function and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			fqname := names.FormatName(cctx.project, cctx.region, args[0])
			data := json.RawMessage(payload)
			if len(data) == 0 {
				data = json.RawMessage("{}")
			}
			start := time.Now()
			res, err := cctx.client.CallFunction(cmd.Context(), fqname, data)
			if err != nil {
				return err
			}
			return printer().PrintInvokeResult(output.InvokeResult{
				Status: res.Status, Body: res.Body, DurationMs: time.Since(start).Milliseconds(),
			})
		},
	}
	cmd.Flags().StringVarP(&payload, "data", "d", "", "JSON payload")
	return cmd
}

// waitForOperation polls op until it reports Done, per the long-running
// operation contract spec §4.5/§4.6 describe.
func waitForOperation(ctx context.Context, cctx *cliContext, op domain.Operation) (domain.Operation, error) {
	deadline := time.Now().Add(30 * time.Second)
	for !op.Done {
		if time.Now().After(deadline) {
			return op, fmt.Errorf("operation %s did not complete within 30s", op.Name)
		}
		time.Sleep(200 * time.Millisecond)
		var err error
		op, err = cctx.client.GetOperation(ctx, op.Name)
		if err != nil {
			return op, err
		}
	}
	return op, nil
}
