// Command novafnctl is the CLI Controller (spec §4.7): a short-lived
// client that starts/stops the novafn daemon and drives its REST
// front-end, with a cobra root and a per-command store-handle style
// adapted from an embedded store to an apiclient.Client talking to a
// separately-running daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/novafn/novafn/internal/apiclient"
	"github.com/novafn/novafn/internal/clientconfig"
	"github.com/novafn/novafn/internal/output"
)

// validationErr marks a failure as a usage/validation problem (exit code
// 2) rather than an operational one (exit code 1), per spec §4.7.
type validationErr struct{ err error }

func (v *validationErr) Error() string { return v.err.Error() }
func (v *validationErr) Unwrap() error { return v.err }

func validationErrorf(format string, args ...any) error {
	return &validationErr{err: fmt.Errorf(format, args...)}
}

var (
	flagProject string
	flagRegion  string
	flagOutput  string
	flagJSON    bool
	flagYAML    bool
)

func main() {
	root := &cobra.Command{
		Use:           "novafnctl",
		Short:         "Control and drive the novafn local functions emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagProject, "project", "", "project ID (overrides config/env)")
	root.PersistentFlags().StringVar(&flagRegion, "region", "", "default location/region")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "output format (table, wide, json, yaml)")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "shorthand for --output json")
	root.PersistentFlags().BoolVar(&flagYAML, "yaml", false, "shorthand for --output yaml")

	root.AddCommand(
		startCmd(),
		stopCmd(),
		restartCmd(),
		killCmd(),
		statusCmd(),
		clearCmd(),
		pruneCmd(),
		configCmd(),
		deployCmd(),
		deleteCmd(),
		describeCmd(),
		listCmd(),
		callCmd(),
		logsCmd(),
		debugCmd(),
		inspectCmd(),
		resetCmd(),
		eventTypesCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var v *validationErr
		if errors.As(err, &v) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func printer() *output.Printer {
	format := output.ParseFormat(flagOutput)
	if flagJSON {
		format = output.FormatJSON
	}
	if flagYAML {
		format = output.FormatYAML
	}
	return output.NewPrinter(format)
}

// cliContext bundles the persisted config store, resolved project, and an
// apiclient pointed at the active daemon — the shared setup every
// data-plane subcommand (deploy/list/call/...) needs before it can talk
// to the daemon.
type cliContext struct {
	store   *clientconfig.Store
	values  clientconfig.Values
	client  *apiclient.Client
	active  clientconfig.ActiveServer
	project string
	region  string
}

func newCLIContext(ctx context.Context, requireRunning bool) (*cliContext, error) {
	store, err := clientconfig.Open()
	if err != nil {
		return nil, err
	}
	values, err := store.Load()
	if err != nil {
		return nil, err
	}

	project, err := clientconfig.ResolveProject(flagProject, values, nil)
	if err != nil {
		return nil, validationErrorf("%w", err)
	}

	region := flagRegion
	if region == "" {
		region, _ = values.Get("region")
	}
	if region == "" {
		region = "us-central1"
	}

	active, err := store.ReadActiveServer()
	if err != nil {
		if requireRunning {
			return nil, fmt.Errorf("no running daemon found; run `novafnctl start` first")
		}
		active = clientconfig.ActiveServer{}
	}

	timeoutMS := values.GetInt("timeout", 10_000)
	baseURL := fmt.Sprintf("http://%s:%d", orDefault(active.Host, "localhost"), orDefaultInt(active.RestPort, 8080))
	client := apiclient.New(baseURL, time.Duration(timeoutMS)*time.Millisecond)

	return &cliContext{store: store, values: values, client: client, active: active, project: project, region: region}, nil
}

func orDefault(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(n int, def int) int {
	if n == 0 {
		return def
	}
	return n
}

// postAdmin issues a bare admin POST and reports success on stdout.
func postAdmin(ctx context.Context, cctx *cliContext, path string) error {
	if err := cctx.client.Post(ctx, path); err != nil {
		return err
	}
	printer().Success("ok")
	return nil
}

// postAdminDebug issues an admin POST that recreates a worker and prints
// any startup notices it emitted (e.g. the "Debugger for {short} listening
// on port {p}." line), falling back to a bare "ok" when there are none.
func postAdminDebug(ctx context.Context, cctx *cliContext, path string) error {
	worker, err := cctx.client.Debug(ctx, path)
	if err != nil {
		return err
	}
	if len(worker.StartupNotices) == 0 {
		printer().Success("ok")
		return nil
	}
	for _, line := range worker.StartupNotices {
		fmt.Println(line)
	}
	return nil
}
