package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/novafn/novafn/internal/apiclient"
	"github.com/novafn/novafn/internal/clientconfig"
)

// emulatorPrefix is the stable prefix the status-transition messages in
// spec §7 are built from: "{prefix} STARTED | STOPPED | CLEARED | KILLED".
const emulatorPrefix = "functions emulator"

// daemonBinaryPath resolves the novafn daemon binary, preferring a
// sibling of the running novafnctl executable over a bare PATH lookup.
func daemonBinaryPath() string {
	if v := os.Getenv("NOVAFN_DAEMON_BINARY"); v != "" {
		return v
	}
	if exe, err := os.Executable(); err == nil {
		sibling := exe + "-daemon"
		if _, err := os.Stat(sibling); err == nil {
			return sibling
		}
	}
	return "novafn"
}

// spawnDetached launches the daemon in its own session (Setsid) so the
// daemon survives novafnctl exiting.
func spawnDetached(restPort, grpcPort int) (*os.Process, error) {
	cmd := exec.Command(daemonBinaryPath())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("NOVAFN_REST_PORT=%d", restPort),
		fmt.Sprintf("NOVAFN_GRPC_PORT=%d", grpcPort),
	)
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err == nil {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Process, nil
}

func startCmd() *cobra.Command {
	var restPort, grpcPort int
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the novafn daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			if _, err := store.ReadActiveServer(); err == nil {
				return fmt.Errorf("daemon already running; use `novafnctl restart` to replace it")
			}

			proc, err := spawnDetached(restPort, grpcPort)
			if err != nil {
				return fmt.Errorf("spawn daemon: %w", err)
			}

			rec := clientconfig.ActiveServer{
				PID: proc.Pid, RestPort: restPort, GRPCPort: grpcPort,
				Host: "localhost", StartedAt: time.Now(),
			}
			if err := store.WriteActiveServer(rec); err != nil {
				return err
			}

			client := apiclient.New(fmt.Sprintf("http://localhost:%d", restPort), 2*time.Second)
			if err := client.WaitForHealthy(context.Background(), 15*time.Second); err != nil {
				return fmt.Errorf("daemon did not become healthy: %w", err)
			}
			fmt.Printf("%s STARTED (pid %d), REST on :%d, gRPC on :%d\n", emulatorPrefix, proc.Pid, restPort, grpcPort)
			return nil
		},
	}
	cmd.Flags().IntVar(&restPort, "rest-port", 8080, "REST front-end port")
	cmd.Flags().IntVar(&grpcPort, "grpc-port", 8081, "RPC front-end port")
	return cmd
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := stopDaemon(false); err != nil {
				return err
			}
			fmt.Printf("%s STOPPED\n", emulatorPrefix)
			return nil
		},
	}
}

func killCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Terminate the running daemon immediately, skipping graceful shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := stopDaemon(true); err != nil {
				return err
			}
			fmt.Printf("%s KILLED\n", emulatorPrefix)
			return nil
		},
	}
}

func stopDaemon(immediate bool) error {
	store, err := clientconfig.Open()
	if err != nil {
		return err
	}
	active, err := store.ReadActiveServer()
	if err != nil {
		return fmt.Errorf("no running daemon found")
	}

	proc, err := os.FindProcess(active.PID)
	if err != nil {
		return store.ClearActiveServer()
	}

	sig := syscall.SIGTERM
	if immediate {
		sig = syscall.SIGKILL
	}
	if err := proc.Signal(sig); err != nil && err.Error() != "os: process already finished" {
		return fmt.Errorf("signal daemon: %w", err)
	}
	return store.ClearActiveServer()
}

func restartCmd() *cobra.Command {
	var restPort, grpcPort int
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop then start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = stopDaemon(false)
			time.Sleep(300 * time.Millisecond)

			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			proc, err := spawnDetached(restPort, grpcPort)
			if err != nil {
				return fmt.Errorf("spawn daemon: %w", err)
			}
			rec := clientconfig.ActiveServer{
				PID: proc.Pid, RestPort: restPort, GRPCPort: grpcPort,
				Host: "localhost", StartedAt: time.Now(),
			}
			if err := store.WriteActiveServer(rec); err != nil {
				return err
			}
			client := apiclient.New(fmt.Sprintf("http://localhost:%d", restPort), 2*time.Second)
			if err := client.WaitForHealthy(context.Background(), 15*time.Second); err != nil {
				return fmt.Errorf("daemon did not become healthy: %w", err)
			}
			fmt.Printf("%s STARTED (pid %d)\n", emulatorPrefix, proc.Pid)
			return nil
		},
	}
	cmd.Flags().IntVar(&restPort, "rest-port", 8080, "REST front-end port")
	cmd.Flags().IntVar(&grpcPort, "grpc-port", 8081, "RPC front-end port")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report RUNNING or STOPPED for the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			active, err := store.ReadActiveServer()
			if err != nil {
				fmt.Println("STOPPED")
				return nil
			}

			client := apiclient.New(fmt.Sprintf("http://%s:%d", orDefault(active.Host, "localhost"), active.RestPort), 2*time.Second)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := client.Healthz(ctx); err != nil {
				fmt.Println("STOPPED")
				return nil
			}
			fmt.Println("RUNNING")
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the stale active-server liveness record",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := clientconfig.Open()
			if err != nil {
				return err
			}
			if err := store.ClearActiveServer(); err != nil {
				return err
			}
			fmt.Printf("%s CLEARED\n", emulatorPrefix)
			return nil
		},
	}
}

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Evict idle workers on the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), true)
			if err != nil {
				return err
			}
			return postAdmin(cmd.Context(), cctx, "/v1/admin/prune")
		},
	}
}
