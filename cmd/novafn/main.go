// Command novafn is the emulator daemon: it wires the Functions Registry,
// Supervisor and both protocol front-ends together and serves them until a
// shutdown signal arrives, following a config-load → observability-init →
// serve → signal-wait structure.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/novafn/novafn/internal/config"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/metrics"
	"github.com/novafn/novafn/internal/observability"
	"github.com/novafn/novafn/internal/regstore"
	"github.com/novafn/novafn/internal/registry"
	"github.com/novafn/novafn/internal/restapi"
	"github.com/novafn/novafn/internal/rpcapi"
	"github.com/novafn/novafn/internal/supervisor"
)

func main() {
	configFile := flag.String("config", "", "path to a JSON config file (optional, env overrides still apply)")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.LoadFromFile(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	logging.SetLevelFromString(cfg.Daemon.LogLevel)
	if cfg.Daemon.LogFile != "" {
		f, err := os.OpenFile(cfg.Daemon.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		logging.SetOutput(f)
	}
	log := logging.Op()

	ctx := context.Background()
	if err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Tracing.Enabled,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		ServiceName: cfg.Observability.Tracing.ServiceName,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
	}); err != nil {
		log.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer observability.Shutdown(ctx)

	var m *metrics.Metrics
	if cfg.Observability.Metrics.Enabled {
		m = metrics.New(cfg.Observability.Metrics.Namespace)
		metricsServer := &http.Server{Addr: cfg.Observability.Metrics.Addr, Handler: m.Handler()}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		log.Info("metrics server started", "addr", cfg.Observability.Metrics.Addr)
	}

	store, err := regstore.Open(cfg.DataDir)
	if err != nil {
		log.Error("open registry store", "error", err, "dataDir", cfg.DataDir)
		os.Exit(1)
	}
	defer store.Close()

	sup := supervisor.New(supervisor.Config{
		BindHost:          cfg.Supervisor.BindHost,
		IdlePruneInterval: cfg.Supervisor.IdlePruneInterval,
		MaxIdle:           cfg.Supervisor.MaxIdle,
		UseMocks:          cfg.Supervisor.UseMocks,
		SpawnTimeout:      cfg.Daemon.Timeout,
		WorkerHostBinary:  workerHostBinaryPath(),
	}, nil, log)
	if m != nil {
		sup.SetMetrics(m)
	}

	reg := registry.New(store, sup, log)
	if m != nil {
		reg.SetMetrics(m)
	}
	sup.SetLookup(reg)
	sup.Start()

	restServer := restapi.New(reg, sup, log)
	httpAddr := fmt.Sprintf("%s:%d", cfg.Daemon.Host, cfg.Daemon.RestPort)
	httpServer := &http.Server{Addr: httpAddr, Handler: restServer.Mux()}
	go func() {
		log.Info("rest front-end started", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("rest front-end stopped", "error", err)
		}
	}()

	rpcServer := rpcapi.New(reg, sup, log)
	grpcAddr := fmt.Sprintf("%s:%d", cfg.Daemon.Host, cfg.Daemon.GRPCPort)
	if err := rpcServer.Start(grpcAddr); err != nil {
		log.Error("start rpc front-end", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	rpcServer.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	httpServer.Shutdown(shutdownCtx)
	cancel()
	sup.Shutdown(10 * time.Second)
}

func workerHostBinaryPath() string {
	if v := os.Getenv("NOVAFN_WORKERHOST_BINARY"); v != "" {
		return v
	}
	if exe, err := os.Executable(); err == nil {
		candidate := exe + "-workerhost"
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate
		}
	}
	return "workerhost"
}
