// Package config is the daemon-wide Config struct plus its defaults, JSON
// file loader and environment overrides, scoped to the options the
// daemon and front-ends actually need.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// SupervisorConfig holds the Supervisor's pool-lifecycle settings.
type SupervisorConfig struct {
	BindHost          string        `json:"bindHost"`
	SupervisorPort    int           `json:"supervisorPort"`
	IdlePruneInterval time.Duration `json:"idlePruneInterval"`
	MaxIdle           time.Duration `json:"maxIdle"`
	UseMocks          bool          `json:"useMocks"`
}

// DaemonConfig holds front-end bind settings.
type DaemonConfig struct {
	Host     string        `json:"host"`
	RestPort int           `json:"restPort"`
	GRPCPort int           `json:"grpcPort"`
	LogLevel string        `json:"logLevel"`
	LogFile  string        `json:"logFile"`
	Timeout  time.Duration `json:"timeout"`
}

// TracingConfig holds the OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Endpoint    string  `json:"endpoint"`
	ServiceName string  `json:"serviceName"`
	SampleRate  float64 `json:"sampleRate"`
}

// MetricsConfig holds the Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
	Addr      string `json:"addr"`
}

// ObservabilityConfig groups tracing and metrics settings.
type ObservabilityConfig struct {
	Tracing TracingConfig `json:"tracing"`
	Metrics MetricsConfig `json:"metrics"`
}

// DeveloperConfig groups the developer-UX flags spec §6 names.
type DeveloperConfig struct {
	Verbose     bool   `json:"verbose"`
	Tail        bool   `json:"tail"`
	Watch       bool   `json:"watch"`
	WatchIgnore string `json:"watchIgnore"`
}

// Config is the full daemon configuration.
type Config struct {
	ProjectID     string              `json:"projectId"`
	Region        string              `json:"region"`
	Supervisor    SupervisorConfig    `json:"supervisor"`
	Daemon        DaemonConfig        `json:"daemon"`
	Observability ObservabilityConfig `json:"observability"`
	Developer     DeveloperConfig     `json:"developer"`
	Service       string              `json:"service"` // "rest" or "grpc": which front-end the CLI dials
	Storage       string              `json:"storage"` // deployment staging backend
	DataDir       string              `json:"dataDir"` // bbolt registry file lives under here
}

// DefaultConfig returns a Config with the defaults spec §4.4 and §6 name.
func DefaultConfig() *Config {
	return &Config{
		Region: "us-central1",
		Supervisor: SupervisorConfig{
			BindHost:          "localhost",
			SupervisorPort:    8081,
			IdlePruneInterval: 60 * time.Second,
			MaxIdle:           10 * time.Minute,
		},
		Daemon: DaemonConfig{
			Host:     "localhost",
			RestPort: 8080,
			GRPCPort: 8082,
			LogLevel: "info",
			Timeout:  10 * time.Second,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:     false,
				Endpoint:    "localhost:4318",
				ServiceName: "novafn",
				SampleRate:  1.0,
			},
			Metrics: MetricsConfig{
				Enabled:   true,
				Namespace: "novafn",
				Addr:      ":9464",
			},
		},
		Service: "rest",
		Storage: "local",
		DataDir: defaultDataDir(),
	}
}

// defaultDataDir uses the user cache directory, falling back to a relative
// directory when that can't be resolved (e.g. in minimal container environments).
func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".novafn"
	}
	return dir + "/novafn"
}

// LoadFromFile loads a JSON config file over DefaultConfig, so unspecified
// fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies NOVAFN_* environment overrides onto cfg in place.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GCLOUD_PROJECT"); v != "" {
		cfg.ProjectID = v
	}
	if v := os.Getenv("NOVAFN_PROJECT_ID"); v != "" {
		cfg.ProjectID = v
	}
	if v := os.Getenv("NOVAFN_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("NOVAFN_BIND_HOST"); v != "" {
		cfg.Supervisor.BindHost = v
	}
	if v := os.Getenv("NOVAFN_REST_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Daemon.RestPort = n
		}
	}
	if v := os.Getenv("NOVAFN_GRPC_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Daemon.GRPCPort = n
		}
	}
	if v := os.Getenv("NOVAFN_SUPERVISOR_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Supervisor.SupervisorPort = n
		}
	}
	if v := os.Getenv("NOVAFN_LOG_LEVEL"); v != "" {
		cfg.Daemon.LogLevel = v
	}
	if v := os.Getenv("NOVAFN_LOG_FILE"); v != "" {
		cfg.Daemon.LogFile = v
	}
	if v := os.Getenv("NOVAFN_MAX_IDLE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Supervisor.MaxIdle = d
		}
	}
	if v := os.Getenv("NOVAFN_IDLE_PRUNE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Supervisor.IdlePruneInterval = d
		}
	}
	if v := os.Getenv("NOVAFN_USE_MOCKS"); v != "" {
		cfg.Supervisor.UseMocks = parseBool(v)
	}
	if v := os.Getenv("NOVAFN_TRACING_ENABLED"); v != "" {
		cfg.Observability.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("NOVAFN_TRACING_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Endpoint = v
	}
	if v := os.Getenv("NOVAFN_METRICS_ENABLED"); v != "" {
		cfg.Observability.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("NOVAFN_SERVICE"); v != "" {
		cfg.Service = v
	}
	if v := os.Getenv("NOVAFN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
