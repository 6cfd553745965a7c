// Package supervisor is the Worker pool manager and invocation router
// (spec §4.4): it turns a function name into a running child process,
// multiplexes HTTP invocations onto it, enforces per-call timeouts, and
// reaps idle workers.
//
// # Pool topology
//
// Exactly one Worker may exist per function name at a time (|pool[name]|
// is 0 or 1) — one warm process per name, not a pool of many. The
// per-name slot still carries its own mutex so that cold-start and close
// transitions for distinct names never serialize against each other —
// only concurrent transitions on the *same* name do.
//
// # Concurrency model
//
// The top-level pool is a sync.Map keyed by function name, read-heavy and
// written rarely. Cold-start deduplication — concurrent callers share the
// in-flight attempt — uses golang.org/x/sync/singleflight, which is
// exactly what it's for: collapsing concurrent identical calls into one.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/metrics"
)

// DefaultDebugPort is the well-known debugger port every debug/inspect
// worker binds to unless another function's worker already holds it, per
// spec §7/§8 ("Debugger for {short} listening on port 5858.").
const DefaultDebugPort = 5858

// FunctionLookup is the Registry-shaped dependency the Supervisor needs to
// resolve a name to the Function it should spawn.
type FunctionLookup interface {
	Get(ctx context.Context, name string) (domain.Function, error)
}

// Config enumerates the Supervisor's tunables, per spec §4.4.
type Config struct {
	BindHost          string
	IdlePruneInterval time.Duration
	MaxIdle           time.Duration
	UseMocks          bool
	DebugDefault      bool
	InspectDefault    bool
	SpawnTimeout      time.Duration // bound on cold-start healthz polling
	WorkerHostBinary  string        // path to the cmd/workerhost executable
}

// DefaultConfig matches the defaults named in spec §4.4.
func DefaultConfig() Config {
	return Config{
		BindHost:          "localhost",
		IdlePruneInterval: 60 * time.Second,
		MaxIdle:           10 * time.Minute,
		SpawnTimeout:      10 * time.Second,
		WorkerHostBinary:  "workerhost",
	}
}

// WorkerOptions customizes a cold start: debug/inspect reattachment.
type WorkerOptions struct {
	Debug   bool
	Inspect bool
	Force   bool // bypass the existing pool entry, always cold-start
}

// slot is the mutable per-name pool entry. All fields are guarded by mu;
// transitions follow the state machine in spec §4.4.
type slot struct {
	mu         sync.Mutex
	worker     domain.Worker
	cmd        *exec.Cmd
	needsReset bool          // set by a timed-out invocation; next invoke cold-starts
	exited     chan struct{} // closed by watchExit once cmd.Wait returns
}

// Supervisor owns the worker pool exclusively; front-ends only ever see
// copies of Worker records returned from its public methods.
type Supervisor struct {
	cfg     Config
	lookup  FunctionLookup
	pool    sync.Map // map[string]*slot
	group   singleflight.Group
	log     *logging.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Supervisor. Start must be called to begin the idle
// prune loop.
func New(cfg Config, lookup FunctionLookup, log *logging.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{cfg: cfg, lookup: lookup, log: log, ctx: ctx, cancel: cancel}
}

// SetLookup attaches the FunctionLookup dependency. It exists separately
// from New because the Registry that normally serves as the lookup itself
// depends on the Supervisor as its Provisioner — the two are wired together
// after both are constructed, by cmd/novafn/main.go.
func (s *Supervisor) SetLookup(lookup FunctionLookup) {
	s.lookup = lookup
}

// SetMetrics attaches the Prometheus collectors this Supervisor updates as
// it spawns, invokes and reaps workers. Optional: a nil metrics pointer
// (the zero value) leaves every update a no-op.
func (s *Supervisor) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// syncActiveWorkersGauge recomputes the active-worker gauge from the pool's
// actual size, avoiding increment/decrement drift across the several
// distinct code paths that add or remove a pool entry.
func (s *Supervisor) syncActiveWorkersGauge() {
	if s.metrics == nil {
		return
	}
	count := 0
	s.pool.Range(func(_, _ any) bool { count++; return true })
	s.metrics.ActiveWorkers.Set(float64(count))
}

// Start launches the idle-prune ticker loop.
func (s *Supervisor) Start() {
	s.wg.Add(1)
	go s.pruneLoop()
}

// Shutdown cancels the prune loop and closes every worker, sending SIGTERM
// then SIGKILL after the grace period, per spec §5's shutdown semantics.
func (s *Supervisor) Shutdown(grace time.Duration) {
	s.cancel()
	s.wg.Wait()

	var names []string
	s.pool.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			s.closeWorkerGrace(n, grace)
		}(name)
	}
	wg.Wait()
}

func (s *Supervisor) pruneLoop() {
	defer s.wg.Done()
	interval := s.cfg.IdlePruneInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

// Prune closes every worker idle longer than MaxIdle. Advisory only: a
// caller racing an eviction simply observes a transparent cold start.
func (s *Supervisor) Prune() {
	now := time.Now()
	maxIdle := s.cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 10 * time.Minute
	}
	var stale []string
	s.pool.Range(func(key, value any) bool {
		sl := value.(*slot)
		sl.mu.Lock()
		idle := sl.worker.Idle(now, maxIdle)
		sl.mu.Unlock()
		if idle {
			stale = append(stale, key.(string))
		}
		return true
	})
	for _, name := range stale {
		if _, err := s.CloseWorker(name); err != nil {
			s.log.Warn("prune: closeWorker failed", "function", name, "error", err)
		}
	}
}

// GetOrCreateWorker returns the existing Worker for name, or cold-starts
// one. Concurrent callers for the same name share the in-flight attempt.
func (s *Supervisor) GetOrCreateWorker(ctx context.Context, name string, opts WorkerOptions) (domain.Worker, error) {
	if !opts.Force {
		if v, ok := s.pool.Load(name); ok {
			sl := v.(*slot)
			sl.mu.Lock()
			if !sl.needsReset {
				sl.worker.Touch()
				w := sl.worker
				sl.mu.Unlock()
				return w, nil
			}
			sl.mu.Unlock()
		}
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		return s.coldStart(ctx, name, opts)
	})
	if err != nil {
		return domain.Worker{}, err
	}
	return v.(domain.Worker), nil
}

func (s *Supervisor) coldStart(ctx context.Context, name string, opts WorkerOptions) (domain.Worker, error) {
	fn, err := s.lookup.Get(ctx, name)
	if err != nil {
		return domain.Worker{}, err
	}

	args := []string{
		"--function-name", fn.Name,
		"--short-name", fn.ShortName,
		"--trigger-kind", string(fn.Trigger.Kind),
		"--event-type", fn.Trigger.EventType,
		"--resource", fn.Trigger.Resource,
		"--source-path", fn.SourcePath,
		"--entry-point", fn.EntryPoint,
		"--runtime", fn.Runtime,
		"--timeout-ms", strconv.FormatInt(fn.Timeout.Milliseconds(), 10),
		"--bind-host", s.cfg.BindHost,
		"--port", "0",
	}
	if len(fn.EnvVars) > 0 {
		pairs := make([]string, 0, len(fn.EnvVars))
		for k, v := range fn.EnvVars {
			pairs = append(pairs, k+"="+v)
		}
		args = append(args, "--env", strings.Join(pairs, ","))
	}

	debugPort, inspectPort := 0, 0
	if opts.Debug || s.cfg.DebugDefault {
		if holder, ok := s.debugPortHolder(DefaultDebugPort, name); ok {
			return domain.Worker{}, apierr.Newf(apierr.Internal,
				"Debug/Inspect port %d already in use", DefaultDebugPort).
				WithResourceInfo("worker", holder, "debug port already bound")
		}
		debugPort = DefaultDebugPort
		args = append(args, "--debug", strconv.Itoa(debugPort))
	}
	if opts.Inspect || s.cfg.InspectDefault {
		if holder, ok := s.debugPortHolder(DefaultDebugPort, name); ok {
			return domain.Worker{}, apierr.Newf(apierr.Internal,
				"Debug/Inspect port %d already in use", DefaultDebugPort).
				WithResourceInfo("worker", holder, "debug port already bound")
		}
		inspectPort = DefaultDebugPort
		args = append(args, "--inspect", strconv.Itoa(inspectPort))
	}

	cmd := exec.Command(s.cfg.WorkerHostBinary, args...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.Worker{}, fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return domain.Worker{}, fmt.Errorf("supervisor: spawn %s: %w", name, err)
	}

	spawnCtx, cancel := context.WithTimeout(ctx, spawnTimeout(s.cfg))
	defer cancel()

	port, notices, err := readListeningPort(stdout)
	if err != nil {
		_ = cmd.Process.Kill()
		return domain.Worker{}, fmt.Errorf("supervisor: cold start %s: %w", name, err)
	}
	if err := waitHealthy(spawnCtx, s.cfg.BindHost, port); err != nil {
		_ = cmd.Process.Kill()
		return domain.Worker{}, fmt.Errorf("supervisor: cold start %s: %w", name, err)
	}

	now := time.Now()
	w := domain.Worker{
		FunctionName:   fn.Name,
		PID:            cmd.Process.Pid,
		Port:           port,
		TriggerKind:    fn.Trigger.Kind,
		State:          domain.WorkerReady,
		LastAccessedAt: now,
		StartedAt:      now,
		DebugPort:      debugPort,
		InspectPort:    inspectPort,
		StartupNotices: notices,
	}

	sl := &slot{worker: w, cmd: cmd, exited: make(chan struct{})}
	s.pool.Store(name, sl)
	if s.metrics != nil {
		s.metrics.ColdStartsTotal.Inc()
	}
	s.syncActiveWorkersGauge()

	s.wg.Add(1)
	go s.watchExit(name, sl)

	return w, nil
}

// watchExit is the single owner of sl.cmd.Wait: exec.Cmd.Wait must not be
// called more than once on a command, so closeWorkerGrace and markCrashed
// observe the exit by waiting on sl.exited instead of calling Wait
// themselves. It removes the pool entry when the child exits on its own,
// marking it crashed if the exit was not requested by CloseWorker, and
// only ever removes the slot it owns (CompareAndDelete) so a replacement
// slot installed by a reset in the meantime is never evicted.
func (s *Supervisor) watchExit(name string, sl *slot) {
	defer s.wg.Done()
	err := sl.cmd.Wait()
	sl.mu.Lock()
	wasRemoved := sl.worker.State == domain.WorkerStopping
	sl.worker.Crashed = !wasRemoved
	sl.mu.Unlock()
	close(sl.exited)
	if s.pool.CompareAndDelete(name, sl) {
		s.syncActiveWorkersGauge()
	}
	if !wasRemoved {
		s.log.Warn("worker exited unexpectedly", "function", name, "error", err)
	}
}

// CloseWorker removes name from the pool and gracefully terminates it,
// returning the prior Worker record so resetHandler can recreate it with
// the same debug attributes.
func (s *Supervisor) CloseWorker(name string) (*domain.Worker, error) {
	return s.closeWorkerGrace(name, 5*time.Second)
}

func (s *Supervisor) closeWorkerGrace(name string, grace time.Duration) (*domain.Worker, error) {
	v, ok := s.pool.Load(name)
	if !ok {
		return nil, nil
	}
	sl := v.(*slot)
	sl.mu.Lock()
	prior := sl.worker
	sl.worker.State = domain.WorkerStopping
	cmd := sl.cmd
	sl.mu.Unlock()

	if s.pool.CompareAndDelete(name, sl) {
		s.syncActiveWorkersGauge()
	}

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		// watchExit owns cmd.Wait; wait on sl.exited instead of calling
		// Wait a second time here, which exec.Cmd does not support.
		select {
		case <-sl.exited:
		case <-time.After(grace):
			_ = cmd.Process.Kill()
		}
	}
	return &prior, nil
}

// Invoke ensures a worker for name, reverse-proxies r onto it with tail as
// the worker-visible path, and enforces the Function's timeout. Per spec
// §4.4, a timeout marks the worker for replacement without forcibly
// killing it — the child may still be flushing useful output.
func (s *Supervisor) Invoke(w http.ResponseWriter, r *http.Request, name, tail string) {
	fn, err := s.lookup.Get(r.Context(), name)
	if err != nil {
		writeTimeoutStyleError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	worker, err := s.GetOrCreateWorker(r.Context(), name, WorkerOptions{})
	if err != nil {
		writeTimeoutStyleError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	timeout := fn.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	target := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", s.cfg.BindHost, worker.Port)}
	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.URL.Path = "/" + strings.TrimPrefix(tail, "/")
		req.Host = target.Host
	}
	failed := false
	proxy.ErrorHandler = func(rw http.ResponseWriter, req *http.Request, proxyErr error) {
		failed = true
		if ctx.Err() == context.DeadlineExceeded {
			s.markForReset(name)
			writeTimeoutStyleError(rw, http.StatusInternalServerError, "INTERNAL", "function execution attempt timed out")
			return
		}
		s.markCrashed(name)
		writeTimeoutStyleError(rw, http.StatusInternalServerError, "INTERNAL", "function crashed")
	}

	start := time.Now()
	proxy.ServeHTTP(w, r.WithContext(ctx))
	s.recordInvocationMetrics(name, start, failed)

	if v, ok := s.pool.Load(name); ok {
		sl := v.(*slot)
		sl.mu.Lock()
		sl.worker.Touch()
		sl.mu.Unlock()
	}
}

func (s *Supervisor) recordInvocationMetrics(name string, start time.Time, failed bool) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	s.metrics.InvocationsTotal.WithLabelValues(name, status).Inc()
	s.metrics.InvocationDuration.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
}

func (s *Supervisor) markForReset(name string) {
	if v, ok := s.pool.Load(name); ok {
		sl := v.(*slot)
		sl.mu.Lock()
		sl.needsReset = true
		sl.mu.Unlock()
	}
}

func (s *Supervisor) markCrashed(name string) {
	v, ok := s.pool.Load(name)
	if !ok {
		return
	}
	sl := v.(*slot)
	sl.mu.Lock()
	sl.worker.Crashed = true
	sl.mu.Unlock()
	if s.pool.CompareAndDelete(name, sl) {
		s.syncActiveWorkersGauge()
	}
}

// ResetHandler closes the worker for name; if keep, recreates it
// immediately with the same debug/inspect attributes, else leaves it
// absent for the next invocation to cold-start lazily.
func (s *Supervisor) ResetHandler(ctx context.Context, name string, keep bool) (*domain.Worker, error) {
	prior, err := s.CloseWorker(name)
	if err != nil || prior == nil || !keep {
		return prior, err
	}
	w, err := s.GetOrCreateWorker(ctx, name, WorkerOptions{
		Debug:   prior.DebugPort != 0,
		Inspect: prior.InspectPort != 0,
		Force:   true,
	})
	return &w, err
}

// DebugHandler closes and recreates name's worker with the debug flag set.
func (s *Supervisor) DebugHandler(ctx context.Context, name string, inspect bool) (domain.Worker, error) {
	if _, err := s.CloseWorker(name); err != nil {
		return domain.Worker{}, err
	}
	return s.GetOrCreateWorker(ctx, name, WorkerOptions{Debug: !inspect, Inspect: inspect, Force: true})
}

// Provision satisfies registry.Provisioner: deploy warms the worker
// eagerly so the create Operation only completes once the worker is
// actually ready, per spec §2's control-flow description.
func (s *Supervisor) Provision(ctx context.Context, fn domain.Function) error {
	_, err := s.GetOrCreateWorker(ctx, fn.Name, WorkerOptions{Force: true})
	return err
}

// Deprovision satisfies registry.Provisioner.
func (s *Supervisor) Deprovision(ctx context.Context, name string) error {
	_, err := s.CloseWorker(name)
	return err
}

func spawnTimeout(cfg Config) time.Duration {
	if cfg.SpawnTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.SpawnTimeout
}

// debugPortHolder reports whether some worker other than excludeName already
// holds the given debug/inspect port, per spec §7's "Debug/Inspect port {p}
// already in use" error.
func (s *Supervisor) debugPortHolder(port int, excludeName string) (string, bool) {
	var holder string
	found := false
	s.pool.Range(func(key, value any) bool {
		name := key.(string)
		if name == excludeName {
			return true
		}
		sl := value.(*slot)
		sl.mu.Lock()
		w := sl.worker
		sl.mu.Unlock()
		if w.DebugPort == port || w.InspectPort == port {
			holder = name
			found = true
			return false
		}
		return true
	})
	return holder, found
}

type errorDetail struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeTimeoutStyleError(w http.ResponseWriter, httpStatus int, rpcStatus, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]errorDetail{
		"error": {Code: httpStatus, Status: rpcStatus, Message: message},
	})
}
