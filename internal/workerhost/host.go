// Package workerhost is the thin HTTP host that runs inside a Worker child
// process (spec §4.3): it loads one Function's code, listens on a loopback
// port, and converts whatever the user code does into one of the fixed
// response shapes the Supervisor and front-ends expect.
//
// It runs a subprocess-per-call, but long-lived: the host itself is the
// child process, and each invocation spawns its own short-lived
// grandchild to run the user code, which keeps a process-isolation
// guarantee even though this host survives across calls.
package workerhost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
)

// errCrashed is returned by run when the user code exits without producing
// a response within the timeout window — an "async crash" per spec §4.3.
var errCrashed = errors.New("function crashed")

// Config is everything the host needs to know about the Function it is
// hosting, passed in via flags by the Supervisor at spawn time.
type Config struct {
	FunctionName string
	ShortName    string
	TriggerKind  domain.TriggerKind
	EventType    string
	Resource     string
	SourcePath   string
	EntryPoint   string
	Runtime      string
	Timeout      time.Duration
	EnvVars      map[string]string
}

// Host serves the two endpoints a Worker exposes: POST / (invoke) and
// GET /healthz (liveness).
type Host struct {
	cfg Config
	log *logging.Logger
}

// New constructs a Host for cfg.
func New(cfg Config, log *logging.Logger) *Host {
	return &Host{cfg: cfg, log: log}
}

// Mux builds the http.ServeMux the Host listens with, using Go 1.22's
// method+path-pattern routing; "/" sends every other path to handleInvoke.
func (h *Host) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("/", h.handleInvoke)
	return mux
}

func (h *Host) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// errorBody is the shape of a non-success invocation response other than
// a timeout or crash, which handleInvoke answers with fixed INTERNAL
// bodies instead.
type errorBody struct {
	ExecutionID string `json:"executionId,omitempty"`
	Error       struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Stack   string `json:"stack,omitempty"`
	} `json:"error"`
}

func newErrorBody(executionID, message, stack string) errorBody {
	body := errorBody{ExecutionID: executionID}
	body.Error.Code = 500
	body.Error.Message = message
	body.Error.Stack = stack
	return body
}

func (h *Host) handleInvoke(w http.ResponseWriter, r *http.Request) {
	executionID := uuid.NewString()
	start := time.Now()

	payload, err := h.buildPayload(r)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, newErrorBody(executionID, err.Error(), ""))
		return
	}

	timeout := h.cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	result, runErr := h.run(ctx, executionID, payload)
	dur := time.Since(start)

	status := http.StatusOK
	var logErr string
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		status = http.StatusInternalServerError
		h.writeJSON(w, status, mustBody(`{"error":{"code":500,"status":"INTERNAL","message":"function execution attempt timed out"}}`))
		logErr = "timed out"
	case errors.Is(runErr, errCrashed):
		status = http.StatusInternalServerError
		h.writeJSON(w, status, mustBody(`{"error":{"code":500,"status":"INTERNAL","message":"function crashed"}}`))
		logErr = "function crashed"
	case runErr != nil:
		status = http.StatusInternalServerError
		h.writeJSON(w, status, newErrorBody(executionID, runErr.Error(), ""))
		logErr = runErr.Error()
	default:
		h.writeJSON(w, status, map[string]any{"executionId": executionID, "result": result})
	}

	logging.RequestLog{
		FunctionName: h.cfg.FunctionName,
		ExecutionID:  executionID,
		Method:       r.Method,
		Status:       status,
		Duration:     dur,
		Error:        logErr,
	}.Emit()
}

// buildPayload assembles the value that gets handed to the user code: a
// JSON request envelope (method, path, query, headers, body) for HTTP
// triggers, or a JSON event envelope for event triggers.
func (h *Host) buildPayload(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if h.cfg.TriggerKind == domain.TriggerHTTP {
		envelope := map[string]any{
			"method":  r.Method,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
			"headers": r.Header,
			"body":    string(body),
		}
		return json.Marshal(envelope)
	}

	envelope := map[string]any{
		"eventId":   uuid.NewString(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"eventType": h.cfg.EventType,
		"resource":  h.cfg.Resource,
		"data":      json.RawMessage(body),
	}
	if len(body) == 0 {
		envelope["data"] = json.RawMessage("null")
	}
	return json.Marshal(envelope)
}

// run executes the user code as a one-shot subprocess, grounded on
// executor/local.go's temp-file-and-exec pattern. The "runtime" selects
// which interpreter/binary fronts the code at cfg.SourcePath.
func (h *Host) run(ctx context.Context, executionID string, payload json.RawMessage) (json.RawMessage, error) {
	inputFile, err := os.CreateTemp("", "novafn-input-*.json")
	if err != nil {
		return nil, fmt.Errorf("create input file: %w", err)
	}
	defer os.Remove(inputFile.Name())
	if _, err := inputFile.Write(payload); err != nil {
		inputFile.Close()
		return nil, fmt.Errorf("write input: %w", err)
	}
	inputFile.Close()

	cmd, err := h.command(ctx, inputFile.Name())
	if err != nil {
		return nil, err
	}

	cmd.Env = append(os.Environ(),
		"NOVAFN_LOCAL=true",
		"NOVAFN_FUNCTION_NAME="+h.cfg.FunctionName,
		"NOVAFN_EXECUTION_ID="+executionID,
		"NOVAFN_ENTRY_POINT="+h.cfg.EntryPoint,
	)
	for k, v := range h.cfg.EnvVars {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ctx.Err()
		}
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return nil, fmt.Errorf("exit %d: %s", exitErr.ExitCode(), stderr.String())
		}
		return nil, runErr
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, errCrashed
	}
	if json.Valid(out) {
		return out, nil
	}
	wrapped, _ := json.Marshal(string(out))
	return wrapped, nil
}

// command builds the exec.Cmd for cfg.Runtime. The emulator ships a
// handful of built-in runtimes since there is no real multi-language
// sandbox (see SPEC_FULL.md): "echo" prints the payload back, "shell" runs
// SourcePath as a shell script, and "script" executes SourcePath directly.
func (h *Host) command(ctx context.Context, inputPath string) (*exec.Cmd, error) {
	switch h.cfg.Runtime {
	case "", "echo":
		return exec.CommandContext(ctx, "cat", inputPath), nil
	case "shell":
		return exec.CommandContext(ctx, "sh", h.cfg.SourcePath, inputPath), nil
	case "script":
		return exec.CommandContext(ctx, h.cfg.SourcePath, inputPath), nil
	default:
		return nil, fmt.Errorf("unsupported runtime: %s", h.cfg.Runtime)
	}
}

func (h *Host) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func mustBody(raw string) json.RawMessage {
	return json.RawMessage(raw)
}
