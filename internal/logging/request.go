package logging

import (
	"context"
	"log/slog"
	"time"
)

// RequestLog is the structured record emitted once per invocation by the
// worker host (internal/workerhost), separate from the daemon's
// infrastructure log lines: one line per call,
// carrying enough detail to reconstruct the call without re-running it.
type RequestLog struct {
	FunctionName string        `json:"functionName"`
	ExecutionID  string        `json:"executionId"`
	Method       string        `json:"method"`
	Status       int           `json:"status"`
	Duration     time.Duration `json:"durationMs"`
	ColdStart    bool          `json:"coldStart"`
	Error        string        `json:"error,omitempty"`
}

// Emit writes r to the operational logger at Info level (Warn if the
// invocation ended in error), one structured log line per call.
func (r RequestLog) Emit() {
	attrs := []any{
		"function", r.FunctionName,
		"executionId", r.ExecutionID,
		"method", r.Method,
		"status", r.Status,
		"durationMs", r.Duration.Milliseconds(),
		"coldStart", r.ColdStart,
	}
	if r.Error != "" {
		attrs = append(attrs, "error", r.Error)
		Op().Log(context.Background(), slog.LevelWarn, "invocation completed", attrs...)
		return
	}
	Op().Log(context.Background(), slog.LevelInfo, "invocation completed", attrs...)
}
