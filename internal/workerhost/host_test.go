package workerhost

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
)

func TestHandleInvokeEchoHTTPTrigger(t *testing.T) {
	cfg := Config{
		FunctionName: "projects/p/locations/us-central1/functions/hello",
		ShortName:    "hello",
		TriggerKind:  domain.TriggerHTTP,
		Runtime:      "echo",
		Timeout:      5 * time.Second,
	}
	h := New(cfg, logging.Op())

	req := httptest.NewRequest("POST", "/", nil)
	req.Method = "POST"
	rec := httptest.NewRecorder()
	h.handleInvoke(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		ExecutionID string          `json:"executionId"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ExecutionID == "" {
		t.Fatalf("expected a non-empty executionId")
	}
	var echoed map[string]any
	if err := json.Unmarshal(out.Result, &echoed); err != nil {
		t.Fatalf("decode echoed result: %v", err)
	}
	if echoed["method"] != "POST" {
		t.Fatalf("echoed method = %v, want POST", echoed["method"])
	}
}

func TestHandleInvokeEventTriggerSubstitutesEnvelope(t *testing.T) {
	cfg := Config{
		FunctionName: "projects/p/locations/us-central1/functions/helloData",
		ShortName:    "helloData",
		TriggerKind:  domain.TriggerBucket,
		Resource:     "test",
		Runtime:      "echo",
		Timeout:      5 * time.Second,
	}
	h := New(cfg, logging.Op())

	body := `{"foo":"bar"}`
	req := httptest.NewRequest("POST", "/", bytesReader(body))
	rec := httptest.NewRecorder()
	h.handleInvoke(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if !contains(rec.Body.String(), "bar") {
		t.Fatalf("response %q does not contain 'bar'", rec.Body.String())
	}
}

func TestHandleInvokeTimeout(t *testing.T) {
	cfg := Config{
		FunctionName: "projects/p/locations/us-central1/functions/helloSlow",
		ShortName:    "helloSlow",
		TriggerKind:  domain.TriggerHTTP,
		Runtime:      "shell",
		SourcePath:   shellScript(t, "sleep 2"),
		Timeout:      50 * time.Millisecond,
	}
	h := New(cfg, logging.Op())

	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()
	h.handleInvoke(rec, req)

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !contains(rec.Body.String(), "function execution attempt timed out") {
		t.Fatalf("body %q missing timeout message", rec.Body.String())
	}
}

func TestHandleInvokeNoResponseCrashes(t *testing.T) {
	cfg := Config{
		FunctionName: "projects/p/locations/us-central1/functions/helloNoResponse",
		ShortName:    "helloNoResponse",
		TriggerKind:  domain.TriggerHTTP,
		Runtime:      "shell",
		SourcePath:   shellScript(t, "exit 0"),
		Timeout:      time.Second,
	}
	h := New(cfg, logging.Op())

	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()
	h.handleInvoke(rec, req)

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var out struct {
		Error struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error.Status != "INTERNAL" {
		t.Fatalf("error.status = %q, want INTERNAL", out.Error.Status)
	}
	if out.Error.Message != "function crashed" {
		t.Fatalf("error.message = %q, want 'function crashed'", out.Error.Message)
	}
}

func TestHealthz(t *testing.T) {
	h := New(Config{Runtime: "echo"}, logging.Op())
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.handleHealthz(rec, req)
	if rec.Code != 200 {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}
