package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
)

// fakeLookup is a minimal FunctionLookup backed by an in-memory map.
type fakeLookup struct {
	fns map[string]domain.Function
}

func (f *fakeLookup) Get(ctx context.Context, name string) (domain.Function, error) {
	fn, ok := f.fns[name]
	if !ok {
		return domain.Function{}, fmt.Errorf("not found: %s", name)
	}
	return fn, nil
}

// workerhostBinary builds cmd/workerhost into a fresh temp directory for
// the calling test and returns its path.
func workerhostBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "workerhost")
	cmd := exec.Command("go", "build", "-o", bin, "github.com/novafn/novafn/cmd/workerhost")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Skipf("could not build workerhost fixture binary: %v", err)
	}
	return bin
}

func TestGetOrCreateWorkerColdStartAndReuse(t *testing.T) {
	bin := workerhostBinary(t)
	name := "projects/p/locations/us-central1/functions/hello"
	lookup := &fakeLookup{fns: map[string]domain.Function{
		name: {
			Name: name, ShortName: "hello", Trigger: domain.Trigger{Kind: domain.TriggerHTTP},
			SourcePath: "test_module", EntryPoint: "hello", Runtime: "echo", Timeout: 5 * time.Second,
		},
	}}

	cfg := DefaultConfig()
	cfg.WorkerHostBinary = bin
	sup := New(cfg, lookup, logging.Op())
	t.Cleanup(func() { sup.Shutdown(time.Second) })

	w1, err := sup.GetOrCreateWorker(context.Background(), name, WorkerOptions{})
	if err != nil {
		t.Fatalf("GetOrCreateWorker: %v", err)
	}
	if w1.State != domain.WorkerReady {
		t.Fatalf("worker state = %v, want ready", w1.State)
	}

	w2, err := sup.GetOrCreateWorker(context.Background(), name, WorkerOptions{})
	if err != nil {
		t.Fatalf("GetOrCreateWorker (reuse): %v", err)
	}
	if w2.PID != w1.PID {
		t.Fatalf("reuse spawned a new process: pid1=%d pid2=%d", w1.PID, w2.PID)
	}
}

func TestInvokeProxiesToWorker(t *testing.T) {
	bin := workerhostBinary(t)
	name := "projects/p/locations/us-central1/functions/hello"
	lookup := &fakeLookup{fns: map[string]domain.Function{
		name: {
			Name: name, ShortName: "hello", Trigger: domain.Trigger{Kind: domain.TriggerHTTP},
			SourcePath: "test_module", EntryPoint: "hello", Runtime: "echo", Timeout: 5 * time.Second,
		},
	}}

	cfg := DefaultConfig()
	cfg.WorkerHostBinary = bin
	sup := New(cfg, lookup, logging.Op())
	t.Cleanup(func() { sup.Shutdown(time.Second) })

	req := httptest.NewRequest(http.MethodPost, "/p/us-central1/hello", nil)
	rec := httptest.NewRecorder()
	sup.Invoke(rec, req, name, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("Invoke status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}

func TestCloseWorkerRemovesPoolEntry(t *testing.T) {
	bin := workerhostBinary(t)
	name := "projects/p/locations/us-central1/functions/hello"
	lookup := &fakeLookup{fns: map[string]domain.Function{
		name: {
			Name: name, ShortName: "hello", Trigger: domain.Trigger{Kind: domain.TriggerHTTP},
			SourcePath: "test_module", EntryPoint: "hello", Runtime: "echo", Timeout: 5 * time.Second,
		},
	}}

	cfg := DefaultConfig()
	cfg.WorkerHostBinary = bin
	sup := New(cfg, lookup, logging.Op())
	t.Cleanup(func() { sup.Shutdown(time.Second) })

	if _, err := sup.GetOrCreateWorker(context.Background(), name, WorkerOptions{}); err != nil {
		t.Fatalf("GetOrCreateWorker: %v", err)
	}
	prior, err := sup.CloseWorker(name)
	if err != nil {
		t.Fatalf("CloseWorker: %v", err)
	}
	if prior == nil {
		t.Fatalf("CloseWorker returned nil prior worker")
	}

	// A subsequent invoke must cold-start a fresh process.
	w2, err := sup.GetOrCreateWorker(context.Background(), name, WorkerOptions{})
	if err != nil {
		t.Fatalf("GetOrCreateWorker after close: %v", err)
	}
	if w2.PID == prior.PID {
		t.Fatalf("expected a fresh process after CloseWorker")
	}
}
