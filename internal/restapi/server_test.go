package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
)

type fakeRegistry struct {
	functions map[string]domain.Function
	ops       map[string]domain.Operation
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		functions: make(map[string]domain.Function),
		ops:       make(map[string]domain.Operation),
	}
}

func (f *fakeRegistry) Create(ctx context.Context, fn domain.Function) (domain.Operation, error) {
	if _, ok := f.functions[fn.Name]; ok {
		return domain.Operation{}, apierr.AlreadyExistsError("function", fn.Name)
	}
	f.functions[fn.Name] = fn
	op := domain.Operation{Name: "operations/create-" + fn.ShortName, Done: true, Response: []byte(`{}`)}
	f.ops[op.Name] = op
	return op, nil
}

func (f *fakeRegistry) Delete(ctx context.Context, name string) (domain.Operation, error) {
	if _, ok := f.functions[name]; !ok {
		return domain.Operation{}, apierr.NotFoundError("function", name)
	}
	delete(f.functions, name)
	op := domain.Operation{Name: "operations/delete-" + name, Done: true}
	f.ops[op.Name] = op
	return op, nil
}

func (f *fakeRegistry) Get(ctx context.Context, name string) (domain.Function, error) {
	fn, ok := f.functions[name]
	if !ok {
		return domain.Function{}, apierr.NotFoundError("function", name)
	}
	return fn, nil
}

func (f *fakeRegistry) List(ctx context.Context, project, location string, pageSize int) ([]domain.Function, error) {
	var out []domain.Function
	for _, fn := range f.functions {
		if fn.Project == project && fn.Location == location {
			out = append(out, fn)
		}
	}
	return out, nil
}

func (f *fakeRegistry) GetOperation(ctx context.Context, name string) (domain.Operation, error) {
	op, ok := f.ops[name]
	if !ok {
		return domain.Operation{}, apierr.NotFoundError("operation", name)
	}
	return op, nil
}

type fakeInvoker struct {
	lastName, lastTail string
	status             int
	body               string
	pruned             bool
	debugCalls         int
	resetCalls         int
}

func (f *fakeInvoker) Invoke(w http.ResponseWriter, r *http.Request, name, tail string) {
	f.lastName, f.lastTail = name, tail
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeInvoker) Prune() { f.pruned = true }

func (f *fakeInvoker) DebugHandler(ctx context.Context, name string, inspect bool) (domain.Worker, error) {
	f.debugCalls++
	f.lastName = name
	return domain.Worker{FunctionName: name, State: domain.WorkerReady, DebugPort: 9229}, nil
}

func (f *fakeInvoker) ResetHandler(ctx context.Context, name string, keep bool) (*domain.Worker, error) {
	f.resetCalls++
	f.lastName = name
	if !keep {
		return nil, nil
	}
	return &domain.Worker{FunctionName: name, State: domain.WorkerReady}, nil
}

func newTestServer() (*Server, *fakeRegistry, *fakeInvoker) {
	reg := newFakeRegistry()
	inv := &fakeInvoker{body: `{"executionId":"e1","result":"{\"ok\":true}"}`}
	return New(reg, inv, logging.Op()), reg, inv
}

func TestHandleCreateAndGet(t *testing.T) {
	s, _, _ := newTestServer()
	mux := s.Mux()

	body := strings.NewReader(`{"shortName":"hello","project":"p","location":"us-central1","trigger":{"kind":"http"},"sourcePath":"./fn"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p/locations/us-central1/functions", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/v1/projects/p/locations/us-central1/functions/hello", nil)
	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", getRec.Code, getRec.Body.String())
	}
}

func TestHandleGetMissingReturnsNotFound(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/projects/p/locations/us-central1/functions/missing", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != apierr.NotFound.HTTPStatus() {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, apierr.NotFound.HTTPStatus(), rec.Body.String())
	}
}

func TestHandleCallSubstitutesTriggerAndParsesResult(t *testing.T) {
	s, reg, inv := newTestServer()
	name := "projects/p/locations/us-central1/functions/hello"
	reg.functions[name] = domain.Function{
		Name: name, ShortName: "hello", Project: "p", Location: "us-central1",
		Trigger: domain.Trigger{Kind: domain.TriggerPubSub, EventType: "google.pubsub.topic.publish", Resource: "topic-a"},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p/locations/us-central1/functions/hello:call", strings.NewReader(`{"data":{"x":1}}`))
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if inv.lastName != name {
		t.Fatalf("invoker called with name %q, want %q", inv.lastName, name)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("expected result to be unstringified, got %s", rec.Body.String())
	}
}

func TestHandleCallRejectsWrongVerb(t *testing.T) {
	s, reg, _ := newTestServer()
	name := "projects/p/locations/us-central1/functions/hello"
	reg.functions[name] = domain.Function{Name: name, ShortName: "hello"}

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p/locations/us-central1/functions/hello:unknown", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != apierr.InvalidArgument.HTTPStatus() {
		t.Fatalf("status = %d, want %d", rec.Code, apierr.InvalidArgument.HTTPStatus())
	}
}

func TestHandleDirectProxy(t *testing.T) {
	s, _, inv := newTestServer()
	inv.body = "pong"

	req := httptest.NewRequest(http.MethodGet, "/p/us-central1/hello/sub/path", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	wantName := "projects/p/locations/us-central1/functions/hello"
	if inv.lastName != wantName {
		t.Fatalf("invoker name = %q, want %q", inv.lastName, wantName)
	}
	if inv.lastTail != "/sub/path" {
		t.Fatalf("invoker tail = %q, want %q", inv.lastTail, "/sub/path")
	}
	if rec.Body.String() != "pong" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandleHealthz(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandlePrune(t *testing.T) {
	s, _, inv := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/prune", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if !inv.pruned {
		t.Fatalf("expected Prune to be called")
	}
}

func TestHandleDebugAndReset(t *testing.T) {
	s, _, inv := newTestServer()

	debugReq := httptest.NewRequest(http.MethodPost, "/v1/admin/debug/p/us-central1/hello", nil)
	debugRec := httptest.NewRecorder()
	s.Mux().ServeHTTP(debugRec, debugReq)
	if debugRec.Code != http.StatusOK || inv.debugCalls != 1 {
		t.Fatalf("debug status = %d, calls = %d", debugRec.Code, inv.debugCalls)
	}

	resetReq := httptest.NewRequest(http.MethodPost, "/v1/admin/reset/p/us-central1/hello?keep=true", nil)
	resetRec := httptest.NewRecorder()
	s.Mux().ServeHTTP(resetRec, resetReq)
	if resetRec.Code != http.StatusOK || inv.resetCalls != 1 {
		t.Fatalf("reset status = %d, calls = %d", resetRec.Code, inv.resetCalls)
	}
	wantName := "projects/p/locations/us-central1/functions/hello"
	if inv.lastName != wantName {
		t.Fatalf("lastName = %q, want %q", inv.lastName, wantName)
	}
}

func TestHandleGetOperation(t *testing.T) {
	s, reg, _ := newTestServer()
	reg.ops["operations/abc"] = domain.Operation{Name: "operations/abc", Done: true}

	req := httptest.NewRequest(http.MethodGet, "/v1/operations/abc", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
