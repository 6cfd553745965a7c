package rpcapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"google.golang.org/grpc/status"
)

type fakeRegistry struct {
	functions map[string]domain.Function
	ops       map[string]domain.Operation
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{functions: map[string]domain.Function{}, ops: map[string]domain.Operation{}}
}

func (f *fakeRegistry) Create(ctx context.Context, fn domain.Function) (domain.Operation, error) {
	f.functions[fn.Name] = fn
	op := domain.Operation{Name: "operations/create-" + fn.ShortName, Done: true}
	f.ops[op.Name] = op
	return op, nil
}

func (f *fakeRegistry) Delete(ctx context.Context, name string) (domain.Operation, error) {
	if _, ok := f.functions[name]; !ok {
		return domain.Operation{}, apierr.NotFoundError("function", name)
	}
	delete(f.functions, name)
	return domain.Operation{Name: "operations/delete-" + name, Done: true}, nil
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
	lastName string
	status   int
	body     string
}

func (f *fakeInvoker) Invoke(w http.ResponseWriter, r *http.Request, name, tail string) {
	f.lastName = name
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(f.body))
}

func TestListFunctionsHeartbeatIsLivenessProbe(t *testing.T) {
	reg := newFakeRegistry()
	h := &handler{registry: reg, invoker: &fakeInvoker{}, log: logging.Op()}

	resp, err := h.listFunctions(context.Background(), &ListFunctionsRequest{Location: heartbeatLocation})
	if err != nil {
		t.Fatalf("listFunctions: %v", err)
	}
	if len(resp.Functions) != 0 {
		t.Fatalf("heartbeat returned %d functions, want 0", len(resp.Functions))
	}
}

func TestGetFunctionNotFoundCarriesResourceInfo(t *testing.T) {
	reg := newFakeRegistry()
	h := &handler{registry: reg, invoker: &fakeInvoker{}, log: logging.Op()}

	_, err := h.getFunction(context.Background(), &GetFunctionRequest{Name: "projects/p/locations/l/functions/missing"})
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected a status error, got %v", err)
	}
	if len(st.Details()) == 0 {
		t.Fatalf("expected ResourceInfo detail attached, got none")
	}
}

func TestCallFunctionSubstitutesTrigger(t *testing.T) {
	reg := newFakeRegistry()
	name := "projects/p/locations/l/functions/hello"
	reg.functions[name] = domain.Function{
		Name: name, ShortName: "hello",
		Trigger: domain.Trigger{Kind: domain.TriggerPubSub, EventType: "google.pubsub.topic.publish", Resource: "topic-a"},
	}
	inv := &fakeInvoker{body: `{"ok":true}`}
	h := &handler{registry: reg, invoker: inv, log: logging.Op()}

	resp, err := h.callFunction(context.Background(), &CallFunctionRequest{Name: name})
	if err != nil {
		t.Fatalf("callFunction: %v", err)
	}
	if inv.lastName != name {
		t.Fatalf("invoker called with %q, want %q", inv.lastName, name)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d", resp.Status)
	}
}

func TestCreateThenGetOperation(t *testing.T) {
	reg := newFakeRegistry()
	h := &handler{registry: reg, invoker: &fakeInvoker{}, log: logging.Op()}

	op, err := h.createFunction(context.Background(), &CreateFunctionRequest{
		Project: "p", Location: "l",
		Function: domain.Function{ShortName: "hello", Trigger: domain.Trigger{Kind: domain.TriggerHTTP}},
	})
	if err != nil {
		t.Fatalf("createFunction: %v", err)
	}
	got, err := h.getOperation(context.Background(), &GetOperationRequest{Name: op.Name})
	if err != nil {
		t.Fatalf("getOperation: %v", err)
	}
	if !got.Done {
		t.Fatalf("expected operation done")
	}
}
