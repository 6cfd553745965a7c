package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/regstore"
)

// fakeProvisioner lets tests control whether Provision/Deprovision succeed
// without spinning up a real Supervisor.
type fakeProvisioner struct {
	provisionErr   error
	deprovisionErr error
}

func (f *fakeProvisioner) Provision(ctx context.Context, fn domain.Function) error {
	return f.provisionErr
}

func (f *fakeProvisioner) Deprovision(ctx context.Context, name string) error {
	return f.deprovisionErr
}

func newTestRegistry(t *testing.T, p Provisioner) *Registry {
	t.Helper()
	store, err := regstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("regstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, p, logging.Op())
}

func waitDone(t *testing.T, r *Registry, opName string) domain.Operation {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		op, err := r.GetOperation(context.Background(), opName)
		if err != nil {
			t.Fatalf("GetOperation: %v", err)
		}
		if op.Done {
			return op
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("operation %s did not complete in time", opName)
	return domain.Operation{}
}

func testFunction(name string) domain.Function {
	return domain.Function{
		Name:       name,
		Trigger:    domain.Trigger{Kind: domain.TriggerHTTP},
		SourcePath: "test_module",
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	r := newTestRegistry(t, &fakeProvisioner{})
	name := "projects/p/locations/us-central1/functions/hello"

	op, err := r.Create(context.Background(), testFunction(name))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if op.Done {
		t.Fatalf("Create returned an already-done operation")
	}
	waitDone(t, r, op.Name)

	fn, err := r.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fn.Name != name {
		t.Fatalf("fn.Name = %q, want %q", fn.Name, name)
	}
}

func TestCreateDuplicateRejected(t *testing.T) {
	r := newTestRegistry(t, &fakeProvisioner{})
	name := "projects/p/locations/us-central1/functions/hello"

	if _, err := r.Create(context.Background(), testFunction(name)); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := r.Create(context.Background(), testFunction(name))
	apiErr := apierr.As(err)
	if apiErr == nil || apiErr.Kind != apierr.AlreadyExists {
		t.Fatalf("second Create error = %v, want ALREADY_EXISTS", err)
	}
}

func TestDeleteThenGetNotFound(t *testing.T) {
	r := newTestRegistry(t, &fakeProvisioner{})
	name := "projects/p/locations/us-central1/functions/hello"

	op, err := r.Create(context.Background(), testFunction(name))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	waitDone(t, r, op.Name)

	delOp, err := r.Delete(context.Background(), name)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitDone(t, r, delOp.Name)

	_, err = r.Get(context.Background(), name)
	apiErr := apierr.As(err)
	if apiErr == nil || apiErr.Kind != apierr.NotFound {
		t.Fatalf("Get after delete = %v, want NOT_FOUND", err)
	}
}

func TestOperationFailureIsMonotonic(t *testing.T) {
	r := newTestRegistry(t, &fakeProvisioner{provisionErr: errors.New("spawn failed")})
	name := "projects/p/locations/us-central1/functions/hello"

	op, err := r.Create(context.Background(), testFunction(name))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	done := waitDone(t, r, op.Name)
	if done.Error == nil {
		t.Fatalf("expected operation error, got none")
	}
	if done.Response != nil {
		t.Fatalf("response and error both set")
	}

	// Re-fetching must not flip the outcome: completion is monotonic.
	again, err := r.GetOperation(context.Background(), op.Name)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if again.Error.Message != done.Error.Message {
		t.Fatalf("operation outcome changed across reads")
	}
}

func TestListFiltersByLocation(t *testing.T) {
	r := newTestRegistry(t, &fakeProvisioner{})
	inLoc := "projects/p/locations/us-central1/functions/a"
	otherLoc := "projects/p/locations/europe-west1/functions/b"

	for _, n := range []string{inLoc, otherLoc} {
		op, err := r.Create(context.Background(), testFunction(n))
		if err != nil {
			t.Fatalf("Create(%s): %v", n, err)
		}
		waitDone(t, r, op.Name)
	}

	fns, err := r.List(context.Background(), "p", "us-central1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(fns) != 1 || fns[0].Name != inLoc {
		t.Fatalf("List returned %+v, want only %s", fns, inLoc)
	}
}
