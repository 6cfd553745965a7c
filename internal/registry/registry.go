// Package registry is the durable catalogue of deployed functions and the
// long-running operations that track their create/delete lifecycle (spec
// §4.2). It persists through internal/regstore and hands off worker
// provisioning/teardown to a Supervisor via the Provisioner interface,
// completing the Operation once that work finishes.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/metrics"
	"github.com/novafn/novafn/internal/names"
	"github.com/novafn/novafn/internal/regstore"
)

// Provisioner is the Supervisor-shaped dependency the registry calls to
// actually bring a worker up or down after recording an Operation. It is an
// interface here so registry tests can substitute a fake Supervisor.
type Provisioner interface {
	// Provision is called after a Function is durably recorded as created
	// or updated. Returning an error fails the associated Operation.
	Provision(ctx context.Context, fn domain.Function) error
	// Deprovision is called after a Function record is deleted.
	Deprovision(ctx context.Context, name string) error
}

// Registry is the exclusive owner of Function and Operation records.
type Registry struct {
	store       *regstore.Store
	provisioner Provisioner
	log         *logging.Logger
	metrics     *metrics.Metrics

	mu sync.Mutex // serializes create/delete against the same short name
}

// New constructs a Registry over an already-open Store.
func New(store *regstore.Store, provisioner Provisioner, log *logging.Logger) *Registry {
	return &Registry{store: store, provisioner: provisioner, log: log}
}

// SetMetrics attaches the operations-by-outcome counter this Registry
// increments on every completed Operation. Optional: a nil metrics pointer
// leaves the update a no-op.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// Create validates fn, rejects duplicate names, persists the Function and
// a "create" Operation, then asynchronously provisions the worker and
// completes the Operation. It returns immediately with done=false.
func (r *Registry) Create(ctx context.Context, fn domain.Function) (domain.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parsed, err := names.ParseName(fn.Name)
	if err != nil {
		return domain.Operation{}, err
	}
	if err := fn.Validate(); err != nil {
		return domain.Operation{}, apierr.New(apierr.InvalidArgument, err.Error())
	}

	var existing domain.Function
	if err := r.store.GetFunction(fn.Name, &existing); err == nil {
		return domain.Operation{}, apierr.AlreadyExistsError("function", fn.Name)
	} else if err != regstore.ErrNotFound {
		return domain.Operation{}, apierr.InternalError(err)
	}

	fn.ShortName = parsed.Short
	fn.Project = parsed.Project
	fn.Location = parsed.Location
	fn.ApplyDefaults()
	now := time.Now()
	fn.CreatedAt, fn.UpdatedAt = now, now

	if err := r.store.PutFunction(fn.Name, fn); err != nil {
		return domain.Operation{}, apierr.InternalError(err)
	}

	op := r.newOperation(domain.OpCreate, fn.Name)
	if err := r.store.PutOperation(op.Name, op); err != nil {
		return domain.Operation{}, apierr.InternalError(err)
	}

	go r.completeProvision(op.Name, fn)
	return op, nil
}

// Delete records a "delete" Operation and asynchronously tears the worker
// down before marking the Operation done with an empty response.
func (r *Registry) Delete(ctx context.Context, name string) (domain.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fn domain.Function
	if err := r.store.GetFunction(name, &fn); err != nil {
		if err == regstore.ErrNotFound {
			return domain.Operation{}, apierr.NotFoundError("function", name)
		}
		return domain.Operation{}, apierr.InternalError(err)
	}

	if err := r.store.DeleteFunction(name); err != nil {
		return domain.Operation{}, apierr.InternalError(err)
	}

	op := r.newOperation(domain.OpDelete, name)
	if err := r.store.PutOperation(op.Name, op); err != nil {
		return domain.Operation{}, apierr.InternalError(err)
	}

	go r.completeDeprovision(op.Name, name)
	return op, nil
}

// Get returns the Function stored under name, or NOT_FOUND.
func (r *Registry) Get(ctx context.Context, name string) (domain.Function, error) {
	var fn domain.Function
	if err := r.store.GetFunction(name, &fn); err != nil {
		if err == regstore.ErrNotFound {
			return domain.Function{}, apierr.NotFoundError("function", name)
		}
		return domain.Function{}, apierr.InternalError(err)
	}
	return fn, nil
}

// List returns every Function under the given project+location, sorted by
// name. pageSize <= 0 means unbounded.
func (r *Registry) List(ctx context.Context, project, location string, pageSize int) ([]domain.Function, error) {
	prefix := names.FormatLocation(project, location) + "/functions/"
	var out []domain.Function
	err := r.store.ListFunctions(func(key string, raw []byte) error {
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		var fn domain.Function
		if err := json.Unmarshal(raw, &fn); err != nil {
			return err
		}
		out = append(out, fn)
		return nil
	})
	if err != nil {
		return nil, apierr.InternalError(err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if pageSize > 0 && len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}

// GetOperation returns the Operation stored under name, or NOT_FOUND.
func (r *Registry) GetOperation(ctx context.Context, name string) (domain.Operation, error) {
	if err := names.ValidateOperationShortName(strings.TrimPrefix(name, "operations/")); err != nil {
		return domain.Operation{}, err
	}
	var op domain.Operation
	if err := r.store.GetOperation(name, &op); err != nil {
		if err == regstore.ErrNotFound {
			return domain.Operation{}, apierr.NotFoundError("operation", name)
		}
		return domain.Operation{}, apierr.InternalError(err)
	}
	return op, nil
}

func (r *Registry) newOperation(typ domain.OperationType, target string) domain.Operation {
	return domain.Operation{
		Name: "operations/" + uuid.NewString(),
		Done: false,
		Metadata: domain.OperationMetadata{
			Request:   json.RawMessage(fmt.Sprintf(`{"name":%q}`, target)),
			CreatedAt: time.Now(),
			Type:      typ,
		},
	}
}

// completeProvision calls out to the Supervisor and merges the result back
// onto the Operation. Per spec §4.2, completion is monotonic: this is the
// only writer that ever flips done from false to true for this op name.
func (r *Registry) completeProvision(opName string, fn domain.Function) {
	ctx := context.Background()
	err := r.provisioner.Provision(ctx, fn)
	r.finishOperation(opName, fn, err)
}

func (r *Registry) completeDeprovision(opName, fnName string) {
	ctx := context.Background()
	err := r.provisioner.Deprovision(ctx, fnName)
	r.finishOperation(opName, domain.Function{}, err)
}

func (r *Registry) finishOperation(opName string, fn domain.Function, provisionErr error) {
	var op domain.Operation
	if err := r.store.GetOperation(opName, &op); err != nil {
		r.log.Error("registry: operation vanished before completion", "operation", opName, "error", err)
		return
	}
	if op.Done {
		return // monotonic: never re-complete
	}
	outcome := "success"
	if provisionErr != nil {
		apiErr := apierr.As(provisionErr)
		op.Fail(apiErr.Kind.HTTPStatus(), apiErr.Message)
		outcome = "failure"
	} else if op.Metadata.Type == domain.OpDelete {
		op.Complete(json.RawMessage(`{}`))
	} else {
		response, _ := json.Marshal(fn)
		op.Complete(response)
	}
	if err := r.store.PutOperation(opName, op); err != nil {
		r.log.Error("registry: failed to persist operation completion", "operation", opName, "error", err)
	}
	if r.metrics != nil {
		r.metrics.OperationsTotal.WithLabelValues(string(op.Metadata.Type), outcome).Inc()
	}
}
