package rpcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/names"
	"google.golang.org/grpc"
)

// serviceName matches the real cloud service's RPC name, per spec §4.6.
const serviceName = "google.cloud.functions.v2.FunctionService"

// Registry is the subset of registry.Registry the RPC front-end calls.
type Registry interface {
	Create(ctx context.Context, fn domain.Function) (domain.Operation, error)
	Delete(ctx context.Context, name string) (domain.Operation, error)
	Get(ctx context.Context, name string) (domain.Function, error)
	List(ctx context.Context, project, location string, pageSize int) ([]domain.Function, error)
	GetOperation(ctx context.Context, name string) (domain.Operation, error)
}

// Invoker is the subset of supervisor.Supervisor the RPC front-end calls to
// drive a `callFunction` request through the worker proxy.
type Invoker interface {
	Invoke(w http.ResponseWriter, r *http.Request, name, tail string)
}

// handler implements the hand-rolled FunctionService RPC methods. It is
// unexported: external callers only see the grpc.ServiceDesc built by
// ServiceDesc below, the same shape a protoc-generated
// RegisterFunctionServiceServer would expect.
type handler struct {
	registry Registry
	invoker  Invoker
	log      *logging.Logger
}

// heartbeatLocation is the sentinel `listFunctions` location that clients
// use as a liveness probe, per spec §4.6.
const heartbeatLocation = "heartbeat"

func (h *handler) listFunctions(ctx context.Context, req *ListFunctionsRequest) (*ListFunctionsResponse, error) {
	if req.Location == heartbeatLocation {
		return &ListFunctionsResponse{Functions: []domain.Function{}}, nil
	}
	fns, err := h.registry.List(ctx, req.Project, req.Location, req.PageSize)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &ListFunctionsResponse{Functions: fns}, nil
}

func (h *handler) createFunction(ctx context.Context, req *CreateFunctionRequest) (*OperationResponse, error) {
	fn := req.Function
	if fn.Name == "" {
		fn.Name = names.FormatName(req.Project, req.Location, fn.ShortName)
	}
	op, err := h.registry.Create(ctx, fn)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &OperationResponse{Operation: op}, nil
}

func (h *handler) getFunction(ctx context.Context, req *GetFunctionRequest) (*domain.Function, error) {
	fn, err := h.registry.Get(ctx, req.Name)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &fn, nil
}

func (h *handler) deleteFunction(ctx context.Context, req *DeleteFunctionRequest) (*OperationResponse, error) {
	op, err := h.registry.Delete(ctx, req.Name)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &OperationResponse{Operation: op}, nil
}

func (h *handler) getOperation(ctx context.Context, req *GetOperationRequest) (*OperationResponse, error) {
	op, err := h.registry.GetOperation(ctx, req.Name)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &OperationResponse{Operation: op}, nil
}

func (h *handler) generateUploadURL(ctx context.Context, req *GenerateUploadURLRequest) (*GenerateUploadURLResponse, error) {
	return &GenerateUploadURLResponse{UploadURL: "rpc://uploads/" + req.Project + "/" + req.Location}, nil
}

// callFunction mirrors restapi's handleCall, substituting the Function's
// own trigger values and the Firebase-database auth default, then proxying
// through the same Invoker the REST front-end uses.
func (h *handler) callFunction(ctx context.Context, req *CallFunctionRequest) (*CallFunctionResponse, error) {
	fn, err := h.registry.Get(ctx, req.Name)
	if err != nil {
		return nil, toStatusError(err)
	}

	resource, eventType := req.Resource, req.EventType
	if resource == "" {
		resource = fn.Trigger.Resource
	}
	if eventType == "" {
		eventType = fn.Trigger.EventType
	}
	auth := req.Auth
	if auth == nil && strings.Contains(fn.Trigger.EventType, "firebase.database") {
		auth = []byte(`{"admin":true}`)
	}
	data := req.Data
	if data == nil {
		data = []byte("{}")
	}

	envelope, marshalErr := json.Marshal(struct {
		Data      json.RawMessage `json:"data"`
		Resource  string          `json:"resource,omitempty"`
		EventType string          `json:"eventType,omitempty"`
		Auth      json.RawMessage `json:"auth,omitempty"`
	}{Data: data, Resource: resource, EventType: eventType, Auth: auth})
	if marshalErr != nil {
		return nil, toStatusError(apierr.InternalError(marshalErr))
	}

	httpReq, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(envelope))
	if buildErr != nil {
		return nil, toStatusError(apierr.InternalError(buildErr))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.invoker.Invoke(rec, httpReq, req.Name, "/")

	respBody, _ := io.ReadAll(rec.Body)
	return &CallFunctionResponse{Status: rec.Code, Body: string(respBody)}, nil
}

// ServiceDesc builds the grpc.ServiceDesc for FunctionService. It plays the
// role a protoc-generated _grpc.pb.go file would, wiring unary handlers by
// hand since there are no .proto sources in this emulator to generate from.
func ServiceDesc(registry Registry, invoker Invoker, log *logging.Logger) grpc.ServiceDesc {
	h := &handler{registry: registry, invoker: invoker, log: log}

	unary := func(methodName string, newReq func() any, call func(context.Context, any) (any, error)) grpc.MethodDesc {
		return grpc.MethodDesc{
			MethodName: methodName,
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := newReq()
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return call(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + methodName}
				handlerFn := func(ctx context.Context, req any) (any, error) { return call(ctx, req) }
				return interceptor(ctx, req, info, handlerFn)
			},
		}
	}

	return grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			unary("ListFunctions", func() any { return &ListFunctionsRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.listFunctions(ctx, req.(*ListFunctionsRequest))
			}),
			unary("CreateFunction", func() any { return &CreateFunctionRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.createFunction(ctx, req.(*CreateFunctionRequest))
			}),
			unary("GetFunction", func() any { return &GetFunctionRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.getFunction(ctx, req.(*GetFunctionRequest))
			}),
			unary("DeleteFunction", func() any { return &DeleteFunctionRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.deleteFunction(ctx, req.(*DeleteFunctionRequest))
			}),
			unary("CallFunction", func() any { return &CallFunctionRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.callFunction(ctx, req.(*CallFunctionRequest))
			}),
			unary("GenerateUploadUrl", func() any { return &GenerateUploadURLRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.generateUploadURL(ctx, req.(*GenerateUploadURLRequest))
			}),
			unary("GetOperation", func() any { return &GetOperationRequest{} }, func(ctx context.Context, req any) (any, error) {
				return h.getOperation(ctx, req.(*GetOperationRequest))
			}),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "novafn/rpcapi.proto",
	}
}
