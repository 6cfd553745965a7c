// Package restapi is the REST front-end: it maps the platform's REST
// verbs onto the Registry and Supervisor, and exposes the unversioned
// direct HTTP-trigger reverse-proxy route, using an http.ServeMux +
// r.PathValue + encoding/json handler style throughout.
package restapi

import (
	"context"
	"net/http"

	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/observability"
)

// Registry is the subset of registry.Registry the REST front-end calls.
type Registry interface {
	Create(ctx context.Context, fn domain.Function) (domain.Operation, error)
	Delete(ctx context.Context, name string) (domain.Operation, error)
	Get(ctx context.Context, name string) (domain.Function, error)
	List(ctx context.Context, project, location string, pageSize int) ([]domain.Function, error)
	GetOperation(ctx context.Context, name string) (domain.Operation, error)
}

// Invoker is the subset of supervisor.Supervisor the REST front-end calls
// to proxy both `:call` requests and the direct unversioned route.
type Invoker interface {
	Invoke(w http.ResponseWriter, r *http.Request, name, tail string)
}

// Server is the REST front-end.
type Server struct {
	registry Registry
	invoker  Invoker
	log      *logging.Logger
}

// New constructs a Server.
func New(registry Registry, invoker Invoker, log *logging.Logger) *Server {
	return &Server{registry: registry, invoker: invoker, log: log}
}

// Mux builds the http.ServeMux implementing every route in spec §4.5,
// wrapped in the OpenTelemetry tracing middleware.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	// Go 1.22's ServeMux wildcards must fill an entire path segment, so the
	// ":call" verb suffix (which the platform's REST API bolts onto the end
	// of a resource path) is split out of the {nameVerb} wildcard segment
	// inside handleCall; ":generateUploadUrl" is matched as a literal
	// "functions:generateUploadUrl" segment.
	mux.HandleFunc("GET /v1/projects/{project}/locations/{location}/functions", s.handleList)
	mux.HandleFunc("POST /v1/projects/{project}/locations/{location}/functions", s.handleCreate)
	mux.HandleFunc("GET /v1/projects/{project}/locations/{location}/functions/{name}", s.handleGet)
	mux.HandleFunc("DELETE /v1/projects/{project}/locations/{location}/functions/{name}", s.handleDelete)
	mux.HandleFunc("POST /v1/projects/{project}/locations/{location}/functions/{nameVerb}", s.handleCall)
	mux.HandleFunc("POST /v1/projects/{project}/locations/{location}/functions:generateUploadUrl", s.handleGenerateUploadURL)
	mux.HandleFunc("GET /v1/operations/{id}", s.handleGetOperation)
	mux.HandleFunc("GET /{project}/{region}/{short}", s.handleDirectProxy)
	mux.HandleFunc("GET /{project}/{region}/{short}/{tail...}", s.handleDirectProxy)
	mux.HandleFunc("POST /{project}/{region}/{short}", s.handleDirectProxy)
	mux.HandleFunc("POST /{project}/{region}/{short}/{tail...}", s.handleDirectProxy)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /v1/admin/prune", s.handlePrune)
	mux.HandleFunc("POST /v1/admin/debug/{project}/{location}/{short}", s.handleDebug)
	mux.HandleFunc("POST /v1/admin/reset/{project}/{location}/{short}", s.handleReset)

	return observability.HTTPMiddleware(mux)
}
