package restapi

import (
	"context"
	"net/http"

	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/names"
)

// Admin is the subset of supervisor.Supervisor the REST front-end exposes
// for the CLI Controller's daemon-management commands (spec §4.7:
// prune, debug, inspect, reset).
type Admin interface {
	Prune()
	DebugHandler(ctx context.Context, name string, inspect bool) (domain.Worker, error)
	ResetHandler(ctx context.Context, name string, keep bool) (*domain.Worker, error)
}

// handleHealthz is the liveness probe `start`/`restart` poll while waiting
// for the daemon to come up.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handlePrune evicts every idle-past-deadline worker on demand, backing
// `novafnctl prune`.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	admin, ok := s.invoker.(Admin)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "prune unsupported"})
		return
	}
	admin.Prune()
	w.WriteHeader(http.StatusNoContent)
}

// handleDebug restarts a function's worker with its debugger port open,
// backing `novafnctl debug`/`inspect`.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	admin, ok := s.invoker.(Admin)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "debug unsupported"})
		return
	}
	fqname := names.FormatName(r.PathValue("project"), r.PathValue("location"), r.PathValue("short"))
	inspect := r.URL.Query().Get("inspect") == "true"
	worker, err := admin.DebugHandler(r.Context(), fqname, inspect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

// handleReset closes a function's worker, optionally recreating it
// immediately, backing `novafnctl reset`.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	admin, ok := s.invoker.(Admin)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "reset unsupported"})
		return
	}
	fqname := names.FormatName(r.PathValue("project"), r.PathValue("location"), r.PathValue("short"))
	keep := r.URL.Query().Get("keep") == "true"
	worker, err := admin.ResetHandler(r.Context(), fqname, keep)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}
