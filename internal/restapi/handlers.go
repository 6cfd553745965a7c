package restapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/novafn/novafn/internal/apierr"
	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/names"
)

// handleList implements GET .../functions → list.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	project, location := r.PathValue("project"), r.PathValue("location")
	fns, err := s.registry.List(r.Context(), project, location, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"functions": fns})
}

// handleCreate implements POST .../functions → create.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var fn domain.Function
	if err := json.NewDecoder(r.Body).Decode(&fn); err != nil {
		writeError(w, apierr.New(apierr.InvalidArgument, "invalid JSON body").WithBadRequest("body", err.Error()))
		return
	}
	project, location := r.PathValue("project"), r.PathValue("location")
	if fn.Name == "" {
		fn.Name = names.FormatName(project, location, fn.ShortName)
	}

	op, err := s.registry.Create(r.Context(), fn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// handleGet implements GET .../functions/{name} → get.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	project, location, short := r.PathValue("project"), r.PathValue("location"), r.PathValue("name")
	fn, err := s.registry.Get(r.Context(), names.FormatName(project, location, short))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fn)
}

// handleDelete implements DELETE .../functions/{name} → delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	project, location, short := r.PathValue("project"), r.PathValue("location"), r.PathValue("name")
	op, err := s.registry.Delete(r.Context(), names.FormatName(project, location, short))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// handleGetOperation implements GET /v1/operations/{id} → getOperation.
func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := s.registry.GetOperation(r.Context(), "operations/"+r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// handleGenerateUploadURL implements POST .../functions:generateUploadUrl,
// a stub since this emulator has no real cloud-storage staging backend.
func (s *Server) handleGenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": "http://" + r.Host + "/v1/uploads/" + uuid.NewString(),
	})
}

// callBody is the `:call` request shape from spec §4.5.
type callBody struct {
	Data      json.RawMessage `json:"data"`
	Resource  string          `json:"resource,omitempty"`
	EventType string          `json:"eventType,omitempty"`
	Auth      json.RawMessage `json:"auth,omitempty"`
}

// handleCall implements POST .../functions/{name}:call → invoke. Go 1.22's
// mux cannot express the ":call" verb suffix as a pattern, so it is split
// out of the combined {nameVerb} wildcard here.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	nameVerb := r.PathValue("nameVerb")
	short, ok := strings.CutSuffix(nameVerb, ":call")
	if !ok {
		writeError(w, apierr.New(apierr.InvalidArgument, "unsupported verb"))
		return
	}
	project, location := r.PathValue("project"), r.PathValue("location")
	fqname := names.FormatName(project, location, short)

	fn, err := s.registry.Get(r.Context(), fqname)
	if err != nil {
		writeError(w, err)
		return
	}

	var body callBody
	_ = json.NewDecoder(r.Body).Decode(&body)

	// Substitute the Function's own trigger values when absent, per §4.5.
	if body.Resource == "" {
		body.Resource = fn.Trigger.Resource
	}
	if body.EventType == "" {
		body.EventType = fn.Trigger.EventType
	}
	if body.Auth == nil && strings.Contains(fn.Trigger.EventType, "firebase.database") {
		body.Auth = json.RawMessage(`{"admin":true}`)
	}

	if body.Data == nil {
		body.Data = json.RawMessage("{}")
	}
	envelope, err := json.Marshal(body)
	if err != nil {
		writeError(w, apierr.InternalError(err))
		return
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(string(envelope)))
	if err != nil {
		writeError(w, apierr.InternalError(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	rec := newCapturingWriter()
	s.invoker.Invoke(rec, req, fqname, "/")

	var raw map[string]any
	if err := json.Unmarshal(rec.body.Bytes(), &raw); err == nil {
		unstringifyJSONFields(raw, "result", "error")
		writeJSON(w, rec.status, raw)
		return
	}
	writeJSON(w, rec.status, json.RawMessage(rec.body.Bytes()))
}

// unstringifyJSONFields parses any of the named top-level string fields
// in m that happen to themselves be valid JSON, per spec §4.5.
func unstringifyJSONFields(m map[string]any, fields ...string) {
	for _, f := range fields {
		s, ok := m[f].(string)
		if !ok || s == "" {
			continue
		}
		var parsed any
		if json.Unmarshal([]byte(s), &parsed) == nil {
			m[f] = parsed
		}
	}
}

// handleDirectProxy implements GET|POST /{p}/{region}/{short}[/tail…]: the
// unversioned, verb-preserving direct HTTP-trigger reverse proxy.
func (s *Server) handleDirectProxy(w http.ResponseWriter, r *http.Request) {
	project, region, short := r.PathValue("project"), r.PathValue("region"), r.PathValue("short")
	tail := r.PathValue("tail")
	fqname := names.FormatName(project, region, short)
	s.invoker.Invoke(w, r, fqname, "/"+tail)
}
