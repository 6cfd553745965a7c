package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/novafn/novafn/internal/apierr"
)

// errorEnvelope is the fixed REST error shape from spec §4.8:
// {error:{code,status,message,errors[]}}.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Errors  []any  `json:"errors,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := apierr.As(err)
	env := errorEnvelope{}
	env.Error.Code = apiErr.Kind.HTTPStatus()
	env.Error.Status = string(apiErr.Kind)
	env.Error.Message = apiErr.Message
	if apiErr.BadRequest != nil {
		for _, v := range apiErr.BadRequest.FieldViolations {
			env.Error.Errors = append(env.Error.Errors, v)
		}
	}
	if apiErr.ResourceInfo != nil {
		env.Error.Errors = append(env.Error.Errors, apiErr.ResourceInfo)
	}
	writeJSON(w, env.Error.Code, env)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
