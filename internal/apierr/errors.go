// Package apierr is the shared error taxonomy used by the registry,
// supervisor and both front-ends (spec §4.8 / §7). Every error produced by
// any component is a (kind, detail[]) pair; the REST and RPC front-ends
// each render it in their own wire shape, but the underlying *Error value
// is the single source of truth.
package apierr

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind is the platform-wide error classification.
type Kind string

const (
	InvalidArgument Kind = "INVALID_ARGUMENT"
	NotFound        Kind = "NOT_FOUND"
	AlreadyExists   Kind = "ALREADY_EXISTS"
	Internal        Kind = "INTERNAL"
)

// HTTPStatus returns the REST status code for a Kind, per spec §4.8's table.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode returns the RPC status code for a Kind, per spec §4.8's table.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case InvalidArgument:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case AlreadyExists:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// FieldViolation is one entry of a BadRequest detail payload.
type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// BadRequest lists the fields that failed validation.
type BadRequest struct {
	FieldViolations []FieldViolation `json:"fieldViolations"`
}

// DebugInfo carries a stack trace and free-form detail for INTERNAL errors.
type DebugInfo struct {
	StackEntries []string `json:"stackEntries,omitempty"`
	Detail       string   `json:"detail,omitempty"`
}

// ResourceInfo names the resource a NOT_FOUND/ALREADY_EXISTS error refers to.
type ResourceInfo struct {
	ResourceType string `json:"resourceType"`
	ResourceName string `json:"resourceName"`
	Description  string `json:"description,omitempty"`
}

// Error is the structured error value threaded through the registry,
// supervisor and front-ends. It implements the error interface so it can be
// returned and wrapped like any other Go error.
type Error struct {
	Kind         Kind
	Message      string
	BadRequest   *BadRequest
	DebugInfo    *DebugInfo
	ResourceInfo *ResourceInfo
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates an Error with no detail payloads attached.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithBadRequest attaches a single field violation, appending to any
// existing BadRequest detail.
func (e *Error) WithBadRequest(field, description string) *Error {
	if e.BadRequest == nil {
		e.BadRequest = &BadRequest{}
	}
	e.BadRequest.FieldViolations = append(e.BadRequest.FieldViolations, FieldViolation{
		Field: field, Description: description,
	})
	return e
}

// WithDebugInfo attaches a DebugInfo detail payload.
func (e *Error) WithDebugInfo(detail string, stack ...string) *Error {
	e.DebugInfo = &DebugInfo{Detail: detail, StackEntries: stack}
	return e
}

// WithResourceInfo attaches a ResourceInfo detail payload.
func (e *Error) WithResourceInfo(resourceType, resourceName, description string) *Error {
	e.ResourceInfo = &ResourceInfo{ResourceType: resourceType, ResourceName: resourceName, Description: description}
	return e
}

// NotFoundError is a convenience constructor for the common "X not found"
// case, attaching a ResourceInfo detail.
func NotFoundError(resourceType, resourceName string) *Error {
	return New(NotFound, fmt.Sprintf("%s not found: %s", resourceType, resourceName)).
		WithResourceInfo(resourceType, resourceName, "no such resource")
}

// AlreadyExistsError is a convenience constructor for duplicate-create.
func AlreadyExistsError(resourceType, resourceName string) *Error {
	return New(AlreadyExists, fmt.Sprintf("%s already exists: %s", resourceType, resourceName)).
		WithResourceInfo(resourceType, resourceName, "resource already exists")
}

// InternalError wraps an unexpected failure, attaching DebugInfo so RPC
// clients can inspect the underlying cause via detail-bin.
func InternalError(cause error) *Error {
	return New(Internal, "internal error").WithDebugInfo(cause.Error())
}

// As extracts an *Error from any error value produced inside this module,
// falling back to wrapping unknown errors as INTERNAL.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return InternalError(err)
}
