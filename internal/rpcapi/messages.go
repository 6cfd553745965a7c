package rpcapi

import (
	"encoding/json"

	"github.com/novafn/novafn/internal/domain"
)

// ListFunctionsRequest mirrors REST's list query parameters.
type ListFunctionsRequest struct {
	Project  string `json:"project"`
	Location string `json:"location"`
	PageSize int    `json:"pageSize,omitempty"`
}

// ListFunctionsResponse carries the matching functions.
type ListFunctionsResponse struct {
	Functions []domain.Function `json:"functions"`
}

// CreateFunctionRequest wraps the Function to deploy.
type CreateFunctionRequest struct {
	Project  string          `json:"project"`
	Location string          `json:"location"`
	Function domain.Function `json:"function"`
}

// GetFunctionRequest names a single function.
type GetFunctionRequest struct {
	Name string `json:"name"`
}

// DeleteFunctionRequest names a single function to tear down.
type DeleteFunctionRequest struct {
	Name string `json:"name"`
}

// CallFunctionRequest mirrors REST's `:call` body.
type CallFunctionRequest struct {
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data,omitempty"`
	Resource  string          `json:"resource,omitempty"`
	EventType string          `json:"eventType,omitempty"`
	Auth      json.RawMessage `json:"auth,omitempty"`
}

// CallFunctionResponse carries the worker's raw reply.
type CallFunctionResponse struct {
	ExecutionID string `json:"executionId,omitempty"`
	Status      int    `json:"status"`
	Body        any    `json:"body,omitempty"`
}

// GenerateUploadURLRequest names the staging location.
type GenerateUploadURLRequest struct {
	Project  string `json:"project"`
	Location string `json:"location"`
}

// GenerateUploadURLResponse carries the stub staging URL.
type GenerateUploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// GetOperationRequest names a single operation.
type GetOperationRequest struct {
	Name string `json:"name"`
}

// OperationResponse is domain.Operation re-exported as an RPC message.
type OperationResponse struct {
	domain.Operation
}
