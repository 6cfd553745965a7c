// Package apiclient is the CLI controller's REST transport: a thin HTTP
// client against the daemon's front-end, targeting an HTTP API instead of
// an embedded store, since the CLI is an out-of-process client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/novafn/novafn/internal/domain"
)

// Client dials a running daemon's REST front-end.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client targeting baseURL (e.g. "http://localhost:8080").
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// apiError carries a non-2xx REST response back to the caller.
type apiError struct {
	Status int
	Body   []byte
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, string(e.Body))
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Body: data}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Healthz reports whether the daemon is accepting REST traffic.
func (c *Client) Healthz(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// Post issues a bare POST to path (an admin endpoint with no request
// body), discarding the response body.
func (c *Client) Post(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// Debug issues an admin POST that returns the recreated Worker, used by
// `novafnctl debug`/`inspect` to surface the worker's startup
// notices (e.g. "Debugger for {short} listening on port {p}.").
func (c *Client) Debug(ctx context.Context, path string) (domain.Worker, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return domain.Worker{}, err
	}
	var w domain.Worker
	err = decode(resp, &w)
	return w, err
}

// ListFunctions lists functions under a project/location.
func (c *Client) ListFunctions(ctx context.Context, project, location string) ([]domain.Function, error) {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/functions", project, location)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Functions []domain.Function `json:"functions"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Functions, nil
}

// CreateFunction deploys fn and returns the long-running operation.
func (c *Client) CreateFunction(ctx context.Context, project, location string, fn domain.Function) (domain.Operation, error) {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/functions", project, location)
	resp, err := c.do(ctx, http.MethodPost, path, fn)
	if err != nil {
		return domain.Operation{}, err
	}
	var op domain.Operation
	err = decode(resp, &op)
	return op, err
}

// GetFunction fetches one function by fully-qualified name.
func (c *Client) GetFunction(ctx context.Context, fqname string) (domain.Function, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/"+fqname, nil)
	if err != nil {
		return domain.Function{}, err
	}
	var fn domain.Function
	err = decode(resp, &fn)
	return fn, err
}

// DeleteFunction deletes fqname and returns the long-running operation.
func (c *Client) DeleteFunction(ctx context.Context, fqname string) (domain.Operation, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/"+fqname, nil)
	if err != nil {
		return domain.Operation{}, err
	}
	var op domain.Operation
	err = decode(resp, &op)
	return op, err
}

// GetOperation polls a long-running operation by its name (operations/{id}).
func (c *Client) GetOperation(ctx context.Context, name string) (domain.Operation, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/"+name, nil)
	if err != nil {
		return domain.Operation{}, err
	}
	var op domain.Operation
	err = decode(resp, &op)
	return op, err
}

// CallResult is one :call invocation's HTTP status and raw response body;
// the body's shape is whatever the invoked worker returned (unstringified
// result/error fields per spec §4.5), so it is left as json.RawMessage
// rather than a fixed struct.
type CallResult struct {
	Status int
	Body   json.RawMessage
}

// CallFunction invokes fqname's :call endpoint with data as the payload.
func (c *Client) CallFunction(ctx context.Context, fqname string, data json.RawMessage) (CallResult, error) {
	path := "/v1/" + fqname + ":call"
	resp, err := c.do(ctx, http.MethodPost, path, map[string]json.RawMessage{"data": data})
	if err != nil {
		return CallResult{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{Status: resp.StatusCode, Body: body}, nil
}

// WaitForHealthy polls Healthz until it succeeds or timeout elapses.
func (c *Client) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := c.Healthz(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not become healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
