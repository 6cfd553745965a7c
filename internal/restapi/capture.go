package restapi

import (
	"bytes"
	"net/http"
)

// capturingWriter is a minimal http.ResponseWriter that buffers a response
// in memory, used to re-render the worker's raw HTTP response into the
// `:call` RPC-style envelope instead of writing it straight through.
type capturingWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newCapturingWriter() *capturingWriter {
	return &capturingWriter{header: make(http.Header), status: http.StatusOK}
}

func (c *capturingWriter) Header() http.Header { return c.header }

func (c *capturingWriter) Write(b []byte) (int, error) { return c.body.Write(b) }

func (c *capturingWriter) WriteHeader(status int) { c.status = status }
