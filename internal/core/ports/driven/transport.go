package driven

import (
	"context"
	"net/http"
	"net/url"
)

// Request is a single HTTP exchange to be executed by a Transport.
type Request struct {
	// Method is the HTTP method.
	Method string
	// URL is the absolute request URL without query parameters.
	URL string
	// Header holds request headers. Single-valued; the session layer
	// never needs repeated header keys.
	Header map[string]string
	// Query holds query parameters appended to URL.
	Query url.Values
	// Body is the request payload, already encoded.
	Body []byte
}

// Response is the raw outcome of a Transport exchange. Non-2xx statuses
// are returned here, not as errors: classification is the caller's job.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Body is the fully read response payload.
	Body []byte
}

// Transport executes one HTTP exchange and reports status, headers and
// body. It performs no retries and no authentication: both live above it.
// Implementations classify connection-level failures into transport error
// kinds (timeout, connection failure, TLS failure).
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}
