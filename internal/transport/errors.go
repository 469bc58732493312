package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
)

// Kind categorises a network-level failure.
type Kind int

const (
	// KindConnection covers DNS failures, refused connections and
	// resets.
	KindConnection Kind = iota
	// KindTimeout covers deadline and read/write timeouts.
	KindTimeout
	// KindTLS covers certificate and handshake failures.
	KindTLS
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTLS:
		return "tls"
	default:
		return "connection"
	}
}

// Error is a network-level failure: the request never produced an HTTP
// response.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout checks if the error is a network timeout.
func IsTimeout(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == KindTimeout
}

// IsConnectionFailure checks if the error is a connection-level failure.
func IsConnectionFailure(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == KindConnection
}

// IsTLSFailure checks if the error is a TLS handshake or certificate
// failure.
func IsTLSFailure(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == KindTLS
}

// APIError represents a non-2xx response from the remote service.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
	// Reason is the service-provided error string, when the body
	// carried one.
	Reason string
	// retryAfter is the server-provided delay from a Retry-After
	// header, zero when absent.
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("transport: API error %d: %s (URL: %s)", e.StatusCode, e.Reason, e.URL)
	}
	return fmt.Sprintf("transport: API error %d (URL: %s)", e.StatusCode, e.URL)
}

// RetryAfter returns the server-provided retry delay, zero when the
// response carried none.
func (e *APIError) RetryAfter() time.Duration { return e.retryAfter }

// APIErrorFromResponse builds an APIError from a non-2xx response.
// It captures the body (truncated) and any Retry-After header.
func APIErrorFromResponse(url string, resp *driven.Response) *APIError {
	const maxBody = 2048

	body := string(resp.Body)
	if len(body) > maxBody {
		body = body[:maxBody]
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Body:       body,
		retryAfter: parseRetryAfter(resp.Header),
	}
}

// parseRetryAfter reads a Retry-After header, supporting both the
// delta-seconds and HTTP-date forms.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsForbidden checks if the error indicates a forbidden resource.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting by the
// remote service.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsNotFound checks if the error indicates a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// StatusOf returns the HTTP status carried by an APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
