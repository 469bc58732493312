// Package transport implements the HTTP transport driven port. It owns
// the cookie jar shared by every remote call and translates raw
// net/http failures into typed transport errors so callers can
// classify them without touching net internals.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBody bounds how much of a response we read into
	// memory.
	maxResponseBody = 8 << 20
)

// Client sends HTTP requests through a shared cookie jar.
type Client struct {
	http *http.Client
	jar  http.CookieJar
}

var _ driven.Transport = (*Client)(nil)

// NewClient creates a transport client with its own cookie jar. A zero
// timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// cookiejar.New only fails on invalid options; nil options cannot.
	jar, _ := cookiejar.New(nil)

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		jar: jar,
	}
}

// Send issues the request and returns the response, whatever its
// status. Non-2xx responses are data, not errors; only failures to
// obtain a response at all are returned as errors.
func (c *Client) Send(ctx context.Context, req driven.Request) (*driven.Response, error) {
	u := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if parsed, err := url.Parse(u); err == nil && parsed.RawQuery != "" {
			sep = "&"
		}
		u += sep + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	logger.Debug("transport: %s %s", req.Method, u)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classify(err, u)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, classify(err, u)
	}

	logger.Debug("transport: %s %s -> %d (%d bytes)", req.Method, u, resp.StatusCode, len(data))

	return &driven.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// CookieValues returns the jar's cookies for the given URL as a
// name->value map, for session persistence.
func (c *Client) CookieValues(rawurl string) map[string]string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil
	}
	out := make(map[string]string)
	for _, ck := range c.jar.Cookies(u) {
		out[ck.Name] = ck.Value
	}
	return out
}

// SetCookieValues seeds the jar with persisted cookies for the given
// URL.
func (c *Client) SetCookieValues(rawurl string, cookies map[string]string) {
	if len(cookies) == 0 {
		return
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return
	}
	set := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		set = append(set, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.jar.SetCookies(u, set)
}

// classify maps a raw net/http failure to a typed transport error.
func classify(err error, u string) error {
	kind := KindConnection

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	var recordErr tls.RecordHeaderError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &certErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr),
		errors.As(err, &certInvalid),
		errors.As(err, &recordErr):
		kind = KindTLS
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}

	return &Error{Kind: kind, URL: u, Err: err}
}
