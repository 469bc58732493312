package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
	"github.com/altocloud-labs/icloud-cli/internal/retry"
	"github.com/altocloud-labs/icloud-cli/internal/transport"
)

const webOrigin = "https://www.icloud.com"

// Authenticator is the slice of the session owner the service callers
// need: a service handshake on demand and read-only session snapshots.
type Authenticator interface {
	// AuthenticateService performs (or re-uses, within the freshness
	// window) the service handshake. With force set, any cached
	// authorization is bypassed.
	AuthenticateService(ctx context.Context, service string, force bool) error

	// Session returns a read-only snapshot of the current session.
	Session() domain.Session
}

// Call is one request to a web service, relative to its service root.
type Call struct {
	Method string
	// Path is appended to the service root, e.g. "/rd/startup".
	Path string
	// Params are call-specific query parameters, merged over the
	// descriptor's.
	Params url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Caller issues authenticated, rate-limited, retried calls to one web
// service. Each attempt rebuilds its request from a fresh session
// snapshot, so a re-authentication between attempts is picked up
// automatically.
type Caller struct {
	desc      Descriptor
	transport driven.Transport
	auth      Authenticator
	limiter   *RateLimiter
	policy    retry.Policy
	timezone  string
}

// NewCaller creates a caller for the given service descriptor.
// An empty timezone defaults to UTC.
func NewCaller(desc Descriptor, tp driven.Transport, auth Authenticator, policy retry.Policy, timezone string) *Caller {
	if timezone == "" {
		timezone = "UTC"
	}
	return &Caller{
		desc:      desc,
		transport: tp,
		auth:      auth,
		limiter:   NewRateLimiter(desc.RateLimit),
		policy:    policy,
		timezone:  timezone,
	}
}

// Descriptor returns the service descriptor this caller serves.
func (c *Caller) Descriptor() Descriptor { return c.desc }

// Do issues the call and returns the response body. It waits for the
// rate limiter, ensures the service handshake is fresh, then runs the
// request under the retry policy. When every budgeted attempt died of
// expired authentication, it forces one re-handshake and retries once
// more outside the budget.
func (c *Caller) Do(ctx context.Context, call Call) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if err := c.auth.AuthenticateService(ctx, c.desc.Name, false); err != nil {
		return nil, err
	}

	var body []byte
	op := func(ctx context.Context) error {
		b, err := c.attempt(ctx, call)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	err := c.policy.Execute(ctx, op, Classify)
	if err != nil && Classify(err) == retry.AuthExpired {
		logger.Debug("%s: credentials rejected, forcing service re-authentication", c.desc.Name)
		if aerr := c.auth.AuthenticateService(ctx, c.desc.Name, true); aerr != nil {
			return nil, aerr
		}
		err = op(ctx)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// attempt issues one request built from the current session snapshot.
func (c *Caller) attempt(ctx context.Context, call Call) ([]byte, error) {
	sess := c.auth.Session()
	root, err := sess.WebServiceURL(c.desc.Name)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("clientBuildNumber", c.desc.ClientBuildNumber)
	q.Set("clientMasteringNumber", c.desc.ClientMasteringNumber)
	q.Set("clientId", sess.ClientID)
	if sess.DsID != "" {
		q.Set("dsid", sess.DsID)
	}
	q.Set("lang", "en-us")
	q.Set("usertz", c.timezone)
	for k, v := range c.desc.ExtraParams {
		q.Set(k, v)
	}
	for k, vs := range call.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	headers := map[string]string{
		"Origin":            webOrigin,
		"Referer":           c.desc.Referer,
		"Accept":            "application/json, text/plain, */*",
		"X-Requested-With":  "XMLHttpRequest",
		"X-Apple-Service":   c.desc.DomainID,
		"X-Apple-Domain-Id": c.desc.DomainID,
	}
	if sess.SessionToken != "" {
		headers["X-Apple-Auth-Token"] = sess.SessionToken
		headers["X-Apple-Web-Session-Token"] = sess.SessionToken
	}

	var payload []byte
	if call.Body != nil {
		payload, err = json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		headers["Content-Type"] = "application/json"
	}

	u := strings.TrimRight(root, "/") + call.Path
	resp, err := c.transport.Send(ctx, driven.Request{
		Method: call.Method,
		URL:    u,
		Header: headers,
		Query:  q,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := transport.APIErrorFromResponse(u, resp)
		if apiErr.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimitError(apiErr.RetryAfter())
		}
		return nil, apiErr
	}
	return resp.Body, nil
}
