// Package retry centralises the retry/backoff behaviour shared by every
// network-issuing component. One policy object, parameterised by a
// classifier, replaces per-call-site retry loops so behaviour under
// flakiness is uniform and tested once.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
)

// Class is the retry-relevant classification of a failure.
type Class int

const (
	// Transient failures (5xx, connection trouble) are retried with
	// exponential backoff.
	Transient Class = iota
	// RateLimited failures (429) are retried with a doubled backoff step,
	// honouring a server-provided retry-after delay when present.
	RateLimited
	// AuthExpired failures (401-class) are never retried here; they
	// propagate so the authenticator can re-establish the session.
	AuthExpired
	// Fatal failures (other 4xx, malformed responses) short-circuit
	// without consuming retry budget.
	Fatal
)

// Classifier maps a raw failure to a Class.
type Classifier func(error) Class

// RetryAfterer is implemented by errors that carry a server-provided
// retry delay (e.g. a 429 or 503 with a Retry-After header).
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// Policy defines the backoff schedule for one logical operation.
// The zero value is not usable; construct with DefaultPolicy or fill all
// fields.
type Policy struct {
	// BaseDelay is the first backoff step.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff step.
	MaxDelay time.Duration
	// MaxAttempts bounds the total number of calls (first try included).
	MaxAttempts int
	// JitterFraction randomises each delay by ±fraction.
	JitterFraction float64

	// rng allows deterministic jitter in tests; nil uses the global source.
	rng *rand.Rand
}

// DefaultPolicy returns the policy used across the client: 3 attempts,
// 500ms base delay doubling up to 10s, 20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		MaxAttempts:    3,
		JitterFraction: 0.2,
	}
}

// Execute runs op, retrying per the classifier's verdicts until success,
// a short-circuiting class, exhaustion of MaxAttempts, or the context
// ending. The final failure is wrapped in domain.ErrRetriesExhausted; a
// deadline hit mid-backoff is reported as domain.ErrOperationTimedOut
// and no call is issued past the deadline. A plain cancellation is not
// a timeout: it propagates as context.Canceled so callers can tell the
// two apart.
func (p Policy) Execute(ctx context.Context, op func(context.Context) error, classify Classifier) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return ctxError(err, lastErr)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		switch classify(lastErr) {
		case AuthExpired, Fatal:
			return lastErr
		case Transient, RateLimited:
			// fall through to backoff
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.delay(attempt, classify(lastErr) == RateLimited, lastErr)
		logger.Debug("retry: attempt %d failed (%v), backing off %s", attempt+1, lastErr, delay)

		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
			return fmt.Errorf("%w: %w", domain.ErrOperationTimedOut, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctxError(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrRetriesExhausted, lastErr)
}

// delay computes the backoff for the given attempt. Rate-limited
// failures double the step; a server-provided retry-after wins when it
// is longer.
func (p Policy) delay(attempt int, rateLimited bool, cause error) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if rateLimited {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		f := p.rand()
		// spread across [1-jitter, 1+jitter]
		d = time.Duration(float64(d) * (1 - p.JitterFraction + 2*p.JitterFraction*f))
	}

	var ra RetryAfterer
	if errors.As(cause, &ra) && ra.RetryAfter() > d {
		d = ra.RetryAfter()
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}

func (p Policy) rand() float64 {
	if p.rng != nil {
		return p.rng.Float64()
	}
	return rand.Float64()
}

// ctxError maps a done context to the error Execute reports: a deadline
// becomes domain.ErrOperationTimedOut, a cancellation stays
// context.Canceled.
func ctxError(ctxErr, lastErr error) error {
	if errors.Is(ctxErr, context.Canceled) {
		if lastErr != nil {
			return fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
		}
		return ctxErr
	}
	return fmt.Errorf("%w: %w", domain.ErrOperationTimedOut, firstNonNil(lastErr, ctxErr))
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
