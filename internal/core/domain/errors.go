package domain

import "errors"

// Domain errors represent authentication and service-contract failures.
// These are distinct from transport-level errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Authentication errors.

	// ErrInvalidCredentials indicates the account name or password was
	// rejected. Terminal: the caller must supply new credentials.
	ErrInvalidCredentials = errors.New("invalid account credentials")

	// ErrChallengeRequired indicates login progressed but a verification
	// code must be submitted before a session is granted. Control flow,
	// not a transport failure.
	ErrChallengeRequired = errors.New("verification code required")

	// ErrInvalidVerificationCode indicates the submitted code was wrong.
	// The challenge remains open until the attempt budget is spent.
	ErrInvalidVerificationCode = errors.New("invalid verification code")

	// ErrChallengeExhausted indicates the maximum number of verification
	// attempts was reached and the challenge state has been discarded.
	ErrChallengeExhausted = errors.New("verification attempts exhausted")

	// ErrSessionExpired indicates the service reported the base session
	// token invalid. Recoverable by re-login; distinguished from
	// ErrInvalidCredentials so a silent re-login can be attempted while a
	// trust token is still valid.
	ErrSessionExpired = errors.New("session expired")

	// ErrServiceNotActivated indicates the account does not expose the
	// requested sub-service.
	ErrServiceNotActivated = errors.New("service not activated for account")

	// Service contract errors.

	// ErrFormatMismatch indicates the remote data shape no longer matches
	// what the adapter expects (schema drift). Terminal; never retried and
	// never silently coerced.
	ErrFormatMismatch = errors.New("remote item format not supported")

	// ErrInconsistentListing indicates a listing came back empty after the
	// same session previously observed a non-empty collection set.
	ErrInconsistentListing = errors.New("inconsistent listing response")

	// Retry outcomes.

	// ErrRetriesExhausted wraps the last underlying error once the backoff
	// budget is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrOperationTimedOut indicates the operation deadline elapsed before
	// the call (or its retries) could complete.
	ErrOperationTimedOut = errors.New("operation timed out")
)
