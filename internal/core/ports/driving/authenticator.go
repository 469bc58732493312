package driving

import (
	"context"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

// Authenticator drives the login state machine and owns the session.
// It is the single writer of session state; everything else reads
// snapshots.
type Authenticator interface {
	// Login establishes a session from the stored credential. When the
	// service requires a verification challenge it returns
	// domain.ErrChallengeRequired and the caller must follow up with
	// SubmitVerificationCode.
	Login(ctx context.Context) (domain.Session, error)

	// SubmitVerificationCode answers an open challenge. A wrong code
	// returns domain.ErrInvalidVerificationCode while attempts remain;
	// spending the attempt budget returns domain.ErrChallengeExhausted
	// and discards the challenge.
	SubmitVerificationCode(ctx context.Context, code string) (domain.Session, error)

	// SendVerificationCode asks the service to deliver a code to the
	// given trusted device.
	SendVerificationCode(ctx context.Context, device domain.TrustedDevice) error

	// TrustedDevices lists the devices registered for verification.
	TrustedDevices(ctx context.Context) ([]domain.TrustedDevice, error)

	// AuthenticateService performs (or re-uses, within the freshness
	// window) the service-specific authentication handshake. With force
	// set, the cached authorization is bypassed.
	AuthenticateService(ctx context.Context, service string, force bool) error

	// Session returns a read-only snapshot of the current session.
	Session() domain.Session

	// State returns the current login state.
	State() domain.SessionState

	// Requires2FA reports whether a verification challenge is pending.
	Requires2FA() bool

	// IsTrustedSession reports whether the service trusts this client,
	// meaning re-login will not challenge again.
	IsTrustedSession() bool
}
