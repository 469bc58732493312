package driven

import (
	"context"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

// CredentialStore persists the account credential.
// Read-only after process start except on an explicit re-login.
type CredentialStore interface {
	// Load returns the stored credential, or domain.ErrNotFound when
	// none has been saved.
	Load(ctx context.Context) (*domain.Credential, error)

	// Save stores the credential, replacing any previous one.
	Save(ctx context.Context, cred domain.Credential) error

	// Clear removes the stored credential.
	Clear(ctx context.Context) error
}

// SessionStore persists session state (tokens and cookies) so a trusted
// session survives process restarts.
type SessionStore interface {
	// Load returns the persisted session for an account, or
	// domain.ErrNotFound when none exists.
	Load(ctx context.Context, account string) (*domain.Session, error)

	// Save stores the session for an account.
	Save(ctx context.Context, account string, session domain.Session) error

	// Clear removes the persisted session for an account.
	Clear(ctx context.Context, account string) error
}
