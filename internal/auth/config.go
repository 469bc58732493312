package auth

import (
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/retry"
)

const (
	// DefaultAuthEndpoint is the identity endpoint handling sign-in and
	// the verification challenge.
	DefaultAuthEndpoint = "https://idmsa.apple.com/appleauth/auth"

	// DefaultSetupEndpoint is the account endpoint handling token
	// login, validation and the legacy device-code calls.
	DefaultSetupEndpoint = "https://setup.icloud.com/setup/ws/1"

	// DefaultFreshnessWindow bounds how long a completed service
	// handshake is trusted without re-validation.
	DefaultFreshnessWindow = 5 * time.Minute

	// MaxChallengeAttempts bounds wrong verification codes before the
	// challenge is discarded.
	MaxChallengeAttempts = 3

	// challengeTTL is how long an open challenge stays answerable.
	challengeTTL = 10 * time.Minute

	homeEndpoint = "https://www.icloud.com"

	// oauthClientID identifies the web client to the identity endpoint.
	oauthClientID = "d39ba9916b7251055b22c7f910e2ea796ee65e98b2ddecea8f5dde8d9d1a815d"
)

// Config holds the authenticator's endpoints and tunables.
type Config struct {
	// AuthEndpoint is the identity endpoint base URL.
	AuthEndpoint string
	// SetupEndpoint is the account endpoint base URL.
	SetupEndpoint string
	// FreshnessWindow bounds the per-service authorization cache.
	FreshnessWindow time.Duration
	// Retry is the backoff policy for authentication calls.
	Retry retry.Policy
}

// withDefaults fills zero fields with the standard endpoints and
// policy.
func (c Config) withDefaults() Config {
	if c.AuthEndpoint == "" {
		c.AuthEndpoint = DefaultAuthEndpoint
	}
	if c.SetupEndpoint == "" {
		c.SetupEndpoint = DefaultSetupEndpoint
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = DefaultFreshnessWindow
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = retry.DefaultPolicy()
	}
	return c
}
