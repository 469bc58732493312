package domain

import "time"

// SessionState is the externally observable state of the login state machine.
type SessionState string

const (
	// StateUnauthenticated means no login has been performed yet.
	StateUnauthenticated SessionState = "unauthenticated"
	// StateChallengeRequired means credentials were accepted but a
	// verification code must be supplied before a session is granted.
	StateChallengeRequired SessionState = "challenge_required"
	// StateTrustEstablished means the verification code was accepted and a
	// long-lived trust token has been issued.
	StateTrustEstablished SessionState = "trust_established"
	// StateAuthenticated is the terminal success state.
	StateAuthenticated SessionState = "authenticated"
	// StateExpired means the service reported the session token invalid.
	// The only transition out of Expired is a new login.
	StateExpired SessionState = "expired"
)

// Session is the authenticated state shared by all service adapters.
//
// The authenticator is the single writer: adapters obtain read-only
// snapshots and request mutation only through the authenticator's
// re-authentication path.
type Session struct {
	// State is the current position in the login state machine.
	State SessionState `json:"state"`

	// SessionToken is the opaque base token issued at login.
	// Empty exactly when the session is unauthenticated.
	SessionToken string `json:"session_token"`

	// TrustToken is the longer-lived token issued after a successful
	// verification challenge. It survives session expiry and allows
	// re-login without repeating the challenge.
	TrustToken string `json:"trust_token,omitempty"`

	// SessionID and Scnt are the identity endpoint's continuation headers.
	// They must be echoed back on every call to the identity endpoint.
	SessionID string `json:"session_id,omitempty"`
	Scnt      string `json:"scnt,omitempty"`

	// AccountCountry is reported by the identity endpoint and required by
	// the token-login call.
	AccountCountry string `json:"account_country,omitempty"`

	// ClientID is carried over from the credential.
	ClientID string `json:"client_id,omitempty"`

	// DsID is the directory-services identifier reported at account login.
	// Several sub-services require it as a query parameter.
	DsID string `json:"dsid,omitempty"`

	// WebServices maps a sub-service name to its service root URL, as
	// reported by the account-login response.
	WebServices map[string]string `json:"webservices,omitempty"`

	// Cookies is the cookie set accumulated across authenticated calls.
	Cookies map[string]string `json:"cookies,omitempty"`

	// Authorized tracks which sub-services have completed their
	// service-specific authentication handshake. Only meaningful while
	// SessionToken is non-empty.
	Authorized map[string]bool `json:"authorized,omitempty"`

	// TrustedBrowser is true when the service considers this client
	// trusted and will not challenge again.
	TrustedBrowser bool `json:"trusted_browser,omitempty"`

	CreatedAt     time.Time `json:"created_at,omitempty"`
	LastValidated time.Time `json:"last_validated,omitempty"`
}

// NewSession returns an empty, unauthenticated session.
func NewSession(clientID string) Session {
	return Session{
		State:       StateUnauthenticated,
		ClientID:    clientID,
		WebServices: make(map[string]string),
		Cookies:     make(map[string]string),
		Authorized:  make(map[string]bool),
	}
}

// IsAuthenticated returns true if the session holds a usable base token.
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.SessionToken != ""
}

// IsTrusted returns true if a trust token is held, meaning re-login can
// skip the verification challenge.
func (s Session) IsTrusted() bool {
	return s.TrustToken != ""
}

// ServiceAuthorized reports whether the named sub-service has completed its
// authentication handshake in this session.
func (s Session) ServiceAuthorized(name string) bool {
	return s.SessionToken != "" && s.Authorized[name]
}

// WebServiceURL returns the service root for a sub-service.
// Returns ErrServiceNotActivated if the account does not expose it.
func (s Session) WebServiceURL(name string) (string, error) {
	u, ok := s.WebServices[name]
	if !ok || u == "" {
		return "", ErrServiceNotActivated
	}
	return u, nil
}

// Snapshot returns a deep copy safe for concurrent read-only use.
// Service adapters treat the session as copy-on-read; only the
// authenticator mutates the original.
func (s Session) Snapshot() Session {
	cp := s
	cp.WebServices = make(map[string]string, len(s.WebServices))
	for k, v := range s.WebServices {
		cp.WebServices[k] = v
	}
	cp.Cookies = make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		cp.Cookies[k] = v
	}
	cp.Authorized = make(map[string]bool, len(s.Authorized))
	for k, v := range s.Authorized {
		cp.Authorized[k] = v
	}
	return cp
}

// Invalidate clears per-service authorization and marks the session
// expired. The trust token is retained so a silent re-login remains
// possible; the base token is dropped.
func (s *Session) Invalidate() {
	s.State = StateExpired
	s.SessionToken = ""
	s.Authorized = make(map[string]bool)
}
