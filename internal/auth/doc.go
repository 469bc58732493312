// Package auth implements the login state machine and owns the
// session: credential submission, the verification-code challenge,
// trust establishment, token-based re-login, and the per-service
// authentication handshake that every service adapter relies on.
//
// The Authenticator is the session's single writer. Concurrent service
// handshakes coalesce through a single-flight group, and completed
// handshakes are cached for a freshness window so repeated calls do
// not re-authenticate.
package auth
