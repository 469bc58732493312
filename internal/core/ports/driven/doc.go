// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// The authenticator and service adapters depend on these interfaces, and
// infrastructure adapters implement them.
//
// # Required Interfaces
//
//   - Transport: executes a single HTTP exchange (no retries inside)
//   - CredentialStore: credential persistence
//   - SessionStore: session/cookie persistence across restarts
//
// # Optional Interfaces
//
//   - CodePrompter: supplies two-factor verification codes. Without it,
//     logins that hit a challenge fail with ErrChallengeRequired instead
//     of prompting.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driven
