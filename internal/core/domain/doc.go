// Package domain defines the core entities of the iCloud session manager.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: the account identity used to open a session
//   - Session: the authenticated state shared by all service adapters
//   - ChallengeState: the transient two-factor verification state
//   - Reminder/ReminderList, Event/Calendar, Contact: sub-service data shapes
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
