// Package services contains the shared machinery for talking to the
// per-feature web services behind an authenticated session: the closed
// set of service descriptors, per-service rate limiting, the failure
// classifier feeding the retry policy, and the Caller that stitches
// them together.
//
// Sub-packages (reminders, calendar, contacts) implement the actual
// feature operations on top of a Caller.
package services
