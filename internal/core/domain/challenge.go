package domain

import "time"

// TrustedDevice is a device registered to receive verification codes.
type TrustedDevice struct {
	// ID is the device identifier used when requesting a code.
	ID string `json:"id"`
	// Name is the human-readable device name.
	Name string `json:"name"`
	// PhoneNumber is the obfuscated number for SMS-capable devices.
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ChallengeState exists only between "credentials accepted, verification
// required" and "verification code accepted". It is discarded on success,
// exhaustion or abandonment.
type ChallengeState struct {
	// Devices are the challenge targets, in the order the service
	// reported them.
	Devices []TrustedDevice

	// ExpiresAt is the deadline after which the challenge is void and a
	// fresh login is required.
	ExpiresAt time.Time

	// Attempts counts verification codes submitted so far.
	Attempts int
}

// Expired reports whether the challenge deadline has passed.
func (c *ChallengeState) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
