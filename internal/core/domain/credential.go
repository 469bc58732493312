package domain

// Credential holds the account identity used to open a session.
// It is immutable for the duration of a login attempt; a re-login with
// different credentials replaces it wholesale.
type Credential struct {
	// AccountName is the account identifier (an email address).
	AccountName string `json:"account_name"`

	// Password is the account secret. It must never be logged; the logger
	// registers it as a redacted secret before any request is issued.
	Password string `json:"password"`

	// ClientID identifies this client installation to the identity endpoint.
	// Generated once (UUID) and reused so the service recognises the client
	// across sessions.
	ClientID string `json:"client_id"`
}

// Valid returns true if the credential can be submitted for login.
func (c Credential) Valid() bool {
	return c.AccountName != "" && c.Password != ""
}
