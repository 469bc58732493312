package auth

import "encoding/json"

// signinRequest is the identity endpoint's sign-in payload.
type signinRequest struct {
	AccountName string   `json:"accountName"`
	Password    string   `json:"password"`
	RememberMe  bool     `json:"rememberMe"`
	TrustTokens []string `json:"trustTokens"`
}

// accountLoginRequest exchanges the identity session token for the
// account session and the web-service catalog.
type accountLoginRequest struct {
	AccountCountryCode string `json:"accountCountryCode"`
	DsWebAuthToken     string `json:"dsWebAuthToken"`
	ExtendedLogin      bool   `json:"extended_login"`
	TrustToken         string `json:"trustToken"`
}

// setupResponse is shared by accountLogin and validate.
type setupResponse struct {
	DsInfo               dsInfo                `json:"dsInfo"`
	Webservices          map[string]webservice `json:"webservices"`
	HsaChallengeRequired bool                  `json:"hsaChallengeRequired"`
	HsaTrustedBrowser    bool                  `json:"hsaTrustedBrowser"`
}

type dsInfo struct {
	// Dsid arrives as a number from some accounts and a string from
	// others.
	Dsid       json.Number `json:"dsid"`
	HsaVersion int         `json:"hsaVersion"`
}

type webservice struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

// verifyCodeRequest answers the trusted-device challenge.
type verifyCodeRequest struct {
	SecurityCode securityCode `json:"securityCode"`
}

type securityCode struct {
	Code string `json:"code"`
}

// deviceRecord is the legacy device-list shape used by listDevices and
// sendVerificationCode.
type deviceRecord struct {
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type listDevicesResponse struct {
	Devices []deviceRecord `json:"devices"`
}

type sendCodeResponse struct {
	Success bool `json:"success"`
}
