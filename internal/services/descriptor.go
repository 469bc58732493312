package services

// Descriptor captures the per-service request shape: the headers and
// query parameters a web service expects beyond what every call
// shares. The set of descriptors is closed; adding a service means
// adding a descriptor here, not threading new knobs through callers.
type Descriptor struct {
	// Name is the web-service key in the account's service catalog.
	Name string

	// DomainID is sent as X-Apple-Service and X-Apple-Domain-Id.
	DomainID string

	// Referer is the web-app URL the service expects requests to
	// originate from.
	Referer string

	// ClientBuildNumber and ClientMasteringNumber pin the web-client
	// version the wire format was captured from.
	ClientBuildNumber     string
	ClientMasteringNumber string

	// ExtraParams are service-specific query parameters sent on every
	// call.
	ExtraParams map[string]string

	// RateLimit is the client-side throttle for this service.
	RateLimit RateLimitConfig
}

// The closed descriptor set.
var (
	// Reminders is the reminders web service.
	Reminders = Descriptor{
		Name:                  "reminders",
		DomainID:              "reminders",
		Referer:               "https://www.icloud.com/reminders/",
		ClientBuildNumber:     "2023Project70",
		ClientMasteringNumber: "2023B70",
		ExtraParams: map[string]string{
			"remindersWebUIVersion": "2.0",
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10},
	}

	// Calendar is the calendar web service.
	Calendar = Descriptor{
		Name:                  "calendar",
		DomainID:              "calendar",
		Referer:               "https://www.icloud.com/calendar/",
		ClientBuildNumber:     "2020Project52",
		ClientMasteringNumber: "2020B29",
		RateLimit:             RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10},
	}

	// Contacts is the contacts web service.
	Contacts = Descriptor{
		Name:                  "contacts",
		DomainID:              "contacts",
		Referer:               "https://www.icloud.com/contacts/",
		ClientBuildNumber:     "2020Project52",
		ClientMasteringNumber: "2020B29",
		ExtraParams: map[string]string{
			"clientVersion": "2.1",
			"locale":        "en_US",
			"order":         "last,first",
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 2.0, BurstSize: 5},
	}
)

// Known returns every registered descriptor.
func Known() []Descriptor {
	return []Descriptor{Reminders, Calendar, Contacts}
}

// ByName looks up a descriptor by its web-service key.
func ByName(name string) (Descriptor, bool) {
	for _, d := range Known() {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
