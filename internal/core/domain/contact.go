package domain

// Contact is a single address-book entry.
type Contact struct {
	// ID is the contact identifier.
	ID string `json:"id"`
	// FirstName and LastName are the structured name parts.
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	// Company is the organisation name, if any.
	Company string `json:"company,omitempty"`
	// Emails and Phones keep the order reported by the service.
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
	// Etag is the item change tag.
	Etag string `json:"etag,omitempty"`
}

// DisplayName returns the best available human-readable name.
func (c Contact) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.LastName != "":
		return c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.Company
	}
}
