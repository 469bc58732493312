package domain

import "time"

// Priority levels for reminders, as used by the reminders sub-service.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
	PriorityUrgent = 4
)

// ReminderList is a named collection of reminders.
type ReminderList struct {
	// GUID is the collection identifier (the pGuid of its members).
	GUID string `json:"guid"`
	// Title is the display name.
	Title string `json:"title"`
	// Ctag is the collection change tag reported by the service.
	Ctag string `json:"ctag,omitempty"`
}

// Reminder is a single reminder item. Pure data; the adapter's parser
// produces and consumes it but does not define its semantics.
type Reminder struct {
	// GUID is the item identifier.
	GUID string `json:"guid"`
	// Title is the reminder title.
	Title string `json:"title"`
	// Description is the free-form note body.
	Description string `json:"description,omitempty"`
	// ListGUID is the parent collection identifier.
	ListGUID string `json:"list_guid"`
	// ListTitle is the parent collection name.
	ListTitle string `json:"list_title,omitempty"`
	// Priority is 0 (none) through 4 (urgent).
	Priority int `json:"priority"`
	// Tags is an ordered sequence of tag strings.
	Tags []string `json:"tags,omitempty"`
	// DueDate is the due time, if any.
	DueDate *time.Time `json:"due_date,omitempty"`
	// Completed is always false for items parsed from the web service:
	// the service does not report remote completion.
	Completed bool `json:"completed"`
	// Etag is the item change tag.
	Etag string `json:"etag,omitempty"`
}
