package domain

import "time"

// Calendar is a single calendar collection.
type Calendar struct {
	// GUID is the calendar identifier (the pGuid of its events).
	GUID string `json:"guid"`
	// Title is the display name.
	Title string `json:"title"`
	// Color is the service-assigned display colour, if any.
	Color string `json:"color,omitempty"`
}

// Event is a calendar event. Pure data shape; recurrence semantics are
// out of scope and left unexpanded.
type Event struct {
	// GUID is the event identifier.
	GUID string `json:"guid"`
	// CalendarGUID is the parent calendar identifier.
	CalendarGUID string `json:"calendar_guid"`
	// Title is the event title.
	Title string `json:"title"`
	// Location is the free-form location string.
	Location string `json:"location,omitempty"`
	// StartDate and EndDate bound the event.
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	// AllDay marks date-only events.
	AllDay bool `json:"all_day"`
}
