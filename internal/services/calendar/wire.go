package calendar

import (
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

// eventsResponse is shared by /ca/events and /ca/eventdetail.
type eventsResponse struct {
	Events []eventRecord `json:"Event"`
}

// startupResponse is the /ca/startup payload.
type startupResponse struct {
	Collections []calendarRecord `json:"Collection"`
	Events      []eventRecord    `json:"Event"`
}

type calendarRecord struct {
	GUID  string `json:"guid"`
	Title string `json:"title"`
	Color string `json:"color"`
}

type eventRecord struct {
	GUID     string `json:"guid"`
	PGuid    string `json:"pGuid"`
	Title    string `json:"title"`
	Location string `json:"location"`
	// StartDate and EndDate use the composite date form:
	// [yyyymmdd, year, month, day, hour, minute, ...].
	StartDate []int `json:"startDate"`
	EndDate   []int `json:"endDate"`
	AllDay    bool  `json:"allDay"`
}

// decodeDate parses the composite wire form; trailing entries (the
// service appends a timezone offset) are ignored.
func decodeDate(v []int) *time.Time {
	if len(v) < 6 {
		return nil
	}
	month := v[2]
	if month < 1 || month > 12 {
		return nil
	}
	t := time.Date(v[1], time.Month(month), v[3], v[4], v[5], 0, 0, time.UTC)
	return &t
}

// toDomainEvent converts a wire record; it reports false when the
// start date is unusable.
func toDomainEvent(rec eventRecord) (domain.Event, bool) {
	start := decodeDate(rec.StartDate)
	if start == nil {
		return domain.Event{}, false
	}
	return domain.Event{
		GUID:         rec.GUID,
		CalendarGUID: rec.PGuid,
		Title:        rec.Title,
		Location:     rec.Location,
		StartDate:    *start,
		EndDate:      decodeDate(rec.EndDate),
		AllDay:       rec.AllDay,
	}, true
}
