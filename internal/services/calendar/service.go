// Package calendar is the service adapter for the calendar web
// service: event listings over a date range, single-event detail, and
// the calendar collections themselves.
package calendar

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
	"github.com/altocloud-labs/icloud-cli/internal/services"
)

const (
	eventsPath      = "/ca/events"
	eventDetailPath = "/ca/eventdetail"
	startupPath     = "/ca/startup"
)

// Service is the calendar service adapter.
type Service struct {
	caller *services.Caller
	now    func() time.Time

	mu sync.RWMutex
	// lastCalendarCount backs the spurious-empty-listing check.
	lastCalendarCount int
}

// NewService creates the calendar adapter on top of a caller for the
// calendar descriptor.
func NewService(caller *services.Caller) *Service {
	return &Service{caller: caller, now: time.Now}
}

// Events returns the events in [from, to]. Zero bounds default to the
// current month.
func (s *Service) Events(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	from, to = s.defaultRange(from, to)

	body, err := s.caller.Do(ctx, services.Call{
		Method: "GET",
		Path:   eventsPath,
		Params: rangeParams(from, to),
	})
	if err != nil {
		return nil, err
	}

	var data eventsResponse
	if err := services.DecodeJSON(body, &data); err != nil {
		return nil, fmt.Errorf("calendar events: %w", err)
	}

	out := make([]domain.Event, 0, len(data.Events))
	for _, rec := range data.Events {
		ev, ok := toDomainEvent(rec)
		if !ok {
			logger.Warn("calendar: skipping event %q with unparseable dates", rec.GUID)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// EventDetail fetches a single event by its calendar and event
// identifiers.
func (s *Service) EventDetail(ctx context.Context, calendarGUID, eventGUID string) (domain.Event, error) {
	if calendarGUID == "" || eventGUID == "" {
		return domain.Event{}, fmt.Errorf("calendar and event identifiers required: %w", domain.ErrInvalidInput)
	}

	body, err := s.caller.Do(ctx, services.Call{
		Method: "GET",
		Path:   fmt.Sprintf("%s/%s/%s", eventDetailPath, url.PathEscape(calendarGUID), url.PathEscape(eventGUID)),
	})
	if err != nil {
		return domain.Event{}, err
	}

	var data eventsResponse
	if err := services.DecodeJSON(body, &data); err != nil {
		return domain.Event{}, fmt.Errorf("calendar event detail: %w", err)
	}
	if len(data.Events) == 0 {
		return domain.Event{}, fmt.Errorf("event %q: %w", eventGUID, domain.ErrNotFound)
	}

	ev, ok := toDomainEvent(data.Events[0])
	if !ok {
		return domain.Event{}, fmt.Errorf("event %q has malformed dates: %w", eventGUID, domain.ErrFormatMismatch)
	}
	return ev, nil
}

// Calendars returns the calendar collections. A 200 listing that is
// empty while a previous listing in this session was not gets one
// retry, then domain.ErrInconsistentListing.
func (s *Service) Calendars(ctx context.Context) ([]domain.Calendar, error) {
	data, err := s.fetchStartup(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	previous := s.lastCalendarCount
	s.mu.RUnlock()

	if previous > 0 && len(data.Collections) == 0 {
		logger.Warn("calendar: listing went %d -> 0 calendars, retrying once", previous)
		data, err = s.fetchStartup(ctx)
		if err != nil {
			return nil, err
		}
		if len(data.Collections) == 0 {
			return nil, fmt.Errorf("calendar listing: %w", domain.ErrInconsistentListing)
		}
	}

	s.mu.Lock()
	s.lastCalendarCount = len(data.Collections)
	s.mu.Unlock()

	out := make([]domain.Calendar, 0, len(data.Collections))
	for _, rec := range data.Collections {
		out = append(out, domain.Calendar{GUID: rec.GUID, Title: rec.Title, Color: rec.Color})
	}
	return out, nil
}

func (s *Service) fetchStartup(ctx context.Context) (*startupResponse, error) {
	from, to := s.defaultRange(time.Time{}, time.Time{})
	body, err := s.caller.Do(ctx, services.Call{
		Method: "GET",
		Path:   startupPath,
		Params: rangeParams(from, to),
	})
	if err != nil {
		return nil, err
	}

	var data startupResponse
	if err := services.DecodeJSON(body, &data); err != nil {
		return nil, fmt.Errorf("calendar startup: %w", err)
	}
	return &data, nil
}

// defaultRange fills zero bounds with the current month.
func (s *Service) defaultRange(from, to time.Time) (time.Time, time.Time) {
	today := s.now()
	if from.IsZero() {
		from = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	}
	if to.IsZero() {
		to = time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location()).AddDate(0, 0, -1)
	}
	return from, to
}

func rangeParams(from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("startDate", from.Format("2006-01-02"))
	q.Set("endDate", to.Format("2006-01-02"))
	return q
}
