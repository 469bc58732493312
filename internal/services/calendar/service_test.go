package calendar

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
	"github.com/altocloud-labs/icloud-cli/internal/retry"
	"github.com/altocloud-labs/icloud-cli/internal/services"
)

const eventsBody = `{
	"Event": [
		{"guid": "E1", "pGuid": "C1", "title": "Standup", "location": "Room 2",
		 "startDate": [20260901, 2026, 9, 1, 9, 30, 540], "endDate": [20260901, 2026, 9, 1, 9, 45, 555]},
		{"guid": "E2", "pGuid": "C1", "title": "Holiday", "allDay": true,
		 "startDate": [20260907, 2026, 9, 7, 0, 0, 0]},
		{"guid": "E3", "pGuid": "C2", "title": "Broken", "startDate": [20260901]}
	]
}`

const startupBody = `{
	"Collection": [
		{"guid": "C1", "title": "Home", "color": "#ff2d55"},
		{"guid": "C2", "title": "Work", "color": "#007aff"}
	],
	"Event": []
}`

const emptyStartupBody = `{"Collection": [], "Event": []}`

type canned struct {
	status int
	body   string
}

type fakeTransport struct {
	requests  []driven.Request
	responses []canned
}

func (f *fakeTransport) Send(_ context.Context, req driven.Request) (*driven.Response, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	c := canned{status: http.StatusOK, body: "{}"}
	if i < len(f.responses) {
		c = f.responses[i]
	}
	return &driven.Response{StatusCode: c.status, Header: http.Header{}, Body: []byte(c.body)}, nil
}

type fakeAuth struct{}

func (fakeAuth) AuthenticateService(context.Context, string, bool) error { return nil }

func (fakeAuth) Session() domain.Session {
	return domain.Session{
		State:        domain.StateAuthenticated,
		SessionToken: "tok",
		ClientID:     "client-1",
		WebServices:  map[string]string{"calendar": "https://p31-calendarws.example.com"},
		Authorized:   map[string]bool{"calendar": true},
	}
}

func newTestService(responses ...canned) (*Service, *fakeTransport) {
	tp := &fakeTransport{responses: responses}
	policy := retry.Policy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
	caller := services.NewCaller(services.Calendar, tp, fakeAuth{}, policy, "UTC")
	s := NewService(caller)
	s.now = func() time.Time { return time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC) }
	return s, tp
}

func TestEvents_DefaultRangeIsCurrentMonth(t *testing.T) {
	s, tp := newTestService(canned{200, eventsBody})

	events, err := s.Events(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	req := tp.requests[0]
	assert.Contains(t, req.URL, "/ca/events")
	assert.Equal(t, "2026-09-01", req.Query.Get("startDate"))
	assert.Equal(t, "2026-09-30", req.Query.Get("endDate"))
	assert.Equal(t, "calendar", req.Header["X-Apple-Domain-Id"])

	// The record with an unparseable start date is skipped.
	require.Len(t, events, 2)
	assert.Equal(t, "E1", events[0].GUID)
	assert.Equal(t, "C1", events[0].CalendarGUID)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC), events[0].StartDate)
	require.NotNil(t, events[0].EndDate)
	assert.True(t, events[1].AllDay)
	assert.Nil(t, events[1].EndDate)
}

func TestEvents_ExplicitRange(t *testing.T) {
	s, tp := newTestService(canned{200, `{"Event": []}`})

	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	_, err := s.Events(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "2026-01-10", tp.requests[0].Query.Get("startDate"))
	assert.Equal(t, "2026-02-10", tp.requests[0].Query.Get("endDate"))
}

func TestEvents_FormatMismatch(t *testing.T) {
	s, tp := newTestService(canned{200, "<!doctype html>"})

	_, err := s.Events(context.Background(), time.Time{}, time.Time{})
	assert.ErrorIs(t, err, domain.ErrFormatMismatch)
	assert.Len(t, tp.requests, 1)
}

func TestEventDetail(t *testing.T) {
	s, tp := newTestService(canned{200, `{"Event": [
		{"guid": "E1", "pGuid": "C1", "title": "Standup",
		 "startDate": [20260901, 2026, 9, 1, 9, 30, 540]}
	]}`})

	ev, err := s.EventDetail(context.Background(), "C1", "E1")
	require.NoError(t, err)
	assert.Equal(t, "Standup", ev.Title)
	assert.Contains(t, tp.requests[0].URL, "/ca/eventdetail/C1/E1")
}

func TestEventDetail_NotFound(t *testing.T) {
	s, _ := newTestService(canned{200, `{"Event": []}`})

	_, err := s.EventDetail(context.Background(), "C1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventDetail_Validation(t *testing.T) {
	s, _ := newTestService()

	_, err := s.EventDetail(context.Background(), "", "E1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalendars(t *testing.T) {
	s, tp := newTestService(canned{200, startupBody})

	cals, err := s.Calendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, "Home", cals[0].Title)
	assert.Equal(t, "#ff2d55", cals[0].Color)
	assert.Contains(t, tp.requests[0].URL, "/ca/startup")
}

func TestCalendars_SpuriouslyEmptyListing(t *testing.T) {
	s, tp := newTestService(
		canned{200, startupBody},
		canned{200, emptyStartupBody},
		canned{200, emptyStartupBody},
	)

	_, err := s.Calendars(context.Background())
	require.NoError(t, err)

	_, err = s.Calendars(context.Background())
	assert.ErrorIs(t, err, domain.ErrInconsistentListing)
	assert.Len(t, tp.requests, 3)
}

func TestCalendars_EmptyRecoversOnRetry(t *testing.T) {
	s, _ := newTestService(
		canned{200, startupBody},
		canned{200, emptyStartupBody},
		canned{200, startupBody},
	)

	_, err := s.Calendars(context.Background())
	require.NoError(t, err)

	cals, err := s.Calendars(context.Background())
	require.NoError(t, err)
	assert.Len(t, cals, 2)
}
