package cli

import (
	"bytes"
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
	"github.com/altocloud-labs/icloud-cli/internal/services/calendar"
	"github.com/altocloud-labs/icloud-cli/internal/services/contacts"
	"github.com/altocloud-labs/icloud-cli/internal/services/reminders"
)

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

type fakeAuth struct {
	sess       domain.Session
	requires2F bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{sess: domain.Session{
		State:          domain.StateAuthenticated,
		SessionToken:   "tok",
		ClientID:       "client-1",
		TrustedBrowser: true,
		WebServices: map[string]string{
			"reminders": "https://p31-remindersws.example.com",
			"calendar":  "https://p31-calendarws.example.com",
			"contacts":  "https://p31-contactsws.example.com",
		},
		Authorized: map[string]bool{"reminders": true, "calendar": true, "contacts": true},
	}}
}

func (f *fakeAuth) Login(context.Context) (domain.Session, error) { return f.sess, nil }

func (f *fakeAuth) SubmitVerificationCode(context.Context, string) (domain.Session, error) {
	return f.sess, nil
}

func (f *fakeAuth) SendVerificationCode(context.Context, domain.TrustedDevice) error { return nil }

func (f *fakeAuth) TrustedDevices(context.Context) ([]domain.TrustedDevice, error) { return nil, nil }

func (f *fakeAuth) AuthenticateService(context.Context, string, bool) error { return nil }

func (f *fakeAuth) Session() domain.Session { return f.sess }

func (f *fakeAuth) State() domain.SessionState { return f.sess.State }

func (f *fakeAuth) Requires2FA() bool { return f.requires2F }

func (f *fakeAuth) IsTrustedSession() bool { return f.sess.TrustedBrowser }

// wireFakes points the command tree at in-memory services backed by a
// scripted transport and restores the previous wiring afterwards.
func wireFakes(t *testing.T, auth *fakeAuth, tp *fakeTransport) {
	t.Helper()

	prevAuth := authService
	prevRem := remindersService
	prevCal := calendarService
	prevCon := contactsService
	t.Cleanup(func() {
		authService = prevAuth
		remindersService = prevRem
		calendarService = prevCal
		contactsService = prevCon
	})

	policy := retry.Policy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
	authService = auth
	remindersService = reminders.NewService(services.NewCaller(services.Reminders, tp, auth, policy, "UTC"))
	calendarService = calendar.NewService(services.NewCaller(services.Calendar, tp, auth, policy, "UTC"))
	contactsService = contacts.NewService(services.NewCaller(services.Contacts, tp, auth, policy, "UTC"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	wireFakes(t, newFakeAuth(), &fakeTransport{})

	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, out, "icloud version test-version-1.0.0")
}

func TestStatusCmd(t *testing.T) {
	auth := newFakeAuth()
	wireFakes(t, auth, &fakeTransport{})

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "State: authenticated")
	assert.Contains(t, out, "Trusted client: true")
}

func TestStatusCmd_PendingChallenge(t *testing.T) {
	auth := newFakeAuth()
	auth.requires2F = true
	wireFakes(t, auth, &fakeTransport{})

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "verification challenge is pending")
}

func TestRemindersListCmd(t *testing.T) {
	tp := &fakeTransport{responses: []canned{{200, `{
		"Collections": [{"guid": "L1", "title": "Groceries", "ctag": "c1"}],
		"Reminders": [{"guid": "R1", "title": "Buy milk", "pGuid": "L1"}]
	}`}}}
	wireFakes(t, newFakeAuth(), tp)

	out, err := execute(t, "reminders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries (1)")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, tp.requests[0].URL, "/rd/startup")
}

func TestRemindersListCmd_UnknownList(t *testing.T) {
	tp := &fakeTransport{responses: []canned{{200, `{"Collections": [], "Reminders": []}`}}}
	wireFakes(t, newFakeAuth(), tp)

	_, err := execute(t, "reminders", "list", "--list", "Nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemindersAddCmd_BadDate(t *testing.T) {
	wireFakes(t, newFakeAuth(), &fakeTransport{})

	_, err := execute(t, "reminders", "add", "Buy milk", "--due", "tomorrow-ish")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalendarListCmd(t *testing.T) {
	tp := &fakeTransport{responses: []canned{{200, `{
		"Collection": [{"guid": "CAL1", "title": "Home"}],
		"Event": []
	}`}}}
	wireFakes(t, newFakeAuth(), tp)

	out, err := execute(t, "calendar", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Home")
	assert.Contains(t, tp.requests[0].URL, "/ca/startup")
}

func TestContactsListCmd(t *testing.T) {
	tp := &fakeTransport{responses: []canned{{200, `{
		"contacts": [{"contactId": "CT1", "firstName": "Ada", "lastName": "Lovelace",
			"emailAddresses": [{"field": "ada@example.com", "label": "HOME"}]}],
		"meCardId": "CT1"
	}`}}}
	wireFakes(t, newFakeAuth(), tp)

	out, err := execute(t, "contacts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "ada@example.com")
}

func TestLoginCmd_NoChallenge(t *testing.T) {
	wireFakes(t, newFakeAuth(), &fakeTransport{})

	out, err := execute(t, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in. Session state: authenticated")
	assert.Contains(t, out, "This client is trusted")
}

func Test2FACmd_NothingPending(t *testing.T) {
	wireFakes(t, newFakeAuth(), &fakeTransport{})

	out, err := execute(t, "2fa", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "No verification challenge pending.")
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2026-09-01 10:30")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = parseDate("next tuesday")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
