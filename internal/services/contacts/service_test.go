package contacts

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

const startupBody = `{
	"contacts": [
		{"contactId": "CT1", "firstName": "Ada", "lastName": "Lovelace",
		 "emailAddresses": [{"field": "ada@example.com", "label": "HOME"}],
		 "phones": [{"field": "+31612345678", "label": "MOBILE"}], "etag": "e1"},
		{"contactId": "CT2", "companyName": "Altocloud"}
	],
	"meCardId": "CT1"
}`

const emptyStartupBody = `{"contacts": [], "meCardId": ""}`

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
		WebServices:  map[string]string{"contacts": "https://p31-contactsws.example.com"},
		Authorized:   map[string]bool{"contacts": true},
	}
}

func newTestService(responses ...canned) (*Service, *fakeTransport) {
	tp := &fakeTransport{responses: responses}
	policy := retry.Policy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
	return NewService(services.NewCaller(services.Contacts, tp, fakeAuth{}, policy, "UTC")), tp
}

func TestAll(t *testing.T) {
	s, tp := newTestService(canned{200, startupBody})

	all, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "Ada Lovelace", all[0].DisplayName())
	assert.Equal(t, []string{"ada@example.com"}, all[0].Emails)
	assert.Equal(t, []string{"+31612345678"}, all[0].Phones)
	assert.Equal(t, "Altocloud", all[1].DisplayName())

	req := tp.requests[0]
	assert.Contains(t, req.URL, "/co/startup")
	assert.Equal(t, "last,first", req.Query.Get("order"))
	assert.Equal(t, "en_US", req.Query.Get("locale"))

	// Second listing is answered from cache.
	_, err = s.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, tp.requests, 1)
}

func TestByID(t *testing.T) {
	s, _ := newTestService(canned{200, startupBody})

	c, err := s.ByID(context.Background(), "CT2")
	require.NoError(t, err)
	assert.Equal(t, "Altocloud", c.Company)

	_, err = s.ByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMe(t *testing.T) {
	s, _ := newTestService(canned{200, startupBody})

	me, err := s.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CT1", me.ID)
}

func TestMe_Absent(t *testing.T) {
	s, _ := newTestService(canned{200, `{"contacts": [{"contactId": "CT9"}]}`})

	_, err := s.Me(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefresh_SpuriouslyEmptyListing(t *testing.T) {
	s, tp := newTestService(
		canned{200, startupBody},
		canned{200, emptyStartupBody},
		canned{200, emptyStartupBody},
	)

	require.NoError(t, s.Refresh(context.Background()))

	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrInconsistentListing)
	assert.Len(t, tp.requests, 3)
}

func TestRefresh_FormatMismatch(t *testing.T) {
	s, tp := newTestService(canned{200, "not json at all"})

	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrFormatMismatch)
	assert.Len(t, tp.requests, 1)
}
