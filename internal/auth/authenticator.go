package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driving"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
	"github.com/altocloud-labs/icloud-cli/internal/retry"
	"github.com/altocloud-labs/icloud-cli/internal/services"
	"github.com/altocloud-labs/icloud-cli/internal/transport"
)

// harvestHeaders maps identity-endpoint response headers to session
// fields. Every authentication response is scanned for them.
var harvestHeaders = map[string]func(*domain.Session, string){
	"X-Apple-Session-Token":      func(s *domain.Session, v string) { s.SessionToken = v },
	"X-Apple-TwoSV-Trust-Token":  func(s *domain.Session, v string) { s.TrustToken = v },
	"X-Apple-ID-Session-Id":      func(s *domain.Session, v string) { s.SessionID = v },
	"X-Apple-ID-Account-Country": func(s *domain.Session, v string) { s.AccountCountry = v },
	"scnt":                       func(s *domain.Session, v string) { s.Scnt = v },
}

// wrongCodeMarker appears in the identity endpoint's body when a
// verification code is rejected.
const wrongCodeMarker = "-21669"

// cookieCarrier is implemented by transports that own a cookie jar,
// letting the authenticator persist and restore session cookies.
type cookieCarrier interface {
	CookieValues(rawurl string) map[string]string
	SetCookieValues(rawurl string, cookies map[string]string)
}

// Authenticator drives the login state machine and is the session's
// single writer.
type Authenticator struct {
	cfg       Config
	transport driven.Transport
	creds     driven.CredentialStore
	sessions  driven.SessionStore

	// mu guards session, challenge and cred.
	mu        sync.Mutex
	session   domain.Session
	challenge *domain.ChallengeState
	cred      *domain.Credential

	// authCache tracks which services completed their handshake within
	// the freshness window.
	authCache *cache.Cache
	// group coalesces concurrent handshakes per service; relogin
	// coalesces session-wide re-login transitions so at most one full
	// login is in flight at a time.
	group   singleflight.Group
	relogin singleflight.Group

	now func() time.Time
}

var _ driving.Authenticator = (*Authenticator)(nil)
var _ services.Authenticator = (*Authenticator)(nil)

// New creates an authenticator. The session starts unauthenticated;
// Login restores any persisted state.
func New(cfg Config, tp driven.Transport, creds driven.CredentialStore, sessions driven.SessionStore) *Authenticator {
	cfg = cfg.withDefaults()
	return &Authenticator{
		cfg:       cfg,
		transport: tp,
		creds:     creds,
		sessions:  sessions,
		session:   domain.NewSession(""),
		authCache: cache.New(cfg.FreshnessWindow, cfg.FreshnessWindow),
		now:       time.Now,
	}
}

// Login establishes a session from the stored credential. A persisted
// session token is validated first; only when that fails does the full
// sign-in run. When the identity endpoint demands a verification code,
// Login returns the current session together with
// domain.ErrChallengeRequired.
func (a *Authenticator) Login(ctx context.Context) (domain.Session, error) {
	cred, err := a.creds.Load(ctx)
	if err != nil {
		return a.Session(), fmt.Errorf("load credential: %w", err)
	}
	if !cred.Valid() {
		return a.Session(), fmt.Errorf("credential incomplete: %w", domain.ErrInvalidCredentials)
	}
	logger.AddSecret(cred.Password)

	a.restore(ctx, cred)

	a.mu.Lock()
	token := a.session.SessionToken
	a.mu.Unlock()

	if token != "" {
		if err := a.revalidate(ctx); err == nil {
			logger.Info("persisted session token still valid for %s", cred.AccountName)
			return a.Session(), nil
		}
		logger.Debug("persisted session token rejected, signing in from scratch")
		a.mu.Lock()
		a.session.SessionToken = ""
		a.mu.Unlock()
	}

	return a.fullLogin(ctx)
}

// SubmitVerificationCode answers the open challenge. A wrong code
// returns domain.ErrInvalidVerificationCode while attempts remain;
// spending the budget (or answering after expiry) returns
// domain.ErrChallengeExhausted and discards the challenge.
func (a *Authenticator) SubmitVerificationCode(ctx context.Context, code string) (domain.Session, error) {
	if code == "" {
		return a.Session(), fmt.Errorf("verification code required: %w", domain.ErrInvalidInput)
	}

	a.mu.Lock()
	ch := a.challenge
	if ch == nil {
		a.mu.Unlock()
		return a.Session(), fmt.Errorf("no verification challenge pending: %w", domain.ErrInvalidInput)
	}
	if ch.Expired(a.now()) {
		a.challenge = nil
		a.session.State = domain.StateUnauthenticated
		a.mu.Unlock()
		return a.Session(), fmt.Errorf("verification challenge expired: %w", domain.ErrChallengeExhausted)
	}
	a.mu.Unlock()

	resp, err := a.do(ctx, "POST", a.cfg.AuthEndpoint+"/verify/trusteddevice/securitycode",
		a.identityHeaders(), verifyCodeRequest{SecurityCode: securityCode{Code: code}})
	if err != nil {
		return a.Session(), err
	}

	if resp.StatusCode == http.StatusBadRequest || strings.Contains(string(resp.Body), wrongCodeMarker) {
		a.mu.Lock()
		spent := true
		if a.challenge != nil {
			a.challenge.Attempts++
			spent = a.challenge.Attempts >= MaxChallengeAttempts
		}
		if spent {
			a.challenge = nil
			a.session.State = domain.StateUnauthenticated
		}
		a.mu.Unlock()

		if spent {
			return a.Session(), fmt.Errorf("verification attempts spent: %w", domain.ErrChallengeExhausted)
		}
		return a.Session(), domain.ErrInvalidVerificationCode
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.Session(), transport.APIErrorFromResponse(a.cfg.AuthEndpoint, resp)
	}

	// Code accepted: request session trust so future logins skip the
	// challenge, then exchange the token for the account session.
	if err := a.trustSession(ctx); err != nil {
		return a.Session(), err
	}

	data, err := a.accountLogin(ctx)
	if err != nil {
		return a.Session(), err
	}

	a.mu.Lock()
	a.challenge = nil
	a.mu.Unlock()
	a.applySetup(ctx, data)
	return a.Session(), nil
}

// SendVerificationCode asks the account endpoint to deliver a code to
// the given trusted device.
func (a *Authenticator) SendVerificationCode(ctx context.Context, device domain.TrustedDevice) error {
	resp, err := a.do(ctx, "POST", a.cfg.SetupEndpoint+"/sendVerificationCode", a.identityHeaders(),
		deviceRecord{DeviceID: device.ID, DeviceName: device.Name, PhoneNumber: device.PhoneNumber})
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.APIErrorFromResponse(a.cfg.SetupEndpoint, resp)
	}

	var out sendCodeResponse
	if err := services.DecodeJSON(resp.Body, &out); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("service declined to send a code to device %q", device.ID)
	}
	return nil
}

// TrustedDevices lists the devices registered for verification codes
// and records them on the open challenge, if any.
func (a *Authenticator) TrustedDevices(ctx context.Context) ([]domain.TrustedDevice, error) {
	resp, err := a.do(ctx, "GET", a.cfg.SetupEndpoint+"/listDevices", a.identityHeaders(), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transport.APIErrorFromResponse(a.cfg.SetupEndpoint, resp)
	}

	var out listDevicesResponse
	if err := services.DecodeJSON(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	devices := make([]domain.TrustedDevice, 0, len(out.Devices))
	for _, d := range out.Devices {
		devices = append(devices, domain.TrustedDevice{ID: d.DeviceID, Name: d.DeviceName, PhoneNumber: d.PhoneNumber})
	}

	a.mu.Lock()
	if a.challenge != nil {
		a.challenge.Devices = devices
	}
	a.mu.Unlock()
	return devices, nil
}

// AuthenticateService performs the per-service handshake. Within the
// freshness window an already-authorized service is a no-op; force
// bypasses the cache. Concurrent callers for the same service coalesce
// into one network flight.
func (a *Authenticator) AuthenticateService(ctx context.Context, service string, force bool) error {
	if service == "" {
		return fmt.Errorf("service name required: %w", domain.ErrInvalidInput)
	}
	if !force && a.fresh(service) {
		return nil
	}

	_, err, _ := a.group.Do(service, func() (any, error) {
		// A concurrent flight may have refreshed while we queued.
		if !force && a.fresh(service) {
			return nil, nil
		}
		return nil, a.refreshService(ctx, service)
	})
	return err
}

// Session returns a read-only snapshot of the current session.
func (a *Authenticator) Session() domain.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Snapshot()
}

// State returns the current login state.
func (a *Authenticator) State() domain.SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.State
}

// Requires2FA reports whether a verification challenge is pending.
func (a *Authenticator) Requires2FA() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.challenge != nil
}

// IsTrustedSession reports whether the service trusts this client.
func (a *Authenticator) IsTrustedSession() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.TrustedBrowser
}

// restore seeds the session from persisted state for the credential's
// account.
func (a *Authenticator) restore(ctx context.Context, cred *domain.Credential) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cred = cred

	stored, err := a.sessions.Load(ctx, cred.AccountName)
	if err == nil && stored != nil {
		a.session = stored.Snapshot()
		// A restored session must re-prove itself.
		a.session.State = domain.StateUnauthenticated
		a.session.Authorized = make(map[string]bool)
		logger.Debug("restored persisted session for %s", cred.AccountName)
	} else {
		a.session = domain.NewSession("")
	}

	switch {
	case cred.ClientID != "":
		a.session.ClientID = cred.ClientID
	case a.session.ClientID == "":
		a.session.ClientID = "auth-" + uuid.NewString()
	}

	if carrier, ok := a.transport.(cookieCarrier); ok && len(a.session.Cookies) > 0 {
		carrier.SetCookieValues(a.cfg.SetupEndpoint, a.session.Cookies)
	}
}

// fullLogin runs the sign-in call and, when no challenge interposes,
// the account login.
func (a *Authenticator) fullLogin(ctx context.Context) (domain.Session, error) {
	a.mu.Lock()
	cred := a.cred
	trustToken := a.session.TrustToken
	a.mu.Unlock()
	if cred == nil {
		return a.Session(), fmt.Errorf("no credential loaded: %w", domain.ErrInvalidCredentials)
	}

	body := signinRequest{
		AccountName: cred.AccountName,
		Password:    cred.Password,
		RememberMe:  true,
		TrustTokens: []string{},
	}
	if trustToken != "" {
		body.TrustTokens = []string{trustToken}
	}

	url := a.cfg.AuthEndpoint + "/signin?isRememberMeEnabled=true"
	resp, err := a.do(ctx, "POST", url, a.identityHeaders(), body)
	if err != nil {
		return a.Session(), err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return a.Session(), fmt.Errorf("sign-in rejected: %w", domain.ErrInvalidCredentials)

	case resp.StatusCode == http.StatusConflict:
		// Credentials accepted, verification code required.
		a.mu.Lock()
		a.session.State = domain.StateChallengeRequired
		a.challenge = &domain.ChallengeState{ExpiresAt: a.now().Add(challengeTTL)}
		a.mu.Unlock()
		a.persist(ctx)
		return a.Session(), domain.ErrChallengeRequired

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return a.Session(), transport.APIErrorFromResponse(url, resp)
	}

	data, err := a.accountLogin(ctx)
	if err != nil {
		return a.Session(), err
	}

	if data.HsaChallengeRequired && !data.HsaTrustedBrowser {
		a.mu.Lock()
		a.session.State = domain.StateChallengeRequired
		a.challenge = &domain.ChallengeState{ExpiresAt: a.now().Add(challengeTTL)}
		a.mu.Unlock()
		a.persist(ctx)
		return a.Session(), domain.ErrChallengeRequired
	}

	a.applySetup(ctx, data)
	return a.Session(), nil
}

// revalidate checks the persisted session token against the account
// endpoint and adopts the returned catalog when it is still good.
func (a *Authenticator) revalidate(ctx context.Context) error {
	// The endpoint expects a literal JSON null body on validate.
	resp, err := a.do(ctx, "POST", a.cfg.SetupEndpoint+"/validate", a.identityHeaders(), json.RawMessage("null"))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.APIErrorFromResponse(a.cfg.SetupEndpoint, resp)
	}

	var data setupResponse
	if err := services.DecodeJSON(resp.Body, &data); err != nil {
		return fmt.Errorf("validate session: %w", err)
	}

	a.applySetup(ctx, &data)
	return nil
}

// accountLogin exchanges the identity session token for the account
// session and web-service catalog.
func (a *Authenticator) accountLogin(ctx context.Context) (*setupResponse, error) {
	a.mu.Lock()
	body := accountLoginRequest{
		AccountCountryCode: a.session.AccountCountry,
		DsWebAuthToken:     a.session.SessionToken,
		ExtendedLogin:      true,
		TrustToken:         a.session.TrustToken,
	}
	a.mu.Unlock()

	resp, err := a.do(ctx, "POST", a.cfg.SetupEndpoint+"/accountLogin", a.identityHeaders(), body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("account login rejected: %w", domain.ErrSessionExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transport.APIErrorFromResponse(a.cfg.SetupEndpoint, resp)
	}

	var data setupResponse
	if err := services.DecodeJSON(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("account login: %w", err)
	}
	return &data, nil
}

// trustSession asks the identity endpoint to trust this client; the
// response carries the long-lived trust token.
func (a *Authenticator) trustSession(ctx context.Context) error {
	resp, err := a.do(ctx, "GET", a.cfg.AuthEndpoint+"/2sv/trust", a.identityHeaders(), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transport.APIErrorFromResponse(a.cfg.AuthEndpoint, resp)
	}

	a.mu.Lock()
	a.session.State = domain.StateTrustEstablished
	a.mu.Unlock()
	return nil
}

// applySetup adopts an account-login/validate response: catalog, dsid,
// trust flag, authenticated state. Per-service flags are left alone;
// they reset only on a fresh login (restore) or on invalidate, so a
// handshake for one service never de-authorizes another.
func (a *Authenticator) applySetup(ctx context.Context, data *setupResponse) {
	a.mu.Lock()
	ws := make(map[string]string, len(data.Webservices))
	for name, svc := range data.Webservices {
		if svc.URL == "" {
			continue
		}
		ws[name] = svc.URL
	}
	a.session.WebServices = ws
	a.session.DsID = data.DsInfo.Dsid.String()
	a.session.TrustedBrowser = data.HsaTrustedBrowser
	if a.session.Authorized == nil {
		a.session.Authorized = make(map[string]bool)
	}
	a.session.State = domain.StateAuthenticated
	if a.session.CreatedAt.IsZero() {
		a.session.CreatedAt = a.now()
	}
	a.session.LastValidated = a.now()
	a.mu.Unlock()

	a.persist(ctx)
}

// fresh reports whether the service's handshake is cached and the
// session still authorizes it.
func (a *Authenticator) fresh(service string) bool {
	if _, ok := a.authCache.Get(service); !ok {
		return false
	}
	sess := a.Session()
	return sess.IsAuthenticated() && sess.ServiceAuthorized(service)
}

// refreshService runs one service handshake, falling back to a silent
// trust-token re-login when the base token has been rejected.
func (a *Authenticator) refreshService(ctx context.Context, service string) error {
	a.mu.Lock()
	token := a.session.SessionToken
	a.mu.Unlock()

	if token == "" {
		return a.silentRelogin(ctx, service, token)
	}

	data, err := a.accountLogin(ctx)
	if err != nil {
		if services.Classify(err) == retry.AuthExpired {
			logger.Info("session token rejected during %s handshake", service)
			return a.silentRelogin(ctx, service, token)
		}
		return err
	}

	a.applySetup(ctx, data)
	a.markAuthorized(ctx, service)
	return nil
}

// silentRelogin re-establishes an expired session without user
// interaction, which only works while a trust token is held. Anything
// else surfaces domain.ErrSessionExpired for an explicit re-login.
// Callers that observed the same rejected token share one login
// flight; a flight queued behind a successful one finds the token
// already replaced and does nothing.
func (a *Authenticator) silentRelogin(ctx context.Context, service, staleToken string) error {
	a.mu.Lock()
	trusted := a.session.TrustToken != ""
	hasCred := a.cred != nil
	a.mu.Unlock()

	if !trusted || !hasCred {
		if staleToken != "" {
			a.invalidate(ctx)
		}
		return fmt.Errorf("service %s: %w", service, domain.ErrSessionExpired)
	}

	_, err, _ := a.relogin.Do("session", func() (any, error) {
		a.mu.Lock()
		current := a.session.SessionToken
		a.mu.Unlock()
		if current != staleToken && current != "" {
			return nil, nil
		}

		a.invalidate(ctx)
		logger.Info("attempting silent re-login with trust token")
		_, err := a.fullLogin(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("silent re-login failed (%v): %w", err, domain.ErrSessionExpired)
	}
	a.markAuthorized(ctx, service)
	return nil
}

// markAuthorized flags the service, refreshes the freshness cache and
// persists.
func (a *Authenticator) markAuthorized(ctx context.Context, service string) {
	a.mu.Lock()
	a.session.Authorized[service] = true
	a.session.LastValidated = a.now()
	a.mu.Unlock()

	a.authCache.Set(service, a.now(), cache.DefaultExpiration)
	a.persist(ctx)
}

// invalidate expires the session and empties the freshness cache.
func (a *Authenticator) invalidate(ctx context.Context) {
	a.mu.Lock()
	a.session.Invalidate()
	a.mu.Unlock()

	a.authCache.Flush()
	a.persist(ctx)
}

// persist saves the session (and the transport's cookies) for the
// current account. Persistence failures are logged, not fatal: the
// in-memory session stays correct.
func (a *Authenticator) persist(ctx context.Context) {
	a.mu.Lock()
	cred := a.cred
	if cred == nil {
		a.mu.Unlock()
		return
	}
	if carrier, ok := a.transport.(cookieCarrier); ok {
		a.session.Cookies = carrier.CookieValues(a.cfg.SetupEndpoint)
	}
	account := cred.AccountName
	snapshot := a.session.Snapshot()
	a.mu.Unlock()

	if err := a.sessions.Save(ctx, account, snapshot); err != nil {
		logger.Warn("failed to persist session for %s: %v", account, err)
	}
}

// identityHeaders builds the headers every identity/account call
// carries, echoing the endpoint's continuation headers when present.
func (a *Authenticator) identityHeaders() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := map[string]string{
		"Accept":                           "application/json",
		"Content-Type":                     "application/json",
		"Origin":                           homeEndpoint,
		"Referer":                          homeEndpoint + "/",
		"X-Apple-OAuth-Client-Id":          oauthClientID,
		"X-Apple-OAuth-Client-Type":        "firstPartyAuth",
		"X-Apple-OAuth-Redirect-URI":       homeEndpoint,
		"X-Apple-OAuth-Require-Grant-Code": "true",
		"X-Apple-OAuth-Response-Mode":      "web_message",
		"X-Apple-OAuth-Response-Type":      "code",
		"X-Apple-OAuth-State":              a.session.ClientID,
		"X-Apple-Widget-Key":               oauthClientID,
	}
	if a.session.Scnt != "" {
		h["scnt"] = a.session.Scnt
	}
	if a.session.SessionID != "" {
		h["X-Apple-ID-Session-Id"] = a.session.SessionID
	}
	return h
}

// do issues one authentication call under the retry policy. Transient
// statuses (5xx, 429) are retried; everything else is returned to the
// caller for flow-specific handling. Continuation headers are
// harvested from every response.
func (a *Authenticator) do(ctx context.Context, method, url string, headers map[string]string, body any) (*driven.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = marshalBody(body)
		if err != nil {
			return nil, err
		}
	}

	var resp *driven.Response
	op := func(ctx context.Context) error {
		r, err := a.transport.Send(ctx, driven.Request{
			Method: method,
			URL:    url,
			Header: headers,
			Body:   payload,
		})
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return transport.APIErrorFromResponse(url, r)
		}
		resp = r
		return nil
	}

	if err := a.cfg.Retry.Execute(ctx, op, loginClassify); err != nil {
		return nil, err
	}

	a.harvest(resp)
	return resp, nil
}

// loginClassify is the retry classifier for identity/account calls:
// server faults and throttling retry, everything else short-circuits.
func loginClassify(err error) retry.Class {
	switch {
	case transport.IsTimeout(err),
		transport.IsConnectionFailure(err),
		transport.IsTLSFailure(err):
		return retry.Transient
	case transport.IsRateLimited(err):
		return retry.RateLimited
	case transport.StatusOf(err) >= 500:
		return retry.Transient
	default:
		return retry.Fatal
	}
}

func marshalBody(body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

// harvest copies the identity endpoint's continuation headers into the
// session.
func (a *Authenticator) harvest(resp *driven.Response) {
	if resp == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for header, apply := range harvestHeaders {
		if v := resp.Header.Get(header); v != "" {
			apply(&a.session, v)
		}
	}
}
