package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/liberianpost/healthgate/api"
	"github.com/liberianpost/healthgate/core"
	"github.com/liberianpost/healthgate/ports"
)

// Config wires an Authenticator.
type Config struct {
	// BaseURL is the portal API root
	BaseURL string

	// HTTPTimeout bounds each API call; api.DefaultTimeout when zero
	HTTPTimeout time.Duration

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client

	// Store persists credential material across restarts
	Store ports.SessionStore

	// Events receives auth lifecycle events; may be nil
	Events ports.EventPublisher

	// Push supplies the device push token for mobile login
	Push ports.PushTokenSource

	// PollInterval and PollTimeout configure mobile-login polling;
	// zero values fall back to the package defaults
	PollInterval time.Duration
	PollTimeout  time.Duration

	Logger watermill.LoggerAdapter
}

// Authenticator orchestrates the login flows and owns the in-memory
// session mirror. All durable state goes through the SessionStore.
type Authenticator struct {
	api    *api.Client
	store  ports.SessionStore
	events ports.EventPublisher
	push   ports.PushTokenSource
	logger watermill.LoggerAdapter

	pollInterval time.Duration
	pollTimeout  time.Duration

	mu      sync.RWMutex
	session *core.Session
}

// New creates an Authenticator and its underlying API client. The client's
// 401 hook is wired to clear the persisted session so no stale credentials
// survive an expired authentication.
func New(cfg Config) *Authenticator {
	logger := cfg.Logger
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	a := &Authenticator{
		store:        cfg.Store,
		events:       cfg.Events,
		push:         cfg.Push,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
	a.api = api.NewClient(api.Config{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.HTTPTimeout,
		HTTPClient:    cfg.HTTPClient,
		Bearer:        a.bearer,
		OnAuthExpired: a.onAuthExpired,
	})
	return a
}

// API exposes the underlying client for read-only portal calls.
func (a *Authenticator) API() *api.Client {
	return a.api
}

// Session returns the in-memory session, or nil when unauthenticated.
func (a *Authenticator) Session() *core.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Rehydrate restores the session from durable storage on startup. A
// partial or unparseable record clears every session key and leaves the
// client unauthenticated; it never yields a half-logged-in state.
func (a *Authenticator) Rehydrate(ctx context.Context) (*core.Session, error) {
	token, err := a.store.Get(ctx, ports.KeyToken)
	if err != nil {
		return nil, a.clearOnPartial(ctx, err)
	}
	rawUser, err := a.store.Get(ctx, ports.KeyUser)
	if err != nil {
		return nil, a.clearOnPartial(ctx, err)
	}
	sessionID, err := a.store.Get(ctx, ports.KeySession)
	if err != nil {
		return nil, a.clearOnPartial(ctx, err)
	}

	var user core.Profile
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, a.clearOnPartial(ctx, err)
	}

	sess := &core.Session{
		AccessToken: token,
		SessionID:   sessionID,
		User:        user,
	}
	// Refresh token is optional; ignore its absence.
	if refresh, err := a.store.Get(ctx, ports.KeyRefreshToken); err == nil {
		sess.RefreshToken = refresh
	}
	if !sess.Complete() {
		return nil, a.clearOnPartial(ctx, errors.New("incomplete session record"))
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	return sess, nil
}

func (a *Authenticator) clearOnPartial(ctx context.Context, cause error) error {
	var notFound *ports.KeyNotFoundError
	if err := a.clearLocal(ctx); err != nil {
		return err
	}
	if errors.As(cause, &notFound) {
		// Plain "not logged in", not a failure.
		return nil
	}
	a.logger.Info("discarded unreadable session state", watermill.LogFields{"cause": cause.Error()})
	return nil
}

// PasswordLogin performs the enhanced professional login and persists the
// resulting session.
func (a *Authenticator) PasswordLogin(ctx context.Context, dssn, password string, scope core.Scope, rememberMe bool) (*core.Session, error) {
	res, err := a.api.ProfessionalLogin(ctx, dssn, password, scope, rememberMe)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.Tokens == nil || res.User == nil || res.Session == nil {
		return nil, &core.RemoteError{Status: http.StatusOK, Message: res.Message}
	}

	sess := &core.Session{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		SessionID:    res.Session.SessionID,
		User:         *res.User,
	}
	if err := a.persist(ctx, sess); err != nil {
		return nil, err
	}
	a.publishLogin(ctx, sess)
	return sess, nil
}

// StartMobileLogin requests a mobile-approval challenge and returns a
// running poller plus the push delivery status. The push token must
// already be present; without one this fails before any network call.
func (a *Authenticator) StartMobileLogin(ctx context.Context, dssn string, scope core.Scope) (*Poller, *core.PushDelivery, error) {
	if _, err := core.ParseDSSN(dssn); err != nil {
		return nil, nil, err
	}

	fcmToken := ""
	if a.push != nil {
		token, err := a.push.PushToken(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("acquire push token: %w", err)
		}
		fcmToken = token
	}
	if fcmToken == "" {
		return nil, nil, core.ErrMissingPushToken
	}

	res, err := a.api.RequestMobileAuth(ctx, dssn, scope, fcmToken)
	if err != nil {
		return nil, nil, err
	}
	if !res.Success || res.ChallengeID == "" {
		return nil, nil, &core.RemoteError{Status: http.StatusOK, Message: res.Message}
	}

	poller := NewPoller(res.ChallengeID, a.api.MobileAuthStatus, a.pollInterval, a.pollTimeout, a.logger)
	poller.Start(ctx)
	return poller, res.PushNotification, nil
}

// CompleteMobileLogin persists the session carried by an approved outcome.
// Non-approved outcomes return their terminal error value.
func (a *Authenticator) CompleteMobileLogin(ctx context.Context, dssn string, outcome Outcome) (*core.Session, error) {
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	if outcome.State != PollApproved || outcome.Token == "" {
		return nil, fmt.Errorf("challenge %s resolved without credentials", outcome.ChallengeID)
	}

	user := core.Profile{DSSN: core.DSSN(dssn)}
	if outcome.User != nil {
		user = *outcome.User
	}
	// Backends that report no session resource fall back to the approved
	// challenge id; such sessions cannot be validated server-side.
	sessionID := outcome.SessionID
	if sessionID == "" {
		sessionID = outcome.ChallengeID
	}
	sess := &core.Session{
		AccessToken: outcome.Token,
		SessionID:   sessionID,
		User:        user,
	}
	if err := a.persist(ctx, sess); err != nil {
		return nil, err
	}
	a.publishLogin(ctx, sess)
	return sess, nil
}

// MobileLogin runs the whole mobile flow: challenge request, poll to a
// terminal state, session persistence. It blocks until the flow resolves
// or ctx is cancelled; cancellation disposes the poller.
func (a *Authenticator) MobileLogin(ctx context.Context, dssn string, scope core.Scope) (*core.Session, *core.PushDelivery, error) {
	poller, delivery, err := a.StartMobileLogin(ctx, dssn, scope)
	if err != nil {
		return nil, nil, err
	}
	defer poller.Dispose()

	select {
	case <-ctx.Done():
		return nil, delivery, ctx.Err()
	case outcome := <-poller.Done():
		sess, err := a.CompleteMobileLogin(ctx, dssn, outcome)
		if err != nil {
			return nil, delivery, err
		}
		return sess, delivery, nil
	}
}

// ValidateSession checks the persisted session id against the backend. A
// rejected session clears local state.
func (a *Authenticator) ValidateSession(ctx context.Context) (bool, error) {
	sess := a.Session()
	if sess == nil {
		return false, nil
	}
	res, err := a.api.ValidateSession(ctx, sess.SessionID)
	if err != nil || !res.Success {
		if clearErr := a.clearLocal(ctx); clearErr != nil {
			return false, clearErr
		}
		return false, err
	}
	return true, nil
}

// Refresh exchanges the stored refresh token for a new token pair. Any
// failure clears the session; the user must log in again.
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	sess := a.Session()
	if sess == nil || sess.RefreshToken == "" {
		return "", core.ErrNoSession
	}
	res, err := a.api.RefreshToken(ctx, sess.RefreshToken)
	if err != nil || !res.Success || res.Tokens == nil {
		if clearErr := a.clearLocal(ctx); clearErr != nil {
			return "", clearErr
		}
		if err == nil {
			err = core.ErrAuthExpired
		}
		return "", err
	}

	a.mu.Lock()
	if a.session != nil {
		a.session.AccessToken = res.Tokens.AccessToken
		if res.Tokens.RefreshToken != "" {
			a.session.RefreshToken = res.Tokens.RefreshToken
		}
		sess = a.session
	}
	a.mu.Unlock()

	if err := a.store.Set(ctx, ports.KeyToken, res.Tokens.AccessToken); err != nil {
		return "", err
	}
	if res.Tokens.RefreshToken != "" {
		if err := a.store.Set(ctx, ports.KeyRefreshToken, res.Tokens.RefreshToken); err != nil {
			return "", err
		}
	}
	return res.Tokens.AccessToken, nil
}

// Logout invalidates the server-side session best-effort, then
// unconditionally clears local state.
func (a *Authenticator) Logout(ctx context.Context) error {
	sess := a.Session()
	if sess != nil && sess.SessionID != "" {
		if err := a.api.Logout(ctx, sess.SessionID); err != nil && !errors.Is(err, core.ErrAuthExpired) {
			// Local clear still happens; the server session will expire on
			// its own.
			a.logger.Info("server logout failed", watermill.LogFields{"error": err.Error()})
		}
	}
	if err := a.clearLocal(ctx); err != nil {
		return err
	}
	if sess != nil && a.events != nil {
		if err := a.events.PublishLogout(ctx, sess.User.DSSN.String(), sess.SessionID); err != nil {
			a.logger.Info("logout event publish failed", watermill.LogFields{"error": err.Error()})
		}
	}
	return nil
}

func (a *Authenticator) persist(ctx context.Context, sess *core.Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := a.store.Set(ctx, ports.KeyToken, sess.AccessToken); err != nil {
		return err
	}
	if err := a.store.Set(ctx, ports.KeyUser, string(rawUser)); err != nil {
		return err
	}
	if err := a.store.Set(ctx, ports.KeySession, sess.SessionID); err != nil {
		return err
	}
	if sess.RefreshToken != "" {
		if err := a.store.Set(ctx, ports.KeyRefreshToken, sess.RefreshToken); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	return nil
}

func (a *Authenticator) clearLocal(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	return a.store.Clear(ctx)
}

func (a *Authenticator) bearer(ctx context.Context) string {
	if sess := a.Session(); sess != nil {
		return sess.AccessToken
	}
	// Fall back to durable storage so bare API use works before Rehydrate.
	if token, err := a.store.Get(ctx, ports.KeyToken); err == nil {
		return token
	}
	return ""
}

// onAuthExpired is the 401 hook: the in-browser original forced a page
// reload after wiping localStorage; here the equivalent is dropping every
// trace of the session before the error surfaces to the caller.
func (a *Authenticator) onAuthExpired() {
	if err := a.clearLocal(context.Background()); err != nil {
		a.logger.Error("session clear after 401 failed", err, nil)
	}
}

func (a *Authenticator) publishLogin(ctx context.Context, sess *core.Session) {
	if a.events == nil {
		return
	}
	if err := a.events.PublishLogin(ctx, sess.User.DSSN.String(), sess.SessionID); err != nil {
		a.logger.Info("login event publish failed", watermill.LogFields{"error": err.Error()})
	}
}
