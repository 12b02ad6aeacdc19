// Package api wraps the portal's REST surface. Every call is single-shot:
// no automatic retries, and local validation failures never reach the wire.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/liberianpost/healthgate/core"
)

// DefaultTimeout bounds a single request round-trip.
const DefaultTimeout = 30 * time.Second

// BearerFunc supplies the current access token, or "" when the caller is
// unauthenticated.
type BearerFunc func(ctx context.Context) string

// Config configures a Client.
type Config struct {
	// BaseURL is the portal API root, e.g. https://host:8081/api/health
	BaseURL string

	// Timeout bounds each request; DefaultTimeout when zero
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client

	// Bearer supplies the access token for authenticated routes
	Bearer BearerFunc

	// OnAuthExpired runs once per 401 response, before the error returns.
	// The authenticator uses it to clear the persisted session.
	OnAuthExpired func()
}

// Client issues JSON requests against the portal API.
type Client struct {
	base          string
	http          *http.Client
	bearer        BearerFunc
	onAuthExpired func()
}

// NewClient creates a portal API client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:          strings.TrimRight(cfg.BaseURL, "/"),
		http:          httpClient,
		bearer:        cfg.Bearer,
		onAuthExpired: cfg.OnAuthExpired,
	}
}

// VerifyDSSN pre-checks a DSSN against the scope-specific verification
// endpoint. The DSSN is validated locally first; malformed input fails
// before any network call.
func (c *Client) VerifyDSSN(ctx context.Context, dssn string, scope core.Scope) (*VerifyResult, error) {
	parsed, err := core.ParseDSSN(dssn)
	if err != nil {
		return nil, err
	}
	var out VerifyResult
	body := map[string]string{"dssn": parsed.String()}
	if err := c.post(ctx, "/verify-dssn/"+scope.PathSegment(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login is the basic password login returning a bare token.
func (c *Client) Login(ctx context.Context, dssn, password string, scope core.Scope) (*LoginResult, error) {
	parsed, err := core.ParseDSSN(dssn)
	if err != nil {
		return nil, err
	}
	var out LoginResult
	body := map[string]string{"dssn": parsed.String(), "password": password}
	if err := c.post(ctx, "/login/"+scope.PathSegment(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProfessionalLogin is the enhanced login returning a token pair and a
// server-side session.
func (c *Client) ProfessionalLogin(ctx context.Context, dssn, password string, scope core.Scope, rememberMe bool) (*LoginResult, error) {
	parsed, err := core.ParseDSSN(dssn)
	if err != nil {
		return nil, err
	}
	var out LoginResult
	body := map[string]any{
		"dssn":       parsed.String(),
		"password":   password,
		"moduleType": scope.String(),
		"rememberMe": rememberMe,
	}
	if err := c.post(ctx, "/professional/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestMobileAuth asks the backend to create a mobile-approval challenge
// and push it to the device identified by fcmToken.
func (c *Client) RequestMobileAuth(ctx context.Context, dssn string, scope core.Scope, fcmToken string) (*MobileAuthResult, error) {
	parsed, err := core.ParseDSSN(dssn)
	if err != nil {
		return nil, err
	}
	if fcmToken == "" {
		return nil, core.ErrMissingPushToken
	}
	var out MobileAuthResult
	body := map[string]string{
		"dssn":       parsed.String(),
		"moduleType": scope.String(),
		"fcmToken":   fcmToken,
	}
	if err := c.post(ctx, "/professional/mobile-auth", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MobileAuthStatus polls one challenge's lifecycle state.
func (c *Client) MobileAuthStatus(ctx context.Context, challengeID string) (*StatusResult, error) {
	var out StatusResult
	if err := c.get(ctx, "/mobile-auth/status/"+url.PathEscape(challengeID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterProfessional submits a registration draft to the public
// registration endpoint. The draft must already have passed wizard
// validation; only the DSSN shape is re-checked here as a last gate.
func (c *Client) RegisterProfessional(ctx context.Context, draft core.RegistrationDraft) (*RegisterResult, error) {
	if _, err := core.ParseDSSN(draft.DSSN); err != nil {
		return nil, err
	}
	var out RegisterResult
	if err := c.post(ctx, "/register-professional", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateSession checks whether a persisted session id is still accepted.
func (c *Client) ValidateSession(ctx context.Context, sessionID string) (*ValidateResult, error) {
	var out ValidateResult
	body := map[string]string{"sessionId": sessionID}
	if err := c.post(ctx, "/professional/validate-session", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates a server-side session.
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	body := map[string]string{"sessionId": sessionID}
	var out ValidateResult
	return c.post(ctx, "/professional/logout", body, &out)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var out RefreshResult
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.post(ctx, "/professional/refresh-token", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard fetches the professional dashboard.
func (c *Client) Dashboard(ctx context.Context) (*DashboardData, error) {
	var out DashboardData
	if err := c.get(ctx, "/professional/dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the authenticated professional's profile.
func (c *Client) Profile(ctx context.Context) (*core.Profile, error) {
	var out struct {
		Success      bool          `json:"success"`
		Professional *core.Profile `json:"professional"`
	}
	if err := c.get(ctx, "/professional/profile", &out); err != nil {
		return nil, err
	}
	return out.Professional, nil
}

// AccessLogs fetches the most recent access log entries.
func (c *Client) AccessLogs(ctx context.Context, limit int) (*LogsResult, error) {
	var out LogsResult
	if err := c.get(ctx, "/access-logs?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivityLogs fetches a page of the professional's activity log.
func (c *Client) ActivityLogs(ctx context.Context, limit, offset int) (*LogsResult, error) {
	path := fmt.Sprintf("/professional/activity-logs?limit=%d&offset=%d", limit, offset)
	var out LogsResult
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingProfessionals lists registrations awaiting admin review.
func (c *Client) PendingProfessionals(ctx context.Context) (*PendingResult, error) {
	var out PendingResult
	if err := c.get(ctx, "/admin/pending-professionals", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyProfessionalAdmin records an admin decision on a pending
// registration.
func (c *Client) VerifyProfessionalAdmin(ctx context.Context, professionalID, status string, permissions []string) error {
	body := map[string]any{
		"professionalId": professionalID,
		"status":         status,
		"permissions":    permissions,
	}
	var out RegisterResult
	return c.post(ctx, "/admin/verify-professional", body, &out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.bearer != nil {
		if token := c.bearer(req.Context()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &core.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
		return core.ErrAuthExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &core.RemoteError{
			Status:  resp.StatusCode,
			Message: serverMessage(data),
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// serverMessage pulls the human-readable message out of an error payload.
// The backend uses both "message" and "error" across revisions.
func serverMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
