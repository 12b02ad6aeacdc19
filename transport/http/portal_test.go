package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liberianpost/healthgate/adapters/push"
	"github.com/liberianpost/healthgate/adapters/store"
	"github.com/liberianpost/healthgate/auth"
	"github.com/liberianpost/healthgate/core"
)

const (
	proDSSN   = "ABC123DEF456GHI"
	plainDSSN = "XYZ987WVU654TSR321"
)

func newTestPortal(t *testing.T, challengeTTL time.Duration) (*Portal, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	portal := NewPortal(NewTokenizer(key), nil, challengeTTL)
	portal.AddUser(DirectoryUser{
		Profile: core.Profile{
			DSSN:      proDSSN,
			FirstName: "Miatta",
			LastName:  "Kollie",
			Email:     "miatta@example.lr",
		},
		Password:       "s3cret",
		PushToken:      "device-token",
		IsProfessional: true,
		Approved:       true,
	})
	portal.AddUser(DirectoryUser{
		Profile:  core.Profile{DSSN: plainDSSN, FirstName: "Joseph", LastName: "Doe"},
		Password: "s3cret",
	})

	srv := httptest.NewServer(SetupRouter(portal))
	t.Cleanup(srv.Close)
	return portal, srv
}

func newSDK(srvURL, pushToken string) *auth.Authenticator {
	return auth.New(auth.Config{
		BaseURL:      srvURL,
		Store:        store.NewMemoryStore(),
		Push:         push.StaticSource(pushToken),
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  time.Second,
	})
}

func TestPasswordLoginEndToEnd(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")
	ctx := context.Background()

	sess, err := sdk.PasswordLogin(ctx, proDSSN, "s3cret", core.ScopePatientRecords, false)
	require.NoError(t, err)
	assert.Equal(t, "Miatta", sess.User.FirstName)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.NotEmpty(t, sess.SessionID)

	ok, err := sdk.ValidateSession(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// The issued bearer opens the authenticated surface.
	dash, err := sdk.API().Dashboard(ctx)
	require.NoError(t, err)
	require.NotNil(t, dash.Professional)
	assert.Equal(t, proDSSN, dash.Professional.DSSN.String())

	require.NoError(t, sdk.Logout(ctx))
	assert.Nil(t, sdk.Session())
}

func TestPasswordLoginWrongPassword(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")

	_, err := sdk.PasswordLogin(context.Background(), proDSSN, "wrong", core.ScopePatientRecords, false)
	assert.ErrorIs(t, err, core.ErrAuthExpired)
}

func TestNonProfessionalRejected(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")

	_, err := sdk.PasswordLogin(context.Background(), plainDSSN, "s3cret", core.ScopePatientRecords, false)
	var remote *core.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, nethttp.StatusForbidden, remote.Status)
}

func TestMobileLoginApprovedEndToEnd(t *testing.T) {
	portal, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "device-token")
	ctx := context.Background()

	poller, delivery, err := sdk.StartMobileLogin(ctx, proDSSN, core.ScopePatientRecords)
	require.NoError(t, err)
	defer poller.Dispose()
	require.NotNil(t, delivery)
	assert.True(t, delivery.Sent)

	id := approveViaDevEndpoint(t, srv.URL, challengeID(portal))

	outcome := <-poller.Done()
	require.Equal(t, auth.PollApproved, outcome.State)
	assert.Equal(t, id, outcome.ChallengeID)

	sess, err := sdk.CompleteMobileLogin(ctx, proDSSN, outcome)
	require.NoError(t, err)
	assert.Equal(t, "Miatta", sess.User.FirstName)
	// The approved status carries the real server session, not the
	// challenge id, so validation and logout work like any other session.
	assert.NotEqual(t, outcome.ChallengeID, sess.SessionID)

	ok, err := sdk.ValidateSession(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	dash, err := sdk.API().Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, dash.Success)

	require.NoError(t, sdk.Logout(ctx))
	assert.Nil(t, sdk.Session())
}

func TestMobileLoginDeniedEndToEnd(t *testing.T) {
	portal, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "device-token")

	poller, _, err := sdk.StartMobileLogin(context.Background(), proDSSN, core.ScopePatientRecords)
	require.NoError(t, err)
	defer poller.Dispose()

	require.True(t, portal.ResolveChallenge(context.Background(), challengeID(portal), core.StatusDenied))

	outcome := <-poller.Done()
	assert.Equal(t, auth.PollDenied, outcome.State)
	assert.ErrorIs(t, outcome.Err(), core.ErrMobileAuthDenied)
}

func TestMobileChallengeExpires(t *testing.T) {
	portal, srv := newTestPortal(t, 20*time.Millisecond)
	sdk := newSDK(srv.URL, "device-token")

	poller, _, err := sdk.StartMobileLogin(context.Background(), proDSSN, core.ScopePatientRecords)
	require.NoError(t, err)
	defer poller.Dispose()

	outcome := <-poller.Done()
	assert.Equal(t, auth.PollExpired, outcome.State)

	// An expired challenge can no longer be approved.
	assert.False(t, portal.ResolveChallenge(context.Background(), outcome.ChallengeID, core.StatusApproved))
}

func TestRefreshTokenEndToEnd(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")
	ctx := context.Background()

	first, err := sdk.PasswordLogin(ctx, proDSSN, "s3cret", core.ScopePatientRecords, true)
	require.NoError(t, err)

	token, err := sdk.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, first.AccessToken, token)

	dash, err := sdk.API().Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, dash.Success)
}

func TestLogoutInvalidatesBearer(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")
	ctx := context.Background()

	sess, err := sdk.PasswordLogin(ctx, proDSSN, "s3cret", core.ScopePatientRecords, false)
	require.NoError(t, err)

	// Keep the bearer after logout to confirm the server side rejects it.
	staleToken := sess.AccessToken
	require.NoError(t, sdk.Logout(ctx))

	req, err := nethttp.NewRequest(nethttp.MethodGet, srv.URL+"/professional/dashboard", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+staleToken)
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareRejectsMissingBearer(t *testing.T) {
	_, srv := newTestPortal(t, 0)

	resp, err := nethttp.Get(srv.URL + "/professional/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestRegistrationLifecycle(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")
	ctx := context.Background()

	draft := core.RegistrationDraft{
		DSSN:             plainDSSN,
		ProfessionalType: core.ProfessionalNurse,
		LicenseNumber:    "RN-2026-042",
		LicenseExpiry:    time.Now().AddDate(2, 0, 0).Format("2006-01-02"),
		FacilityName:     "JFK Medical Center",
		FacilityType:     core.FacilityHospital,
	}

	res, err := sdk.API().RegisterProfessional(ctx, draft)
	require.NoError(t, err)
	assert.True(t, res.Success)

	// A second submission for the same DSSN is pending, not duplicated.
	_, err = sdk.API().RegisterProfessional(ctx, draft)
	var remote *core.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, nethttp.StatusConflict, remote.Status)
	assert.Contains(t, remote.Message, "pending review")

	// The admin approves; the applicant can now log in as a professional.
	_, err = sdk.PasswordLogin(ctx, proDSSN, "s3cret", core.ScopePatientRecords, false)
	require.NoError(t, err)
	pendingRes, err := sdk.API().PendingProfessionals(ctx)
	require.NoError(t, err)
	require.Len(t, pendingRes.Professionals, 1)
	reg := pendingRes.Professionals[0]
	assert.Equal(t, plainDSSN, reg.DSSN)

	require.NoError(t, sdk.API().VerifyProfessionalAdmin(ctx, reg.ID, "approved", []string{"patient_records"}))

	applicant := newSDK(srv.URL, "")
	sess, err := applicant.PasswordLogin(ctx, plainDSSN, "s3cret", core.ScopePatientRecords, false)
	require.NoError(t, err)
	assert.Equal(t, plainDSSN, sess.User.DSSN.String())

	// A fresh registration for the now-approved DSSN is refused.
	_, err = applicant.API().RegisterProfessional(ctx, draft)
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "already approved")
}

func TestRegistrationUnknownDSSN(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")

	draft := core.RegistrationDraft{
		DSSN:             "UNKNOWN000000001",
		ProfessionalType: core.ProfessionalDoctor,
		LicenseNumber:    "MD-1",
		LicenseExpiry:    time.Now().AddDate(1, 0, 0).Format("2006-01-02"),
		FacilityType:     core.FacilityHospital,
	}
	_, err := sdk.API().RegisterProfessional(context.Background(), draft)
	var remote *core.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, nethttp.StatusNotFound, remote.Status)
	assert.Contains(t, remote.Message, "No user found with this DSSN")
}

func TestAccessLogsEndToEnd(t *testing.T) {
	_, srv := newTestPortal(t, 0)
	sdk := newSDK(srv.URL, "")
	ctx := context.Background()

	_, err := sdk.PasswordLogin(ctx, proDSSN, "s3cret", core.ScopePatientRecords, false)
	require.NoError(t, err)

	logs, err := sdk.API().AccessLogs(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs.Logs)
	assert.Equal(t, "professional-login", logs.Logs[len(logs.Logs)-1].Action)
}

// approveViaDevEndpoint drives the dev stand-in for the phone's approve
// action.
func approveViaDevEndpoint(t *testing.T, base, id string) string {
	t.Helper()
	resp, err := nethttp.Post(fmt.Sprintf("%s/dev/challenges/%s/approve", base, id), "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	return id
}

// challengeID returns the sole pending challenge's id.
func challengeID(p *Portal) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.challenges {
		return id
	}
	return ""
}
