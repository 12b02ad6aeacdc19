package registration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liberianpost/healthgate/api"
	"github.com/liberianpost/healthgate/core"
)

const testDSSN = "ABC123DEF456GHI"

func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func fillIdentity(w *Wizard) {
	d := w.Draft()
	d.ProfessionalType = core.ProfessionalDoctor
	d.LicenseNumber = "MD-2024-001"
	d.LicenseExpiry = "2030-01-01"
}

func TestWizardStepGating(t *testing.T) {
	var submitted int
	w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
		submitted++
		return &api.RegisterResult{Success: true}, nil
	}, WithClock(fixedClock))

	assert.Equal(t, StepIdentity, w.Step())

	// Submit from the identity step is refused.
	err := w.Submit(context.Background())
	require.Error(t, err)
	assert.Zero(t, submitted)

	// Next with an empty draft stays put.
	require.Error(t, w.Next())
	assert.Equal(t, StepIdentity, w.Step())

	fillIdentity(w)
	require.NoError(t, w.Next())
	assert.Equal(t, StepFacility, w.Step())

	w.Back()
	assert.Equal(t, StepIdentity, w.Step())
	require.NoError(t, w.Next())

	require.NoError(t, w.Submit(context.Background()))
	assert.Equal(t, StepDone, w.Step())
	assert.Equal(t, 1, submitted)
}

func TestWizardExpiredLicenseNeverSubmits(t *testing.T) {
	var submitted int
	w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
		submitted++
		return &api.RegisterResult{Success: true}, nil
	}, WithClock(fixedClock))

	fillIdentity(w)
	w.Draft().LicenseExpiry = "2026-03-14" // yesterday

	assert.ErrorIs(t, w.Next(), core.ErrLicenseExpired)
	assert.Equal(t, StepIdentity, w.Step())
	assert.Zero(t, submitted)
}

func TestWizardNormalizesBeforeSubmit(t *testing.T) {
	var got core.RegistrationDraft
	w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
		got = draft
		return &api.RegisterResult{Success: true}, nil
	}, WithClock(fixedClock))

	fillIdentity(w)
	w.Draft().FacilityName = "  JFK Medical Center  "
	w.Draft().FacilityType = "" // defaults on validation
	require.NoError(t, w.Next())
	require.NoError(t, w.Submit(context.Background()))

	assert.Equal(t, "JFK Medical Center", got.FacilityName)
	assert.Equal(t, core.FacilityHospital, got.FacilityType)
}

func TestWizardCompletionCallback(t *testing.T) {
	var completedFor string
	w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
		return &api.RegisterResult{Success: true}, nil
	},
		WithClock(fixedClock),
		WithCompletion(func(d core.RegistrationDraft) { completedFor = d.DSSN }),
	)
	fillIdentity(w)
	require.NoError(t, w.Next())
	require.NoError(t, w.Submit(context.Background()))
	assert.Equal(t, testDSSN, completedFor)
}

func TestClassifyServerRejections(t *testing.T) {
	cases := []struct {
		message string
		want    error
	}{
		{"No user found with this DSSN. Please register through the Digital Liberia mobile app first.", ErrUnknownDSSN},
		{"This license number is already registered", ErrDuplicateLicense},
		{"Professional profile already approved for this DSSN", ErrProfileApproved},
		{"Professional profile already registered and pending review", ErrProfilePending},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
				return nil, &core.RemoteError{Status: http.StatusConflict, Message: tc.message}
			}, WithClock(fixedClock))
			fillIdentity(w)
			require.NoError(t, w.Next())
			assert.ErrorIs(t, w.Submit(context.Background()), tc.want)
		})
	}
}

func TestClassifyPassesUnknownErrorsThrough(t *testing.T) {
	w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
		return nil, &core.RemoteError{Status: http.StatusBadGateway, Message: "upstream unavailable"}
	}, WithClock(fixedClock))
	fillIdentity(w)
	require.NoError(t, w.Next())

	err := w.Submit(context.Background())
	var remote *core.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadGateway, remote.Status)
}

func TestWizardSoftFailureClassified(t *testing.T) {
	// Some backend revisions return 200 with success=false.
	w := NewWizard(testDSSN, func(ctx context.Context, draft core.RegistrationDraft) (*api.RegisterResult, error) {
		return &api.RegisterResult{Success: false, Message: "No user found with this DSSN"}, nil
	}, WithClock(fixedClock))
	fillIdentity(w)
	require.NoError(t, w.Next())
	assert.ErrorIs(t, w.Submit(context.Background()), ErrUnknownDSSN)
}
