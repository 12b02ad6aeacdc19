package api

import "github.com/liberianpost/healthgate/core"

// VerifyResult is the response to a DSSN pre-check.
type VerifyResult struct {
	Success              bool          `json:"success"`
	Message              string        `json:"message,omitempty"`
	User                 *core.Profile `json:"user,omitempty"`
	IsProfessional       bool          `json:"isProfessional,omitempty"`
	RequiresRegistration bool          `json:"requiresRegistration,omitempty"`
}

// TokenPair carries the bearer tokens issued on login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// SessionInfo identifies the server-side session created on login.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
}

// LoginResult is the response to a password login. The basic endpoints
// return a bare Token; the enhanced endpoint returns Tokens and Session.
type LoginResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	User    *core.Profile `json:"user,omitempty"`
	Token   string        `json:"token,omitempty"`
	Tokens  *TokenPair    `json:"tokens,omitempty"`
	Session *SessionInfo  `json:"session,omitempty"`
}

// MobileAuthResult is the response to a mobile challenge request.
type MobileAuthResult struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message,omitempty"`
	ChallengeID      string             `json:"challengeId"`
	PushNotification *core.PushDelivery `json:"pushNotification,omitempty"`
}

// StatusResult is one poll of a challenge's lifecycle state. Token,
// SessionID and User are populated only when Status is approved; older
// backend revisions omit SessionID.
type StatusResult struct {
	Success   bool                 `json:"success"`
	Status    core.ChallengeStatus `json:"status"`
	Token     string               `json:"token,omitempty"`
	SessionID string               `json:"sessionId,omitempty"`
	User      *core.Profile        `json:"user,omitempty"`
}

// RegisterResult is the response to a professional registration.
type RegisterResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ValidateResult is the response to a session validation.
type ValidateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RefreshResult is the response to a refresh token exchange.
type RefreshResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Tokens  *TokenPair `json:"tokens,omitempty"`
}

// DashboardData is the read-only professional dashboard payload.
type DashboardData struct {
	Success      bool          `json:"success"`
	Professional *core.Profile `json:"professional,omitempty"`
	Stats        map[string]int64 `json:"stats,omitempty"`
}

// LogEntry is one row of the access or activity log.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Actor     string `json:"actor,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// LogsResult wraps a page of log entries.
type LogsResult struct {
	Success bool       `json:"success"`
	Logs    []LogEntry `json:"logs"`
}

// PendingProfessional is one registration awaiting admin review.
type PendingProfessional struct {
	ID               string `json:"id"`
	DSSN             string `json:"dssn"`
	ProfessionalType string `json:"professionalType"`
	LicenseNumber    string `json:"licenseNumber"`
	FacilityName     string `json:"facilityName,omitempty"`
	SubmittedAt      string `json:"submittedAt"`
}

// PendingResult wraps the admin review queue.
type PendingResult struct {
	Success       bool                  `json:"success"`
	Professionals []PendingProfessional `json:"professionals"`
}
