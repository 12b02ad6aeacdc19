package core

import "time"

// ChallengeStatus is the server-side state of a mobile-approval challenge.
type ChallengeStatus string

const (
	// StatusPending means the challenge is awaiting a decision on the phone
	StatusPending ChallengeStatus = "pending"

	// StatusApproved means the user approved the request on their device
	StatusApproved ChallengeStatus = "approved"

	// StatusDenied means the user denied the request on their device
	StatusDenied ChallengeStatus = "denied"

	// StatusExpired means the challenge expired server-side before a decision
	StatusExpired ChallengeStatus = "expired"
)

// Terminal reports whether the status ends the challenge lifecycle.
func (s ChallengeStatus) Terminal() bool {
	return s == StatusApproved || s == StatusDenied || s == StatusExpired
}

// Challenge represents one in-flight mobile authentication attempt. It is
// created by the portal backend and mutated only there; the client observes
// it through status polls.
type Challenge struct {
	ID        string          // Unique identifier for the challenge
	DSSN      DSSN            // Identity the challenge was issued for
	Scope     Scope           // Module the authentication targets
	Status    ChallengeStatus // Current lifecycle state
	IssuedAt  time.Time       // When the challenge was created
	ExpiresAt time.Time       // When the backend abandons the challenge
}

// PushDelivery describes whether the approval request reached the user's
// registered mobile device.
type PushDelivery struct {
	Sent     bool   `json:"sent"`
	HasToken bool   `json:"hasToken"`
	Error    string `json:"error,omitempty"`
}
