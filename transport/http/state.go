// Package http is the development portal: a gin-served stand-in for the
// production health portal backend, implementing just enough of its HTTP
// surface to drive the client flows end to end. Its logic is illustrative,
// not a reference for the real backend.
package http

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liberianpost/healthgate/core"
	"github.com/liberianpost/healthgate/ports"
)

// DefaultChallengeTTL is how long a dev-portal challenge stays pending
// before expiring server-side.
const DefaultChallengeTTL = 5 * time.Minute

// DirectoryUser is one account in the dev portal's DSSN directory.
type DirectoryUser struct {
	Profile        core.Profile
	Password       string
	PushToken      string
	IsProfessional bool
	Approved       bool
}

type pendingChallenge struct {
	challenge core.Challenge
	fcmToken  string
}

type pendingRegistration struct {
	ID          string
	Draft       core.RegistrationDraft
	Status      string // pending | approved | denied
	SubmittedAt time.Time
}

type serverSession struct {
	ID        string
	DSSN      string
	CreatedAt time.Time
}

type logEntry struct {
	At     time.Time
	Action string
	Actor  string
	Detail string
}

// Portal holds the dev portal's in-memory state behind one lock. It is a
// test double grown into a dev tool; nothing here survives a restart.
type Portal struct {
	tokens       *Tokenizer
	events       ports.EventPublisher
	challengeTTL time.Duration

	mu            sync.Mutex
	users         map[string]*DirectoryUser // by DSSN
	challenges    map[string]*pendingChallenge
	registrations map[string]*pendingRegistration // by registration id
	sessions      map[string]*serverSession
	logs          []logEntry
}

// NewPortal creates an empty dev portal. events may be nil.
func NewPortal(tokens *Tokenizer, events ports.EventPublisher, challengeTTL time.Duration) *Portal {
	if challengeTTL <= 0 {
		challengeTTL = DefaultChallengeTTL
	}
	return &Portal{
		tokens:        tokens,
		events:        events,
		challengeTTL:  challengeTTL,
		users:         make(map[string]*DirectoryUser),
		challenges:    make(map[string]*pendingChallenge),
		registrations: make(map[string]*pendingRegistration),
		sessions:      make(map[string]*serverSession),
	}
}

// AddUser seeds a directory account.
func (p *Portal) AddUser(u DirectoryUser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.Profile.DSSN.String()] = &u
}

// ResolveChallenge records the phone's decision on a pending challenge.
// Used by the dev approve/deny endpoints and by tests.
func (p *Portal) ResolveChallenge(ctx context.Context, id string, status core.ChallengeStatus) bool {
	p.mu.Lock()
	pc, ok := p.challenges[id]
	if ok && pc.challenge.Status == core.StatusPending {
		pc.challenge.Status = status
	} else {
		ok = false
	}
	p.mu.Unlock()

	if ok && p.events != nil {
		_ = p.events.PublishChallengeResolved(ctx, id, string(status))
	}
	return ok
}

func (p *Portal) createChallenge(dssn core.DSSN, scope core.Scope, fcmToken string) *core.Challenge {
	now := time.Now()
	ch := core.Challenge{
		ID:        uuid.New().String(),
		DSSN:      dssn,
		Scope:     scope,
		Status:    core.StatusPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(p.challengeTTL),
	}
	p.mu.Lock()
	p.challenges[ch.ID] = &pendingChallenge{challenge: ch, fcmToken: fcmToken}
	p.mu.Unlock()
	return &ch
}

// challengeStatus reads a challenge, expiring it lazily when past its TTL.
func (p *Portal) challengeStatus(id string) (*core.Challenge, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.challenges[id]
	if !ok {
		return nil, false
	}
	if pc.challenge.Status == core.StatusPending && time.Now().After(pc.challenge.ExpiresAt) {
		pc.challenge.Status = core.StatusExpired
	}
	ch := pc.challenge
	return &ch, true
}

func (p *Portal) createSession(dssn string) *serverSession {
	sess := &serverSession{
		ID:        uuid.New().String(),
		DSSN:      dssn,
		CreatedAt: time.Now(),
	}
	p.mu.Lock()
	p.sessions[sess.ID] = sess
	p.mu.Unlock()
	return sess
}

func (p *Portal) record(action, actor, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, logEntry{At: time.Now(), Action: action, Actor: actor, Detail: detail})
}
