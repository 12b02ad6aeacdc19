// Package auth implements the client-side authentication flows: password
// login, the mobile challenge/poll flow, and session lifecycle management.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/liberianpost/healthgate/api"
	"github.com/liberianpost/healthgate/core"
)

const (
	// DefaultPollInterval is how often the poller queries challenge status
	DefaultPollInterval = 3 * time.Second

	// DefaultPollTimeout is the wall-clock deadline after which the client
	// gives up waiting for a decision
	DefaultPollTimeout = 5 * time.Minute
)

// PollState is the poller's position in its lifecycle.
type PollState int

const (
	PollIdle PollState = iota
	PollRunning
	PollApproved
	PollDenied
	PollExpired
	PollTimedOut
)

// String returns a user-facing name for the state.
func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollRunning:
		return "polling"
	case PollApproved:
		return "approved"
	case PollDenied:
		return "denied"
	case PollExpired:
		return "expired"
	case PollTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the poll loop.
func (s PollState) Terminal() bool {
	return s == PollApproved || s == PollDenied || s == PollExpired || s == PollTimedOut
}

// Outcome is the single terminal result of a poll loop. Token, SessionID
// and User are populated only on approval; SessionID is empty when the
// backend does not report one.
type Outcome struct {
	State       PollState
	ChallengeID string
	Token       string
	SessionID   string
	User        *core.Profile
}

// Err maps a non-approved outcome to its error value. Approved outcomes
// return nil.
func (o Outcome) Err() error {
	switch o.State {
	case PollDenied:
		return core.ErrMobileAuthDenied
	case PollExpired:
		return core.ErrMobileAuthExpired
	case PollTimedOut:
		return core.ErrMobileAuthTimeout
	default:
		return nil
	}
}

// StatusFunc queries the current status of a challenge.
type StatusFunc func(ctx context.Context, challengeID string) (*api.StatusResult, error)

// Poller drives one challenge to exactly one terminal state. Two timers
// race: a recurring status query and a one-shot wall-clock deadline.
// Terminal entry is idempotent, so the race is harmless regardless of
// which side fires first, and Dispose can be called from anywhere at any
// time without leaking either timer.
type Poller struct {
	status      StatusFunc
	challengeID string
	interval    time.Duration
	timeout     time.Duration
	logger      watermill.LoggerAdapter

	mu       sync.Mutex
	state    PollState
	disposed bool
	cancel   context.CancelFunc
	deadline *time.Timer
	done     chan Outcome
}

// NewPoller creates a poller for one challenge. Zero interval or timeout
// fall back to the defaults.
func NewPoller(challengeID string, status StatusFunc, interval, timeout time.Duration, logger watermill.LoggerAdapter) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Poller{
		status:      status,
		challengeID: challengeID,
		interval:    interval,
		timeout:     timeout,
		logger:      logger,
		state:       PollIdle,
		done:        make(chan Outcome, 1),
	}
}

// Start transitions Idle -> Polling and begins querying. Starting a poller
// twice is a caller error and is ignored.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.state != PollIdle || p.disposed {
		p.mu.Unlock()
		return
	}
	p.state = PollRunning
	ctx, p.cancel = context.WithCancel(ctx)
	p.deadline = time.AfterFunc(p.timeout, func() {
		p.finish(Outcome{State: PollTimedOut, ChallengeID: p.challengeID})
	})
	p.mu.Unlock()

	go p.loop(ctx)
}

// Done delivers the terminal outcome. The channel never delivers if the
// poller is disposed before reaching a terminal state.
func (p *Poller) Done() <-chan Outcome {
	return p.done
}

// State returns the poller's current state.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Dispose unconditionally stops both timers. It is idempotent and safe to
// call from teardown, from a terminal transition, or from explicit user
// cancellation, in any order.
func (p *Poller) Dispose() {
	p.mu.Lock()
	p.disposed = true
	cancel := p.cancel
	deadline := p.deadline
	p.cancel = nil
	p.deadline = nil
	p.mu.Unlock()

	if deadline != nil {
		deadline.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := p.status(ctx, p.challengeID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Transient transport failure: keep waiting. The user is
				// still looking at their phone.
				p.logger.Error("challenge status poll failed", err, watermill.LogFields{
					"challenge_id": p.challengeID,
				})
				continue
			}

			switch res.Status {
			case core.StatusApproved:
				p.finish(Outcome{
					State:       PollApproved,
					ChallengeID: p.challengeID,
					Token:       res.Token,
					SessionID:   res.SessionID,
					User:        res.User,
				})
				return
			case core.StatusDenied:
				p.finish(Outcome{State: PollDenied, ChallengeID: p.challengeID})
				return
			case core.StatusExpired:
				p.finish(Outcome{State: PollExpired, ChallengeID: p.challengeID})
				return
			default:
				// pending: next tick
			}
		}
	}
}

// finish performs the terminal transition exactly once. A second arrival
// (late approval after timeout, deadline firing after approval) is a no-op,
// as is any arrival after Dispose, even from a status call that was already
// in flight when Dispose ran.
func (p *Poller) finish(o Outcome) {
	p.mu.Lock()
	if p.state.Terminal() || p.disposed {
		p.mu.Unlock()
		return
	}
	p.state = o.State
	cancel := p.cancel
	deadline := p.deadline
	p.cancel = nil
	p.deadline = nil
	p.mu.Unlock()

	if deadline != nil {
		deadline.Stop()
	}
	if cancel != nil {
		cancel()
	}
	p.done <- o
}
