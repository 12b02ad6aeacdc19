package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liberianpost/healthgate/api"
	"github.com/liberianpost/healthgate/core"
)

// scriptedStatus replays a fixed sequence of poll responses, repeating the
// last one forever.
func scriptedStatus(calls *atomic.Int32, script ...func() (*api.StatusResult, error)) StatusFunc {
	return func(ctx context.Context, challengeID string) (*api.StatusResult, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(script) {
			n = len(script) - 1
		}
		return script[n]()
	}
}

func pending() (*api.StatusResult, error) {
	return &api.StatusResult{Success: true, Status: core.StatusPending}, nil
}

func approved() (*api.StatusResult, error) {
	return &api.StatusResult{
		Success: true,
		Status:  core.StatusApproved,
		Token:   "tok-abc",
		User:    &core.Profile{DSSN: "ABC123DEF456GHI"},
	}, nil
}

func TestPollerApproval(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("ch-1", scriptedStatus(&calls, pending, pending, approved),
		5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())
	defer p.Dispose()

	select {
	case outcome := <-p.Done():
		assert.Equal(t, PollApproved, outcome.State)
		assert.Equal(t, "ch-1", outcome.ChallengeID)
		assert.Equal(t, "tok-abc", outcome.Token)
		require.NotNil(t, outcome.User)
		assert.NoError(t, outcome.Err())
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}
	assert.Equal(t, PollApproved, p.State())
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollerDenied(t *testing.T) {
	denied := func() (*api.StatusResult, error) {
		return &api.StatusResult{Success: true, Status: core.StatusDenied}, nil
	}
	var calls atomic.Int32
	p := NewPoller("ch-2", scriptedStatus(&calls, denied), 5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())
	defer p.Dispose()

	outcome := <-p.Done()
	assert.Equal(t, PollDenied, outcome.State)
	assert.ErrorIs(t, outcome.Err(), core.ErrMobileAuthDenied)
}

func TestPollerTransientErrorKeepsPolling(t *testing.T) {
	flaky := func() (*api.StatusResult, error) {
		return nil, &core.NetworkError{Err: errors.New("connection refused")}
	}
	var calls atomic.Int32
	p := NewPoller("ch-3", scriptedStatus(&calls, flaky, flaky, approved),
		5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())
	defer p.Dispose()

	outcome := <-p.Done()
	assert.Equal(t, PollApproved, outcome.State)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollerTimeout(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("ch-4", scriptedStatus(&calls, pending), 5*time.Millisecond, 30*time.Millisecond, nil)
	p.Start(context.Background())
	defer p.Dispose()

	outcome := <-p.Done()
	assert.Equal(t, PollTimedOut, outcome.State)
	assert.ErrorIs(t, outcome.Err(), core.ErrMobileAuthTimeout)

	// A late approval cannot move the poller off its terminal state, and no
	// second outcome is ever delivered.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, PollTimedOut, p.State())
	select {
	case extra := <-p.Done():
		t.Fatalf("second outcome delivered: %v", extra.State)
	default:
	}
}

func TestPollerTickerStopsAfterTerminal(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("ch-5", scriptedStatus(&calls, approved), 5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())
	defer p.Dispose()

	<-p.Done()
	settled := calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}

func TestPollerDispose(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("ch-6", scriptedStatus(&calls, pending), 5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())

	p.Dispose()
	p.Dispose() // idempotent

	disposedAt := calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), disposedAt+1)

	select {
	case outcome := <-p.Done():
		t.Fatalf("disposed poller delivered %v", outcome.State)
	default:
	}

	// A disposed poller cannot be restarted.
	p.Start(context.Background())
	assert.NotEqual(t, PollRunning, p.State())
}

func TestPollerDisposeDuringInFlightStatus(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	status := func(ctx context.Context, challengeID string) (*api.StatusResult, error) {
		close(started)
		<-release
		return approved()
	}

	p := NewPoller("ch-8", status, 5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())

	// Dispose while a status call is mid-flight, then let it come back
	// approved. The approval must not land.
	<-started
	p.Dispose()
	close(release)

	select {
	case outcome := <-p.Done():
		t.Fatalf("disposed poller delivered %v", outcome.State)
	case <-time.After(50 * time.Millisecond):
	}
	assert.NotEqual(t, PollApproved, p.State())
}

func TestPollerDoubleStartIgnored(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("ch-7", scriptedStatus(&calls, pending, approved), 5*time.Millisecond, time.Second, nil)
	p.Start(context.Background())
	p.Start(context.Background())
	defer p.Dispose()

	outcome := <-p.Done()
	assert.Equal(t, PollApproved, outcome.State)
}
