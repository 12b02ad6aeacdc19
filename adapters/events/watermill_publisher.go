// Package events publishes auth lifecycle events through Watermill.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/liberianpost/healthgate/ports"
)

// Topics carrying auth lifecycle events.
const (
	TopicLogin             = "healthgate.auth.login"
	TopicLogout            = "healthgate.auth.logout"
	TopicChallengeResolved = "healthgate.auth.challenge"
)

// LoginEvent is published when a session is established.
type LoginEvent struct {
	DSSN      string    `json:"dssn"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// LogoutEvent is published when a session ends, so every portal instance
// sharing the broker can drop the session.
type LogoutEvent struct {
	DSSN      string    `json:"dssn"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// ChallengeResolvedEvent is published when a mobile challenge reaches a
// terminal status.
type ChallengeResolvedEvent struct {
	ChallengeID string    `json:"challenge_id"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
}

// WatermillPublisher implements ports.EventPublisher on top of any
// Watermill publisher (gochannel in-process, redis stream across
// instances).
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps a Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, dssn, sessionID string) error {
	return p.publish(TopicLogin, LoginEvent{DSSN: dssn, SessionID: sessionID, At: time.Now().UTC()})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, dssn, sessionID string) error {
	return p.publish(TopicLogout, LogoutEvent{DSSN: dssn, SessionID: sessionID, At: time.Now().UTC()})
}

// PublishChallengeResolved publishes a challenge terminal transition.
func (p *WatermillPublisher) PublishChallengeResolved(ctx context.Context, challengeID, status string) error {
	return p.publish(TopicChallengeResolved, ChallengeResolvedEvent{
		ChallengeID: challengeID,
		Status:      status,
		At:          time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
