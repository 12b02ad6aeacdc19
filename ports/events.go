package ports

import "context"

// EventPublisher publishes auth lifecycle events so other components (and
// other portal instances) can react to logins and logouts.
type EventPublisher interface {
	PublishLogin(ctx context.Context, dssn string, sessionID string) error
	PublishLogout(ctx context.Context, dssn string, sessionID string) error
	PublishChallengeResolved(ctx context.Context, challengeID string, status string) error
}
