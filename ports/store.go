package ports

import "context"

// Storage keys mirrored into durable client storage. The file store uses
// them as file names, the redis store as key suffixes.
const (
	KeyToken        = "health_token"
	KeyUser         = "health_user"
	KeySession      = "health_session"
	KeyRefreshToken = "health_refresh_token"
	KeyPushToken    = "fcmToken"
)

// ErrKeyNotFound must be returned by Get for an absent key so callers can
// distinguish "no session" from a failing store.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return "storage key not found: " + e.Key
}

// SessionStore persists credential material across client restarts.
type SessionStore interface {
	// Set writes a single storage key
	Set(ctx context.Context, key, value string) error

	// Get retrieves a value by key, returning *KeyNotFoundError when absent
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a single key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Clear removes every session key. Clear must leave no partial session
	// behind regardless of which keys were present.
	Clear(ctx context.Context) error
}

// SessionKeys lists the keys Clear removes. The push token survives a
// clear: it identifies the device, not the session.
func SessionKeys() []string {
	return []string{KeyToken, KeyUser, KeySession, KeyRefreshToken}
}
