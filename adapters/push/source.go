// Package push provides PushTokenSource implementations. Actual token
// acquisition (notification permission, FCM registration) happens in the
// mobile app or browser shell; the SDK only consumes the resulting token.
package push

import (
	"context"
	"errors"

	"github.com/liberianpost/healthgate/ports"
)

// StaticSource returns a fixed token, for tests and for callers that
// acquired the token out of band.
type StaticSource string

// PushToken returns the fixed token.
func (s StaticSource) PushToken(ctx context.Context) (string, error) {
	return string(s), nil
}

// StoredSource reads the device token persisted under the fcmToken
// storage key, matching where the browser front-end cached it.
type StoredSource struct {
	Store ports.SessionStore
}

// PushToken returns the stored token, or "" when none was ever saved.
func (s StoredSource) PushToken(ctx context.Context) (string, error) {
	token, err := s.Store.Get(ctx, ports.KeyPushToken)
	if err != nil {
		var notFound *ports.KeyNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}
