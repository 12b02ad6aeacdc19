package ports

import "context"

// PushTokenSource supplies the device push token that routes a mobile
// approval request to a specific phone. Token acquisition (notification
// permission, FCM registration) happens behind this interface; the SDK
// never talks to a push provider itself.
type PushTokenSource interface {
	// PushToken returns the current device token, or "" when none has been
	// acquired yet.
	PushToken(ctx context.Context) (string, error)
}
