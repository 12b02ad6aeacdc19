package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDSSN is returned when input does not match the DSSN shape.
	// It is a local validation failure; nothing is sent to the server.
	ErrInvalidDSSN = errors.New("invalid DSSN")

	// ErrInvalidScope is returned for an unrecognized module scope
	ErrInvalidScope = errors.New("invalid scope")

	// ErrInvalidDraft is returned when a registration draft fails local validation
	ErrInvalidDraft = errors.New("invalid registration draft")

	// ErrLicenseExpired is returned when the license expiry date is in the past
	ErrLicenseExpired = errors.New("license expired")

	// ErrMissingPushToken is returned when a mobile challenge is requested
	// without a device push token; no request is made.
	ErrMissingPushToken = errors.New("missing push token")

	// ErrAuthExpired is returned on a 401 from any authenticated call. The
	// local session is cleared before this error is surfaced.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrNoSession is returned when an operation needs a persisted session
	// and none is available.
	ErrNoSession = errors.New("no active session")

	// ErrMobileAuthDenied is the terminal outcome when the user denies the
	// request on their device.
	ErrMobileAuthDenied = errors.New("mobile authentication denied")

	// ErrMobileAuthExpired is the terminal outcome when the challenge
	// expires server-side.
	ErrMobileAuthExpired = errors.New("mobile authentication expired")

	// ErrMobileAuthTimeout is the terminal outcome when the client gives up
	// waiting for a decision.
	ErrMobileAuthTimeout = errors.New("mobile authentication timed out")
)

// RemoteError is a non-2xx response from the portal API. Message carries
// the server's own message when the payload had one.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote error (%d)", e.Status)
}

// NetworkError wraps a request that never completed.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a local, pre-network validation
// failure that the user can correct before resubmitting.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDSSN) ||
		errors.Is(err, ErrInvalidScope) ||
		errors.Is(err, ErrInvalidDraft) ||
		errors.Is(err, ErrLicenseExpired)
}
