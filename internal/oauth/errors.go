package oauth

import (
	"errors"
	"fmt"
)

// ErrNotConnected means the expert never connected a calendar account.
var ErrNotConnected = errors.New("calendar account is not connected")

// RefreshFailedError is returned when the provider refused or failed to
// refresh a credential. Body carries the provider's response verbatim.
// Transient failures (network errors, timeouts, 429 and 5xx) may succeed on
// a later attempt; the others need the expert to reconnect.
type RefreshFailedError struct {
	ExpertID   string
	StatusCode int
	Body       string
	Transient  bool
	Err        error
}

func (e *RefreshFailedError) Error() string {
	msg := fmt.Sprintf("refresh of calendar credential for expert %s failed", e.ExpertID)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RefreshFailedError) Unwrap() error {
	return e.Err
}
