package booking

import (
	"errors"

	"mentorship-backend/internal/calendar"
	"mentorship-backend/internal/oauth"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("request not found")
	ErrSlotUnavailable = errors.New("slot is no longer available")
	ErrConflict        = errors.New("slot already has an active request")
	ErrUnauthorized    = errors.New("not allowed to act on this request")
	ErrInvalidState    = errors.New("request is not in a state that allows this action")
)

// CalendarError reports that provisioning the meeting failed. The request is
// left pending with its slot held, so the expert may retry.
type CalendarError struct {
	Err error
}

func (e *CalendarError) Error() string {
	return "calendar integration failed: " + e.Err.Error()
}

func (e *CalendarError) Unwrap() error { return e.Err }

// Reconnect reports whether the expert has to reconnect the calendar account.
func (e *CalendarError) Reconnect() bool {
	var refreshErr *oauth.RefreshFailedError
	if errors.As(e.Err, &refreshErr) {
		return !refreshErr.Transient
	}
	var authErr *calendar.AuthError
	return errors.Is(e.Err, oauth.ErrNotConnected) || errors.As(e.Err, &authErr)
}

// Retryable reports whether retrying the accept later may succeed as is.
func (e *CalendarError) Retryable() bool {
	var refreshErr *oauth.RefreshFailedError
	if errors.As(e.Err, &refreshErr) {
		return refreshErr.Transient
	}
	var provErr *calendar.ProviderError
	return errors.As(e.Err, &provErr) && provErr.Transient
}
