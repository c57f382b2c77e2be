package calendar

import "fmt"

// AuthError means the provider rejected the access token. The caller should
// refresh the credential or ask the expert to reconnect.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("calendar provider rejected credentials (status %d): %s", e.StatusCode, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProviderError is any other provider failure. Transient failures (timeouts,
// network errors, 429 and 5xx) may be retried by the caller.
type ProviderError struct {
	StatusCode int
	Transient  bool
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("calendar provider unavailable: %s", e.Message)
	}
	return fmt.Sprintf("calendar provider error (status %d): %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
