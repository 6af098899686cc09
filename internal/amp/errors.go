package amp

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks an upstream payload whose shape was not
// recognized. Discovery converts it into an empty result, never a panic.
var ErrMalformedResponse = errors.New("malformed control plane response")

// AuthError is returned when a login attempt is rejected or credentials are
// missing. It is never retried by the client itself.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("control plane login failed: %s", e.Reason)
}

// TransientError wraps a network-level or 5xx failure for a single call.
// Callers degrade the affected item and continue the cycle.
type TransientError struct {
	Endpoint string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch failure on %s: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
