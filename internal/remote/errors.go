package remote

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an operation requires a valid
// session and none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError reports a client-side validation failure. The request
// never reaches the network.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError reports bad credentials or an expired/invalid session.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// apiError wraps any other remote failure: network errors, server
// errors, unexpected status codes.
type apiError struct {
	Status  int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote request failed: %v", e.Err)
	}
	return fmt.Sprintf("remote request failed: %d %s", e.Status, e.Message)
}

func (e *apiError) Unwrap() error {
	return e.Err
}
