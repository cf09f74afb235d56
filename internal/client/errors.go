package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned before any network call when no valid
	// credential is stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the server answers 401. The stored
	// credential has already been cleared when the caller sees it.
	ErrSessionExpired = errors.New("session expired or invalid, please log in again")

	// ErrInvalidDirection rejects policy directions other than input/output.
	ErrInvalidDirection = errors.New("policy direction must be input or output")
)

// RequestError is any failed authenticated call that is not a 401. Status is
// zero when the request never produced a response.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("request failed (HTTP %d): %s", e.Status, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// AuthenticationError is a rejected login.
type AuthenticationError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("login failed: %s", e.Message)
	}
	return fmt.Sprintf("login failed with status %d: %s", e.Status, e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
