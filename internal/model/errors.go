package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrTransport is returned when the dashboard could not be reached or answered with a non OK HTTP status.
	ErrTransport = errors.New("transport failure")
	// ErrRejected is returned when the dashboard answered with a non success status.
	ErrRejected = errors.New("rejected by dashboard")
	// ErrPollTimeout is returned when a task didn't reach a terminal status within the attempt budget.
	ErrPollTimeout = errors.New("task polling timed out")
	// ErrTaskFailed is returned when a task reached a terminal status that is not a success.
	ErrTaskFailed = errors.New("task failed")
	// ErrDeclined is used when the operator declines a confirmation.
	ErrDeclined = errors.New("declined by operator")
)

// HTTPError is a non OK answer from the dashboard.
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap makes HTTP errors match ErrTransport.
func (e *HTTPError) Unwrap() error { return ErrTransport }
