package lib

import "errors"

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input (e.g. an update without package).
	ErrNotValid = errors.New("not valid")
	// ErrTransport is returned when the dashboard could not be reached or
	// answered with a non OK HTTP status.
	ErrTransport = errors.New("transport failure")
	// ErrRejected is returned when the dashboard refused the action.
	ErrRejected = errors.New("rejected by dashboard")
	// ErrPollTimeout is returned when a task did not finish within the poll attempts.
	ErrPollTimeout = errors.New("task polling timed out")
	// ErrTaskFailed is returned when a task finished without success.
	ErrTaskFailed = errors.New("task failed")
)
