package model

import "strings"

// TaskStatus represents the state of a dashboard task.
type TaskStatus string

const (
	TaskStatusPending                TaskStatus = "pending"
	TaskStatusInProgress             TaskStatus = "in_progress"
	TaskStatusCompleted              TaskStatus = "completed"
	TaskStatusError                  TaskStatus = "error"
	TaskStatusFailedUserIntervention TaskStatus = "failed_user_intervention"
	TaskStatusNotFound               TaskStatus = "not_found"
	TaskStatusDeferredAppRunning     TaskStatus = "deferred_app_running"
)

// taskStatusAliases maps the labels the dashboard reports to the canonical statuses.
var taskStatusAliases = map[string]TaskStatus{
	"pending":     TaskStatusPending,
	"oczekuje":    TaskStatusPending,
	"queued":      TaskStatusPending,
	"in_progress": TaskStatusInProgress,
	"in progress": TaskStatusInProgress,
	"w toku":      TaskStatusInProgress,
	"running":     TaskStatusInProgress,
	"completed":   TaskStatusCompleted,
	"zakończone":  TaskStatusCompleted,
	"done":        TaskStatusCompleted,
	"error":       TaskStatusError,
	"błąd":        TaskStatusError,
	"failed":      TaskStatusError,

	"failed_user_intervention":              TaskStatusFailedUserIntervention,
	"niepowodzenie_interwencja_uzytkownika": TaskStatusFailedUserIntervention,
	"not_found":                             TaskStatusNotFound,
	"nie_znaleziono":                        TaskStatusNotFound,
	"deferred_app_running":                  TaskStatusDeferredAppRunning,
	"odroczone_aplikacja_uruchomiona":       TaskStatusDeferredAppRunning,
}

// ParseTaskStatus normalizes a status label reported by the dashboard.
// Unknown labels are returned as they are and are never terminal.
func ParseTaskStatus(s string) TaskStatus {
	key := strings.ToLower(strings.TrimSpace(s))
	if st, ok := taskStatusAliases[key]; ok {
		return st
	}
	return TaskStatus(strings.TrimSpace(s))
}

// IsTerminal returns true when no further state change is expected for the status.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted,
		TaskStatusError,
		TaskStatusFailedUserIntervention,
		TaskStatusNotFound,
		TaskStatusDeferredAppRunning:
		return true
	}
	return false
}

// IsSuccess returns true when the task finished doing what was asked.
func (s TaskStatus) IsSuccess() bool { return s == TaskStatusCompleted }

// Task is a server tracked asynchronous unit of work.
type Task struct {
	ID            string
	Status        TaskStatus
	ResultDetails string
}
