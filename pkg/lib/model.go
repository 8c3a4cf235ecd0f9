package lib

import (
	"errors"
	"time"

	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/ui"
)

// DashboardType identifies the dashboard implementation.
type DashboardType string

const (
	// DashboardHTTP talks to a real dashboard REST API.
	DashboardHTTP DashboardType = "http"

	// DashboardFake uses an in-memory simulation of the dashboard and its agents.
	// Use this for unit testing without a running dashboard.
	DashboardFake DashboardType = "fake"
)

// ActionKind is the kind of action sent to the dashboard.
type ActionKind string

const (
	// ActionRefresh asks the machine agent for a new report.
	ActionRefresh ActionKind = "refresh"
	// ActionUpdate updates a package on a machine. Requires PackageID.
	ActionUpdate ActionKind = "update"
	// ActionUninstall removes a package from a machine. Requires PackageID.
	ActionUninstall ActionKind = "uninstall"
	// ActionUpdateOS installs the pending operating system updates of a machine.
	ActionUpdateOS ActionKind = "update-os"
	// ActionUpdateAll updates every outdated package of a machine.
	ActionUpdateAll ActionKind = "update-all"
	// ActionRefreshAll asks every agent for a new report.
	ActionRefreshAll ActionKind = "refresh-all"
	// ActionDeployAgent deploys the latest agent to every machine.
	ActionDeployAgent ActionKind = "deploy-agent"
	// ActionDelete removes a machine from the dashboard.
	ActionDelete ActionKind = "delete"
)

// TaskStatus is the state of a dashboard task.
//
// The typical lifecycle is:
//
//	pending -> in_progress -> completed | error | failed_user_intervention | deferred_app_running
//
// A task unknown by the dashboard is reported as not_found.
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

// IsTerminal returns true when no further status change is expected.
func (s TaskStatus) IsTerminal() bool { return model.TaskStatus(s).IsTerminal() }

// Task is a dashboard asynchronous unit of work.
type Task struct {
	ID            string
	Status        TaskStatus
	ResultDetails string
}

// ActionOutcome is the final (or current) state of an action.
type ActionOutcome string

const (
	// OutcomeDispatched means the dashboard accepted the action and its task is being followed.
	OutcomeDispatched ActionOutcome = "dispatched"
	// OutcomeAccepted means the dashboard accepted an action that has no task.
	OutcomeAccepted ActionOutcome = "accepted"
	// OutcomeDeclined means the confirmation was declined and nothing was sent.
	OutcomeDeclined ActionOutcome = "declined"
	// OutcomeRejected means the dashboard refused the action.
	OutcomeRejected ActionOutcome = "rejected"
	// OutcomeFailed means the dashboard could not be reached or polling failed.
	OutcomeFailed ActionOutcome = "failed"
)

// OutcomeFromStatus returns the outcome of an action whose task finished with the status.
func OutcomeFromStatus(s TaskStatus) ActionOutcome { return ActionOutcome(s) }

// ActionRequest describes an action to send to the dashboard.
type ActionRequest struct {
	Kind ActionKind
	// MachineID is required by every kind except [ActionRefreshAll] and [ActionDeployAgent].
	MachineID string
	// PackageID is required by [ActionUpdate] and [ActionUninstall].
	PackageID string
	UpdateID  string
	// AppName is the human package name used on confirmations.
	AppName string
	// Force closes the running application on the machine without asking the user.
	Force bool
}

// ActionRecord is the history entry of an action.
//
// Once a task finished, Outcome is its terminal [TaskStatus] (e.g. "completed").
type ActionRecord struct {
	ID         string
	Kind       ActionKind
	MachineID  string
	PackageID  string
	Force      bool
	TaskID     string
	Outcome    ActionOutcome
	Message    string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// NotifyLevel is the severity of a progress notification.
type NotifyLevel string

const (
	NotifyInfo    NotifyLevel = "info"
	NotifySuccess NotifyLevel = "success"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
)

// AgentConfig are the settings baked into a generated agent binary.
type AgentConfig struct {
	APIEndpoint1 string
	APIEndpoint2 string
	APIKey       string
	// LoopInterval and ReportInterval are in seconds.
	LoopInterval   int
	ReportInterval int
	WingetPath     string
}

// DownloadAgentOpts configures where the agent is stored.
type DownloadAgentOpts struct {
	// OutputPath is the destination file. When empty the dashboard suggested
	// filename is used inside OutputDir.
	OutputPath string
	OutputDir  string
}

// AgentDownload is a downloaded agent binary.
type AgentDownload struct {
	Path      string
	SizeBytes int64
}

// ListHistoryOpts filters the listed actions.
type ListHistoryOpts struct {
	MachineID string
	// Limit defaults to 20, negative returns every action.
	Limit int
}

// --- Conversion helpers ---

func toInternalActionRequest(r ActionRequest) model.ActionRequest {
	return model.ActionRequest{
		Kind:      model.ActionKind(r.Kind),
		MachineID: r.MachineID,
		PackageID: r.PackageID,
		UpdateID:  r.UpdateID,
		AppName:   r.AppName,
		Force:     r.Force,
	}
}

func fromInternalActionRecord(r model.ActionRecord) ActionRecord {
	return ActionRecord{
		ID:         r.ID,
		Kind:       ActionKind(r.Kind),
		MachineID:  r.MachineID,
		PackageID:  r.PackageID,
		Force:      r.Force,
		TaskID:     r.TaskID,
		Outcome:    ActionOutcome(r.Outcome),
		Message:    r.Message,
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
}

func fromInternalActionRecordList(rs []model.ActionRecord) []ActionRecord {
	out := make([]ActionRecord, len(rs))
	for i, r := range rs {
		out[i] = fromInternalActionRecord(r)
	}
	return out
}

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:            t.ID,
		Status:        TaskStatus(t.Status),
		ResultDetails: t.ResultDetails,
	}
}

func toInternalStatusFunc(f func(TaskStatus)) func(model.TaskStatus) {
	return func(s model.TaskStatus) { f(TaskStatus(s)) }
}

func toInternalAgentConfig(c AgentConfig) model.AgentBuildConfig {
	return model.AgentBuildConfig{
		APIEndpoint1:   c.APIEndpoint1,
		APIEndpoint2:   c.APIEndpoint2,
		APIKey:         c.APIKey,
		LoopInterval:   c.LoopInterval,
		ReportInterval: c.ReportInterval,
		WingetPath:     c.WingetPath,
	}
}

func fromInternalLevel(l ui.Level) NotifyLevel {
	switch l {
	case ui.LevelSuccess:
		return NotifySuccess
	case ui.LevelWarning:
		return NotifyWarning
	case ui.LevelError:
		return NotifyError
	default:
		return NotifyInfo
	}
}

// --- Error mapping ---

var errorMappings = []struct {
	internal error
	public   error
}{
	{model.ErrNotFound, ErrNotFound},
	{model.ErrNotValid, ErrNotValid},
	{model.ErrTransport, ErrTransport},
	{model.ErrRejected, ErrRejected},
	{model.ErrPollTimeout, ErrPollTimeout},
	{model.ErrTaskFailed, ErrTaskFailed},
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.internal) {
			return joinErrors(err, m.public)
		}
	}

	return err
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
