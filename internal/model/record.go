package model

import "time"

// ActionOutcome is the final (or current) state of a locally recorded action.
type ActionOutcome string

const (
	ActionOutcomeDispatched ActionOutcome = "dispatched"
	ActionOutcomeDeclined   ActionOutcome = "declined"
	ActionOutcomeRejected   ActionOutcome = "rejected"
	ActionOutcomeFailed     ActionOutcome = "failed"
	ActionOutcomeAccepted   ActionOutcome = "accepted"
)

// OutcomeFromTaskStatus returns the outcome for a terminal task status.
func OutcomeFromTaskStatus(s TaskStatus) ActionOutcome { return ActionOutcome(s) }

// ActionRecord is the local history entry of an action sent to the dashboard.
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
