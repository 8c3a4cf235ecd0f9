package model

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ActionKind is the kind of action an operator can request on the dashboard.
type ActionKind string

const (
	ActionRefresh     ActionKind = "refresh"
	ActionUpdate      ActionKind = "update"
	ActionUninstall   ActionKind = "uninstall"
	ActionUpdateOS    ActionKind = "update-os"
	ActionUpdateAll   ActionKind = "update-all"
	ActionRefreshAll  ActionKind = "refresh-all"
	ActionDeployAgent ActionKind = "deploy-agent"
	ActionDelete      ActionKind = "delete"
)

// SuccessStrategy is what happens after the dashboard accepts an action.
type SuccessStrategy int

const (
	// SuccessPollTask follows the returned task until it's terminal and then reloads the view.
	// If the dashboard doesn't return a task, it falls back to a delayed reload.
	SuccessPollTask SuccessStrategy = iota
	// SuccessDelayedReload reloads the view after a fixed delay.
	SuccessDelayedReload
	// SuccessNotify only surfaces the dashboard message.
	SuccessNotify
)

// ActionSpec describes how an action kind is sent and handled.
type ActionSpec struct {
	Kind   ActionKind
	Method string
	// PathTemplate is the endpoint, `{id}` is replaced with the machine ID.
	PathTemplate   string
	TargetsMachine bool
	NeedsPackage   bool
	// Verb is used on the confirmation, empty means no confirmation is required
	// unless the request is forced.
	Verb string
	// Warning is appended to the confirmation message.
	Warning     string
	Strategy    SuccessStrategy
	ReloadDelay time.Duration
	BusyLabel   string
	Label       string
}

var actionSpecs = map[ActionKind]ActionSpec{
	ActionRefresh: {
		Kind:           ActionRefresh,
		Method:         http.MethodPost,
		PathTemplate:   "/api/computer/{id}/refresh",
		TargetsMachine: true,
		Strategy:       SuccessPollTask,
		ReloadDelay:    15 * time.Second,
		BusyLabel:      "Sending...",
		Label:          "Refresh",
	},
	ActionUpdate: {
		Kind:           ActionUpdate,
		Method:         http.MethodPost,
		PathTemplate:   "/api/computer/{id}/update",
		TargetsMachine: true,
		NeedsPackage:   true,
		Verb:           "update",
		Strategy:       SuccessPollTask,
		ReloadDelay:    15 * time.Second,
		BusyLabel:      "Requesting...",
		Label:          "Update",
	},
	ActionUninstall: {
		Kind:           ActionUninstall,
		Method:         http.MethodPost,
		PathTemplate:   "/api/computer/{id}/uninstall",
		TargetsMachine: true,
		NeedsPackage:   true,
		Verb:           "uninstall",
		Warning:        "WARNING: this action cannot be undone!",
		Strategy:       SuccessPollTask,
		ReloadDelay:    20 * time.Second,
		BusyLabel:      "Requesting...",
		Label:          "Uninstall",
	},
	ActionUpdateOS: {
		Kind:           ActionUpdateOS,
		Method:         http.MethodPost,
		PathTemplate:   "/api/computer/{id}/update_os",
		TargetsMachine: true,
		Verb:           "update the operating system of",
		Warning:        "The machine may reboot.",
		Strategy:       SuccessPollTask,
		ReloadDelay:    15 * time.Second,
		BusyLabel:      "Requesting...",
		Label:          "Update OS",
	},
	ActionUpdateAll: {
		Kind:           ActionUpdateAll,
		Method:         http.MethodPost,
		PathTemplate:   "/api/computer/{id}/update_all",
		TargetsMachine: true,
		Verb:           "update every application on",
		Strategy:       SuccessDelayedReload,
		ReloadDelay:    15 * time.Second,
		BusyLabel:      "Requesting...",
		Label:          "Update all",
	},
	ActionRefreshAll: {
		Kind:         ActionRefreshAll,
		Method:       http.MethodPost,
		PathTemplate: "/api/computers/refresh_all",
		Strategy:     SuccessDelayedReload,
		ReloadDelay:  15 * time.Second,
		BusyLabel:    "Sending...",
		Label:        "Refresh all",
	},
	ActionDeployAgent: {
		Kind:         ActionDeployAgent,
		Method:       http.MethodPost,
		PathTemplate: "/api/agent/deploy_update",
		Verb:         "deploy the agent update to",
		Strategy:     SuccessNotify,
		BusyLabel:    "Deploying...",
		Label:        "Deploy agent update",
	},
	ActionDelete: {
		Kind:           ActionDelete,
		Method:         http.MethodDelete,
		PathTemplate:   "/api/computer/{id}",
		TargetsMachine: true,
		Verb:           "delete",
		Warning:        "The machine and all its reports will be removed from the dashboard.",
		Strategy:       SuccessNotify,
		BusyLabel:      "Deleting...",
		Label:          "Delete",
	},
}

// ActionKinds returns all the known action kinds.
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionRefresh, ActionUpdate, ActionUninstall, ActionUpdateOS,
		ActionUpdateAll, ActionRefreshAll, ActionDeployAgent, ActionDelete,
	}
}

// Spec returns the action kind description.
func (k ActionKind) Spec() (ActionSpec, error) {
	s, ok := actionSpecs[k]
	if !ok {
		return ActionSpec{}, fmt.Errorf("unknown action %q: %w", k, ErrNotValid)
	}
	return s, nil
}

// Path returns the endpoint path for a machine.
func (s ActionSpec) Path(machineID string) string {
	return strings.ReplaceAll(s.PathTemplate, "{id}", url.PathEscape(machineID))
}

// ViewPath returns the dashboard view that shows the result of the action.
func (s ActionSpec) ViewPath(machineID string) string {
	if s.TargetsMachine && s.Kind != ActionDelete {
		return "/computer/" + url.PathEscape(machineID)
	}
	return "/"
}

// ActionRequest is a single operator request, it's immutable once sent.
type ActionRequest struct {
	Kind      ActionKind
	MachineID string
	PackageID string
	UpdateID  string
	// AppName is the human name of the package, used on confirmations.
	AppName string
	Force   bool
}

// Validate checks the request has what its kind needs.
func (r ActionRequest) Validate() error {
	spec, err := r.Kind.Spec()
	if err != nil {
		return err
	}

	if spec.TargetsMachine && r.MachineID == "" {
		return fmt.Errorf("machine is required for %s: %w", r.Kind, ErrNotValid)
	}

	if spec.NeedsPackage && r.PackageID == "" {
		return fmt.Errorf("package is required for %s: %w", r.Kind, ErrNotValid)
	}

	return nil
}

// NeedsConfirmation returns true when the operator must confirm the action before sending it.
func (r ActionRequest) NeedsConfirmation() bool {
	spec, err := r.Kind.Spec()
	if err != nil {
		return false
	}
	return spec.Verb != "" || r.Force
}

// ConfirmationMessage returns the question presented to the operator.
func (r ActionRequest) ConfirmationMessage() string {
	spec, err := r.Kind.Spec()
	if err != nil {
		return ""
	}

	verb := spec.Verb
	if verb == "" {
		verb = strings.ToLower(spec.Label)
	}
	if r.Force {
		verb = "force " + verb
	}

	msg := fmt.Sprintf("Are you sure you want to %s %q?", verb, r.subject(spec))
	if r.Force {
		msg += "\n\nForcing will close the running application on the machine without asking the user."
	}
	if spec.Warning != "" {
		msg += "\n\n" + spec.Warning
	}

	return msg
}

func (r ActionRequest) subject(spec ActionSpec) string {
	switch {
	case r.AppName != "":
		return r.AppName
	case r.PackageID != "":
		return r.PackageID
	case spec.TargetsMachine:
		return "machine " + r.MachineID
	default:
		return "all machines"
	}
}

// ActionResultStatusSuccess is the status the dashboard uses for accepted actions.
const ActionResultStatusSuccess = "success"

// ActionResult is the dashboard answer to an action request.
type ActionResult struct {
	Status  string
	TaskID  string
	Message string
}

// Succeeded returns true if the dashboard accepted the action.
func (r ActionResult) Succeeded() bool { return r.Status == ActionResultStatusSuccess }
