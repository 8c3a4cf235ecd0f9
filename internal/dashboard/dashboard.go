package dashboard

import (
	"context"
	"io"

	"github.com/slok/updash/internal/model"
)

// AgentBinary is a generated agent ready to be downloaded.
type AgentBinary struct {
	// Filename is the name the dashboard suggests for the binary.
	Filename string
	// Size is the body size, -1 when unknown.
	Size int64
	Body io.ReadCloser
}

// Client is the update management dashboard control plane.
type Client interface {
	// Dispatch sends a single action request.
	Dispatch(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error)
	// TaskStatus returns the current state of a task.
	TaskStatus(ctx context.Context, taskID string) (*model.Task, error)
	// SaveBlacklist replaces the blacklist keywords of a machine.
	SaveBlacklist(ctx context.Context, machineID string, keywords string) (*model.ActionResult, error)
	// GenerateAgent asks the dashboard to build an agent binary, the caller must close the body.
	GenerateAgent(ctx context.Context, cfg model.AgentBuildConfig) (*AgentBinary, error)
	// FetchView requests a dashboard view bypassing caches.
	FetchView(ctx context.Context, path string) error
}
