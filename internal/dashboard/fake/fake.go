package fake

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
)

// ClientConfig is the configuration for the fake dashboard.
type ClientConfig struct {
	// TaskStatuses is the sequence every new task reports, one per status query.
	// The last one is repeated. Default: pending, in_progress, completed.
	TaskStatuses []model.TaskStatus
	// Rejections makes action kinds fail with the given message.
	Rejections map[model.ActionKind]string
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if len(c.TaskStatuses) == 0 {
		c.TaskStatuses = []model.TaskStatus{
			model.TaskStatusPending,
			model.TaskStatusInProgress,
			model.TaskStatusCompleted,
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "dashboard.Fake"})
	return nil
}

type fakeTask struct {
	statuses []model.TaskStatus
	queries  int
}

// Client is a fake implementation of the dashboard.Client interface.
// It simulates the dashboard and its agents without any network access.
type Client struct {
	statuses   []model.TaskStatus
	rejections map[model.ActionKind]string
	tasks      map[string]*fakeTask
	dispatched []model.ActionRequest
	blacklists map[string]string
	views      []string
	mu         sync.Mutex
	logger     log.Logger
}

var _ dashboard.Client = &Client{}

// NewClient creates a new fake dashboard.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		statuses:   cfg.TaskStatuses,
		rejections: cfg.Rejections,
		tasks:      make(map[string]*fakeTask),
		blacklists: make(map[string]string),
		logger:     cfg.Logger,
	}, nil
}

func (c *Client) Dispatch(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	spec, err := req.Kind.Spec()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dispatched = append(c.dispatched, req)

	if msg, ok := c.rejections[req.Kind]; ok {
		c.logger.Infof("Rejected fake %s on machine %q: %s", req.Kind, req.MachineID, msg)
		return &model.ActionResult{Status: "error", Message: msg}, nil
	}

	if spec.Strategy != model.SuccessPollTask {
		return &model.ActionResult{
			Status:  model.ActionResultStatusSuccess,
			Message: fmt.Sprintf("%s requested", spec.Label),
		}, nil
	}

	id := c.newTaskLocked()
	c.logger.Infof("Created fake task %s for %s on machine %q", id, req.Kind, req.MachineID)

	return &model.ActionResult{Status: model.ActionResultStatusSuccess, TaskID: id}, nil
}

func (c *Client) TaskStatus(ctx context.Context, taskID string) (*model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	idx := t.queries
	if idx >= len(t.statuses) {
		idx = len(t.statuses) - 1
	}
	t.queries++

	return &model.Task{ID: taskID, Status: t.statuses[idx]}, nil
}

func (c *Client) SaveBlacklist(ctx context.Context, machineID string, keywords string) (*model.ActionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blacklists[machineID] = keywords
	return &model.ActionResult{Status: model.ActionResultStatusSuccess}, nil
}

func (c *Client) GenerateAgent(ctx context.Context, cfg model.AgentBuildConfig) (*dashboard.AgentBinary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	content := fmt.Sprintf("fake agent for %s", cfg.APIEndpoint1)
	return &dashboard.AgentBinary{
		Filename: model.DefaultAgentFilename,
		Size:     int64(len(content)),
		Body:     io.NopCloser(strings.NewReader(content)),
	}, nil
}

func (c *Client) FetchView(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.views = append(c.views, path)
	return nil
}

// Dispatched returns the action requests received.
func (c *Client) Dispatched() []model.ActionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]model.ActionRequest(nil), c.dispatched...)
}

// Blacklist returns the stored blacklist of a machine.
func (c *Client) Blacklist(machineID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blacklists[machineID]
}

// Views returns the fetched view paths.
func (c *Client) Views() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.views...)
}

func (c *Client) newTaskLocked() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	c.tasks[id] = &fakeTask{statuses: c.statuses}
	return id
}
