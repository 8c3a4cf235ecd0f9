package taskstatus

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/poller"
)

// TaskWaiter blocks until a task is finished.
type TaskWaiter interface {
	Wait(ctx context.Context, taskID string, onUpdate func(model.TaskStatus)) (model.TaskStatus, error)
}

// ServiceConfig is the configuration for the task status service.
type ServiceConfig struct {
	Client dashboard.Client
	// Poller defaults to a poller over the client.
	Poller TaskWaiter
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskStatus"})

	if c.Poller == nil {
		p, err := poller.NewPoller(poller.Config{Client: c.Client, Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create poller: %w", err)
		}
		c.Poller = p
	}

	return nil
}

// Service queries dashboard tasks.
type Service struct {
	client dashboard.Client
	poller TaskWaiter
	logger log.Logger
}

// NewService creates a new task status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		poller: cfg.Poller,
		logger: cfg.Logger,
	}, nil
}

// Request represents the task status request parameters.
type Request struct {
	TaskID string
	// Wait blocks until the task is terminal.
	Wait bool
	// OnUpdate receives the non terminal statuses while waiting.
	OnUpdate func(model.TaskStatus)
}

// Run returns the task status, a task unknown by the dashboard is reported as not found.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	if req.TaskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	if req.Wait {
		status, err := s.poller.Wait(ctx, req.TaskID, req.OnUpdate)
		if err != nil {
			return nil, fmt.Errorf("could not wait for task: %w", err)
		}
		return s.get(ctx, req.TaskID, status)
	}

	return s.get(ctx, req.TaskID, model.TaskStatusNotFound)
}

func (s *Service) get(ctx context.Context, taskID string, fallback model.TaskStatus) (*model.Task, error) {
	task, err := s.client.TaskStatus(ctx, taskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Debugf("Task %s not found on the dashboard", taskID)
			return &model.Task{ID: taskID, Status: fallback}, nil
		}
		return nil, fmt.Errorf("could not get task status: %w", err)
	}

	return task, nil
}
