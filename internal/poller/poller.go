package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
)

const (
	// DefaultInterval is the time between two status requests.
	DefaultInterval = 5 * time.Second
	// DefaultMaxAttempts bounds a poll to 3 minutes with the default interval.
	DefaultMaxAttempts = 36
)

// StatusGetter knows how to get the status of a task.
type StatusGetter interface {
	TaskStatus(ctx context.Context, taskID string) (*model.Task, error)
}

// Config is the configuration for the poller.
type Config struct {
	Client      StatusGetter
	Interval    time.Duration
	MaxAttempts int
	Logger      log.Logger
}

func (c *Config) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "poller.Poller"})
	return nil
}

// Callbacks are invoked from the polling goroutine, in order.
// Any of them can be nil.
type Callbacks struct {
	// OnUpdate is called with every non terminal status.
	OnUpdate func(status model.TaskStatus)
	// OnComplete is called once with the terminal status.
	OnComplete func(status model.TaskStatus)
	// OnError is called once when polling fails or times out.
	OnError func(err error)
}

// Poller follows dashboard tasks until they reach a terminal status.
type Poller struct {
	client      StatusGetter
	interval    time.Duration
	maxAttempts int
	logger      log.Logger
}

// NewPoller returns a new task poller.
func NewPoller(cfg Config) (*Poller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Poller{
		client:      cfg.Client,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger,
	}, nil
}

// Handle controls a running poll.
type Handle struct {
	taskID string
	cancel context.CancelFunc
	done   chan struct{}

	// Set before done is closed.
	status model.TaskStatus
	err    error
}

// TaskID returns the followed task.
func (h *Handle) TaskID() string { return h.taskID }

// Cancel stops polling, no more requests are made and no callback is called
// after the current one (if any) returns.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed when the poll ends.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the poll ends and returns the terminal status or the error.
func (h *Handle) Wait() (model.TaskStatus, error) {
	<-h.done
	return h.status, h.err
}

// Poll starts following a task in the background. The first request is made after one interval,
// the next one is only scheduled once the previous answer has been processed, so requests of
// the same poll never overlap.
func (p *Poller) Poll(ctx context.Context, taskID string, cb Callbacks) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		taskID: taskID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		defer close(h.done)
		h.status, h.err = p.run(ctx, taskID, cb)
	}()

	return h
}

// Wait polls a task and blocks until it's finished.
func (p *Poller) Wait(ctx context.Context, taskID string, onUpdate func(model.TaskStatus)) (model.TaskStatus, error) {
	return p.Poll(ctx, taskID, Callbacks{OnUpdate: onUpdate}).Wait()
}

func (p *Poller) run(ctx context.Context, taskID string, cb Callbacks) (model.TaskStatus, error) {
	logger := p.logger.WithValues(log.Kv{"task": taskID})

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			logger.Debugf("Polling cancelled")
			return "", ctx.Err()
		case <-timer.C:
		}

		task, err := p.client.TaskStatus(ctx, taskID)
		if ctx.Err() != nil {
			logger.Debugf("Polling cancelled")
			return "", ctx.Err()
		}

		switch {
		case errors.Is(err, model.ErrNotFound):
			// The dashboard forgot the task, nothing more will happen with it.
			logger.Warningf("Task not found on the dashboard")
			if cb.OnComplete != nil {
				cb.OnComplete(model.TaskStatusNotFound)
			}
			return model.TaskStatusNotFound, nil

		case err != nil:
			err = fmt.Errorf("could not get task %s status: %w", taskID, err)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return "", err

		case task.Status.IsTerminal():
			logger.Debugf("Task finished with status %q after %d attempts", task.Status, attempt)
			if cb.OnComplete != nil {
				cb.OnComplete(task.Status)
			}
			return task.Status, nil
		}

		logger.Debugf("Task status %q (attempt %d/%d)", task.Status, attempt, p.maxAttempts)
		if cb.OnUpdate != nil {
			cb.OnUpdate(task.Status)
		}

		if attempt >= p.maxAttempts {
			err := fmt.Errorf("task %s not finished after %d attempts: %w", taskID, attempt, model.ErrPollTimeout)
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return task.Status, err
		}

		timer.Reset(p.interval)
	}
}
