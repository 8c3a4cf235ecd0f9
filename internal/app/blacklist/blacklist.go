package blacklist

import (
	"context"
	"fmt"

	"github.com/slok/updash/internal/app/dispatch"
	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/ui"
)

// Dispatcher sends dashboard actions and follows them.
type Dispatcher interface {
	Run(ctx context.Context, req dispatch.Request) (model.ActionRecord, error)
}

// ServiceConfig is the configuration for the blacklist service.
type ServiceConfig struct {
	Client     dashboard.Client
	Dispatcher Dispatcher
	Notifier   ui.Notifier
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.Notifier == nil {
		c.Notifier = ui.NoopNotifier
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Blacklist"})

	return nil
}

// Service replaces the package blacklist of a machine and refreshes its report
// so the dashboard shows the filtered packages.
type Service struct {
	client     dashboard.Client
	dispatcher Dispatcher
	notifier   ui.Notifier
	logger     log.Logger
}

// NewService creates a new blacklist service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:     cfg.Client,
		dispatcher: cfg.Dispatcher,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the blacklist request parameters.
type Request struct {
	MachineID string
	Keywords  []string
	// Button is the form submit control, a new one is used when missing.
	Button *ui.Button
}

// Run saves the keywords and then refreshes the machine, waiting for the refresh task.
func (s *Service) Run(ctx context.Context, req Request) (model.ActionRecord, error) {
	if req.MachineID == "" {
		return model.ActionRecord{}, fmt.Errorf("machine is required: %w", model.ErrNotValid)
	}

	btn := req.Button
	if btn == nil {
		btn = ui.NewButton("Save")
	}
	scope := "blacklist " + req.MachineID

	btn.Busy("Saving...")
	res, err := s.client.SaveBlacklist(ctx, req.MachineID, model.JoinBlacklistKeywords(req.Keywords))
	if err == nil && !res.Succeeded() {
		err = fmt.Errorf("dashboard answered %q: %w", res.Message, model.ErrRejected)
	}
	if err != nil {
		btn.Restore()
		s.notifier.Notify(ui.LevelError, scope, fmt.Sprintf("Could not save the blacklist: %s", err))
		return model.ActionRecord{}, fmt.Errorf("could not save blacklist: %w", err)
	}

	s.logger.Infof("Blacklist of machine %s saved with %d keywords", req.MachineID, len(req.Keywords))
	s.notifier.Notify(ui.LevelSuccess, scope, "Saved! Waiting for the machine report...")

	rec, err := s.dispatcher.Run(ctx, dispatch.Request{
		Action: model.ActionRequest{Kind: model.ActionRefresh, MachineID: req.MachineID},
		Button: btn,
	})
	if err != nil {
		// The dispatcher already restored the button.
		return rec, fmt.Errorf("could not refresh machine after saving the blacklist: %w", err)
	}

	return rec, nil
}
