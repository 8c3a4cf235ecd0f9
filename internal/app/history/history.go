package history

import (
	"context"
	"fmt"

	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/storage"
)

// DefaultLimit is the number of actions listed when no limit is requested.
const DefaultLimit = 20

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.ActionRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.History"})

	return nil
}

// Service lists the locally recorded actions.
type Service struct {
	repo   storage.ActionRepository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	MachineID string
	// Limit defaults to DefaultLimit, negative means all.
	Limit int
}

// Run returns the actions, newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.ActionRecord, error) {
	limit := req.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0:
		limit = 0
	}

	actions, err := s.repo.ListActions(ctx, storage.ListActionsOpts{MachineID: req.MachineID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("could not list actions: %w", err)
	}

	s.logger.Debugf("Listed %d actions", len(actions))
	return actions, nil
}
