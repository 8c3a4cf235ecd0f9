package doctor

import (
	"context"
	"fmt"

	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/storage"
	"github.com/slok/updash/internal/view"
)

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	// Client is nil when the dashboard URL is not configured.
	Client     view.ViewFetcher
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})

	return nil
}

// Service runs the preflight checks of the local setup.
type Service struct {
	client view.ViewFetcher
	repo   storage.ActionRepository
	logger log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client: cfg.Client,
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the doctor request parameters.
type Request struct {
	APIKey string
	// Agent are the profile agent settings, nil when not configured.
	Agent *model.AgentBuildConfig
}

// Run executes every check, failed checks never stop the next ones.
func (s *Service) Run(ctx context.Context, req Request) []model.CheckResult {
	results := []model.CheckResult{
		s.checkDashboard(ctx),
		checkAPIKey(req.APIKey),
		s.checkHistory(ctx),
		checkAgent(req.Agent),
	}

	ok, warnings, errs := model.CountByStatus(results)
	s.logger.Debugf("Checks finished: %d ok, %d warnings, %d errors", ok, warnings, errs)

	return results
}

func (s *Service) checkDashboard(ctx context.Context) model.CheckResult {
	const id = "dashboard_reachable"

	if s.client == nil {
		return model.CheckResult{
			ID:      id,
			Message: "dashboard url is not configured",
			Status:  model.CheckStatusError,
		}
	}

	if err := s.client.FetchView(ctx, "/"); err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("dashboard is not reachable: %s", err),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{ID: id, Message: "dashboard answered", Status: model.CheckStatusOK}
}

func checkAPIKey(key string) model.CheckResult {
	const id = "api_key"

	if key == "" {
		return model.CheckResult{
			ID:      id,
			Message: "no api key configured, protected endpoints will be rejected",
			Status:  model.CheckStatusWarning,
		}
	}

	return model.CheckResult{ID: id, Message: "api key configured", Status: model.CheckStatusOK}
}

func (s *Service) checkHistory(ctx context.Context) model.CheckResult {
	const id = "history_db"

	if _, err := s.repo.ListActions(ctx, storage.ListActionsOpts{Limit: 1}); err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("action history is not readable: %s", err),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{ID: id, Message: "action history is readable", Status: model.CheckStatusOK}
}

func checkAgent(cfg *model.AgentBuildConfig) model.CheckResult {
	const id = "agent_profile"

	if cfg == nil {
		return model.CheckResult{
			ID:      id,
			Message: "no agent settings on the profile, agent download needs flags",
			Status:  model.CheckStatusWarning,
		}
	}

	if err := cfg.Validate(); err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("invalid agent settings: %s", err),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{ID: id, Message: "agent settings are valid", Status: model.CheckStatusOK}
}
