package theme

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/storage"
)

// ServiceConfig is the configuration for the theme service.
type ServiceConfig struct {
	Repository storage.SettingsRepository
	// Default is used while no theme has been stored.
	Default model.Theme
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Default == "" {
		c.Default = model.DefaultTheme
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Theme"})

	return nil
}

// Service manages the operator theme preference.
type Service struct {
	repo   storage.SettingsRepository
	def    model.Theme
	logger log.Logger
}

// NewService creates a new theme service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		def:    cfg.Default,
		logger: cfg.Logger,
	}, nil
}

// Get returns the stored theme or the default one.
func (s *Service) Get(ctx context.Context) (model.Theme, error) {
	t, err := s.repo.GetTheme(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return s.def, nil
		}
		return "", fmt.Errorf("could not get theme: %w", err)
	}
	return t, nil
}

// Set stores the theme.
func (s *Service) Set(ctx context.Context, name string) (model.Theme, error) {
	t, err := model.ParseTheme(name)
	if err != nil {
		return "", err
	}

	if err := s.repo.SetTheme(ctx, t); err != nil {
		return "", fmt.Errorf("could not set theme: %w", err)
	}

	s.logger.Debugf("Theme set to %s", t)
	return t, nil
}

// Toggle switches between the dark and light themes and stores the result.
func (s *Service) Toggle(ctx context.Context) (model.Theme, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return "", err
	}

	return s.Set(ctx, string(current.Toggle()))
}
