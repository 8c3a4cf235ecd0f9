package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	actions map[string]model.ActionRecord
	theme   model.Theme
	mu      sync.RWMutex
	logger  log.Logger
}

var _ storage.Repository = &Repository{}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		actions: make(map[string]model.ActionRecord),
		logger:  cfg.Logger,
	}, nil
}

// CreateAction stores a new action record.
func (r *Repository) CreateAction(ctx context.Context, a model.ActionRecord) error {
	if a.ID == "" {
		return fmt.Errorf("action id is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[a.ID]; ok {
		return fmt.Errorf("action %s: %w", a.ID, model.ErrNotValid)
	}

	r.actions[a.ID] = copyAction(a)
	r.logger.Debugf("Created action in repository: %s", a.ID)

	return nil
}

// UpdateAction updates an existing action record.
func (r *Repository) UpdateAction(ctx context.Context, a model.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[a.ID]; !ok {
		return fmt.Errorf("action %s: %w", a.ID, model.ErrNotFound)
	}

	r.actions[a.ID] = copyAction(a)
	r.logger.Debugf("Updated action in repository: %s", a.ID)

	return nil
}

// GetAction retrieves an action by ID.
func (r *Repository) GetAction(ctx context.Context, id string) (*model.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[id]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", id, model.ErrNotFound)
	}

	a = copyAction(a)
	return &a, nil
}

// ListActions returns the actions, newest first.
func (r *Repository) ListActions(ctx context.Context, opts storage.ListActionsOpts) ([]model.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var actions []model.ActionRecord
	for _, a := range r.actions {
		if opts.MachineID != "" && a.MachineID != opts.MachineID {
			continue
		}
		actions = append(actions, copyAction(a))
	}

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].CreatedAt.Equal(actions[j].CreatedAt) {
			return actions[i].ID > actions[j].ID
		}
		return actions[i].CreatedAt.After(actions[j].CreatedAt)
	})

	if opts.Limit > 0 && len(actions) > opts.Limit {
		actions = actions[:opts.Limit]
	}

	return actions, nil
}

// GetTheme returns the stored theme.
func (r *Repository) GetTheme(ctx context.Context) (model.Theme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.theme == "" {
		return "", fmt.Errorf("theme: %w", model.ErrNotFound)
	}
	return r.theme, nil
}

// SetTheme stores the theme.
func (r *Repository) SetTheme(ctx context.Context, t model.Theme) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.theme = t
	return nil
}

func copyAction(a model.ActionRecord) model.ActionRecord {
	if a.FinishedAt != nil {
		t := *a.FinishedAt
		a.FinishedAt = &t
	}
	return a
}
