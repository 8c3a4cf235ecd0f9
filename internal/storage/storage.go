package storage

import (
	"context"

	"github.com/slok/updash/internal/model"
)

// ListActionsOpts filters the listed actions.
type ListActionsOpts struct {
	// MachineID only returns the actions of a machine when set.
	MachineID string
	// Limit is the maximum number of actions returned, 0 means no limit.
	Limit int
}

// ActionRepository is the interface for the local action history persistence.
type ActionRepository interface {
	CreateAction(ctx context.Context, a model.ActionRecord) error
	UpdateAction(ctx context.Context, a model.ActionRecord) error
	GetAction(ctx context.Context, id string) (*model.ActionRecord, error)
	// ListActions returns the actions, newest first.
	ListActions(ctx context.Context, opts ListActionsOpts) ([]model.ActionRecord, error)
}

// SettingsRepository is the interface for the operator preferences persistence.
type SettingsRepository interface {
	// GetTheme returns the stored theme, model.ErrNotFound if not stored yet.
	GetTheme(ctx context.Context) (model.Theme, error)
	SetTheme(ctx context.Context, t model.Theme) error
}

// Repository is the interface for the local state persistence.
type Repository interface {
	ActionRepository
	SettingsRepository
}
