package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/storage"
	"github.com/slok/updash/internal/storage/sqlite/migrations"
)

const settingTheme = "theme"

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

var _ storage.Repository = &Repository{}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if err := migrations.Up(db, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateAction stores a new action record.
func (r *Repository) CreateAction(ctx context.Context, a model.ActionRecord) error {
	if a.ID == "" {
		return fmt.Errorf("action id is required: %w", model.ErrNotValid)
	}

	query := `
		INSERT INTO actions (
			id, kind, machine_id, package_id, force,
			task_id, outcome, message,
			created_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.Kind,
		a.MachineID,
		a.PackageID,
		a.Force,
		a.TaskID,
		a.Outcome,
		a.Message,
		a.CreatedAt.UnixMilli(),
		unixMilliOrNil(a.FinishedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: actions.") {
			return fmt.Errorf("action %s: %w", a.ID, model.ErrNotValid)
		}
		return fmt.Errorf("could not insert action: %w", err)
	}

	r.logger.Debugf("Created action in repository: %s", a.ID)
	return nil
}

// UpdateAction updates an existing action record.
func (r *Repository) UpdateAction(ctx context.Context, a model.ActionRecord) error {
	query := `
		UPDATE actions
		SET
			kind = ?,
			machine_id = ?,
			package_id = ?,
			force = ?,
			task_id = ?,
			outcome = ?,
			message = ?,
			created_at = ?,
			finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		a.Kind,
		a.MachineID,
		a.PackageID,
		a.Force,
		a.TaskID,
		a.Outcome,
		a.Message,
		a.CreatedAt.UnixMilli(),
		unixMilliOrNil(a.FinishedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update action: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("action %s: %w", a.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated action in repository: %s", a.ID)
	return nil
}

// GetAction retrieves an action by ID.
func (r *Repository) GetAction(ctx context.Context, id string) (*model.ActionRecord, error) {
	query := `
		SELECT
			id, kind, machine_id, package_id, force,
			task_id, outcome, message,
			created_at, finished_at
		FROM actions
		WHERE id = ?
	`

	a, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("action %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query action: %w", err)
	}

	return &a, nil
}

// ListActions returns the actions, newest first.
func (r *Repository) ListActions(ctx context.Context, opts storage.ListActionsOpts) ([]model.ActionRecord, error) {
	query := `
		SELECT
			id, kind, machine_id, package_id, force,
			task_id, outcome, message,
			created_at, finished_at
		FROM actions
	`
	var args []any
	if opts.MachineID != "" {
		query += " WHERE machine_id = ?"
		args = append(args, opts.MachineID)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query actions: %w", err)
	}
	defer rows.Close()

	var actions []model.ActionRecord
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return actions, nil
}

// GetTheme returns the stored theme.
func (r *Repository) GetTheme(ctx context.Context) (model.Theme, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingTheme).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("theme: %w", model.ErrNotFound)
		}
		return "", fmt.Errorf("could not query theme: %w", err)
	}

	return model.ParseTheme(value)
}

// SetTheme stores the theme.
func (r *Repository) SetTheme(ctx context.Context, t model.Theme) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.ExecContext(ctx, query, settingTheme, string(t)); err != nil {
		return fmt.Errorf("could not store theme: %w", err)
	}

	r.logger.Debugf("Stored theme: %s", t)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.ActionRecord, error) {
	var a model.ActionRecord
	var kind, outcome string
	var createdAt int64
	var finishedAt sql.NullInt64

	err := s.Scan(
		&a.ID,
		&kind,
		&a.MachineID,
		&a.PackageID,
		&a.Force,
		&a.TaskID,
		&outcome,
		&a.Message,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return model.ActionRecord{}, err
	}

	a.Kind = model.ActionKind(kind)
	a.Outcome = model.ActionOutcome(outcome)
	a.CreatedAt = timeFromUnixMilli(createdAt)
	if finishedAt.Valid {
		t := timeFromUnixMilli(finishedAt.Int64)
		a.FinishedAt = &t
	}

	return a, nil
}

func unixMilliOrNil(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.UnixMilli()
	return &u
}

func timeFromUnixMilli(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
