package view

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/updash/internal/log"
)

// ViewFetcher knows how to fetch a dashboard view bypassing caches.
type ViewFetcher interface {
	FetchView(ctx context.Context, path string) error
}

// ReloaderConfig is the configuration of the view reloader.
type ReloaderConfig struct {
	Client ViewFetcher
	Logger log.Logger
}

func (c *ReloaderConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "view.Reloader"})
	return nil
}

// Reloader refreshes dashboard views once their data changed. Only full views are
// reloaded, partial updates are never attempted.
type Reloader struct {
	client ViewFetcher
	logger log.Logger
}

// NewReloader returns a new view reloader.
func NewReloader(cfg ReloaderConfig) (*Reloader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Reloader{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Reload fetches the view with a cache-busting parameter.
func (r *Reloader) Reload(ctx context.Context, path string) error {
	if err := r.client.FetchView(ctx, path); err != nil {
		return fmt.Errorf("could not reload view %s: %w", path, err)
	}

	r.logger.Debugf("View %s reloaded", path)
	return nil
}

// ReloadAfter waits the delay and reloads the view. Cancelling the context cancels the reload.
func (r *Reloader) ReloadAfter(ctx context.Context, path string, delay time.Duration) error {
	r.logger.Debugf("View %s will be reloaded in %s", path, delay)

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	return r.Reload(ctx, path)
}
