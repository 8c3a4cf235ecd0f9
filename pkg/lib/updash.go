package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/updash/internal/app/agentbuild"
	"github.com/slok/updash/internal/app/blacklist"
	"github.com/slok/updash/internal/app/dispatch"
	"github.com/slok/updash/internal/app/history"
	"github.com/slok/updash/internal/app/taskstatus"
	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/dashboard/api"
	"github.com/slok/updash/internal/dashboard/fake"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/poller"
	"github.com/slok/updash/internal/storage"
	"github.com/slok/updash/internal/storage/memory"
	"github.com/slok/updash/internal/storage/sqlite"
	"github.com/slok/updash/internal/ui"
)

// Config configures the SDK client.
//
// Only URL is required when talking to a real dashboard. With [DashboardFake]
// an empty Config{Dashboard: lib.DashboardFake} is enough.
type Config struct {
	// URL is the dashboard origin (e.g. "http://dashboard.local:5000").
	// Required unless Dashboard is [DashboardFake].
	URL string

	// APIKey is sent on every dashboard request when set.
	APIKey string

	// Timeout is the HTTP timeout of a single dashboard request.
	// Default: 30s.
	Timeout time.Duration

	// Dashboard selects the dashboard implementation.
	// Default: [DashboardHTTP].
	//
	// Set this to [DashboardFake] for testing without a running dashboard.
	Dashboard DashboardType

	// DBPath is the SQLite database path where the action history is kept.
	// When empty the history is kept in memory and lost on [Client.Close].
	DBPath string

	// PollInterval is the time between task status queries.
	// Default: 5s.
	PollInterval time.Duration

	// PollMaxAttempts is the number of status queries before giving up on a task.
	// Default: 36.
	PollMaxAttempts int

	// ReloadDelay overrides the per action delay used before reloading the
	// view of actions that don't return a task.
	ReloadDelay time.Duration

	// Confirm is asked before destructive or forced actions. Returning false
	// declines the action. Default: every action is confirmed.
	Confirm func(ctx context.Context, message string) (bool, error)

	// Notify receives the progress of every action, scoped by action and machine.
	// Default: no notifications.
	Notify func(level NotifyLevel, scope, message string)

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Dashboard == "" {
		c.Dashboard = DashboardHTTP
	}

	if c.Dashboard == DashboardHTTP && c.URL == "" {
		return fmt.Errorf("url is required: %w", ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point for driving the dashboard programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use, every action is followed independently.
type Client struct {
	dispatcher *dispatch.Service
	blacklist  *blacklist.Service
	tasks      *taskstatus.Service
	agents     *agentbuild.Service
	history    *history.Service
	logger     log.Logger
	closeFn    func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the history
// database. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{URL: "http://dashboard.local:5000"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dc, err := newDashboard(cfg)
	if err != nil {
		return nil, mapError(err)
	}

	repo, closeFn, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p, err := poller.NewPoller(poller.Config{
		Client:      dc,
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		Logger:      cfg.Logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("could not create poller: %w", err)
	}

	notifier := ui.NoopNotifier
	if cfg.Notify != nil {
		notify := cfg.Notify
		notifier = ui.NotifierFunc(func(level ui.Level, scope, msg string) {
			notify(fromInternalLevel(level), scope, msg)
		})
	}

	var confirmer ui.Confirmer = ui.AutoConfirmer(true)
	if cfg.Confirm != nil {
		confirmer = ui.ConfirmerFunc(cfg.Confirm)
	}

	dispatcher, err := dispatch.NewService(dispatch.ServiceConfig{
		Client:      dc,
		Repository:  repo,
		Confirmer:   confirmer,
		Notifier:    notifier,
		Poller:      p,
		ReloadDelay: cfg.ReloadDelay,
		Logger:      cfg.Logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("could not create dispatcher: %w", err)
	}

	bl, err := blacklist.NewService(blacklist.ServiceConfig{
		Client:     dc,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Logger:     cfg.Logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("could not create blacklist service: %w", err)
	}

	tasks, err := taskstatus.NewService(taskstatus.ServiceConfig{
		Client: dc,
		Poller: p,
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("could not create task status service: %w", err)
	}

	agents, err := agentbuild.NewService(agentbuild.ServiceConfig{
		Client: dc,
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("could not create agent build service: %w", err)
	}

	hist, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     cfg.Logger,
	})
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("could not create history service: %w", err)
	}

	return &Client{
		dispatcher: dispatcher,
		blacklist:  bl,
		tasks:      tasks,
		agents:     agents,
		history:    hist,
		logger:     cfg.Logger,
		closeFn:    closeFn,
	}, nil
}

// Close releases resources held by the client, including the history database.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

func newDashboard(cfg Config) (dashboard.Client, error) {
	switch cfg.Dashboard {
	case DashboardHTTP:
		dc, err := api.NewClient(api.ClientConfig{
			BaseURL: cfg.URL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create dashboard client: %w: %w", err, ErrNotValid)
		}
		return dc, nil
	case DashboardFake:
		dc, err := fake.NewClient(fake.ClientConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create fake dashboard: %w", err)
		}
		return dc, nil
	default:
		return nil, fmt.Errorf("unsupported dashboard type: %s: %w", cfg.Dashboard, ErrNotValid)
	}
}

func newRepository(ctx context.Context, cfg Config) (storage.ActionRepository, func() error, error) {
	if cfg.DBPath == "" {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create repository: %w", err)
		}
		return repo, func() error { return nil }, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	return repo, repo.Close, nil
}

// RunAction sends an action to the dashboard and blocks until its result is
// visible: the task reached a terminal status and the view was reloaded, or the
// fallback reload delay elapsed.
//
// A declined confirmation is not an error, the returned record has the
// [OutcomeDeclined] outcome. A task that ends without success returns the final
// record together with an error matching [ErrTaskFailed].
func (c *Client) RunAction(ctx context.Context, req ActionRequest) (*ActionRecord, error) {
	rec, err := c.dispatcher.Run(ctx, dispatch.Request{Action: toInternalActionRequest(req)})
	if err != nil {
		if rec.ID == "" {
			return nil, mapError(err)
		}
		r := fromInternalActionRecord(rec)
		return &r, mapError(err)
	}

	r := fromInternalActionRecord(rec)
	return &r, nil
}

// StartAction sends an action to the dashboard and returns as soon as the
// dashboard answered. The action keeps being followed in the background until
// ctx is done or [PendingAction.Cancel] is called.
func (c *Client) StartAction(ctx context.Context, req ActionRequest) (*PendingAction, error) {
	res, err := c.dispatcher.Dispatch(ctx, dispatch.Request{Action: toInternalActionRequest(req)})
	if err != nil {
		return nil, mapError(err)
	}

	return &PendingAction{res: res}, nil
}

// PendingAction is an accepted action being followed in the background.
type PendingAction struct {
	res *dispatch.Result
}

// Record returns the action as it was when the dashboard answered.
func (p *PendingAction) Record() ActionRecord { return fromInternalActionRecord(p.res.Record) }

// Declined returns true when the confirmation was declined and nothing was sent.
func (p *PendingAction) Declined() bool { return p.res.Declined }

// Cancel stops following the action. The dashboard task is not cancelled.
func (p *PendingAction) Cancel() { p.res.Cancel() }

// Done is closed once the action has been followed to the end.
func (p *PendingAction) Done() <-chan struct{} { return p.res.Done() }

// Wait blocks until the action has been followed to the end.
func (p *PendingAction) Wait() (*ActionRecord, error) {
	rec, err := p.res.Wait()
	r := fromInternalActionRecord(rec)
	return &r, mapError(err)
}

// SaveBlacklist replaces the package blacklist of a machine and then refreshes
// the machine, waiting for the refresh task like [Client.RunAction].
func (c *Client) SaveBlacklist(ctx context.Context, machineID string, keywords []string) (*ActionRecord, error) {
	rec, err := c.blacklist.Run(ctx, blacklist.Request{MachineID: machineID, Keywords: keywords})
	if err != nil {
		return nil, mapError(err)
	}

	r := fromInternalActionRecord(rec)
	return &r, nil
}

// GetTask returns the current status of a task. A task unknown by the
// dashboard is reported with the [TaskStatusNotFound] status.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	t, err := c.tasks.Run(ctx, taskstatus.Request{TaskID: taskID})
	if err != nil {
		return nil, mapError(err)
	}

	task := fromInternalTask(*t)
	return &task, nil
}

// WaitTask polls a task until it reaches a terminal status. onUpdate, when
// not nil, receives every non terminal status.
//
// Returns an error matching [ErrPollTimeout] when the attempt budget is spent.
func (c *Client) WaitTask(ctx context.Context, taskID string, onUpdate func(TaskStatus)) (*Task, error) {
	req := taskstatus.Request{TaskID: taskID, Wait: true}
	if onUpdate != nil {
		req.OnUpdate = toInternalStatusFunc(onUpdate)
	}

	t, err := c.tasks.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	task := fromInternalTask(*t)
	return &task, nil
}

// DownloadAgent asks the dashboard to generate an agent binary with the given
// settings and stores it on disk.
func (c *Client) DownloadAgent(ctx context.Context, cfg AgentConfig, opts *DownloadAgentOpts) (*AgentDownload, error) {
	req := agentbuild.Request{Config: toInternalAgentConfig(cfg)}
	if opts != nil {
		req.OutputPath = opts.OutputPath
		req.OutputDir = opts.OutputDir
	}

	resp, err := c.agents.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return &AgentDownload{Path: resp.Path, SizeBytes: resp.SizeBytes}, nil
}

// ListHistory returns the actions sent with this client, newest first.
//
// When opts is nil the latest 20 actions are returned.
func (c *Client) ListHistory(ctx context.Context, opts *ListHistoryOpts) ([]ActionRecord, error) {
	req := history.Request{}
	if opts != nil {
		req.MachineID = opts.MachineID
		req.Limit = opts.Limit
	}

	recs, err := c.history.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalActionRecordList(recs), nil
}
