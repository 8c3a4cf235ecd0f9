package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/poller"
	"github.com/slok/updash/internal/storage"
	"github.com/slok/updash/internal/ui"
	"github.com/slok/updash/internal/view"
)

// TaskPoller follows a dashboard task in the background.
type TaskPoller interface {
	Poll(ctx context.Context, taskID string, cb poller.Callbacks) *poller.Handle
}

// ViewReloader refreshes dashboard views.
type ViewReloader interface {
	Reload(ctx context.Context, path string) error
	ReloadAfter(ctx context.Context, path string, delay time.Duration) error
}

// ServiceConfig is the configuration for the dispatch service.
type ServiceConfig struct {
	Client     dashboard.Client
	Repository storage.ActionRepository
	Confirmer  ui.Confirmer
	Notifier   ui.Notifier
	// Poller defaults to a poller over the client.
	Poller TaskPoller
	// Reloader defaults to a reloader over the client.
	Reloader ViewReloader
	// ReloadDelay replaces the per action fallback reload delay when set.
	ReloadDelay time.Duration
	IDGen       func() string
	Now         func() time.Time
	Logger      log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Confirmer == nil {
		return fmt.Errorf("confirmer is required")
	}

	if c.Notifier == nil {
		c.Notifier = ui.NoopNotifier
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Dispatch"})

	if c.Poller == nil {
		p, err := poller.NewPoller(poller.Config{Client: c.Client, Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create poller: %w", err)
		}
		c.Poller = p
	}

	if c.Reloader == nil {
		r, err := view.NewReloader(view.ReloaderConfig{Client: c.Client, Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create view reloader: %w", err)
		}
		c.Reloader = r
	}

	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}

	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return nil
}

// Service is the dashboard controller, it sends operator actions and follows them
// until the dashboard view shows their result.
type Service struct {
	client      dashboard.Client
	repo        storage.ActionRepository
	confirmer   ui.Confirmer
	notifier    ui.Notifier
	poller      TaskPoller
	reloader    ViewReloader
	reloadDelay time.Duration
	idGen       func() string
	now         func() time.Time
	logger      log.Logger
}

// NewService creates a new dispatch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:      cfg.Client,
		repo:        cfg.Repository,
		confirmer:   cfg.Confirmer,
		notifier:    cfg.Notifier,
		poller:      cfg.Poller,
		reloader:    cfg.Reloader,
		reloadDelay: cfg.ReloadDelay,
		idGen:       cfg.IDGen,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}, nil
}

// Request represents the dispatch request parameters.
type Request struct {
	Action model.ActionRequest
	// Button is the control that triggered the action, a new one is used when missing.
	Button *ui.Button
}

// Result follows an accepted action until its result is visible.
type Result struct {
	// Record is the action as it was when the dashboard answered.
	Record model.ActionRecord
	// Declined is true when the operator didn't confirm the action.
	Declined bool

	cancel context.CancelFunc
	done   chan struct{}

	// Set before done is closed.
	final model.ActionRecord
	err   error
}

// Cancel stops following the action.
func (r *Result) Cancel() { r.cancel() }

// Done is closed when the action has been followed to the end.
func (r *Result) Done() <-chan struct{} { return r.done }

// Wait blocks until the action ends and returns its final record.
func (r *Result) Wait() (model.ActionRecord, error) {
	<-r.done
	return r.final, r.err
}

func finishedResult(rec model.ActionRecord, declined bool) *Result {
	r := &Result{
		Record:   rec,
		Declined: declined,
		cancel:   func() {},
		done:     make(chan struct{}),
		final:    rec,
	}
	close(r.done)
	return r
}

// Dispatch sends one action to the dashboard. When the dashboard accepts it, the returned
// result keeps following it in the background (task poll or delayed reload) until ctx
// is done or the result is cancelled.
func (s *Service) Dispatch(ctx context.Context, req Request) (*Result, error) {
	action := req.Action
	if err := action.Validate(); err != nil {
		return nil, err
	}

	spec, err := action.Kind.Spec()
	if err != nil {
		return nil, err
	}

	btn := req.Button
	if btn == nil {
		btn = ui.NewButton(spec.Label)
	}

	rec := model.ActionRecord{
		ID:        s.idGen(),
		Kind:      action.Kind,
		MachineID: action.MachineID,
		PackageID: action.PackageID,
		Force:     action.Force,
		CreatedAt: s.now(),
	}
	logger := s.logger.WithValues(log.Kv{"action": action.Kind, "machine": action.MachineID, "action-id": rec.ID})

	if action.NeedsConfirmation() {
		ok, err := s.confirmer.Confirm(ctx, action.ConfirmationMessage())
		if err != nil {
			return nil, fmt.Errorf("could not confirm action: %w", err)
		}
		if !ok {
			logger.Infof("Action declined by operator")
			rec.Outcome = model.ActionOutcomeDeclined
			s.finish(&rec, "")
			s.store(ctx, logger, rec, true)
			return finishedResult(rec, true), nil
		}
	}

	scope := scopeOf(action)
	btn.Busy(spec.BusyLabel)

	res, err := s.client.Dispatch(ctx, action)
	if err == nil && !res.Succeeded() {
		msg := res.Message
		switch {
		case msg != "":
		case res.Status == "":
			msg = "no status"
		default:
			msg = "status " + res.Status
		}
		err = fmt.Errorf("dashboard answered %q: %w", msg, model.ErrRejected)
	}
	if err != nil {
		btn.Restore()
		s.notifier.Notify(ui.LevelError, scope, fmt.Sprintf("Could not send the action: %s", err))

		rec.Outcome = model.ActionOutcomeFailed
		if errors.Is(err, model.ErrRejected) {
			rec.Outcome = model.ActionOutcomeRejected
		}
		s.finish(&rec, err.Error())
		s.store(ctx, logger, rec, true)

		return nil, fmt.Errorf("could not dispatch %s: %w", action.Kind, err)
	}

	rec.TaskID = res.TaskID
	rec.Message = res.Message
	rec.Outcome = model.ActionOutcomeAccepted
	if spec.Strategy == model.SuccessPollTask && res.TaskID != "" {
		rec.Outcome = model.ActionOutcomeDispatched
	}
	s.store(ctx, logger, rec, true)

	fctx, cancel := context.WithCancel(ctx)
	result := &Result{
		Record: rec,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	switch {
	case spec.Strategy == model.SuccessPollTask && res.TaskID != "":
		logger.Infof("Action dispatched, following task %s", res.TaskID)
		s.notifier.Notify(ui.LevelInfo, scope, "Dispatched, waiting for the agent...")
		go s.follow(result, func() (model.ActionRecord, error) {
			return s.followTask(fctx, logger, spec, action, btn, rec)
		})

	case spec.Strategy == model.SuccessNotify:
		msg := res.Message
		if msg == "" {
			msg = "Done"
		}
		s.notifier.Notify(ui.LevelSuccess, scope, msg)
		btn.Restore()
		s.finish(&rec, rec.Message)
		s.store(ctx, logger, rec, false)
		cancel()
		result.final = rec
		close(result.done)

	default:
		delay := s.reloadDelay
		if delay <= 0 {
			delay = spec.ReloadDelay
		}
		logger.Infof("Action accepted, reloading view in %s", delay)
		btn.SetLabel("Dispatched")
		s.notifier.Notify(ui.LevelWarning, scope, fmt.Sprintf("Dispatched, the view will be reloaded in %s", delay))
		go s.follow(result, func() (model.ActionRecord, error) {
			return s.followDelayed(fctx, logger, spec, action, btn, rec, delay)
		})
	}

	return result, nil
}

// Run dispatches an action and waits until it has been followed to the end.
func (s *Service) Run(ctx context.Context, req Request) (model.ActionRecord, error) {
	res, err := s.Dispatch(ctx, req)
	if err != nil {
		return model.ActionRecord{}, err
	}
	return res.Wait()
}

func (s *Service) follow(r *Result, f func() (model.ActionRecord, error)) {
	defer r.cancel()
	defer close(r.done)
	r.final, r.err = f()
}

func (s *Service) followTask(ctx context.Context, logger log.Logger, spec model.ActionSpec, action model.ActionRequest, btn *ui.Button, rec model.ActionRecord) (model.ActionRecord, error) {
	scope := scopeOf(action)
	var (
		mu       sync.Mutex
		finalErr error
	)

	h := s.poller.Poll(ctx, rec.TaskID, poller.Callbacks{
		OnUpdate: func(status model.TaskStatus) {
			s.notifier.Notify(ui.LevelInfo, scope, fmt.Sprintf("In progress... (status: %s)", status))
		},
		OnComplete: func(status model.TaskStatus) {
			mu.Lock()
			defer mu.Unlock()

			rec.Outcome = model.OutcomeFromTaskStatus(status)
			s.finish(&rec, rec.Message)
			s.store(ctx, logger, rec, false)

			if status.IsSuccess() {
				s.notifier.Notify(ui.LevelSuccess, scope, "Completed, reloading view")
			} else {
				finalErr = fmt.Errorf("task %s finished with status %s: %w", rec.TaskID, status, model.ErrTaskFailed)
				s.notifier.Notify(ui.LevelError, scope, fmt.Sprintf("Finished with status %s, reloading view", status))
			}

			if err := s.reloader.Reload(ctx, spec.ViewPath(action.MachineID)); err != nil {
				logger.Warningf("Could not reload view: %s", err)
			}
			// The reloaded view renders the button again.
			btn.Restore()
		},
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()

			btn.Restore()
			s.notifier.Notify(ui.LevelError, scope, fmt.Sprintf("Polling failed: %s", err))

			rec.Outcome = model.ActionOutcomeFailed
			s.finish(&rec, err.Error())
			s.store(ctx, logger, rec, false)
			finalErr = err
		},
	})

	if _, err := h.Wait(); err != nil && ctx.Err() != nil {
		// Cancelled, no callback has been called.
		btn.Restore()
		logger.Infof("Stopped following task %s", rec.TaskID)
		return rec, err
	}

	mu.Lock()
	defer mu.Unlock()
	return rec, finalErr
}

func (s *Service) followDelayed(ctx context.Context, logger log.Logger, spec model.ActionSpec, action model.ActionRequest, btn *ui.Button, rec model.ActionRecord, delay time.Duration) (model.ActionRecord, error) {
	defer btn.Restore()

	err := s.reloader.ReloadAfter(ctx, spec.ViewPath(action.MachineID), delay)
	if err != nil {
		if ctx.Err() != nil {
			logger.Infof("Delayed reload cancelled")
			return rec, err
		}
		logger.Warningf("Could not reload view: %s", err)
	}

	s.finish(&rec, rec.Message)
	s.store(ctx, logger, rec, false)

	return rec, nil
}

func (s *Service) finish(rec *model.ActionRecord, msg string) {
	now := s.now()
	rec.FinishedAt = &now
	rec.Message = msg
}

// store persists the record, the history is best effort and never fails an action.
func (s *Service) store(ctx context.Context, logger log.Logger, rec model.ActionRecord, create bool) {
	ctx = context.WithoutCancel(ctx)

	var err error
	if create {
		err = s.repo.CreateAction(ctx, rec)
	} else {
		err = s.repo.UpdateAction(ctx, rec)
	}
	if err != nil {
		logger.Warningf("Could not store action history: %s", err)
	}
}

func scopeOf(a model.ActionRequest) string {
	if a.MachineID == "" {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s %s", a.Kind, a.MachineID)
}
