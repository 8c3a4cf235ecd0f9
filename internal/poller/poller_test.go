package poller_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/updash/internal/dashboard/dashboardmock"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/poller"
)

type recorder struct {
	updates   []model.TaskStatus
	completes []model.TaskStatus
	errs      []error
}

func (r *recorder) callbacks() poller.Callbacks {
	return poller.Callbacks{
		OnUpdate:   func(s model.TaskStatus) { r.updates = append(r.updates, s) },
		OnComplete: func(s model.TaskStatus) { r.completes = append(r.completes, s) },
		OnError:    func(err error) { r.errs = append(r.errs, err) },
	}
}

func newPoller(t *testing.T, client poller.StatusGetter, maxAttempts int) *poller.Poller {
	t.Helper()
	p, err := poller.NewPoller(poller.Config{
		Client:      client,
		Interval:    time.Millisecond,
		MaxAttempts: maxAttempts,
		Logger:      log.Noop,
	})
	require.NoError(t, err)
	return p
}

func TestNewPoller(t *testing.T) {
	_, err := poller.NewPoller(poller.Config{})
	assert.Error(t, err)

	_, err = poller.NewPoller(poller.Config{Client: &dashboardmock.MockClient{}})
	assert.NoError(t, err)
}

func TestPollerTerminalStatuses(t *testing.T) {
	terminals := []model.TaskStatus{
		model.TaskStatusCompleted,
		model.TaskStatusError,
		model.TaskStatusFailedUserIntervention,
		model.TaskStatusNotFound,
		model.TaskStatusDeferredAppRunning,
	}

	for _, terminal := range terminals {
		t.Run(string(terminal), func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := &dashboardmock.MockClient{}
			m.Test(t)
			m.On("TaskStatus", mock.Anything, "abc").Once().Return(&model.Task{ID: "abc", Status: model.TaskStatusPending}, nil)
			m.On("TaskStatus", mock.Anything, "abc").Once().Return(&model.Task{ID: "abc", Status: terminal}, nil)

			rec := &recorder{}
			h := newPoller(t, m, 10).Poll(context.Background(), "abc", rec.callbacks())
			status, err := h.Wait()
			require.NoError(err)

			assert.Equal(terminal, status)
			assert.Equal([]model.TaskStatus{terminal}, rec.completes)
			assert.Equal([]model.TaskStatus{model.TaskStatusPending}, rec.updates)
			assert.Empty(rec.errs)
			m.AssertExpectations(t)
			m.AssertNumberOfCalls(t, "TaskStatus", 2)
		})
	}
}

func TestPollerScenarios(t *testing.T) {
	tests := map[string]struct {
		mock         func(m *dashboardmock.MockClient)
		maxAttempts  int
		expUpdates   []model.TaskStatus
		expCompletes []model.TaskStatus
		expErr       error
		expCalls     int
	}{
		"Pending twice then completed should complete on the third poll": {
			mock: func(m *dashboardmock.MockClient) {
				m.On("TaskStatus", mock.Anything, "abc").Twice().Return(&model.Task{Status: model.TaskStatusPending}, nil)
				m.On("TaskStatus", mock.Anything, "abc").Once().Return(&model.Task{Status: model.TaskStatusCompleted}, nil)
			},
			maxAttempts:  36,
			expUpdates:   []model.TaskStatus{model.TaskStatusPending, model.TaskStatusPending},
			expCompletes: []model.TaskStatus{model.TaskStatusCompleted},
			expCalls:     3,
		},
		"Unknown statuses should be treated as in progress": {
			mock: func(m *dashboardmock.MockClient) {
				m.On("TaskStatus", mock.Anything, "abc").Once().Return(&model.Task{Status: "downloading"}, nil)
				m.On("TaskStatus", mock.Anything, "abc").Once().Return(&model.Task{Status: model.TaskStatusError}, nil)
			},
			maxAttempts:  36,
			expUpdates:   []model.TaskStatus{"downloading"},
			expCompletes: []model.TaskStatus{model.TaskStatusError},
			expCalls:     2,
		},
		"Reaching the attempt budget should time out": {
			mock: func(m *dashboardmock.MockClient) {
				m.On("TaskStatus", mock.Anything, "abc").Times(36).Return(&model.Task{Status: model.TaskStatusInProgress}, nil)
			},
			maxAttempts: 36,
			expUpdates: func() []model.TaskStatus {
				s := make([]model.TaskStatus, 36)
				for i := range s {
					s[i] = model.TaskStatusInProgress
				}
				return s
			}(),
			expErr:   model.ErrPollTimeout,
			expCalls: 36,
		},
		"A transport error should stop immediately": {
			mock: func(m *dashboardmock.MockClient) {
				m.On("TaskStatus", mock.Anything, "abc").Once().Return(nil, &model.HTTPError{StatusCode: 500})
			},
			maxAttempts: 36,
			expErr:      model.ErrTransport,
			expCalls:    1,
		},
		"A missing task should complete as not found": {
			mock: func(m *dashboardmock.MockClient) {
				m.On("TaskStatus", mock.Anything, "abc").Once().Return(&model.Task{Status: model.TaskStatusPending}, nil)
				m.On("TaskStatus", mock.Anything, "abc").Once().Return(nil, model.ErrNotFound)
			},
			maxAttempts:  36,
			expUpdates:   []model.TaskStatus{model.TaskStatusPending},
			expCompletes: []model.TaskStatus{model.TaskStatusNotFound},
			expCalls:     2,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			m := &dashboardmock.MockClient{}
			m.Test(t)
			test.mock(m)

			rec := &recorder{}
			h := newPoller(t, m, test.maxAttempts).Poll(context.Background(), "abc", rec.callbacks())
			_, err := h.Wait()

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				if assert.Len(rec.errs, 1) {
					assert.ErrorIs(rec.errs[0], test.expErr)
				}
				assert.Empty(rec.completes)
			} else {
				assert.NoError(err)
				assert.Empty(rec.errs)
			}
			assert.Equal(test.expUpdates, rec.updates)
			assert.Equal(test.expCompletes, rec.completes)

			m.AssertExpectations(t)
			m.AssertNumberOfCalls(t, "TaskStatus", test.expCalls)
		})
	}
}

func TestPollerCancel(t *testing.T) {
	m := &dashboardmock.MockClient{}
	m.Test(t)

	p, err := poller.NewPoller(poller.Config{Client: m, Interval: time.Hour})
	require.NoError(t, err)

	rec := &recorder{}
	h := p.Poll(context.Background(), "abc", rec.callbacks())
	h.Cancel()

	_, err = h.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.updates)
	assert.Empty(t, rec.completes)
	assert.Empty(t, rec.errs)
	m.AssertNotCalled(t, "TaskStatus", mock.Anything, mock.Anything)
}

func TestPollerContextCancel(t *testing.T) {
	m := &dashboardmock.MockClient{}
	m.Test(t)

	p, err := poller.NewPoller(poller.Config{Client: m, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := p.Poll(ctx, "abc", poller.Callbacks{})
	cancel()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poll didn't stop after the context was cancelled")
	}
	m.AssertNotCalled(t, "TaskStatus", mock.Anything, mock.Anything)
}

// slowGetter tracks the number of concurrent requests.
type slowGetter struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	delay       time.Duration
	finishAt    int32
}

func (s *slowGetter) TaskStatus(ctx context.Context, taskID string) (*model.Task, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	time.Sleep(s.delay)
	if s.calls.Add(1) >= s.finishAt {
		return &model.Task{ID: taskID, Status: model.TaskStatusCompleted}, nil
	}
	return &model.Task{ID: taskID, Status: model.TaskStatusPending}, nil
}

func TestPollerRequestsDontOverlap(t *testing.T) {
	// Requests are slower than the interval.
	g := &slowGetter{delay: 5 * time.Millisecond, finishAt: 4}
	p := newPoller(t, g, 36)

	status, err := p.Wait(context.Background(), "abc", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, status)
	assert.Equal(t, int32(1), g.maxInFlight.Load())
	assert.Equal(t, int32(4), g.calls.Load())
}

func TestPollersAreIndependent(t *testing.T) {
	m := &dashboardmock.MockClient{}
	m.Test(t)
	m.On("TaskStatus", mock.Anything, "t1").Return(&model.Task{Status: model.TaskStatusCompleted}, nil)
	m.On("TaskStatus", mock.Anything, "t2").Once().Return(nil, errors.New("connection reset"))

	p := newPoller(t, m, 36)

	var wg sync.WaitGroup
	var s1 model.TaskStatus
	var err1, err2 error
	h1 := p.Poll(context.Background(), "t1", poller.Callbacks{})
	h2 := p.Poll(context.Background(), "t2", poller.Callbacks{})
	wg.Add(2)
	go func() { defer wg.Done(); s1, err1 = h1.Wait() }()
	go func() { defer wg.Done(); _, err2 = h2.Wait() }()
	wg.Wait()

	assert.NoError(t, err1)
	assert.Equal(t, model.TaskStatusCompleted, s1)
	assert.Error(t, err2)
	assert.Equal(t, "t1", h1.TaskID())
	assert.Equal(t, "t2", h2.TaskID())
}
