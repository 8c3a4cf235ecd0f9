package lib_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/updash/pkg/lib"
)

// newTestClient creates a client over the fake dashboard with a temp SQLite DB for test isolation.
func newTestClient(t *testing.T, cfg lib.Config) *lib.Client {
	t.Helper()

	if cfg.Dashboard == "" {
		cfg.Dashboard = lib.DashboardFake
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	if cfg.ReloadDelay == 0 {
		cfg.ReloadDelay = time.Millisecond
	}

	client, err := lib.New(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg   lib.Config
		expIs error
	}{
		"A fake dashboard without URL should work.": {
			cfg: lib.Config{Dashboard: lib.DashboardFake},
		},

		"A real dashboard with URL should work.": {
			cfg: lib.Config{URL: "http://dashboard.local:5000"},
		},

		"A real dashboard without URL should fail.": {
			cfg:   lib.Config{},
			expIs: lib.ErrNotValid,
		},

		"A real dashboard with a non HTTP URL should fail.": {
			cfg:   lib.Config{URL: "ftp://dashboard.local"},
			expIs: lib.ErrNotValid,
		},

		"An unknown dashboard type should fail.": {
			cfg:   lib.Config{Dashboard: "grpc", URL: "http://dashboard.local"},
			expIs: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			client, err := lib.New(context.Background(), test.cfg)
			if test.expIs != nil {
				assert.ErrorIs(err, test.expIs)
				return
			}
			require.NoError(t, err)
			assert.NoError(client.Close())
		})
	}
}

func TestRunAction(t *testing.T) {
	tests := map[string]struct {
		req        lib.ActionRequest
		confirm    func(ctx context.Context, msg string) (bool, error)
		expOutcome lib.ActionOutcome
		expTask    bool
		expIs      error
	}{
		"Refreshing a machine should follow its task until completed.": {
			req:        lib.ActionRequest{Kind: lib.ActionRefresh, MachineID: "42"},
			expOutcome: lib.OutcomeFromStatus(lib.TaskStatusCompleted),
			expTask:    true,
		},

		"Updating a package should follow its task until completed.": {
			req:        lib.ActionRequest{Kind: lib.ActionUpdate, MachineID: "42", PackageID: "7zip.7zip"},
			expOutcome: lib.OutcomeFromStatus(lib.TaskStatusCompleted),
			expTask:    true,
		},

		"Refreshing all the machines should reload the view after the delay.": {
			req:        lib.ActionRequest{Kind: lib.ActionRefreshAll},
			expOutcome: lib.OutcomeAccepted,
		},

		"Deploying the agent should finish with the dashboard answer.": {
			req:        lib.ActionRequest{Kind: lib.ActionDeployAgent},
			expOutcome: lib.OutcomeAccepted,
		},

		"A declined uninstall should not be sent.": {
			req: lib.ActionRequest{Kind: lib.ActionUninstall, MachineID: "42", PackageID: "p1"},
			confirm: func(context.Context, string) (bool, error) {
				return false, nil
			},
			expOutcome: lib.OutcomeDeclined,
		},

		"An update without package should fail.": {
			req:   lib.ActionRequest{Kind: lib.ActionUpdate, MachineID: "42"},
			expIs: lib.ErrNotValid,
		},

		"A refresh without machine should fail.": {
			req:   lib.ActionRequest{Kind: lib.ActionRefresh},
			expIs: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			client := newTestClient(t, lib.Config{Confirm: test.confirm})

			rec, err := client.RunAction(context.Background(), test.req)
			if test.expIs != nil {
				assert.ErrorIs(err, test.expIs)
				return
			}
			require.NoError(err)

			assert.NotEmpty(rec.ID)
			assert.Equal(test.req.Kind, rec.Kind)
			assert.Equal(test.expOutcome, rec.Outcome)
			assert.Equal(test.expTask, rec.TaskID != "")
			assert.NotNil(rec.FinishedAt)
		})
	}
}

func TestRunActionNotifications(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var (
		mu     sync.Mutex
		scopes []string
		levels []lib.NotifyLevel
	)
	client := newTestClient(t, lib.Config{
		Notify: func(level lib.NotifyLevel, scope, _ string) {
			mu.Lock()
			defer mu.Unlock()
			scopes = append(scopes, scope)
			levels = append(levels, level)
		},
	})

	_, err := client.RunAction(context.Background(), lib.ActionRequest{Kind: lib.ActionRefresh, MachineID: "42"})
	require.NoError(err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(levels)
	for _, s := range scopes {
		assert.Equal("refresh 42", s)
	}
	assert.Equal(lib.NotifyInfo, levels[0])
	assert.Equal(lib.NotifySuccess, levels[len(levels)-1])
}

func TestStartActionCancel(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t, lib.Config{PollInterval: time.Hour})

	pending, err := client.StartAction(context.Background(), lib.ActionRequest{Kind: lib.ActionRefresh, MachineID: "42"})
	require.NoError(err)
	assert.False(pending.Declined())
	assert.Equal(lib.OutcomeDispatched, pending.Record().Outcome)

	pending.Cancel()

	select {
	case <-pending.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("action was not cancelled")
	}

	rec, err := pending.Wait()
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(lib.OutcomeDispatched, rec.Outcome)
}

func TestSaveBlacklist(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t, lib.Config{})

	rec, err := client.SaveBlacklist(context.Background(), "42", []string{"edge", "teams"})
	require.NoError(err)
	assert.Equal(lib.ActionRefresh, rec.Kind)
	assert.Equal("42", rec.MachineID)
	assert.Equal(lib.OutcomeFromStatus(lib.TaskStatusCompleted), rec.Outcome)

	_, err = client.SaveBlacklist(context.Background(), "", nil)
	assert.ErrorIs(err, lib.ErrNotValid)
}

func TestTasks(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t, lib.Config{PollInterval: time.Hour})
	ctx := context.Background()

	pending, err := client.StartAction(ctx, lib.ActionRequest{Kind: lib.ActionRefresh, MachineID: "42"})
	require.NoError(err)
	pending.Cancel()
	<-pending.Done()
	taskID := pending.Record().TaskID
	require.NotEmpty(taskID)

	// The fake tasks report pending, in_progress and completed, one per query.
	task, err := client.GetTask(ctx, taskID)
	require.NoError(err)
	assert.Equal(lib.TaskStatusPending, task.Status)
	assert.False(task.Status.IsTerminal())

	task, err = client.GetTask(ctx, taskID)
	require.NoError(err)
	assert.Equal(lib.TaskStatusInProgress, task.Status)

	task, err = client.GetTask(ctx, taskID)
	require.NoError(err)
	assert.Equal(lib.TaskStatusCompleted, task.Status)
	assert.True(task.Status.IsTerminal())

	// Unknown tasks are not found.
	task, err = client.GetTask(ctx, "missing")
	require.NoError(err)
	assert.Equal(lib.TaskStatusNotFound, task.Status)

	_, err = client.GetTask(ctx, "")
	assert.ErrorIs(err, lib.ErrNotValid)
}

func TestWaitTask(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var (
		mu      sync.Mutex
		queries int
	)
	statuses := []string{"pending", "w toku", "zakończone"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/task_status/t1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		st := statuses[min(queries, len(statuses)-1)]
		queries++
		_ = json.NewEncoder(w).Encode(map[string]string{"status": st, "result_details": "ok"})
	}))
	defer srv.Close()

	client := newTestClient(t, lib.Config{Dashboard: lib.DashboardHTTP, URL: srv.URL})

	var updates []lib.TaskStatus
	task, err := client.WaitTask(context.Background(), "t1", func(s lib.TaskStatus) {
		updates = append(updates, s)
	})
	require.NoError(err)
	assert.Equal(lib.TaskStatusCompleted, task.Status)
	assert.Equal([]lib.TaskStatus{lib.TaskStatusPending, lib.TaskStatusInProgress}, updates)

	// Unknown tasks are terminal right away.
	task, err = client.WaitTask(context.Background(), "missing", nil)
	require.NoError(err)
	assert.Equal(lib.TaskStatusNotFound, task.Status)
}

func TestDownloadAgent(t *testing.T) {
	tests := map[string]struct {
		cfg     lib.AgentConfig
		outName string
		expName string
		expIs   error
	}{
		"Downloading an agent should use the dashboard filename.": {
			cfg:     lib.AgentConfig{APIEndpoint1: "http://d", LoopInterval: 60, ReportInterval: 3600},
			expName: "agent.exe",
		},

		"Downloading an agent to a custom path should use it.": {
			cfg:     lib.AgentConfig{APIEndpoint1: "http://d", LoopInterval: 60, ReportInterval: 3600},
			outName: "custom.exe",
			expName: "custom.exe",
		},

		"An agent without endpoint should fail.": {
			cfg:   lib.AgentConfig{LoopInterval: 60, ReportInterval: 3600},
			expIs: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			client := newTestClient(t, lib.Config{})
			dir := t.TempDir()
			opts := &lib.DownloadAgentOpts{OutputDir: dir}
			if test.outName != "" {
				opts.OutputPath = filepath.Join(dir, test.outName)
			}

			dl, err := client.DownloadAgent(context.Background(), test.cfg, opts)
			if test.expIs != nil {
				assert.ErrorIs(err, test.expIs)
				return
			}
			require.NoError(err)

			assert.Equal(filepath.Join(dir, test.expName), dl.Path)
			info, err := os.Stat(dl.Path)
			require.NoError(err)
			assert.Equal(dl.SizeBytes, info.Size())
		})
	}
}

func TestListHistory(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	client := newTestClient(t, lib.Config{})
	ctx := context.Background()

	for _, id := range []string{"1", "2", "1"} {
		_, err := client.RunAction(ctx, lib.ActionRequest{Kind: lib.ActionRefresh, MachineID: id})
		require.NoError(err)
	}

	all, err := client.ListHistory(ctx, nil)
	require.NoError(err)
	require.Len(all, 3)
	assert.Equal("1", all[0].MachineID)
	assert.Equal("2", all[1].MachineID)

	one, err := client.ListHistory(ctx, &lib.ListHistoryOpts{MachineID: "1"})
	require.NoError(err)
	assert.Len(one, 2)

	limited, err := client.ListHistory(ctx, &lib.ListHistoryOpts{Limit: 1})
	require.NoError(err)
	assert.Len(limited, 1)
}

func TestHTTPDashboard(t *testing.T) {
	tests := map[string]struct {
		handler http.HandlerFunc
		expIs   error
	}{
		"A rejected action should fail as rejected.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "machine offline"})
			},
			expIs: lib.ErrRejected,
		},

		"A dashboard error should fail as transport.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expIs: lib.ErrTransport,
		},

		"A failed task should fail as task failed.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/computer/42/refresh" {
					_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "task_id": "t1"})
					return
				}
				if r.URL.Path == "/api/task_status/t1" {
					_ = json.NewEncoder(w).Encode(map[string]string{"status": "error"})
					return
				}
				w.WriteHeader(http.StatusOK)
			},
			expIs: lib.ErrTaskFailed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(test.handler)
			defer srv.Close()

			client := newTestClient(t, lib.Config{Dashboard: lib.DashboardHTTP, URL: srv.URL})

			_, err := client.RunAction(context.Background(), lib.ActionRequest{Kind: lib.ActionRefresh, MachineID: "42"})
			assert.ErrorIs(t, err, test.expIs)
		})
	}
}
