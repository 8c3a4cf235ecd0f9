package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/updash/internal/dashboard/api"
	"github.com/slok/updash/internal/model"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Header http.Header
}

// newTestClient creates a client backed by an httptest server that captures the received requests.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*api.Client, *[]capturedRequest) {
	t.Helper()

	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cr := capturedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		}
		data, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 && r.Header.Get("Content-Type") == "application/json" {
			_ = json.Unmarshal(data, &cr.Body)
		}
		reqs = append(reqs, cr)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := api.NewClient(api.ClientConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "secret",
		Now:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)

	return c, &reqs
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	tests := map[string]struct {
		cfg    api.ClientConfig
		expErr bool
	}{
		"A valid config should create the client": {
			cfg: api.ClientConfig{BaseURL: "http://dashboard:5000"},
		},
		"Missing base URL should fail": {
			cfg:    api.ClientConfig{},
			expErr: true,
		},
		"Non HTTP schemes should fail": {
			cfg:    api.ClientConfig{BaseURL: "ftp://dashboard"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := api.NewClient(test.cfg)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClientDispatch(t *testing.T) {
	tests := map[string]struct {
		req       model.ActionRequest
		handler   http.HandlerFunc
		expMethod string
		expPath   string
		expBody   map[string]any
		expResult *model.ActionResult
		expErr    error
	}{
		"A refresh should be sent without body and return the task": {
			req: model.ActionRequest{Kind: model.ActionRefresh, MachineID: "42"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "success", "task_id": "abc"})
			},
			expMethod: http.MethodPost,
			expPath:   "/api/computer/42/refresh",
			expResult: &model.ActionResult{Status: "success", TaskID: "abc"},
		},
		"An update should send the package, update and force": {
			req: model.ActionRequest{Kind: model.ActionUpdate, MachineID: "42", PackageID: "Mozilla.Firefox", UpdateID: "11", Force: true},
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "success", "task_id": "t2"})
			},
			expMethod: http.MethodPost,
			expPath:   "/api/computer/42/update",
			expBody:   map[string]any{"package_id": "Mozilla.Firefox", "update_id": "11", "force": true},
			expResult: &model.ActionResult{Status: "success", TaskID: "t2"},
		},
		"An uninstall rejection should be returned as a result": {
			req: model.ActionRequest{Kind: model.ActionUninstall, MachineID: "7", PackageID: "p1"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "locked"})
			},
			expMethod: http.MethodPost,
			expPath:   "/api/computer/7/uninstall",
			expBody:   map[string]any{"package_id": "p1"},
			expResult: &model.ActionResult{Status: "error", Message: "locked"},
		},
		"A rejection with a non OK code should still carry the message": {
			req: model.ActionRequest{Kind: model.ActionUpdateAll, MachineID: "7"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "busy"})
			},
			expMethod: http.MethodPost,
			expPath:   "/api/computer/7/update_all",
			expResult: &model.ActionResult{Status: "error", Message: "busy"},
		},
		"A delete should use the delete method": {
			req: model.ActionRequest{Kind: model.ActionDelete, MachineID: "9"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "deleted"})
			},
			expMethod: http.MethodDelete,
			expPath:   "/api/computer/9",
			expResult: &model.ActionResult{Status: "success", Message: "deleted"},
		},
		"A non OK code without JSON should be a transport error": {
			req: model.ActionRequest{Kind: model.ActionRefreshAll},
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			expMethod: http.MethodPost,
			expPath:   "/api/computers/refresh_all",
			expErr:    model.ErrTransport,
		},
		"An OK code with an empty body should not be accepted": {
			req: model.ActionRequest{Kind: model.ActionDeployAgent},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			expMethod: http.MethodPost,
			expPath:   "/api/agent/deploy_update",
			expResult: &model.ActionResult{},
		},
		"An OK code with JSON without status should not be accepted": {
			req: model.ActionRequest{Kind: model.ActionUninstall, MachineID: "7", PackageID: "p1"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"message": "locked"})
			},
			expMethod: http.MethodPost,
			expPath:   "/api/computer/7/uninstall",
			expBody:   map[string]any{"package_id": "p1"},
			expResult: &model.ActionResult{Message: "locked"},
		},
		"An OK code without JSON should be a transport error": {
			req: model.ActionRequest{Kind: model.ActionDeployAgent},
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>ok</html>"))
			},
			expMethod: http.MethodPost,
			expPath:   "/api/agent/deploy_update",
			expErr:    model.ErrTransport,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			c, reqs := newTestClient(t, test.handler)

			res, err := c.Dispatch(context.Background(), test.req)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else if assert.NoError(err) {
				assert.Equal(test.expResult, res)
			}

			require.Len(*reqs, 1)
			got := (*reqs)[0]
			assert.Equal(test.expMethod, got.Method)
			assert.Equal(test.expPath, got.Path)
			assert.Equal(test.expBody, got.Body)
			assert.Equal("secret", got.Header.Get(api.APIKeyHeader))
			assert.NotEmpty(got.Header.Get(api.RequestIDHeader))
		})
	}
}

func TestClientTaskStatus(t *testing.T) {
	tests := map[string]struct {
		handler   http.HandlerFunc
		expTask   *model.Task
		expErr    error
		expErrNot error
	}{
		"A known status should be normalized": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "zakończone", "result_details": "ok"})
			},
			expTask: &model.Task{ID: "abc", Status: model.TaskStatusCompleted, ResultDetails: "ok"},
		},
		"A 404 should be a not found": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			expErr: model.ErrNotFound,
		},
		"A server error should be a transport error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			expErr:    model.ErrTransport,
			expErrNot: model.ErrNotFound,
		},
		"Invalid JSON should be a transport error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			expErr: model.ErrTransport,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			c, reqs := newTestClient(t, test.handler)

			task, err := c.TaskStatus(context.Background(), "abc")
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				if test.expErrNot != nil {
					assert.NotErrorIs(err, test.expErrNot)
				}
			} else if assert.NoError(err) {
				assert.Equal(test.expTask, task)
			}

			assert.Equal("/api/task_status/abc", (*reqs)[0].Path)
			assert.Equal(http.MethodGet, (*reqs)[0].Method)
		})
	}
}

func TestClientSaveBlacklist(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})

	res, err := c.SaveBlacklist(context.Background(), "42", "edge\nteams")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "/api/computer/42/blacklist", (*reqs)[0].Path)
	assert.Equal(t, map[string]any{"blacklist_keywords": "edge\nteams"}, (*reqs)[0].Body)
}

func TestClientFetchView(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	})

	err := c.FetchView(context.Background(), "/computer/42")
	require.NoError(t, err)
	assert.Equal(t, "/computer/42", (*reqs)[0].Path)
	assert.Equal(t, "t=1700000000000", (*reqs)[0].Query)
}

func TestClientGenerateAgent(t *testing.T) {
	cfg := model.AgentBuildConfig{
		APIEndpoint1:   "http://dashboard:5000/api/report",
		APIKey:         "k",
		LoopInterval:   60,
		ReportInterval: 60,
	}

	tests := map[string]struct {
		handler     http.HandlerFunc
		expFilename string
		expBody     string
		expErr      bool
	}{
		"The filename should come from the content disposition": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				if r.PostForm.Get("loop_interval") != "60" || r.PostForm.Get("api_key") != "k" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/vnd.microsoft.portable-executable")
				w.Header().Set("Content-Disposition", `attachment; filename=WingetAgentInstaller.exe`)
				_, _ = w.Write([]byte("MZ-binary"))
			},
			expFilename: "WingetAgentInstaller.exe",
			expBody:     "MZ-binary",
		},
		"Missing content disposition should default the filename": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write([]byte("MZ"))
			},
			expFilename: "agent.exe",
			expBody:     "MZ",
		},
		"An HTML answer means the build failed": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html>settings</html>"))
			},
			expErr: true,
		},
		"Non OK codes should fail": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			c, reqs := newTestClient(t, test.handler)

			bin, err := c.GenerateAgent(context.Background(), cfg)
			assert.Equal("/settings/generate_exe", (*reqs)[0].Path)
			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			defer bin.Body.Close()

			data, err := io.ReadAll(bin.Body)
			require.NoError(err)
			assert.Equal(test.expFilename, bin.Filename)
			assert.Equal(test.expBody, string(data))
		})
	}
}

func TestAttachmentFilename(t *testing.T) {
	tests := map[string]struct {
		header string
		exp    string
	}{
		"Empty header should use the default":       {header: "", exp: "agent.exe"},
		"Quoted filenames should be parsed":         {header: `attachment; filename="agent_v2.exe"`, exp: "agent_v2.exe"},
		"Path components should be removed":         {header: `attachment; filename="../../etc/agent.exe"`, exp: "agent.exe"},
		"Windows path components should be removed": {header: `attachment; filename="C:\\tmp\\a.exe"`, exp: "a.exe"},
		"Malformed headers should use the default":  {header: `attachment; filename`, exp: "agent.exe"},
		"Missing filename should use the default":   {header: `attachment`, exp: "agent.exe"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, api.AttachmentFilename(test.header))
		})
	}
}
