package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
)

const (
	// APIKeyHeader is the header the dashboard authenticates requests with.
	APIKeyHeader = "X-API-Key"
	// RequestIDHeader correlates a request with the dashboard logs.
	RequestIDHeader = "X-Request-ID"

	generateAgentPath = "/settings/generate_exe"
	cacheBustingParam = "t"
	userAgent         = "updash"
	maxErrorBodyBytes = 64 * 1024
)

// ClientConfig configures the dashboard HTTP client.
type ClientConfig struct {
	// BaseURL is the dashboard origin (e.g. "http://dashboard.local:5000").
	BaseURL string
	// APIKey is sent on every request when set.
	APIKey string
	// Timeout is applied to the default HTTP client.
	Timeout time.Duration
	// HTTPClient is the HTTP client for API and download requests.
	HTTPClient *http.Client
	// Now is used for cache-busting parameters.
	Now    func() time.Time
	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "dashboard.API"})
	return nil
}

// Client implements dashboard.Client using the dashboard REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
	logger     log.Logger
}

var _ dashboard.Client = &Client{}

// NewClient creates a new dashboard HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}, nil
}

// --- JSON wire types ---

type actionRequestJSON struct {
	PackageID string `json:"package_id,omitempty"`
	UpdateID  string `json:"update_id,omitempty"`
	Force     bool   `json:"force,omitempty"`
}

func (a actionRequestJSON) empty() bool { return a == actionRequestJSON{} }

type actionResultJSON struct {
	Status  string `json:"status"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (a actionResultJSON) toModel() *model.ActionResult {
	return &model.ActionResult{
		Status:  a.Status,
		TaskID:  a.TaskID,
		Message: a.Message,
	}
}

type taskStatusJSON struct {
	Status        string `json:"status"`
	ResultDetails string `json:"result_details"`
}

type blacklistRequestJSON struct {
	BlacklistKeywords string `json:"blacklist_keywords"`
}

// --- dashboard.Client implementation ---

func (c *Client) Dispatch(ctx context.Context, req model.ActionRequest) (*model.ActionResult, error) {
	spec, err := req.Kind.Spec()
	if err != nil {
		return nil, err
	}

	body := actionRequestJSON{
		PackageID: req.PackageID,
		UpdateID:  req.UpdateID,
		Force:     req.Force,
	}
	var payload any
	if !body.empty() {
		payload = body
	}

	return c.doAction(ctx, spec.Method, spec.Path(req.MachineID), payload)
}

func (c *Client) SaveBlacklist(ctx context.Context, machineID string, keywords string) (*model.ActionResult, error) {
	path := "/api/computer/" + url.PathEscape(machineID) + "/blacklist"
	return c.doAction(ctx, http.MethodPost, path, blacklistRequestJSON{BlacklistKeywords: keywords})
}

func (c *Client) TaskStatus(ctx context.Context, taskID string) (*model.Task, error) {
	path := "/api/task_status/" + url.PathEscape(taskID)
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{StatusCode: resp.StatusCode, Method: http.MethodGet, Path: path}
	}

	var ts taskStatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("could not decode task status: %w: %w", err, model.ErrTransport)
	}

	return &model.Task{
		ID:            taskID,
		Status:        model.ParseTaskStatus(ts.Status),
		ResultDetails: ts.ResultDetails,
	}, nil
}

func (c *Client) GenerateAgent(ctx context.Context, cfg model.AgentBuildConfig) (*dashboard.AgentBinary, error) {
	form := url.Values{}
	form.Set("api_endpoint_1", cfg.APIEndpoint1)
	form.Set("api_endpoint_2", cfg.APIEndpoint2)
	form.Set("api_key", cfg.APIKey)
	form.Set("loop_interval", strconv.Itoa(cfg.LoopInterval))
	form.Set("report_interval", strconv.Itoa(cfg.ReportInterval))
	form.Set("winget_path", cfg.WingetPath)

	resp, err := c.do(ctx, http.MethodPost, generateAgentPath, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &model.HTTPError{StatusCode: resp.StatusCode, Method: http.MethodPost, Path: generateAgentPath}
	}

	// On build failures the dashboard redirects back to the settings page.
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "text/html" {
		resp.Body.Close()
		return nil, fmt.Errorf("dashboard answered with a page instead of a binary, agent build failed: %w", model.ErrRejected)
	}

	return &dashboard.AgentBinary{
		Filename: AttachmentFilename(resp.Header.Get("Content-Disposition")),
		Size:     resp.ContentLength,
		Body:     resp.Body,
	}, nil
}

func (c *Client) FetchView(ctx context.Context, path string) error {
	u, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid view path %q: %w", path, model.ErrNotValid)
	}
	q := u.Query()
	q.Set(cacheBustingParam, strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	resp, err := c.do(ctx, http.MethodGet, u.String(), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{StatusCode: resp.StatusCode, Method: http.MethodGet, Path: u.Path}
	}

	return nil
}

// AttachmentFilename returns the file name of a Content-Disposition header,
// only the base name is kept. Defaults to model.DefaultAgentFilename.
func AttachmentFilename(contentDisposition string) string {
	if contentDisposition == "" {
		return model.DefaultAgentFilename
	}

	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return model.DefaultAgentFilename
	}

	name := strings.ReplaceAll(params["filename"], `\`, "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return model.DefaultAgentFilename
	}

	return name
}

func (c *Client) doAction(ctx context.Context, method, path string, payload any) (*model.ActionResult, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("could not encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w: %w", err, model.ErrTransport)
	}

	// The dashboard explains rejections in the body even with non OK codes.
	var res actionResultJSON
	decodeErr := json.Unmarshal(data, &res)
	if decodeErr == nil && res.Status != "" {
		c.logger.Debugf("%s %s answered %d with status %q", method, path, resp.StatusCode, res.Status)
		return res.toModel(), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.HTTPError{StatusCode: resp.StatusCode, Method: method, Path: path}
	}

	// Only an explicit success status accepts the action.
	if len(bytes.TrimSpace(data)) == 0 {
		c.logger.Debugf("%s %s answered %d without body", method, path, resp.StatusCode)
		return &model.ActionResult{}, nil
	}
	if decodeErr == nil {
		c.logger.Debugf("%s %s answered %d without status", method, path, resp.StatusCode)
		return res.toModel(), nil
	}

	return nil, fmt.Errorf("could not decode response: %w: %w", decodeErr, model.ErrTransport)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	c.logger.Debugf("%s %s (request %s)", method, path, reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, err, model.ErrTransport)
	}

	return resp, nil
}
