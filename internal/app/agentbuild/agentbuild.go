package agentbuild

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/slok/updash/internal/dashboard"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
)

// ServiceConfig is the configuration for the agent build service.
type ServiceConfig struct {
	Client dashboard.Client
	// StatusWriter receives the download progress, nil disables it.
	StatusWriter io.Writer
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.AgentBuild"})

	return nil
}

// Service asks the dashboard to generate an agent binary and downloads it.
type Service struct {
	client       dashboard.Client
	statusWriter io.Writer
	logger       log.Logger
}

// NewService creates a new agent build service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		client:       cfg.Client,
		statusWriter: cfg.StatusWriter,
		logger:       cfg.Logger,
	}, nil
}

// Request represents the agent build request parameters.
type Request struct {
	Config model.AgentBuildConfig
	// OutputPath is the file the agent is written to. When empty the dashboard
	// suggested filename is used inside OutputDir.
	OutputPath string
	OutputDir  string
}

// Response is the downloaded agent.
type Response struct {
	Path      string
	SizeBytes int64
}

// Run generates the agent and stores it on disk.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}

	bin, err := s.client.GenerateAgent(ctx, req.Config)
	if err != nil {
		return nil, fmt.Errorf("could not generate agent: %w", err)
	}
	defer bin.Body.Close()

	dstPath := req.OutputPath
	if dstPath == "" {
		name := filepath.Base(bin.Filename)
		if name == "." || name == "/" || name == "" {
			name = model.DefaultAgentFilename
		}
		dstPath = filepath.Join(req.OutputDir, name)
	}

	if dir := filepath.Dir(dstPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create output directory: %w", err)
		}
	}

	size, err := s.download(bin, dstPath)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Agent stored at %s (%d bytes)", dstPath, size)

	return &Response{Path: dstPath, SizeBytes: size}, nil
}

// download streams the body to a temporary file next to the destination and renames
// it once complete, so a failed download never leaves a truncated agent.
func (s *Service) download(bin *dashboard.AgentBinary, dstPath string) (int64, error) {
	tmpPath := dstPath + ".part"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating file %s: %w", tmpPath, err)
	}

	var dst io.Writer = f
	if s.statusWriter != nil {
		pw := newProgressWriter(f, s.statusWriter, bin.Size)
		defer pw.finish()
		dst = pw
	}

	n, err := io.Copy(dst, bin.Body)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing file %s: %w", tmpPath, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("moving agent to %s: %w", dstPath, err)
	}

	return n, nil
}
