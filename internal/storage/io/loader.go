package io

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/updash/internal/model"
)

// ProfileYAMLRepository loads operator profiles from YAML files.
type ProfileYAMLRepository struct {
	fs fs.FS
}

// NewProfileYAMLRepository creates a new YAML profile repository.
func NewProfileYAMLRepository(filesystem fs.FS) *ProfileYAMLRepository {
	return &ProfileYAMLRepository{fs: filesystem}
}

// GetProfile loads a profile from a YAML file and returns a validated domain model.
func (r *ProfileYAMLRepository) GetProfile(ctx context.Context, path string) (model.Profile, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Profile{}, fmt.Errorf("reading profile file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Profile{}, ctx.Err()
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Profile{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := p.validate(); err != nil {
		return model.Profile{}, fmt.Errorf("invalid profile: %w", err)
	}

	return p.toModel(), nil
}

// Profile represents the YAML structure of an operator profile.
type Profile struct {
	URL             string        `yaml:"url"`
	APIKey          string        `yaml:"api_key"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollMaxAttempts int           `yaml:"poll_max_attempts"`
	Timeout         time.Duration `yaml:"timeout"`
	Theme           string        `yaml:"theme"`
	Agent           *AgentConfig  `yaml:"agent,omitempty"`
}

// AgentConfig represents the YAML structure of the agent generation settings.
type AgentConfig struct {
	APIEndpoint1   string `yaml:"api_endpoint_1"`
	APIEndpoint2   string `yaml:"api_endpoint_2"`
	APIKey         string `yaml:"api_key"`
	LoopInterval   int    `yaml:"loop_interval"`
	ReportInterval int    `yaml:"report_interval"`
	WingetPath     string `yaml:"winget_path"`
}

func (p Profile) validate() error {
	if p.URL != "" {
		u, err := url.Parse(p.URL)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url scheme must be http or https, got: %q", u.Scheme)
		}
	}
	if p.PollInterval < 0 {
		return fmt.Errorf("poll_interval can't be negative, got: %s", p.PollInterval)
	}
	if p.PollMaxAttempts < 0 {
		return fmt.Errorf("poll_max_attempts can't be negative, got: %d", p.PollMaxAttempts)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout can't be negative, got: %s", p.Timeout)
	}
	if p.Theme != "" {
		if _, err := model.ParseTheme(p.Theme); err != nil {
			return err
		}
	}
	if p.Agent != nil {
		if err := p.Agent.toModel().Validate(); err != nil {
			return fmt.Errorf("agent: %w", err)
		}
	}
	return nil
}

func (p Profile) toModel() model.Profile {
	m := model.Profile{
		URL:             p.URL,
		APIKey:          p.APIKey,
		PollInterval:    p.PollInterval,
		PollMaxAttempts: p.PollMaxAttempts,
		Timeout:         p.Timeout,
		Theme:           model.Theme(p.Theme),
	}
	if p.Agent != nil {
		a := p.Agent.toModel()
		m.Agent = &a
	}
	return m
}

func (a AgentConfig) toModel() model.AgentBuildConfig {
	return model.AgentBuildConfig{
		APIEndpoint1:   a.APIEndpoint1,
		APIEndpoint2:   a.APIEndpoint2,
		APIKey:         a.APIKey,
		LoopInterval:   a.LoopInterval,
		ReportInterval: a.ReportInterval,
		WingetPath:     a.WingetPath,
	}
}
