package io

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/updash/internal/model"
)

func TestProfileYAMLRepository_GetProfile(t *testing.T) {
	tests := map[string]struct {
		fs         fstest.MapFS
		path       string
		expProfile model.Profile
		expErr     bool
		errMsg     string
	}{
		"Full profile should load successfully": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{
					Data: []byte(`url: https://updates.example.com
api_key: secret
poll_interval: 2s
poll_max_attempts: 10
timeout: 1m
theme: dark
agent:
  api_endpoint_1: https://updates.example.com/api
  loop_interval: 60
  report_interval: 3600
  winget_path: C:\winget.exe
`),
				},
			},
			path: "config.yaml",
			expProfile: model.Profile{
				URL:             "https://updates.example.com",
				APIKey:          "secret",
				PollInterval:    2 * time.Second,
				PollMaxAttempts: 10,
				Timeout:         time.Minute,
				Theme:           model.ThemeDark,
				Agent: &model.AgentBuildConfig{
					APIEndpoint1:   "https://updates.example.com/api",
					LoopInterval:   60,
					ReportInterval: 3600,
					WingetPath:     `C:\winget.exe`,
				},
			},
		},

		"Empty profile should load successfully": {
			fs: fstest.MapFS{
				"empty.yaml": &fstest.MapFile{Data: []byte("---\n")},
			},
			path:       "empty.yaml",
			expProfile: model.Profile{},
		},

		"Missing file should return error": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading profile file",
		},

		"Invalid YAML should return error": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{Data: []byte(`invalid: yaml: content: {}`)},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},

		"A non HTTP url should return error": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("url: ftp://updates.example.com\n")},
			},
			path:   "config.yaml",
			expErr: true,
			errMsg: "url scheme must be http or https",
		},

		"An unknown theme should return error": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("theme: solarized\n")},
			},
			path:   "config.yaml",
			expErr: true,
			errMsg: "unknown theme",
		},

		"A negative poll interval should return error": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("poll_interval: -1s\n")},
			},
			path:   "config.yaml",
			expErr: true,
			errMsg: "poll_interval can't be negative",
		},

		"An invalid agent section should return error": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("agent:\n  loop_interval: 60\n")},
			},
			path:   "config.yaml",
			expErr: true,
			errMsg: "agent:",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewProfileYAMLRepository(tc.fs)
			p, err := repo.GetProfile(context.Background(), tc.path)

			if tc.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expProfile, p)
		})
	}
}

func TestProfileYAMLRepository_GetProfile_ContextCancellation(t *testing.T) {
	fs := fstest.MapFS{
		"config.yaml": &fstest.MapFile{Data: []byte("url: https://updates.example.com\n")},
	}

	repo := NewProfileYAMLRepository(fs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetProfile(ctx, "config.yaml")
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}
