package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	sdklib "github.com/slok/updash/pkg/lib"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	URL       string
	APIKey    string
	MachineID string
}

func (c *Config) defaults() error {
	if c.URL == "" {
		return fmt.Errorf("dashboard url is required (UPDASH_INTEGRATION_URL)")
	}

	if c.MachineID == "" {
		return fmt.Errorf("a machine registered on the dashboard is required (UPDASH_INTEGRATION_MACHINE)")
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "UPDASH_INTEGRATION"
		envURL        = "UPDASH_INTEGRATION_URL"
		envAPIKey     = "UPDASH_INTEGRATION_API_KEY"
		envMachine    = "UPDASH_INTEGRATION_MACHINE"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		URL:       os.Getenv(envURL),
		APIKey:    os.Getenv(envAPIKey),
		MachineID: os.Getenv(envMachine),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// NewTestClient creates an SDK client with a temp SQLite DB for test isolation.
// The client talks to the real dashboard.
func NewTestClient(t *testing.T, config Config) *sdklib.Client {
	t.Helper()

	client, err := sdklib.New(context.Background(), sdklib.Config{
		URL:    config.URL,
		APIKey: config.APIKey,
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
