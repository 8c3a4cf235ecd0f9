package updash

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/updash/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary    string
	URL       string
	APIKey    string
	MachineID string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "updash"
	}

	// If relative, the caller should pass an absolute path via the env var,
	// because go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("UPDASH_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("updash binary not found at %q: %w", c.Binary, err)
	}

	if c.URL == "" {
		return fmt.Errorf("dashboard url is required (UPDASH_INTEGRATION_URL)")
	}

	if c.MachineID == "" {
		return fmt.Errorf("a machine registered on the dashboard is required (UPDASH_INTEGRATION_MACHINE)")
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "UPDASH_INTEGRATION"
		envBinary     = "UPDASH_INTEGRATION_BINARY"
		envURL        = "UPDASH_INTEGRATION_URL"
		envAPIKey     = "UPDASH_INTEGRATION_API_KEY"
		envMachine    = "UPDASH_INTEGRATION_MACHINE"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary:    os.Getenv(envBinary),
		URL:       os.Getenv(envURL),
		APIKey:    os.Getenv(envAPIKey),
		MachineID: os.Getenv(envMachine),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// NewCLI returns the updash runner for the configured dashboard with an isolated history database.
func NewCLI(t *testing.T, config Config) testutils.CLI {
	t.Helper()

	return testutils.CLI{
		Binary: config.Binary,
		URL:    config.URL,
		APIKey: config.APIKey,
		DBPath: filepath.Join(t.TempDir(), "updash.db"),
	}
}
