package testutils

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// CLI runs the updash binary against a dashboard. The dashboard settings are
// passed with the env vars the binary reads, so they win over any profile.
type CLI struct {
	Binary string
	URL    string
	APIKey string
	// DBPath isolates the action history of the run.
	DBPath string
	// Log keeps the logger enabled, disabled by default so stderr only has errors.
	Log bool
}

func (c CLI) env() []string {
	env := append([]string{}, os.Environ()...)
	// Last duplicated key wins on exec.Cmd.
	env = append(env,
		"UPDASH_URL="+c.URL,
		"UPDASH_API_KEY="+c.APIKey,
	)
	if c.DBPath != "" {
		env = append(env, "UPDASH_DB_PATH="+c.DBPath)
	}
	if !c.Log {
		env = append(env, "UPDASH_NO_LOG=true")
	}
	return env
}

// Run executes updash with the arguments as they are, arguments with spaces
// (e.g. blacklist keywords like "visual c++") are kept whole.
func (c CLI) Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData
	cmd.Env = c.env()

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}
