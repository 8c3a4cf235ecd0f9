package model

import (
	"fmt"
	"strings"
)

// DefaultAgentFilename is used when the dashboard doesn't name the generated agent.
const DefaultAgentFilename = "agent.exe"

// AgentBuildConfig are the settings baked into a generated agent binary.
type AgentBuildConfig struct {
	APIEndpoint1 string
	APIEndpoint2 string
	APIKey       string
	// LoopInterval and ReportInterval are in seconds.
	LoopInterval   int
	ReportInterval int
	WingetPath     string
}

// Validate checks the build configuration.
func (c AgentBuildConfig) Validate() error {
	if c.APIEndpoint1 == "" {
		return fmt.Errorf("primary api endpoint is required: %w", ErrNotValid)
	}
	if c.LoopInterval <= 0 {
		return fmt.Errorf("loop interval must be positive: %w", ErrNotValid)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive: %w", ErrNotValid)
	}
	return nil
}

// DefaultBlacklistKeywords are the dashboard default package exclusions.
var DefaultBlacklistKeywords = []string{
	"redistributable",
	"visual c++",
	".net framework",
	"microsoft",
	"windows",
	"bing",
	"edge",
	"onedrive",
	"office",
	"teams",
	"outlook",
	"store",
	"vcredist",
}

// JoinBlacklistKeywords returns the keywords in the dashboard format (one per line).
func JoinBlacklistKeywords(kws []string) string {
	clean := make([]string, 0, len(kws))
	for _, kw := range kws {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		clean = append(clean, kw)
	}
	return strings.Join(clean, "\n")
}
