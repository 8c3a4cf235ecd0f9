package model

import "time"

// Profile holds the operator settings loaded from the profile file.
// Zero values mean "not set" so flags and defaults can fill them.
type Profile struct {
	URL             string
	APIKey          string
	PollInterval    time.Duration
	PollMaxAttempts int
	Timeout         time.Duration
	Theme           Theme
	Agent           *AgentBuildConfig
}
