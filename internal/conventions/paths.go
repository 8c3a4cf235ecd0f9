package conventions

import (
	"path/filepath"

	"k8s.io/client-go/util/homedir"
)

const (
	// DefaultDataDir is the default updash data directory name (relative to home).
	DefaultDataDir = ".updash"
	// DBFile is the local history and settings database filename.
	DBFile = "updash.db"
	// ProfileFile is the operator profile filename.
	ProfileFile = "config.yaml"
)

// DataDir returns the default data directory.
func DataDir() string {
	return filepath.Join(homedir.HomeDir(), DefaultDataDir)
}

// DBPath returns the database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ProfilePath returns the profile path inside a data directory.
func ProfilePath(dataDir string) string {
	return filepath.Join(dataDir, ProfileFile)
}
