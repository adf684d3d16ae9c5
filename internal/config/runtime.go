package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath resolves MUSE_RUNTIME_PATH, relative to the home directory
// unless absolute. It is read before .env is loaded, so it comes from the
// process environment only.
func GetRuntimePath() string {
	path := os.Getenv("MUSE_RUNTIME_PATH")
	if path == "" {
		path = ".muse"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
