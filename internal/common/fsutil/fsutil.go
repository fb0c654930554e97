package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// configNames are probed in order by FindConfig.
var configNames = []string{"config.yaml", "config.yml", "config.toml", "config.json"}

// FindConfig returns the first config file found under <user config dir>/<app>,
// or "" when there is none.
func FindConfig(app string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range configNames {
		p := filepath.Join(dir, app, name)
		if FileExists(p) {
			return p
		}
	}
	return ""
}
