// Package paths locates per-user shelfkeeper files.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the name of the default configuration file.
const ConfigFileName = "shelfkeeper.yaml"

// ConfigDir returns the config directory for shelfkeeper.
// Order: XDG_CONFIG_HOME/shelfkeeper, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shelfkeeper")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "Shelfkeeper")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shelfkeeper")
}

// DefaultConfigFile returns ConfigDir()/shelfkeeper.yaml when that file
// exists, and "" otherwise.
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), ConfigFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
