package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config locates the library and its data directory.
type Config struct {
	// Root is the library directory the workers index.
	Root string

	// DataDir holds index.yaml, pending.yaml and the lock file. A relative
	// path is resolved against Root.
	DataDir string

	// Extensions limits indexing to these file extensions (empty: all).
	Extensions []string
}

// Validate checks the configuration and normalizes both directories to
// absolute paths.
func (c *Config) Validate() error {
	if c.Root == "" {
		return NewInvalidInputError("root", "library root directory is required")
	}
	if c.DataDir == "" {
		return NewInvalidInputError("data_dir", "data directory is required")
	}

	root, err := expandPath(c.Root)
	if err != nil {
		return NewInvalidInputError("root", err.Error())
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("library root: %w", err)
	}
	if !info.IsDir() {
		return NewInvalidInputError("root", root+" is not a directory")
	}
	c.Root = root

	dataDir := c.DataDir
	if !filepath.IsAbs(dataDir) && !strings.HasPrefix(dataDir, "~/") {
		dataDir = filepath.Join(root, dataDir)
	}
	if c.DataDir, err = expandPath(dataDir); err != nil {
		return NewInvalidInputError("data_dir", err.Error())
	}

	return nil
}

// Matches reports whether a file name passes the extension filter.
func (c *Config) Matches(name string) bool {
	if len(c.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range c.Extensions {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == want {
			return true
		}
	}
	return false
}

// expandPath expands a leading tilde and makes the path absolute.
func expandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, p[2:])
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return abs, nil
}
