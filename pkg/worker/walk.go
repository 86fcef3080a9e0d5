package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
)

// listFiles returns the library files to index as absolute paths. Hidden
// entries and the data directory are skipped, and so is anything that is
// not a regular file.
func listFiles(ctx context.Context, store *storage.Store) ([]string, error) {
	cfg := store.Config()
	var files []string

	err := filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == cfg.Root {
			return nil
		}
		if d.IsDir() {
			if isHidden(d.Name()) || store.IsDataDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !d.Type().IsRegular() || !cfg.Matches(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// statEntry builds an index entry for the file at abs, hashing it when
// withDigest is set.
func statEntry(store *storage.Store, abs string, withDigest bool) (storage.Entry, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return storage.Entry{}, err
	}
	rel, err := store.Rel(abs)
	if err != nil {
		return storage.Entry{}, err
	}

	e := storage.Entry{Path: rel, Size: info.Size(), ModTime: info.ModTime().UTC()}
	if withDigest {
		if e.Digest, err = digest(abs); err != nil {
			return storage.Entry{}, err
		}
	}
	return e, nil
}

func digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
