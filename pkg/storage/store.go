// Package storage persists the library index and the queue of pending
// modifications inside the library data directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

const (
	indexFile   = "index.yaml"
	pendingFile = "pending.yaml"
	lockFile    = "index.lock"
)

var validate = validator.New()

// Store reads and writes the files of one data directory.
type Store struct {
	cfg  Config
	lock *flock.Flock
}

// Open validates cfg and creates the data directory if needed.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		cfg:  cfg,
		lock: flock.New(filepath.Join(cfg.DataDir, lockFile)),
	}, nil
}

// Config returns the normalized configuration.
func (s *Store) Config() Config { return s.cfg }

// Lock takes the exclusive data directory lock without waiting. It returns
// ErrLocked when another process holds it.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire data directory lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the data directory lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// LoadIndex reads index.yaml. A missing file yields a NotFoundError.
func (s *Store) LoadIndex() (*Index, error) {
	path := filepath.Join(s.cfg.DataDir, indexFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, NewNotFoundError("index", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var ix Index
	if err := yaml.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	if ix.Version != IndexVersion {
		return nil, NewInvalidInputError("version", fmt.Sprintf("unsupported index version %d", ix.Version))
	}
	return &ix, nil
}

// SaveIndex replaces index.yaml atomically.
func (s *Store) SaveIndex(ix *Index) error {
	ix.Version = IndexVersion
	data, err := yaml.Marshal(ix)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return s.writeAtomic(indexFile, data)
}

// LoadPending reads pending.yaml. A missing file is an empty queue.
func (s *Store) LoadPending() (*Pending, error) {
	path := filepath.Join(s.cfg.DataDir, pendingFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Pending{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending modifications: %w", err)
	}

	var p Pending
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pending modifications: %w", err)
	}
	return &p, nil
}

// SavePending rewrites pending.yaml, removing it when the queue is empty.
func (s *Store) SavePending(p *Pending) error {
	if p == nil || len(p.Operations) == 0 {
		err := os.Remove(filepath.Join(s.cfg.DataDir, pendingFile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear pending modifications: %w", err)
		}
		return nil
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pending modifications: %w", err)
	}
	return s.writeAtomic(pendingFile, data)
}

// ValidateOperation checks op and returns the absolute paths it touches.
// Paths must stay inside the library root and outside the data directory.
func (s *Store) ValidateOperation(op Operation) (from, to string, err error) {
	if err := validate.Struct(op); err != nil {
		return "", "", NewInvalidInputError("operation", err.Error())
	}
	if from, err = s.Resolve(op.Path); err != nil {
		return "", "", err
	}
	if op.Op == OpRename {
		if to, err = s.Resolve(op.To); err != nil {
			return "", "", err
		}
	}
	return from, to, nil
}

// Resolve maps a library-relative path to an absolute one.
func (s *Store) Resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", NewInvalidInputError("path", fmt.Sprintf("%q must be relative to the library root", rel))
	}
	abs := filepath.Join(s.cfg.Root, filepath.FromSlash(rel))
	if !within(s.cfg.Root, abs) || abs == s.cfg.Root {
		return "", NewInvalidInputError("path", fmt.Sprintf("%q escapes the library root", rel))
	}
	if within(s.cfg.DataDir, abs) {
		return "", NewInvalidInputError("path", fmt.Sprintf("%q is inside the data directory", rel))
	}
	return abs, nil
}

// Rel maps an absolute path below the root to its index key.
func (s *Store) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(s.cfg.Root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsDataDir reports whether abs is the data directory.
func (s *Store) IsDataDir(abs string) bool {
	return abs == s.cfg.DataDir
}

func (s *Store) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.cfg.DataDir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.cfg.DataDir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
