package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
)

// ModifySummary is the SCAN_COMPLETE payload of a modify job.
type ModifySummary struct {
	Applied   int    `json:"applied"`
	Failed    int    `json:"failed"`
	Remaining int    `json:"remaining"`
	Duration  string `json:"duration"`
}

// Modifier applies the queued rename and delete operations and keeps the
// index in step. Operations that fail stay queued.
type Modifier struct {
	logger zerolog.Logger
}

func (m *Modifier) Kind() jobs.Kind { return jobs.KindModify }

func (m *Modifier) Run(ctx context.Context, store *storage.Store, r *Reporter) (any, error) {
	start := time.Now()

	pending, err := store.LoadPending()
	if err != nil {
		return nil, err
	}

	ix, err := store.LoadIndex()
	if storage.IsNotFound(err) {
		m.logger.Warn().Msg("No index yet, operations will not be reflected in it")
		ix = nil
	} else if err != nil {
		return nil, err
	}

	ops := pending.Operations
	if err := r.Begin(len(ops)); err != nil {
		return nil, err
	}

	var (
		sum       ModifySummary
		remaining []storage.Operation
		entries   map[string]storage.Entry
	)
	if ix != nil {
		entries = ix.ByPath()
	}

	var runErr error
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			remaining = append(remaining, ops[i:]...)
			runErr = err
			break
		}

		if err := apply(store, op, entries); err != nil {
			m.logger.Warn().Err(err).Str("op", string(op.Op)).Str("path", op.Path).Msg("Operation failed, keeping it queued")
			remaining = append(remaining, op)
			sum.Failed++
		} else {
			sum.Applied++
		}

		if err := r.Step(op.Path); err != nil {
			remaining = append(remaining, ops[i+1:]...)
			runErr = err
			break
		}
	}

	// Applied operations are persisted even when the job is cancelled.
	if ix != nil && sum.Applied > 0 {
		list := make([]storage.Entry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		ix.UpdatedAt = time.Now().UTC()
		ix.SetEntries(list)
		if err := store.SaveIndex(ix); err != nil {
			return nil, err
		}
	}
	if err := store.SavePending(&storage.Pending{Operations: remaining}); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}

	sum.Remaining = len(remaining)
	sum.Duration = time.Since(start).Round(time.Millisecond).String()
	return sum, nil
}

// apply performs op on disk and updates entries when it is non-nil.
func apply(store *storage.Store, op storage.Operation, entries map[string]storage.Entry) error {
	from, to, err := store.ValidateOperation(op)
	if err != nil {
		return err
	}

	switch op.Op {
	case storage.OpDelete:
		if err := os.Remove(from); err != nil {
			return err
		}
		if entries != nil {
			delete(entries, op.Path)
		}

	case storage.OpRename:
		if _, err := os.Lstat(to); err == nil {
			return fmt.Errorf("rename %s: %w", op.To, fs.ErrExist)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return err
		}
		if err := os.Rename(from, to); err != nil {
			return err
		}
		if entries != nil {
			if e, ok := entries[op.Path]; ok {
				delete(entries, op.Path)
				rel, err := store.Rel(to)
				if err != nil {
					return err
				}
				e.Path = rel
				entries[rel] = e
			}
		}
	}
	return nil
}
