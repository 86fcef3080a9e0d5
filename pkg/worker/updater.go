package worker

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
)

// UpdateSummary is the SCAN_COMPLETE payload of an update job.
type UpdateSummary struct {
	Added     int    `json:"added"`
	Changed   int    `json:"changed"`
	Removed   int    `json:"removed"`
	Unchanged int    `json:"unchanged"`
	Files     int    `json:"files"`
	Bytes     int64  `json:"bytes"`
	Duration  string `json:"duration"`
}

// Updater refreshes an existing index. Files whose size and modification
// time are unchanged keep their entry; with RefreshAll every file is hashed
// again and compared by content.
type Updater struct {
	RefreshAll bool
	logger     zerolog.Logger
}

func (u *Updater) Kind() jobs.Kind { return jobs.KindUpdate }

func (u *Updater) Run(ctx context.Context, store *storage.Store, r *Reporter) (any, error) {
	start := time.Now()

	old, err := store.LoadIndex()
	if storage.IsNotFound(err) {
		u.logger.Info().Msg("No index yet, indexing the whole library")
		old = storage.NewIndex(store.Config().Root)
	} else if err != nil {
		return nil, err
	}
	previous := old.ByPath()

	files, err := listFiles(ctx, store)
	if err != nil {
		return nil, err
	}
	if err := r.Begin(len(files)); err != nil {
		return nil, err
	}

	var sum UpdateSummary
	entries := make([]storage.Entry, 0, len(files))
	seen := make(map[string]struct{}, len(files))

	for _, abs := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, err := statEntry(store, abs, false)
		if errors.Is(err, fs.ErrNotExist) {
			if err := r.Step(""); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		prev, known := previous[e.Path]
		switch {
		case !known:
			if e.Digest, err = digest(abs); err != nil {
				return nil, err
			}
			sum.Added++
		case !u.RefreshAll && prev.Size == e.Size && prev.ModTime.Equal(e.ModTime) && prev.Digest != "":
			e.Digest = prev.Digest
			sum.Unchanged++
		default:
			if e.Digest, err = digest(abs); err != nil {
				return nil, err
			}
			if e.Digest == prev.Digest && e.Size == prev.Size {
				sum.Unchanged++
			} else {
				sum.Changed++
			}
		}

		seen[e.Path] = struct{}{}
		entries = append(entries, e)
		if err := r.Step(e.Path); err != nil {
			return nil, err
		}
	}

	for path := range previous {
		if _, ok := seen[path]; !ok {
			sum.Removed++
		}
	}

	ix := storage.NewIndex(store.Config().Root)
	ix.UpdatedAt = time.Now().UTC()
	ix.SetEntries(entries)
	if err := store.SaveIndex(ix); err != nil {
		return nil, err
	}

	sum.Files = len(ix.Entries)
	sum.Bytes = ix.TotalBytes()
	sum.Duration = time.Since(start).Round(time.Millisecond).String()
	return sum, nil
}
