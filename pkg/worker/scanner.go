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

// ScanSummary is the SCAN_COMPLETE payload of a scan job.
type ScanSummary struct {
	Files    int    `json:"files"`
	Bytes    int64  `json:"bytes"`
	Duration string `json:"duration"`
}

// Scanner rebuilds the library index from scratch.
type Scanner struct {
	logger zerolog.Logger
}

func (s *Scanner) Kind() jobs.Kind { return jobs.KindScan }

func (s *Scanner) Run(ctx context.Context, store *storage.Store, r *Reporter) (any, error) {
	start := time.Now()

	files, err := listFiles(ctx, store)
	if err != nil {
		return nil, err
	}
	if err := r.Begin(len(files)); err != nil {
		return nil, err
	}

	entries := make([]storage.Entry, 0, len(files))
	for _, abs := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, err := statEntry(store, abs, true)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Debug().Str("path", abs).Msg("File vanished during scan")
		case err != nil:
			return nil, err
		default:
			entries = append(entries, e)
		}

		if err := r.Step(e.Path); err != nil {
			return nil, err
		}
	}

	ix := storage.NewIndex(store.Config().Root)
	ix.UpdatedAt = time.Now().UTC()
	ix.SetEntries(entries)
	if err := store.SaveIndex(ix); err != nil {
		return nil, err
	}

	return ScanSummary{
		Files:    len(ix.Entries),
		Bytes:    ix.TotalBytes(),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}, nil
}
