package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Root: t.TempDir(), DataDir: ".shelfkeeper"})
	require.NoError(t, err)
	return s
}

func TestStore_OpenCreatesDataDir(t *testing.T) {
	s := openStore(t)
	info, err := os.Stat(s.Config().DataDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.True(t, s.IsDataDir(s.Config().DataDir))
}

func TestStore_IndexRoundTrip(t *testing.T) {
	s := openStore(t)

	_, err := s.LoadIndex()
	require.True(t, IsNotFound(err))

	ix := NewIndex(s.Config().Root)
	ix.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ix.SetEntries([]Entry{
		{Path: "z.epub", Size: 3},
		{Path: "a/b.pdf", Size: 4},
	})
	require.NoError(t, s.SaveIndex(ix))

	got, err := s.LoadIndex()
	require.NoError(t, err)
	require.Equal(t, IndexVersion, got.Version)
	require.Equal(t, []string{"a/b.pdf", "z.epub"}, []string{got.Entries[0].Path, got.Entries[1].Path})
	require.EqualValues(t, 7, got.TotalBytes())
	require.True(t, got.UpdatedAt.Equal(ix.UpdatedAt))

	leftovers, err := filepath.Glob(filepath.Join(s.Config().DataDir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestStore_LoadIndexRejectsUnknownVersion(t *testing.T) {
	s := openStore(t)
	path := filepath.Join(s.Config().DataDir, "index.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 9\nentries: []\n"), 0o644))

	_, err := s.LoadIndex()
	require.True(t, IsInvalidInput(err))
}

func TestStore_PendingQueue(t *testing.T) {
	s := openStore(t)

	p, err := s.LoadPending()
	require.NoError(t, err)
	require.Empty(t, p.Operations)

	queue := &Pending{Operations: []Operation{
		{Op: OpRename, Path: "old.epub", To: "new.epub"},
		{Op: OpDelete, Path: "junk.txt"},
	}}
	require.NoError(t, s.SavePending(queue))

	p, err = s.LoadPending()
	require.NoError(t, err)
	require.Equal(t, queue.Operations, p.Operations)

	require.NoError(t, s.SavePending(&Pending{}))
	_, err = os.Stat(filepath.Join(s.Config().DataDir, "pending.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Clearing twice is fine.
	require.NoError(t, s.SavePending(nil))
}

func TestStore_LockIsExclusive(t *testing.T) {
	s := openStore(t)
	other, err := Open(s.Config())
	require.NoError(t, err)

	require.NoError(t, s.Lock())
	require.ErrorIs(t, other.Lock(), ErrLocked)

	require.NoError(t, s.Unlock())
	require.NoError(t, other.Lock())
	require.NoError(t, other.Unlock())
}

func TestStore_ValidateOperation(t *testing.T) {
	s := openStore(t)
	root := s.Config().Root

	from, to, err := s.ValidateOperation(Operation{Op: OpRename, Path: "a/x.epub", To: "b/y.epub"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a", "x.epub"), from)
	require.Equal(t, filepath.Join(root, "b", "y.epub"), to)

	from, to, err = s.ValidateOperation(Operation{Op: OpDelete, Path: "x.epub"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "x.epub"), from)
	require.Empty(t, to)

	bad := []Operation{
		{Op: "chmod", Path: "x"},
		{Op: OpRename, Path: "x.epub"},
		{Op: OpDelete, Path: ""},
		{Op: OpDelete, Path: "../outside.txt"},
		{Op: OpDelete, Path: "/etc/passwd"},
		{Op: OpDelete, Path: "."},
		{Op: OpDelete, Path: ".shelfkeeper/index.yaml"},
		{Op: OpRename, Path: "ok.epub", To: "../../escape.epub"},
	}
	for _, op := range bad {
		_, _, err := s.ValidateOperation(op)
		require.True(t, IsInvalidInput(err), "%+v", op)
	}
}

func TestStore_Rel(t *testing.T) {
	s := openStore(t)
	rel, err := s.Rel(filepath.Join(s.Config().Root, "a", "b.epub"))
	require.NoError(t, err)
	require.Equal(t, "a/b.epub", rel)
}
