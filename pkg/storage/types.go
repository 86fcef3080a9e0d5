package storage

import (
	"sort"
	"time"
)

// IndexVersion is the on-disk index format version.
const IndexVersion = 1

// Entry describes one indexed file. Path is relative to the library root
// and uses forward slashes.
type Entry struct {
	Path    string    `yaml:"path"`
	Size    int64     `yaml:"size"`
	ModTime time.Time `yaml:"mod_time"`
	Digest  string    `yaml:"sha256,omitempty"`
}

// Index is the persisted view of the library.
type Index struct {
	Version   int       `yaml:"version"`
	Root      string    `yaml:"root"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Entries   []Entry   `yaml:"entries"`
}

// NewIndex returns an empty index for root.
func NewIndex(root string) *Index {
	return &Index{Version: IndexVersion, Root: root}
}

// ByPath returns the entries keyed by path.
func (ix *Index) ByPath() map[string]Entry {
	m := make(map[string]Entry, len(ix.Entries))
	for _, e := range ix.Entries {
		m[e.Path] = e
	}
	return m
}

// SetEntries replaces the entries, sorted by path.
func (ix *Index) SetEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	ix.Entries = entries
}

// TotalBytes sums the size of all entries.
func (ix *Index) TotalBytes() int64 {
	var n int64
	for _, e := range ix.Entries {
		n += e.Size
	}
	return n
}

// OpKind is a queued library modification.
type OpKind string

const (
	OpRename OpKind = "rename"
	OpDelete OpKind = "delete"
)

// Operation is one queued modification. Paths are relative to the library root.
type Operation struct {
	Op   OpKind `yaml:"op" validate:"required,oneof=rename delete"`
	Path string `yaml:"path" validate:"required"`
	To   string `yaml:"to,omitempty" validate:"required_if=Op rename"`
}

// Pending is the modification queue stored in pending.yaml.
type Pending struct {
	Operations []Operation `yaml:"operations" validate:"dive"`
}
