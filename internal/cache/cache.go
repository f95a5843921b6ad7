// Package cache stores raw fetched documents and media on disk, one file per
// ID. Entries are immutable once written: a present entry is always loaded
// instead of re-fetched, which is what makes interrupted sweeps resumable
// without hitting the network again.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Store is an on-disk document cache. Files are named <prefix>_<id>.html so
// the path is derivable from the ID alone.
type Store struct {
	dir    string
	prefix string
}

// NewStore creates the cache directory if needed and returns a Store.
func NewStore(dir, prefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	return &Store{dir: dir, prefix: prefix}, nil
}

// Path returns the deterministic file path for an ID.
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d.html", s.prefix, id))
}

// Has reports whether an entry exists for the ID.
func (s *Store) Has(id int) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Read returns the stored document for the ID.
func (s *Store) Read(id int) ([]byte, error) {
	b, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read entry %d", id)
	}
	return b, nil
}

// Write stores a document for the ID. The document lands under a temp name
// first and is renamed into place, so a crash mid-write never leaves a torn
// entry that a later run would trust.
func (s *Store) Write(id int, doc []byte) error {
	return writeAtomic(s.dir, s.Path(id), doc)
}

func writeAtomic(dir, dest string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "cache: close temp file")
	}
	_ = os.Chmod(tmpPath, 0o644)
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrapf(err, "cache: rename into %s", dest)
	}
	return nil
}
