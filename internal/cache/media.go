package cache

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// MediaStore caches media blobs, one per question ID. The extension comes
// from the source URL, so existence checks glob on the ID.
type MediaStore struct {
	dir string
}

// NewMediaStore creates the media directory if needed.
func NewMediaStore(dir string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create media dir %s", dir)
	}
	return &MediaStore{dir: dir}, nil
}

// Path returns the file path a blob from rawURL would be stored at for id.
func (m *MediaStore) Path(id int, rawURL string) string {
	return filepath.Join(m.dir, fmt.Sprintf("q_%d%s", id, Ext(rawURL)))
}

// Has reports whether any media blob exists for the ID, regardless of
// extension.
func (m *MediaStore) Has(id int) bool {
	matches, err := filepath.Glob(filepath.Join(m.dir, fmt.Sprintf("q_%d.*", id)))
	return err == nil && len(matches) > 0
}

// Write stores a media blob for the ID.
func (m *MediaStore) Write(id int, rawURL string, data []byte) error {
	return writeAtomic(m.dir, m.Path(id, rawURL), data)
}

// Ext derives a file extension from a media URL, defaulting to .jpg when the
// URL path carries none.
func Ext(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		return ".jpg"
	}
	return ext
}

// Count returns the number of cached media blobs.
func (m *MediaStore) Count() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, eris.Wrapf(err, "cache: read media dir %s", m.dir)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "q_") {
			n++
		}
	}
	return n, nil
}
