package imaging

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored images are served
const URLPrefix = "/static/uploads/"

// FileStore keeps processed images in a directory on disk
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes data under a fresh name and returns its public URL
func (s *FileStore) Save(data []byte) (string, error) {
	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return URLPrefix + name, nil
}

// Remove deletes the file behind url. Missing files and foreign URLs are
// ignored.
func (s *FileStore) Remove(url string) error {
	if !strings.HasPrefix(url, URLPrefix) {
		return nil
	}
	name := path.Base(url)
	if name == "." || name == "/" || name == ".." {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// Path returns the on-disk location for url
func (s *FileStore) Path(url string) string {
	return filepath.Join(s.dir, path.Base(url))
}
