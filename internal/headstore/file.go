package headstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/teachable/internal/head"
)

// FileStore stores each head as <dir>/<name>.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the catalog directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path for name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+extension)
}

// NameFromPath returns the head name for a catalog file path, or false if
// the path is not a head file.
func NameFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, extension) {
		return "", false
	}
	name := strings.TrimSuffix(base, extension)
	if ValidateName(name) != nil {
		return "", false
	}
	return name, true
}

// Save writes h under name.
func (s *FileStore) Save(_ context.Context, name string, h *head.Head) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return head.SaveFile(s.Path(name), h)
}

// Load reads the head stored under name.
func (s *FileStore) Load(_ context.Context, name string) (*head.Head, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	path := s.Path(name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return head.LoadFile(path)
}

// List returns the stored head names in lexical order.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := NameFromPath(e.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the head stored under name. Deleting a missing head is not an error.
func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
