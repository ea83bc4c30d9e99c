package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSStore keeps objects as plain files under a media root directory and
// serves them from a static URL prefix.
type FSStore struct {
	root    string
	baseURL string
}

func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root %s: %w", root, err)
	}
	return &FSStore{root: root, baseURL: baseURL}, nil
}

// Root returns the media root directory.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) path(name string) string {
	return filepath.Join(s.root, filepath.Base(name))
}

func (s *FSStore) Write(ctx context.Context, name string, reader io.Reader, size int64) error {
	dest := s.path(name)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", s.root, err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return os.Rename(tmp.Name(), dest)
}

func (s *FSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(s.path(name))
}

func (s *FSStore) Remove(ctx context.Context, name string) error {
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FSStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FSStore) URL(ctx context.Context, name string) (string, error) {
	return s.baseURL + "/" + filepath.Base(name), nil
}
