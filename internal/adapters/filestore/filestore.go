// Package filestore keeps ticket artifacts on the local disk.
package filestore

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/travel-bookings/internal/domain"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", domain.InvalidRequestf("invalid artifact name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Store writes data under the configured directory, creating it if needed,
// and returns the public relative path.
func (s *Store) Store(_ context.Context, name string, data []byte) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "filestore: create dir")
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "filestore: write %s", name)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrapf(err, "filestore: rename %s", name)
	}
	return domain.TicketPath(name), nil
}

func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NotFoundf("ticket not found")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "filestore: open %s", name)
	}
	return f, nil
}

func (s *Store) Ping(context.Context) error {
	return os.MkdirAll(s.dir, 0o755)
}
