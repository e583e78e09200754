// Package files stores uploaded media (school logos, user photos, product
// images) on the local filesystem under a configured uploads directory.
package files

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// Placeholder is served for entities that have no uploaded image.
const Placeholder = "placeholder.png"

type Store struct {
	dir string
}

func NewStore(conf *core.Config) (*Store, error) {
	if err := os.MkdirAll(conf.UploadsDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads directory")
	}
	return &Store{dir: conf.UploadsDir}, nil
}

// Save writes the uploaded content under a fresh random name and returns that
// name. Only the extension of the original filename is kept.
func (s *Store) Save(origName string, src io.Reader) (string, error) {
	name := uuid.New().String() + sanitizeExt(origName)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	defer func() { _ = dst.Close() }()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "writing upload file")
	}
	return name, nil
}

// Path resolves a stored name to its path on disk. An empty name resolves to
// the placeholder. The name is reduced to its base, so it can never escape
// the uploads directory.
func (s *Store) Path(name string) string {
	if name == "" {
		name = Placeholder
	}
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *Store) Remove(name string) error {
	if name == "" || name == Placeholder {
		return nil
	}
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "removing upload file")
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	}
	return ""
}
