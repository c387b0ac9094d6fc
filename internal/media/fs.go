package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eleven-am/foodgram/internal/logger"
)

// FSStore keeps images under a local directory. References are relative
// slash-separated paths such as recipes/<uuid>.png.
type FSStore struct {
	root   string
	prefix string
	log    logger.Logger
}

// NewFSStore creates root/prefix if needed
func NewFSStore(root, prefix string) (*FSStore, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(prefix)), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &FSStore{root: root, prefix: prefix, log: logger.Media().WithField("backend", "fs")}, nil
}

// Root is the directory served as /media
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) Save(ctx context.Context, data string) (string, error) {
	img, err := DecodeDataURI(data)
	if err != nil {
		return "", err
	}

	key := objectKey(s.prefix, img.Ext)
	target := filepath.Join(s.root, filepath.FromSlash(key))

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.log.WithField("key", key).Debug("image stored (%d bytes)", len(img.Data))
	return key, nil
}

// Delete removes ref. A missing file is not an error.
func (s *FSStore) Delete(ctx context.Context, ref string) error {
	key, err := cleanRef(s.prefix, ref)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
