package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// FSStore is an ObjectStore over an afero filesystem. It backs local
// development (OS directory) and tests (in-memory).
type FSStore struct {
	fs         afero.Fs
	bucket     string
	publicBase string
}

// NewFSStore creates a store rooted at fs. publicBase is the URL prefix the
// API serves the bucket under, e.g. http://localhost:8080/storage.
func NewFSStore(fs afero.Fs, bucket, publicBase string) *FSStore {
	return &FSStore{fs: fs, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

// NewLocalStore creates an FSStore rooted at a directory on disk.
func NewLocalStore(root, bucket, publicBase string) *FSStore {
	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), root), bucket, publicBase)
}

// EnsureBucket creates the bucket directory if it does not exist.
func (s *FSStore) EnsureBucket() error {
	return s.fs.MkdirAll(s.bucket, 0o755)
}

func (s *FSStore) Bucket() string {
	return s.bucket
}

func (s *FSStore) Probe(ctx context.Context) error {
	ok, err := afero.DirExists(s.fs, s.bucket)
	if err != nil {
		return classifyStatus(s.bucket, http.StatusInternalServerError, err)
	}
	if !ok {
		return classifyStatus(s.bucket, http.StatusNotFound, fmt.Errorf("bucket directory %q missing", s.bucket))
	}
	return nil
}

func (s *FSStore) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	if err := s.Probe(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return classifyStatus(s.bucket, 0, err)
	}

	full, err := s.objectFile(objectPath)
	if err != nil {
		return err
	}

	exists, err := afero.Exists(s.fs, full)
	if err != nil {
		return classifyStatus(s.bucket, 0, err)
	}
	if exists {
		return classifyStatus(s.bucket, http.StatusConflict, fmt.Errorf("object %q already exists", objectPath))
	}

	if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return classifyStatus(s.bucket, 0, err)
	}
	if err := afero.WriteReader(s.fs, full, r); err != nil {
		return classifyStatus(s.bucket, 0, err)
	}
	return nil
}

func (s *FSStore) PublicURL(objectPath string) string {
	return s.publicBase + "/" + s.bucket + "/" + strings.TrimLeft(objectPath, "/")
}

func (s *FSStore) Remove(ctx context.Context, objectPath string) error {
	full, err := s.objectFile(objectPath)
	if err != nil {
		return err
	}
	err = s.fs.Remove(full)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", objectPath, err)
	}
	return nil
}

// objectFile resolves objectPath inside the bucket directory.
func (s *FSStore) objectFile(objectPath string) (string, error) {
	full := path.Join(s.bucket, objectPath)
	if !strings.HasPrefix(full, s.bucket+"/") {
		return "", classifyStatus(s.bucket, http.StatusBadRequest, fmt.Errorf("object path %q escapes bucket", objectPath))
	}
	return full, nil
}

// Exists reports whether objectPath is stored.
func (s *FSStore) Exists(objectPath string) bool {
	ok, _ := afero.Exists(s.fs, path.Join(s.bucket, objectPath))
	return ok
}

// FileSystem exposes the bucket for http.FileServer.
func (s *FSStore) FileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs).Dir(s.bucket)
}
