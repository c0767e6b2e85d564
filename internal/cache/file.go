package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gotranslator/internal/core"
)

// FileStore implements Store with one file per digest in a directory.
// There is no cross-process locking; writes go through a temp file and a
// rename so readers never observe a partial entry. Last writer wins.
type FileStore struct {
	dir       string
	createDir bool
}

// NewFileStore validates dir, creating it when createDir is set.
func NewFileStore(dir string, createDir bool) (*FileStore, error) {
	s := &FileStore{dir: dir, createDir: createDir}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	slog.Info("translation cache ready", "dir", dir)
	return s, nil
}

// Dir returns the cache directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Get reads the entry for digest.
func (s *FileStore) Get(_ context.Context, digest string) (string, bool, error) {
	path, err := s.path(digest)
	if err != nil {
		return "", false, err
	}
	if err := s.checkDir(); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, core.NewStorageError("failed to read cache entry: "+err.Error(), err)
	}
	return string(data), true, nil
}

// Set writes the entry for digest.
func (s *FileStore) Set(_ context.Context, digest, text string) error {
	path, err := s.path(digest)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, digest+".*.tmp")
	if err != nil {
		return core.NewStorageError("failed to create cache entry: "+err.Error(), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return core.NewStorageError("failed to write cache entry: "+err.Error(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return core.NewStorageError("failed to write cache entry: "+err.Error(), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return core.NewStorageError("failed to rename cache entry: "+err.Error(), err)
	}
	return nil
}

func (s *FileStore) path(digest string) (string, error) {
	if digest == "" || digest == "." || digest == ".." || strings.ContainsAny(digest, `/\`) || strings.ContainsRune(digest, 0) {
		return "", core.NewStorageError(fmt.Sprintf("invalid cache digest %q", digest), nil)
	}
	return filepath.Join(s.dir, digest), nil
}

func (s *FileStore) checkDir() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.NewStorageError("cache directory does not exist: "+s.dir, err)
		}
		return core.NewStorageError("cannot access cache directory: "+err.Error(), err)
	}
	if !info.IsDir() {
		return core.NewStorageError("cache path is not a directory: "+s.dir, nil)
	}
	return nil
}

func (s *FileStore) ensureDir() error {
	err := s.checkDir()
	if err == nil || !s.createDir {
		return err
	}
	if mkErr := os.MkdirAll(s.dir, 0o755); mkErr != nil {
		return core.NewStorageError("failed to create cache directory: "+mkErr.Error(), mkErr)
	}
	return nil
}
