package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/utils/safe"
)

// ErrNotFound is returned when a path does not exist
var ErrNotFound = model.ErrStorageNotFound

// Storage persists data as files on the local filesystem
type Storage struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var _ interfaces.Storage = &Storage{}

func New() *Storage {
	return &Storage{
		dirPerm:  0o755,
		filePerm: 0o644,
	}
}

func (s *Storage) Read(ctx context.Context, path string) ([]byte, error) {
	// #nosec G304 - paths are built from configured directories
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "file not found", goerr.V(model.PathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read file", goerr.V(model.PathKey, path))
	}
	return data, nil
}

// Write replaces the file through a temporary file and rename so a crash never
// leaves a half-written layout behind
func (s *Storage) Write(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return goerr.Wrap(err, "failed to create directory", goerr.V(model.PathKey, dir))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file", goerr.V(model.PathKey, path))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		safe.Close(ctx, tmp)
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to write file", goerr.V(model.PathKey, path))
	}
	if err := tmp.Sync(); err != nil {
		safe.Close(ctx, tmp)
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to sync file", goerr.V(model.PathKey, path))
	}
	if err := tmp.Close(); err != nil {
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to close file", goerr.V(model.PathKey, path))
	}
	if err := os.Chmod(tmpName, s.filePerm); err != nil {
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to set file mode", goerr.V(model.PathKey, path))
	}
	if err := os.Rename(tmpName, path); err != nil {
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to replace file", goerr.V(model.PathKey, path))
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat file", goerr.V(model.PathKey, path))
}

func (s *Storage) ListFiles(ctx context.Context, dir string) ([]string, error) {
	return s.list(dir, false)
}

func (s *Storage) ListDirs(ctx context.Context, dir string) ([]string, error) {
	return s.list(dir, true)
}

func (s *Storage) list(dir string, dirs bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, goerr.Wrap(err, "failed to list directory", goerr.V(model.PathKey, dir))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() != dirs {
			continue
		}
		// temporary files from an interrupted Write
		if !dirs && filepath.Ext(e.Name()) == ".tmp" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) Delete(ctx context.Context, path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to delete file", goerr.V(model.PathKey, path))
	}
	return true, nil
}

func (s *Storage) Join(elem ...string) string {
	return filepath.Join(elem...)
}
