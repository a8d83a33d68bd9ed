package memory

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
)

// ErrNotFound is returned when a path does not exist
var ErrNotFound = model.ErrStorageNotFound

// Storage keeps every object in memory. Directories exist implicitly as
// prefixes of stored paths.
type Storage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ interfaces.Storage = &Storage{}

func New() *Storage {
	return &Storage{
		objects: make(map[string][]byte),
	}
}

func clean(p string) string {
	return path.Clean("/" + p)
}

func (s *Storage) Read(ctx context.Context, p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[clean(p)]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "object not found", goerr.V(model.PathKey, p))
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

func (s *Storage) Write(ctx context.Context, p string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[clean(p)] = copied
	return nil
}

func (s *Storage) Exists(ctx context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[clean(p)]
	return ok, nil
}

func (s *Storage) ListFiles(ctx context.Context, dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := clean(dir)
	names := []string{}
	for p := range s.objects {
		if path.Dir(p) == d {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) ListDirs(ctx context.Context, dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := clean(dir)
	if prefix != "/" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	names := []string{}
	for p := range s.objects {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		sub, _, nested := strings.Cut(rest, "/")
		if !nested || seen[sub] {
			continue
		}
		seen[sub] = true
		names = append(names, sub)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) Delete(ctx context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clean(p)
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

func (s *Storage) Join(elem ...string) string {
	return path.Join(elem...)
}
