package gcs

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/utils/safe"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = model.ErrStorageNotFound

// Storage persists layouts as objects of a Cloud Storage bucket so that a
// player's layouts follow them across machines. Paths map to object names.
type Storage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

var _ interfaces.Storage = &Storage{}

// New connects to the bucket. The caller is responsible for calling Close().
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Storage, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &Storage{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func objectName(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *Storage) Read(ctx context.Context, p string) ([]byte, error) {
	r, err := s.bucket.Object(objectName(p)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "object not found", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
	}
	return data, nil
}

func (s *Storage) Write(ctx context.Context, p string, data []byte) error {
	w := s.bucket.Object(objectName(p)).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
	}
	// the object is committed only when Close succeeds
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit object", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.bucket.Object(objectName(p)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to get object attributes", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
}

func (s *Storage) ListFiles(ctx context.Context, dir string) ([]string, error) {
	files, _, err := s.list(ctx, dir)
	return files, err
}

func (s *Storage) ListDirs(ctx context.Context, dir string) ([]string, error) {
	_, dirs, err := s.list(ctx, dir)
	return dirs, err
}

func (s *Storage) list(ctx context.Context, dir string) ([]string, []string, error) {
	prefix := objectName(dir)
	if prefix != "" {
		prefix += "/"
	}

	files := []string{}
	dirs := []string{}
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to list objects", goerr.V(model.PathKey, dir), goerr.V("bucket", s.name))
		}

		if attrs.Prefix != "" {
			dirs = append(dirs, path.Base(strings.TrimSuffix(attrs.Prefix, "/")))
			continue
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name != "" {
			files = append(files, name)
		}
	}

	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}

func (s *Storage) Delete(ctx context.Context, p string) (bool, error) {
	err := s.bucket.Object(objectName(p)).Delete(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to delete object", goerr.V(model.PathKey, p), goerr.V("bucket", s.name))
}

func (s *Storage) Join(elem ...string) string {
	return path.Join(elem...)
}
