package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/repository/file"
	"github.com/simhud/simhud/pkg/repository/gcs"
	"github.com/simhud/simhud/pkg/repository/memory"
	"github.com/simhud/simhud/pkg/utils/logging"
	"google.golang.org/api/option"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// StorageSettings selects and parameterizes the storage backend
type StorageSettings struct {
	Backend  string
	Bucket   string
	Prefix   string
	Endpoint string
}

func (s StorageSettings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", s.Backend),
		slog.String("bucket", s.Bucket),
		slog.String("prefix", s.Prefix),
		slog.String("endpoint", s.Endpoint),
	)
}

func (s StorageSettings) Validate() error {
	switch s.Backend {
	case BackendFile, BackendMemory:
		return nil
	case BackendGCS:
		if s.Bucket == "" {
			return goerr.Wrap(ErrInvalidConfig, "storage-bucket is required when using gcs backend")
		}
		return nil
	default:
		return goerr.Wrap(ErrInvalidBackend, "unknown storage backend", goerr.V(BackendKey, s.Backend))
	}
}

// Open initializes the configured backend. The returned closer releases the
// backend's resources and must be called once the storage is no longer used.
func (s StorageSettings) Open(ctx context.Context) (interfaces.Storage, func(), error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	switch s.Backend {
	case BackendMemory:
		logging.Default().Info("Using in-memory storage (development mode)")
		return memory.New(), func() {}, nil

	case BackendGCS:
		var opts []option.ClientOption
		if s.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(s.Endpoint), option.WithoutAuthentication())
		}
		st, err := gcs.New(ctx, s.Bucket, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize gcs storage", goerr.V(BucketKey, s.Bucket))
		}
		logging.Default().Info("Using Cloud Storage", "storage", s)
		return st, func() {
			if err := st.Close(); err != nil {
				logging.Default().Error("failed to close storage", "error", err.Error())
			}
		}, nil

	default:
		logging.Default().Info("Using file storage")
		return file.New(), func() {}, nil
	}
}
