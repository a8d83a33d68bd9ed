package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration
var (
	ErrConfigNotFound = goerr.New("configuration file not found")
	ErrInvalidConfig  = goerr.New("invalid configuration")
	ErrInvalidBackend = goerr.New("invalid storage backend")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	BackendKey    = "backend"
	BucketKey     = "bucket"
)
