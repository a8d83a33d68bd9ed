package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/simhud/simhud/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// File is the optional TOML configuration file
type File struct {
	Paths struct {
		LayoutsDir  string `toml:"layouts_dir"`
		OverlaysDir string `toml:"overlays_dir"`
	} `toml:"paths"`
	Overlay struct {
		BaseURL string `toml:"base_url"`
	} `toml:"overlay"`
	Host struct {
		CheckPages bool `toml:"check_pages"`
	} `toml:"host"`
	Storage struct {
		Backend  string `toml:"backend"`
		Bucket   string `toml:"bucket"`
		Prefix   string `toml:"prefix"`
		Endpoint string `toml:"endpoint"`
	} `toml:"storage"`
}

// LoadFile reads and parses a TOML configuration file
func LoadFile(p string) (*File, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, p))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, p))
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, p), goerr.V("cause", err.Error()))
	}
	return &f, nil
}

// Settings is the resolved application configuration
type Settings struct {
	LayoutsDir     string
	OverlaysDir    string
	OverlayBaseURL string
	HostCheckPages bool
	Storage        StorageSettings
}

func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("layouts_dir", s.LayoutsDir),
		slog.String("overlays_dir", s.OverlaysDir),
		slog.String("overlay_base_url", s.OverlayBaseURL),
		slog.Bool("host_check_pages", s.HostCheckPages),
		slog.Any("storage", s.Storage),
	)
}

// App holds CLI flags for paths, storage and the window host. Values given
// on the command line or through the environment win over the TOML file.
type App struct {
	configPath     string
	layoutsDir     string
	overlaysDir    string
	baseURL        string
	hostCheckPages bool
	backend        string
	bucket         string
	prefix         string
	endpoint       string
}

// Flags returns CLI flags for application configuration
func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML config file",
			Sources:     cli.EnvVars("SIMHUD_CONFIG"),
			Destination: &a.configPath,
		},
		&cli.StringFlag{
			Name:        "layouts-dir",
			Category:    "Paths",
			Usage:       "Root directory of per-game layout files",
			Value:       usecase.DefaultLayoutsDir,
			Sources:     cli.EnvVars("SIMHUD_LAYOUTS_DIR"),
			Destination: &a.layoutsDir,
		},
		&cli.StringFlag{
			Name:        "overlays-dir",
			Category:    "Paths",
			Usage:       "Directory of installed overlay packages",
			Value:       usecase.DefaultOverlaysDir,
			Sources:     cli.EnvVars("SIMHUD_OVERLAYS_DIR"),
			Destination: &a.overlaysDir,
		},
		&cli.StringFlag{
			Name:        "overlay-base-url",
			Category:    "Overlay",
			Usage:       "Base URL overlay pages are served from",
			Value:       usecase.DefaultOverlayBaseURL,
			Sources:     cli.EnvVars("SIMHUD_OVERLAY_BASE_URL"),
			Destination: &a.baseURL,
		},
		&cli.BoolFlag{
			Name:        "host-check-pages",
			Category:    "Overlay",
			Usage:       "Fetch every overlay page when a window navigates",
			Sources:     cli.EnvVars("SIMHUD_HOST_CHECK_PAGES"),
			Destination: &a.hostCheckPages,
		},
		&cli.StringFlag{
			Name:        "storage-backend",
			Category:    "Storage",
			Usage:       "Storage backend [file|memory|gcs]",
			Value:       BackendFile,
			Sources:     cli.EnvVars("SIMHUD_STORAGE_BACKEND"),
			Destination: &a.backend,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Category:    "Storage",
			Usage:       "Cloud Storage bucket (gcs backend)",
			Sources:     cli.EnvVars("SIMHUD_STORAGE_BUCKET"),
			Destination: &a.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Category:    "Storage",
			Usage:       "Object name prefix (gcs backend)",
			Sources:     cli.EnvVars("SIMHUD_STORAGE_PREFIX"),
			Destination: &a.prefix,
		},
		&cli.StringFlag{
			Name:        "storage-endpoint",
			Category:    "Storage",
			Usage:       "Cloud Storage endpoint override, e.g. an emulator",
			Sources:     cli.EnvVars("SIMHUD_STORAGE_ENDPOINT"),
			Destination: &a.endpoint,
		},
	}
}

// Configure merges the optional config file with the flags of c
func (a *App) Configure(c *cli.Command) (*Settings, error) {
	var f File
	if a.configPath != "" {
		loaded, err := LoadFile(a.configPath)
		if err != nil {
			return nil, err
		}
		f = *loaded
	}

	s := &Settings{
		LayoutsDir:     pick(c, "layouts-dir", a.layoutsDir, f.Paths.LayoutsDir),
		OverlaysDir:    pick(c, "overlays-dir", a.overlaysDir, f.Paths.OverlaysDir),
		OverlayBaseURL: pick(c, "overlay-base-url", a.baseURL, f.Overlay.BaseURL),
		HostCheckPages: a.hostCheckPages || (!c.IsSet("host-check-pages") && f.Host.CheckPages),
		Storage: StorageSettings{
			Backend:  pick(c, "storage-backend", a.backend, f.Storage.Backend),
			Bucket:   pick(c, "storage-bucket", a.bucket, f.Storage.Bucket),
			Prefix:   pick(c, "storage-prefix", a.prefix, f.Storage.Prefix),
			Endpoint: pick(c, "storage-endpoint", a.endpoint, f.Storage.Endpoint),
		},
	}

	if err := s.Storage.Validate(); err != nil {
		return nil, err
	}

	if s.Storage.Backend == BackendGCS && s.Storage.Prefix != "" {
		s.LayoutsDir = path.Join(s.Storage.Prefix, s.LayoutsDir)
		s.OverlaysDir = path.Join(s.Storage.Prefix, s.OverlaysDir)
	}

	return s, nil
}

// pick returns the flag value when it was given explicitly, then the file
// value, then the flag default
func pick(c *cli.Command, name, flagValue, fileValue string) string {
	if c.IsSet(name) || fileValue == "" {
		return flagValue
	}
	return fileValue
}
