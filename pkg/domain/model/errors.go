package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the layout/overlay domain
var (
	// Missing filename, title, game or screen before a save, or a malformed request
	ErrValidation = goerr.New("validation failed")

	ErrLayoutNotFound  = goerr.New("layout not found")
	ErrOverlayNotFound = goerr.New("overlay not found")

	// Persisted JSON that cannot be decoded or fails validation
	ErrParse = goerr.New("failed to parse persisted data")

	// Window host could not allocate a window
	ErrResource = goerr.New("window resource unavailable")

	// Overlay page failed to load
	ErrNavigation = goerr.New("overlay navigation failed")

	// Storage backends wrap this for reads of missing paths
	ErrStorageNotFound = goerr.New("stored object not found")

	ErrManifestInvalid = goerr.New("invalid overlay manifest")
	ErrInvalidSetting  = goerr.New("invalid overlay setting")
)

// Context keys for error values
const (
	FilenameKey   = "filename"
	GameKey       = "game"
	OverlayIDKey  = "overlay_id"
	FolderNameKey = "folder_name"
	PathKey       = "path"
	URLKey        = "url"
	SettingIDKey  = "setting_id"
)
