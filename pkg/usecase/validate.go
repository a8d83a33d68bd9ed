package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
)

// ValidationIssue is one problem found in the overlays or layouts directory
type ValidationIssue struct {
	Game       types.GameName
	Filename   string
	FolderName string
	OverlayID  string
	Message    string
}

// ValidationResult holds the results of a validation run
type ValidationResult struct {
	Manifests int
	Layouts   int
	Issues    []ValidationIssue
}

// HasIssues returns true if there are any validation issues
func (r *ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
}

// Validate checks every overlay manifest and every layout file of every game,
// including that each overlay's package exists and its settings match the
// manifest. It does NOT modify any data.
func (uc *UseCases) Validate(ctx context.Context) (*ValidationResult, error) {
	result := &ValidationResult{}

	entries, err := uc.Manifests.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list overlay packages")
	}
	for _, entry := range entries {
		if entry.Err != nil {
			result.AddIssue(ValidationIssue{FolderName: entry.FolderName, Message: entry.Err.Error()})
			continue
		}
		result.Manifests++
	}

	for _, game := range types.AllGameNames() {
		if game.IsNone() {
			continue
		}
		if err := uc.validateGame(ctx, game, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (uc *UseCases) validateGame(ctx context.Context, game types.GameName, result *ValidationResult) error {
	dir := uc.storage.Join(uc.layoutsDir, game.DirName())
	files, err := uc.storage.ListFiles(ctx, dir)
	if err != nil {
		return goerr.Wrap(err, "failed to list layouts", goerr.V(model.GameKey, game))
	}

	for _, filename := range files {
		path := uc.storage.Join(dir, filename)
		data, err := uc.storage.Read(ctx, path)
		if err != nil {
			return goerr.Wrap(err, "failed to read layout", goerr.V(model.PathKey, path))
		}

		if filename == model.CatalogSettingsFilename {
			if _, err := model.DecodeCatalogSettings(data); err != nil {
				result.AddIssue(ValidationIssue{Game: game, Filename: filename, Message: err.Error()})
			}
			continue
		}
		if !isLayoutFilename(filename) {
			continue
		}

		file, err := model.DecodeLayoutFile(data)
		if err != nil {
			result.AddIssue(ValidationIssue{Game: game, Filename: filename, Message: err.Error()})
			continue
		}
		result.Layouts++

		for _, overlay := range file.Overlays {
			issue := ValidationIssue{
				Game:       game,
				Filename:   filename,
				FolderName: overlay.FolderName,
				OverlayID:  overlay.ID,
			}
			manifest, err := uc.Manifests.Load(ctx, overlay.FolderName)
			if err != nil {
				if errors.Is(err, model.ErrOverlayNotFound) {
					issue.Message = "overlay package not found"
				} else {
					issue.Message = err.Error()
				}
				result.AddIssue(issue)
				continue
			}
			if err := manifest.ValidateSettings(overlay.Settings); err != nil {
				issue.Message = err.Error()
				result.AddIssue(issue)
			}
		}
	}
	return nil
}
