package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/repository/memory"
	"github.com/simhud/simhud/pkg/service/host"
	"github.com/simhud/simhud/pkg/usecase"
)

const testBaseURL = "http://localhost/overlays"

const relativeManifest = `{
  // comments and trailing commas are accepted
  "title": "Relative",
  "dimentions": {
    "defaultWidth": 400, "defaultHeight": 300,
    "minWidth": 200, "minHeight": 100,
    "maxWidth": 800, "maxHeight": 600,
  },
  "requiredFields": ["carIdx"],
  "pages": [
    {
      "title": "General",
      "groups": [
        {
          "type": "default",
          "settings": [
            {"id": "opacity", "type": "slider", "defaultValue": 80, "min": 0, "max": 100},
            {"id": "showIRating", "type": "toggle", "defaultValue": true},
          ]
        }
      ]
    }
  ]
}`

const fuelManifest = `{
  "title": "Fuel",
  "dimentions": {"defaultWidth": 250, "defaultHeight": 120},
  "settings": [
    {"id": "units", "type": "select", "defaultValue": "liters",
     "options": [{"id": "liters", "name": "Liters"}, {"id": "gallons", "name": "Gallons"}]}
  ]
}`

type testEnv struct {
	ctx     context.Context
	storage *memory.Storage
	host    *host.Headless
	uc      *usecase.UseCases
}

func newTestEnv(t *testing.T, opts ...host.Option) *testEnv {
	t.Helper()
	ctx := context.Background()
	storage := memory.New()
	gt.NoError(t, storage.Write(ctx, "overlays/relative/manifest.json", []byte(relativeManifest))).Required()
	gt.NoError(t, storage.Write(ctx, "overlays/fuel/manifest.json", []byte(fuelManifest))).Required()

	h := host.NewHeadless(opts...)
	uc := usecase.New(storage, h,
		usecase.WithLayoutsDir("layouts"),
		usecase.WithOverlaysDir("overlays"),
		usecase.WithOverlayBaseURL(testBaseURL),
	)
	return &testEnv{ctx: ctx, storage: storage, host: h, uc: uc}
}

func (e *testEnv) env() *usecase.Env {
	return &usecase.Env{
		Storage:    e.storage,
		Host:       e.host,
		Manifests:  e.uc.Manifests,
		LayoutsDir: "layouts",
	}
}

func (e *testEnv) writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	gt.NoError(t, err).Required()
	gt.NoError(t, e.storage.Write(e.ctx, path, data)).Required()
}

func (e *testEnv) readSettings(t *testing.T, game types.GameName) model.CatalogSettings {
	t.Helper()
	data, err := e.storage.Read(e.ctx, "layouts/"+game.DirName()+"/settings.json")
	gt.NoError(t, err).Required()
	settings, err := model.DecodeCatalogSettings(data)
	gt.NoError(t, err).Required()
	return *settings
}

func (e *testEnv) loads(t *testing.T, handle interfaces.WindowHandle) int {
	t.Helper()
	w, ok := e.host.Window(handle)
	gt.Bool(t, ok).True()
	return w.Loads
}

func (e *testEnv) window(t *testing.T, handle interfaces.WindowHandle) host.WindowSnapshot {
	t.Helper()
	w, ok := e.host.Window(handle)
	gt.Bool(t, ok).True()
	return w
}

var manifestTitles = map[string]string{
	"relative": "Relative",
	"fuel":     "Fuel",
}

func hudEntry(id, folder string, settings ...model.OverlaySetting) model.OverlayEntry {
	if settings == nil {
		settings = []model.OverlaySetting{}
	}
	return model.OverlayEntry{
		ID:         id,
		BaseURL:    testBaseURL + "/" + folder + "/",
		Title:      manifestTitles[folder],
		Position:   model.Position{X: 10, Y: 20},
		Size:       model.Size{Width: 400, Height: 300},
		Settings:   settings,
		Visible:    true,
		FolderName: folder,
	}
}

func layoutFile(title string, overlays ...model.OverlayEntry) model.LayoutFile {
	if overlays == nil {
		overlays = []model.OverlayEntry{}
	}
	return model.LayoutFile{
		Title:    title,
		Screen:   model.Screen{Width: 1920, Height: 1080},
		Overlays: overlays,
	}
}

func strPtr(s string) *string { return &s }
