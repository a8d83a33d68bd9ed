package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/simhud/simhud/pkg/domain/interfaces"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/service/host"
	"github.com/simhud/simhud/pkg/usecase"
)

// seedIRacing writes two layouts, a corrupt file and catalog settings for iRacing
func seedIRacing(t *testing.T, e *testEnv) {
	t.Helper()
	e.writeJSON(t, "layouts/iracing/oval.json", layoutFile("Oval", hudEntry("hud-1", "relative")))
	e.writeJSON(t, "layouts/iracing/road.json", layoutFile("Road", hudEntry("hud-2", "fuel")))
	gt.NoError(t, e.storage.Write(e.ctx, "layouts/iracing/broken.json", []byte("not json"))).Required()
	e.writeJSON(t, "layouts/iracing/settings.json", model.CatalogSettings{
		ActiveLayoutFilename: strPtr("oval.json"),
		LayoutOrder:          []string{"road.json", "oval.json"},
	})
}

func TestCatalog_Load(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog

	gt.NoError(t, c.Load(e.ctx, types.GameIRacing)).Required()

	t.Run("layout files are instantiated", func(t *testing.T) {
		gt.Value(t, c.Game()).Equal(types.GameIRacing)
		gt.Value(t, c.LoadedLayouts()).Equal([]string{"oval.json", "road.json"})
		gt.Array(t, e.host.LiveWindows()).Length(2)
	})

	t.Run("active layout and order are restored", func(t *testing.T) {
		active := c.ActiveLayout()
		gt.Value(t, active).NotNil()
		gt.Value(t, active.Filename).Equal("oval.json")
		gt.Bool(t, c.ActiveShown()).False()

		order, err := c.LayoutOrder(e.ctx, types.GameIRacing)
		gt.NoError(t, err).Required()
		gt.Value(t, order).Equal([]string{"road.json", "oval.json"})
	})

	t.Run("switching game destroys previous layouts", func(t *testing.T) {
		gt.NoError(t, c.Load(e.ctx, types.GameF124)).Required()
		gt.Array(t, e.host.LiveWindows()).Length(0)
		gt.Value(t, c.ActiveLayout()).Nil()
		gt.Array(t, c.LoadedLayouts()).Length(0)
	})

	t.Run("unknown game is rejected", func(t *testing.T) {
		gt.Error(t, c.Load(e.ctx, types.GameName("Pong"))).Is(model.ErrValidation)
	})

	t.Run("none keeps an empty catalog", func(t *testing.T) {
		gt.NoError(t, c.Load(e.ctx, types.GameNone)).Required()
		gt.Array(t, c.LoadedLayouts()).Length(0)
	})
}

func TestCatalog_LoadSkipsFailingLayouts(t *testing.T) {
	t.Run("copied layout sharing overlay ids loads next to the original", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		e.writeJSON(t, "layouts/iracing/oval-copy.json", layoutFile("Oval copy", hudEntry("hud-1", "relative")))
		c := e.uc.Catalog

		gt.NoError(t, c.Load(e.ctx, types.GameIRacing)).Required()
		gt.Value(t, c.LoadedLayouts()).Equal([]string{"oval-copy.json", "oval.json", "road.json"})
		gt.Number(t, e.host.ChannelCount("hud-1")).Equal(2)
		gt.Value(t, c.ActiveLayout().Filename).Equal("oval.json")

		original := c.LiveLayout("oval.json").Overlay("hud-1")
		copied := c.LiveLayout("oval-copy.json").Overlay("hud-1")
		gt.NoError(t, original.SetEditMode(e.ctx, true)).Required()

		resp, err := e.host.Request(e.ctx, original.Handle(), "hud-1", nil)
		gt.NoError(t, err).Required()
		gt.Value(t, resp).Equal(map[string]any{"editMode": true})
		resp, err = e.host.Request(e.ctx, copied.Handle(), "hud-1", nil)
		gt.NoError(t, err).Required()
		gt.Value(t, resp).Equal(map[string]any{"editMode": false})
	})

	t.Run("window failure in one layout skips only that file", func(t *testing.T) {
		e := newTestEnv(t, host.WithCreateHook(func(opts interfaces.WindowOptions) error {
			if opts.Title == "Fuel" {
				return errors.New("out of windows")
			}
			return nil
		}))
		seedIRacing(t, e)
		c := e.uc.Catalog

		gt.NoError(t, c.Load(e.ctx, types.GameIRacing)).Required()
		gt.Value(t, c.Game()).Equal(types.GameIRacing)
		gt.Value(t, c.LoadedLayouts()).Equal([]string{"oval.json"})
		gt.Value(t, c.ActiveLayout().Filename).Equal("oval.json")

		order, err := c.LayoutOrder(e.ctx, types.GameIRacing)
		gt.NoError(t, err).Required()
		gt.Value(t, order).Equal([]string{"road.json", "oval.json"})
	})

	t.Run("host without windows fails the load", func(t *testing.T) {
		e := newTestEnv(t, host.WithCreateHook(func(interfaces.WindowOptions) error {
			return errors.New("no display")
		}))
		seedIRacing(t, e)

		gt.Error(t, e.uc.Catalog.Load(e.ctx, types.GameIRacing)).Is(model.ErrResource)
	})
}

func TestCatalog_SetActiveLayout(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog

	gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()

	t.Run("game is loaded on demand", func(t *testing.T) {
		gt.Value(t, c.Game()).Equal(types.GameIRacing)
		gt.Value(t, c.ShownLayouts()).Equal([]string{"oval.json"})
		gt.Bool(t, e.window(t, c.LiveLayout("oval.json").Overlay("hud-1").Handle()).Visible).True()
	})

	t.Run("activating another layout deactivates the previous one", func(t *testing.T) {
		gt.NoError(t, c.SetEditMode(e.ctx, true)).Required()
		gt.NoError(t, c.SetActiveLayout(e.ctx, "road", types.GameIRacing, true)).Required()

		gt.Value(t, c.ShownLayouts()).Equal([]string{"road.json"})
		oval := c.LiveLayout("oval.json")
		gt.Bool(t, oval.EditMode()).False()
		gt.Bool(t, e.window(t, oval.Overlay("hud-1").Handle()).Visible).False()

		road := c.LiveLayout("road.json")
		gt.Bool(t, road.EditMode()).True()
		gt.Bool(t, e.window(t, road.Overlay("hud-2").Handle()).Resizable).True()

		gt.Value(t, *e.readSettings(t, types.GameIRacing).ActiveLayoutFilename).Equal("road.json")
	})

	t.Run("at most one layout is shown after any sequence", func(t *testing.T) {
		sequence := []string{"oval.json", "road.json", "", "road.json", "missing.json", "oval.json", "oval.json"}
		for _, filename := range sequence {
			_ = c.SetActiveLayout(e.ctx, filename, types.GameIRacing, true)
			gt.Bool(t, len(c.ShownLayouts()) <= 1).True()
		}
		gt.Value(t, c.ShownLayouts()).Equal([]string{"oval.json"})
	})

	t.Run("missing layout leaves nothing active", func(t *testing.T) {
		err := c.SetActiveLayout(e.ctx, "missing.json", types.GameIRacing, true)
		gt.Error(t, err).Is(model.ErrLayoutNotFound)
		gt.Value(t, c.ActiveLayout()).Nil()
		gt.Array(t, c.ShownLayouts()).Length(0)
	})

	t.Run("empty filename clears active layout", func(t *testing.T) {
		gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()
		gt.NoError(t, c.SetActiveLayout(e.ctx, "", types.GameIRacing, true)).Required()
		gt.Value(t, c.ActiveLayout()).Nil()
		gt.Array(t, c.ShownLayouts()).Length(0)
	})

	t.Run("activate without showing", func(t *testing.T) {
		gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, false)).Required()
		gt.Value(t, c.ActiveLayout().Filename).Equal("oval.json")
		gt.Array(t, c.ShownLayouts()).Length(0)
	})

	t.Run("other game reloads the catalog", func(t *testing.T) {
		e.writeJSON(t, "layouts/f1_24/monaco.json", layoutFile("Monaco", hudEntry("hud-9", "relative")))
		gt.NoError(t, c.SetActiveLayout(e.ctx, "monaco.json", types.GameF124, true)).Required()

		gt.Value(t, c.Game()).Equal(types.GameF124)
		gt.Value(t, c.LoadedLayouts()).Equal([]string{"monaco.json"})
		gt.Value(t, c.ShownLayouts()).Equal([]string{"monaco.json"})
		gt.Array(t, e.host.LiveWindows()).Length(1)
	})
}

func TestCatalog_SetEditMode(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog
	gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()

	gt.NoError(t, c.SetEditMode(e.ctx, true)).Required()
	gt.Bool(t, c.EditMode()).True()

	surface := c.LiveLayout("oval.json").Overlay("hud-1")
	w := e.window(t, surface.Handle())
	gt.Bool(t, w.Resizable).True()
	// activation pushes the mode twice (catalog, then layout show), the toggle once
	gt.Array(t, w.Messages).Length(3)

	t.Run("unchanged value is a no-op", func(t *testing.T) {
		gt.NoError(t, c.SetEditMode(e.ctx, true)).Required()
		gt.Array(t, e.window(t, surface.Handle()).Messages).Length(3)
	})

	t.Run("inactive layouts are untouched", func(t *testing.T) {
		gt.Bool(t, c.LiveLayout("road.json").EditMode()).False()
	})
}

func TestCatalog_SetPreviewMode(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog
	gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()

	gt.NoError(t, c.SetPreviewMode(e.ctx, true)).Required()
	oval := c.LiveLayout("oval.json").Overlay("hud-1")
	gt.String(t, e.window(t, oval.Handle()).URL).Contains("preview=true")

	t.Run("mode follows activation", func(t *testing.T) {
		gt.NoError(t, c.SetActiveLayout(e.ctx, "road.json", types.GameIRacing, true)).Required()
		gt.Bool(t, oval.PreviewMode()).False()
		gt.Bool(t, c.LiveLayout("road.json").Overlay("hud-2").PreviewMode()).True()
	})
}

func TestCatalog_CreateLayout(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog
	gt.NoError(t, c.Load(e.ctx, types.GameIRacing)).Required()

	cfg, err := c.CreateLayout(e.ctx, "sprint", layoutFile("Sprint", hudEntry("hud-5", "fuel")))
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Filename).Equal("sprint.json")
	gt.Array(t, cfg.Overlays).Length(1)

	t.Run("layout is persisted but neither ordered nor active", func(t *testing.T) {
		exists, err := e.storage.Exists(e.ctx, "layouts/iracing/sprint.json")
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).True()

		settings := e.readSettings(t, types.GameIRacing)
		gt.Value(t, settings.LayoutOrder).Equal([]string{"road.json", "oval.json"})
		gt.Value(t, *settings.ActiveLayoutFilename).Equal("oval.json")
		gt.Array(t, c.ShownLayouts()).Length(0)
	})

	t.Run("existing filename is rejected", func(t *testing.T) {
		_, err := c.CreateLayout(e.ctx, "sprint.json", layoutFile("Sprint"))
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("reserved filename is rejected", func(t *testing.T) {
		_, err := c.CreateLayout(e.ctx, "settings.json", layoutFile("Settings"))
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("invalid data is rejected and leaves no windows", func(t *testing.T) {
		windows := len(e.host.LiveWindows())
		data := layoutFile("", hudEntry("hud-6", "fuel"))
		_, err := c.CreateLayout(e.ctx, "untitled.json", data)
		gt.Error(t, err).Is(model.ErrValidation)
		gt.Array(t, e.host.LiveWindows()).Length(windows)
	})

	t.Run("no game selected", func(t *testing.T) {
		fresh := newTestEnv(t)
		_, err := fresh.uc.Catalog.CreateLayout(fresh.ctx, "a.json", layoutFile("A"))
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("order entry of an unparsable file keeps its place", func(t *testing.T) {
		fresh := newTestEnv(t)
		seedIRacing(t, fresh)
		fresh.writeJSON(t, "layouts/iracing/settings.json", model.CatalogSettings{
			LayoutOrder: []string{"broken.json", "gone.json", "oval.json"},
		})
		fc := fresh.uc.Catalog
		gt.NoError(t, fc.Load(fresh.ctx, types.GameIRacing)).Required()

		_, err := fc.CreateLayout(fresh.ctx, "sprint.json", layoutFile("Sprint"))
		gt.NoError(t, err).Required()
		gt.Value(t, fresh.readSettings(t, types.GameIRacing).LayoutOrder).Equal([]string{"broken.json", "oval.json"})
	})
}

func TestCatalog_CreateLayoutForGame(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog

	cfg, err := c.CreateLayoutForGame(e.ctx, types.GameIRacing, "sprint", layoutFile("Sprint"))
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Game).Equal(types.GameIRacing)
	gt.Value(t, c.Game()).Equal(types.GameIRacing)
	gt.Value(t, c.LoadedLayouts()).Equal([]string{"oval.json", "road.json", "sprint.json"})

	t.Run("current game is not reloaded", func(t *testing.T) {
		creates := e.host.Creates()
		_, err := c.CreateLayoutForGame(e.ctx, types.GameIRacing, "endurance", layoutFile("Endurance"))
		gt.NoError(t, err).Required()
		gt.Number(t, e.host.Creates()).Equal(creates)
	})

	t.Run("none is rejected", func(t *testing.T) {
		_, err := c.CreateLayoutForGame(e.ctx, types.GameNone, "a", layoutFile("A"))
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestCatalog_DeleteLayout(t *testing.T) {
	t.Run("deleting the active layout of the current game", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		c := e.uc.Catalog
		gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()
		handle := c.LiveLayout("oval.json").Overlay("hud-1").Handle()

		gt.NoError(t, c.DeleteLayout(e.ctx, "oval.json", types.GameIRacing)).Required()

		gt.Value(t, c.ActiveLayout()).Nil()
		exists, err := e.storage.Exists(e.ctx, "layouts/iracing/oval.json")
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).False()
		gt.Bool(t, e.host.IsDestroyed(handle)).True()
		gt.Value(t, c.LoadedLayouts()).Equal([]string{"road.json"})

		settings := e.readSettings(t, types.GameIRacing)
		gt.Value(t, settings.ActiveLayoutFilename).Nil()
		gt.Value(t, settings.LayoutOrder).Equal([]string{"road.json"})
	})

	t.Run("deleting a layout of another game", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		c := e.uc.Catalog
		gt.NoError(t, c.Load(e.ctx, types.GameF124)).Required()

		gt.NoError(t, c.DeleteLayout(e.ctx, "road.json", types.GameIRacing)).Required()

		exists, err := e.storage.Exists(e.ctx, "layouts/iracing/road.json")
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).False()
		gt.Value(t, c.Game()).Equal(types.GameF124)

		settings := e.readSettings(t, types.GameIRacing)
		gt.Value(t, settings.LayoutOrder).Equal([]string{"oval.json"})
		gt.Value(t, *settings.ActiveLayoutFilename).Equal("oval.json")
	})

	t.Run("unknown layout", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		err := e.uc.Catalog.DeleteLayout(e.ctx, "nope.json", types.GameIRacing)
		gt.Error(t, err).Is(model.ErrLayoutNotFound)
	})
}

func TestCatalog_LayoutOrder(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog
	gt.NoError(t, c.Load(e.ctx, types.GameIRacing)).Required()

	t.Run("current game order is persisted with pruning", func(t *testing.T) {
		gt.NoError(t, c.UpdateLayoutsOrder(e.ctx, []string{"oval", "gone.json", "road.json"}, types.GameIRacing)).Required()

		order, err := c.LayoutOrder(e.ctx, types.GameIRacing)
		gt.NoError(t, err).Required()
		gt.Value(t, order).Equal([]string{"oval.json", "road.json"})
		gt.Value(t, e.readSettings(t, types.GameIRacing).LayoutOrder).Equal([]string{"oval.json", "road.json"})
	})

	t.Run("other game order is written without touching the catalog", func(t *testing.T) {
		gt.NoError(t, c.UpdateLayoutsOrder(e.ctx, []string{"monaco.json", "spa.json"}, types.GameF124)).Required()

		order, err := c.LayoutOrder(e.ctx, types.GameF124)
		gt.NoError(t, err).Required()
		gt.Value(t, order).Equal([]string{"monaco.json", "spa.json"})
		gt.Value(t, c.Game()).Equal(types.GameIRacing)

		settings := e.readSettings(t, types.GameF124)
		gt.Value(t, settings.ActiveLayoutFilename).Nil()
	})

	t.Run("stale entries survive until the next write", func(t *testing.T) {
		fresh := newTestEnv(t)
		seedIRacing(t, fresh)
		fresh.writeJSON(t, "layouts/iracing/settings.json", model.CatalogSettings{
			LayoutOrder: []string{"gone.json", "oval.json"},
		})
		fc := fresh.uc.Catalog
		gt.NoError(t, fc.Load(fresh.ctx, types.GameIRacing)).Required()

		order, err := fc.LayoutOrder(fresh.ctx, types.GameIRacing)
		gt.NoError(t, err).Required()
		gt.Value(t, order).Equal([]string{"gone.json", "oval.json"})

		gt.NoError(t, fc.SetActiveLayout(fresh.ctx, "oval.json", types.GameIRacing, false)).Required()
		gt.Value(t, fresh.readSettings(t, types.GameIRacing).LayoutOrder).Equal([]string{"oval.json"})
	})

	t.Run("game without settings has an empty order", func(t *testing.T) {
		order, err := c.LayoutOrder(e.ctx, types.GameLeMansUltimate)
		gt.NoError(t, err).Required()
		gt.Array(t, order).Length(0)
	})
}

func TestCatalog_UpdateLayout(t *testing.T) {
	t.Run("current game updates the live layout", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		c := e.uc.Catalog
		gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()

		gt.NoError(t, c.UpdateLayout(e.ctx, "oval.json", layoutFile("Oval",
			hudEntry("hud-1", "relative", model.OverlaySetting{ID: "opacity", Value: 20}),
			hudEntry("hud-3", "fuel"),
		), types.GameIRacing)).Required()

		l := c.LiveLayout("oval.json")
		gt.Value(t, surfaceIDs(l)).Equal([]string{"hud-1", "hud-3"})
		gt.Bool(t, e.window(t, l.Overlay("hud-3").Handle()).Visible).True()
	})

	t.Run("other game updates the file through a transient layout", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		c := e.uc.Catalog
		gt.NoError(t, c.Load(e.ctx, types.GameF124)).Required()

		gt.NoError(t, c.UpdateLayout(e.ctx, "road.json", layoutFile("Road v2",
			hudEntry("hud-2", "fuel", model.OverlaySetting{ID: "units", Value: "gallons"}),
		), types.GameIRacing)).Required()

		gt.Value(t, c.Game()).Equal(types.GameF124)
		gt.Array(t, c.LoadedLayouts()).Length(0)
		gt.Array(t, e.host.LiveWindows()).Length(0)

		layouts, err := c.Layouts(e.ctx, types.GameIRacing)
		gt.NoError(t, err).Required()
		for _, l := range layouts {
			if l.Filename == "road.json" {
				gt.Value(t, l.Title).Equal("Road v2")
				gt.Value(t, l.Overlays[0].Settings[0].Value).Equal("gallons")
			}
		}
	})

	t.Run("unknown layout", func(t *testing.T) {
		e := newTestEnv(t)
		seedIRacing(t, e)
		c := e.uc.Catalog
		gt.NoError(t, c.Load(e.ctx, types.GameIRacing)).Required()

		err := c.UpdateLayout(e.ctx, "nope.json", layoutFile("Nope"), types.GameIRacing)
		gt.Error(t, err).Is(model.ErrLayoutNotFound)
		err = c.UpdateLayout(e.ctx, "nope.json", layoutFile("Nope"), types.GameF124)
		gt.Error(t, err).Is(model.ErrLayoutNotFound)
	})
}

func TestCatalog_Layouts(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)

	layouts, err := e.uc.Catalog.Layouts(e.ctx, types.GameIRacing)
	gt.NoError(t, err).Required()
	gt.Array(t, layouts).Length(2)
	gt.Value(t, layouts[0].Filename).Equal("oval.json")
	gt.Value(t, layouts[1].Title).Equal("Road")

	t.Run("sorted by order", func(t *testing.T) {
		sorted := usecase.SortByOrder(layouts, []string{"road.json", "gone.json"})
		gt.Value(t, sorted[0].Filename).Equal("road.json")
		gt.Value(t, sorted[1].Filename).Equal("oval.json")
	})

	t.Run("listing does not load the game", func(t *testing.T) {
		gt.Value(t, e.uc.Catalog.Game()).Equal(types.GameNone)
		gt.Array(t, e.host.LiveWindows()).Length(0)
	})

	t.Run("empty game", func(t *testing.T) {
		layouts, err := e.uc.Catalog.Layouts(e.ctx, types.GameRFactor2)
		gt.NoError(t, err).Required()
		gt.Array(t, layouts).Length(0)
	})
}

func TestCatalog_Overlays(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog
	gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()

	id, err := c.AddOverlay(e.ctx, types.GameIRacing, "oval.json", "fuel")
	gt.NoError(t, err).Required()
	gt.Value(t, id).NotEqual("")

	t.Run("new overlay uses manifest defaults and is shown", func(t *testing.T) {
		s := c.LiveLayout("oval.json").Overlay(id)
		gt.Value(t, s.Settings()).Equal([]model.OverlaySetting{{ID: "units", Value: "liters"}})
		gt.Value(t, s.BaseURL()).Equal(testBaseURL + "/fuel/")

		w := e.window(t, s.Handle())
		gt.Bool(t, w.Visible).True()
		gt.Number(t, w.Bounds.Width).Equal(250)

		file, err := c.Layouts(e.ctx, types.GameIRacing)
		gt.NoError(t, err).Required()
		gt.Array(t, file[0].Overlays).Length(2)
	})

	t.Run("bounds are applied and saved", func(t *testing.T) {
		x, y := 100, 200
		gt.NoError(t, c.SetOverlayBounds(e.ctx, types.GameIRacing, "oval.json", id, model.PartialBounds{X: &x, Y: &y})).Required()

		data, err := e.storage.Read(e.ctx, "layouts/iracing/oval.json")
		gt.NoError(t, err).Required()
		file, err := model.DecodeLayoutFile(data)
		gt.NoError(t, err).Required()
		entry, ok := file.Overlay(id)
		gt.Bool(t, ok).True()
		gt.Value(t, entry.Position).Equal(model.Position{X: 100, Y: 200})
	})

	t.Run("visibility is applied and saved", func(t *testing.T) {
		gt.NoError(t, c.SetOverlayVisible(e.ctx, types.GameIRacing, "oval.json", id, false)).Required()
		s := c.LiveLayout("oval.json").Overlay(id)
		gt.Bool(t, e.window(t, s.Handle()).Visible).False()

		err := c.SetOverlayVisible(e.ctx, types.GameIRacing, "oval.json", "hud-404", false)
		gt.Error(t, err).Is(model.ErrOverlayNotFound)
	})

	t.Run("remove destroys and saves", func(t *testing.T) {
		gt.NoError(t, c.RemoveOverlay(e.ctx, types.GameIRacing, "oval.json", id)).Required()
		gt.Value(t, c.LiveLayout("oval.json").Overlay(id)).Nil()
		gt.Bool(t, e.host.HasChannel(id)).False()

		err := c.RemoveOverlay(e.ctx, types.GameIRacing, "oval.json", id)
		gt.Error(t, err).Is(model.ErrOverlayNotFound)
	})

	t.Run("unknown package", func(t *testing.T) {
		_, err := c.AddOverlay(e.ctx, types.GameIRacing, "oval.json", "missing")
		gt.Error(t, err).Is(model.ErrOverlayNotFound)
	})

	t.Run("overlay of an unavailable package survives unrelated saves", func(t *testing.T) {
		fresh := newTestEnv(t)
		fresh.writeJSON(t, "layouts/iracing/oval.json", layoutFile("Oval",
			hudEntry("hud-1", "relative"),
			hudEntry("hud-2", "missingpkg", model.OverlaySetting{ID: "speed", Value: "kph"}),
		))
		fc := fresh.uc.Catalog
		gt.NoError(t, fc.Load(fresh.ctx, types.GameIRacing)).Required()

		gt.NoError(t, fc.SetOverlayVisible(fresh.ctx, types.GameIRacing, "oval.json", "hud-1", false)).Required()

		data, err := fresh.storage.Read(fresh.ctx, "layouts/iracing/oval.json")
		gt.NoError(t, err).Required()
		file, err := model.DecodeLayoutFile(data)
		gt.NoError(t, err).Required()
		gt.Array(t, file.Overlays).Length(2)
		kept, ok := file.Overlay("hud-2")
		gt.Bool(t, ok).True()
		gt.Value(t, kept.FolderName).Equal("missingpkg")
		gt.Value(t, kept.Position).Equal(model.Position{X: 10, Y: 20})
		gt.Value(t, kept.Settings).Equal([]model.OverlaySetting{{ID: "speed", Value: "kph"}})
	})

	t.Run("folder traversal is rejected", func(t *testing.T) {
		_, err := c.AddOverlay(e.ctx, types.GameIRacing, "oval.json", "../layouts")
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestCatalog_Close(t *testing.T) {
	e := newTestEnv(t)
	seedIRacing(t, e)
	c := e.uc.Catalog
	gt.NoError(t, c.SetActiveLayout(e.ctx, "oval.json", types.GameIRacing, true)).Required()

	c.Close(e.ctx)
	gt.Array(t, e.host.LiveWindows()).Length(0)
	gt.Bool(t, e.host.HasChannel("hud-1")).False()
	gt.Value(t, c.ActiveLayout()).Nil()
}
