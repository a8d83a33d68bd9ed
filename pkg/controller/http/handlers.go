package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/simhud/simhud/pkg/domain/model"
	"github.com/simhud/simhud/pkg/domain/types"
	"github.com/simhud/simhud/pkg/usecase"
)

type gameResponse struct {
	Name    types.GameName `json:"name"`
	DirName string         `json:"dirName"`
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	games := types.AllGameNames()
	resp := struct {
		Games       []gameResponse `json:"games"`
		Current     types.GameName `json:"current"`
		EditMode    bool           `json:"editMode"`
		PreviewMode bool           `json:"previewMode"`
	}{
		Games:       make([]gameResponse, 0, len(games)),
		Current:     s.uc.Catalog.Game(),
		EditMode:    s.uc.Catalog.EditMode(),
		PreviewMode: s.uc.Catalog.PreviewMode(),
	}
	for _, g := range games {
		resp.Games = append(resp.Games, gameResponse{Name: g, DirName: g.DirName()})
	}
	writeJSON(w, http.StatusOK, resp)
}

type overlayResponse struct {
	FolderName string                 `json:"folderName"`
	BaseURL    string                 `json:"baseUrl"`
	Manifest   *model.OverlayManifest `json:"manifest,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (s *Server) listOverlays(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		entries, err := s.uc.Catalog.Manifests(r.Context())
		if err != nil {
			return err
		}

		overlays := make([]overlayResponse, 0, len(entries))
		for _, entry := range entries {
			o := overlayResponse{
				FolderName: entry.FolderName,
				BaseURL:    s.uc.Manifests.BaseURLFor(entry.FolderName),
				Manifest:   entry.Manifest,
			}
			if entry.Err != nil {
				o.Error = entry.Err.Error()
			}
			overlays = append(overlays, o)
		}
		writeJSON(w, http.StatusOK, map[string]any{"overlays": overlays})
		return nil
	})
}

// reloadOverlay rereads one overlay package after it was edited on disk
func (s *Server) reloadOverlay(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		folderName, err := pathParam(r, "folderName")
		if err != nil {
			return err
		}
		manifest, err := s.uc.Manifests.Reload(r.Context(), folderName)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, overlayResponse{
			FolderName: folderName,
			BaseURL:    s.uc.Manifests.BaseURLFor(folderName),
			Manifest:   manifest,
		})
		return nil
	})
}

func (s *Server) listLayouts(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, err := gameParam(r)
		if err != nil {
			return err
		}
		layouts, err := s.uc.Catalog.Layouts(r.Context(), game)
		if err != nil {
			return err
		}
		order, err := s.uc.Catalog.LayoutOrder(r.Context(), game)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]any{"layouts": usecase.SortByOrder(layouts, order)})
		return nil
	})
}

func (s *Server) createLayout(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, err := gameParam(r)
		if err != nil {
			return err
		}
		var req struct {
			Filename string           `json:"filename"`
			Layout   model.LayoutFile `json:"layout"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		cfg, err := s.uc.Catalog.CreateLayoutForGame(r.Context(), game, req.Filename, req.Layout)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, cfg)
		return nil
	})
}

func (s *Server) updateLayout(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, filename, err := layoutParams(r)
		if err != nil {
			return err
		}
		var data model.LayoutFile
		if err := decodeJSON(w, r, &data); err != nil {
			return err
		}
		if err := s.uc.Catalog.UpdateLayout(r.Context(), filename, data, game); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) deleteLayout(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, filename, err := layoutParams(r)
		if err != nil {
			return err
		}
		if err := s.uc.Catalog.DeleteLayout(r.Context(), filename, game); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

type orderBody struct {
	Order []string `json:"order"`
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, err := gameParam(r)
		if err != nil {
			return err
		}
		order, err := s.uc.Catalog.LayoutOrder(r.Context(), game)
		if err != nil {
			return err
		}
		if order == nil {
			order = []string{}
		}
		writeJSON(w, http.StatusOK, orderBody{Order: order})
		return nil
	})
}

func (s *Server) putOrder(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, err := gameParam(r)
		if err != nil {
			return err
		}
		var req orderBody
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if err := s.uc.Catalog.UpdateLayoutsOrder(r.Context(), req.Order, game); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) getActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"game":   s.uc.Catalog.Game(),
		"layout": s.uc.Catalog.ActiveLayout(),
		"shown":  s.uc.Catalog.ActiveShown(),
	})
}

func (s *Server) putActive(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		var req struct {
			Game     string  `json:"game"`
			Filename *string `json:"filename"`
			Show     *bool   `json:"show"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		game, err := types.ParseGameName(req.Game)
		if err != nil {
			return goerr.Wrap(model.ErrValidation, "unknown game", goerr.V(model.GameKey, req.Game))
		}

		filename := ""
		if req.Filename != nil {
			filename = *req.Filename
		}
		show := req.Show == nil || *req.Show

		if err := s.uc.Catalog.SetActiveLayout(r.Context(), filename, game, show); err != nil {
			return err
		}
		s.getActive(w, r)
		return nil
	})
}

func (s *Server) putEditMode(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if err := s.uc.Catalog.SetEditMode(r.Context(), req.Enabled); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
		return nil
	})
}

func (s *Server) putPreviewMode(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if err := s.uc.Catalog.SetPreviewMode(r.Context(), req.Enabled); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
		return nil
	})
}

func (s *Server) addOverlay(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, filename, err := layoutParams(r)
		if err != nil {
			return err
		}
		var req struct {
			FolderName string `json:"folderName"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		id, err := s.uc.Catalog.AddOverlay(r.Context(), game, filename, req.FolderName)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		return nil
	})
}

func (s *Server) removeOverlay(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, filename, err := layoutParams(r)
		if err != nil {
			return err
		}
		id, err := pathParam(r, "id")
		if err != nil {
			return err
		}
		if err := s.uc.Catalog.RemoveOverlay(r.Context(), game, filename, id); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) putOverlayVisible(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, filename, err := layoutParams(r)
		if err != nil {
			return err
		}
		id, err := pathParam(r, "id")
		if err != nil {
			return err
		}
		var req struct {
			Visible bool `json:"visible"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if err := s.uc.Catalog.SetOverlayVisible(r.Context(), game, filename, id, req.Visible); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func (s *Server) putOverlayBounds(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func() error {
		game, filename, err := layoutParams(r)
		if err != nil {
			return err
		}
		id, err := pathParam(r, "id")
		if err != nil {
			return err
		}
		var req model.PartialBounds
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if err := s.uc.Catalog.SetOverlayBounds(r.Context(), game, filename, id, req); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
