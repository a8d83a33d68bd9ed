package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/simhud/simhud/pkg/domain/model"
)

func TestDecodeLayoutFile(t *testing.T) {
	t.Run("valid layout", func(t *testing.T) {
		f, err := model.DecodeLayoutFile([]byte(`{
			"title": "Oval",
			"screen": {"width": 1920, "height": 1080},
			"overlays": [{
				"id": "hud-1", "baseUrl": "http://localhost/relative/", "title": "Relative",
				"position": {"x": 10, "y": 20}, "size": {"width": 300, "height": 200},
				"settings": [{"id": "opacity", "value": 50}, {"id": "cols", "value": ["a", "b"]}],
				"visible": true, "folderName": "relative"
			}]
		}`))
		gt.NoError(t, err).Required()
		gt.Value(t, f.Title).Equal("Oval")
		gt.Array(t, f.Overlays).Length(1)

		o, ok := f.Overlay("hud-1")
		gt.Bool(t, ok).True()
		gt.Value(t, o.Settings[0].Value).Equal(float64(50))
		gt.Value(t, o.Settings[1].Value).Equal([]string{"a", "b"})
	})

	t.Run("missing overlays list becomes empty", func(t *testing.T) {
		f, err := model.DecodeLayoutFile([]byte(`{"title": "Oval", "screen": {"width": 1920, "height": 1080}}`))
		gt.NoError(t, err).Required()
		gt.Value(t, f.Overlays).NotNil()
		gt.Array(t, f.Overlays).Length(0)
	})

	tests := []struct {
		name string
		data string
	}{
		{"malformed JSON", `{"title": `},
		{"missing title", `{"screen": {"width": 1920, "height": 1080}, "overlays": []}`},
		{"zero screen", `{"title": "Oval", "screen": {"width": 0, "height": 1080}}`},
		{"missing overlay id", `{"title": "Oval", "screen": {"width": 1, "height": 1}, "overlays": [{"folderName": "x"}]}`},
		{"duplicate overlay id", `{"title": "Oval", "screen": {"width": 1, "height": 1}, "overlays": [
			{"id": "a", "folderName": "x"}, {"id": "a", "folderName": "y"}]}`},
		{"missing folder name", `{"title": "Oval", "screen": {"width": 1, "height": 1}, "overlays": [{"id": "a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.DecodeLayoutFile([]byte(tt.data))
			gt.Value(t, err).NotNil()
			gt.Error(t, err).Is(model.ErrParse)
		})
	}
}

func TestDecodeCatalogSettings(t *testing.T) {
	t.Run("active layout set", func(t *testing.T) {
		s, err := model.DecodeCatalogSettings([]byte(`{"activeLayoutFilename": "oval.json", "layoutOrder": ["oval.json", "road.json"]}`))
		gt.NoError(t, err).Required()
		gt.Value(t, s.ActiveLayoutFilename).NotNil()
		gt.Value(t, *s.ActiveLayoutFilename).Equal("oval.json")
		gt.Value(t, s.LayoutOrder).Equal([]string{"oval.json", "road.json"})
	})

	t.Run("null active layout", func(t *testing.T) {
		s, err := model.DecodeCatalogSettings([]byte(`{"activeLayoutFilename": null}`))
		gt.NoError(t, err).Required()
		gt.Value(t, s.ActiveLayoutFilename).Nil()
		gt.Array(t, s.LayoutOrder).Length(0)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := model.DecodeCatalogSettings([]byte(`[`))
		gt.Error(t, err).Is(model.ErrParse)
	})
}
