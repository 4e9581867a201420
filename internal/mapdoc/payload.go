package mapdoc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/records"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapper"
)

type featureJSON struct {
	Type       string            `json:"type"`
	ID         json.RawMessage   `json:"id,omitempty"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties model.PropertyMap `json:"properties"`
}

type collectionJSON struct {
	Type     string        `json:"type"`
	Features []featureJSON `json:"features"`
}

// EncodePayload serializes the record payload of l for Layer.Data.
func EncodePayload(l *model.Layer) (json.RawMessage, error) {
	switch l.Kind {
	case model.KindGeoJSON:
		fc := collectionJSON{Type: "FeatureCollection", Features: make([]featureJSON, len(l.Features))}
		for i, f := range l.Features {
			g, err := f.GeometryJSON()
			if err != nil {
				return nil, fmt.Errorf("feature %d geometry: %w", i, err)
			}
			if g == nil {
				g = json.RawMessage("null")
			}
			fc.Features[i] = featureJSON{Type: "Feature", ID: f.ID, Geometry: g, Properties: f.Properties}
		}
		return json.Marshal(fc)
	case model.KindPoint:
		return json.Marshal(l.Points)
	case model.KindH3:
		return json.Marshal(l.Hexes)
	}
	return nil, fmt.Errorf("%w: unknown layer kind %q", model.ErrInvalidArgument, l.Kind)
}

// DecodePayload fills the record payload of l from data according to l.Kind.
// Unlike ingestion, a stored payload is trusted to be complete, so any bad
// record rejects the document.
func DecodePayload(ctx context.Context, l *model.Layer, data json.RawMessage, v mapper.Validator) error {
	switch l.Kind {
	case model.KindGeoJSON:
		fs, _, err := records.BuildFeatures(ctx, data, records.All(), records.Options{})
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
		}
		l.Features = fs
	case model.KindPoint:
		var pts []model.PointRecord
		if err := json.Unmarshal(data, &pts); err != nil {
			return fmt.Errorf("%w: point data: %v", model.ErrInvalidConfiguration, err)
		}
		for i, p := range pts {
			if !p.Position.Valid() {
				return fmt.Errorf("%w: point %d at %+v is out of range", model.ErrInvalidConfiguration, i, p.Position)
			}
		}
		if len(pts) == 0 {
			return fmt.Errorf("%w: point layer has no records", model.ErrInvalidConfiguration)
		}
		l.Points = pts
	case model.KindH3:
		var hexes []model.HexRecord
		if err := json.Unmarshal(data, &hexes); err != nil {
			return fmt.Errorf("%w: h3 data: %v", model.ErrInvalidConfiguration, err)
		}
		for i, h := range hexes {
			if !v.IsValidCell(h.Cell) {
				return fmt.Errorf("%w: record %d has invalid h3 cell %q", model.ErrInvalidConfiguration, i, h.Cell)
			}
		}
		if len(hexes) == 0 {
			return fmt.Errorf("%w: h3 layer has no records", model.ErrInvalidConfiguration)
		}
		l.Hexes = hexes
	default:
		return fmt.Errorf("%w: unknown layer type %q", model.ErrInvalidConfiguration, l.Kind)
	}
	return nil
}
