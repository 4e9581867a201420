package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/tabular"
)

type rawFeature struct {
	Type       string            `json:"type"`
	ID         json.RawMessage   `json:"id,omitempty"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties model.PropertyMap `json:"properties"`
}

// BuildFeatures decodes a FeatureCollection (or a single Feature) and keeps
// only the selected properties. Geometries are passed through unmodified;
// coordinates beyond lng/lat survive in RawGeometry.
func BuildFeatures(ctx context.Context, data []byte, sel Selection, opts Options) ([]model.Feature, Report, error) {
	raws, err := splitFeatures(data)
	if err != nil {
		return nil, Report{}, err
	}

	size := opts.ChunkSize
	if size <= 0 {
		size = tabular.DefaultChunkSize
	}
	out := make([]model.Feature, 0, len(raws))
	rep := Report{Total: len(raws)}
	for start := 0; start < len(raws); start += size {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		end := min(start+size, len(raws))
		for i := start; i < end; i++ {
			f, err := decodeFeature(raws[i], sel)
			if err != nil {
				return nil, Report{}, fmt.Errorf("%w: feature %d: %v", model.ErrMalformedInput, i, err)
			}
			out = append(out, f)
		}
		opts.logger().Debug("feature chunk processed", "done", end, "total", rep.Total)
		opts.progress(end, rep.Total)
	}
	rep.Accepted = len(out)
	if rep.Accepted == 0 {
		return nil, rep, fmt.Errorf("%w: the FeatureCollection has no features", model.ErrNoValidRecords)
	}
	return out, rep, nil
}

// PropertyKeys lists property names across all features in first-seen
// order, the GeoJSON counterpart of a CSV header.
func PropertyKeys(features []model.Feature) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range features {
		for _, k := range f.Properties.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

func splitFeatures(data []byte) ([]json.RawMessage, error) {
	var root struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parse geojson: %v", model.ErrMalformedInput, err)
	}
	switch root.Type {
	case "FeatureCollection":
		if root.Features == nil {
			return nil, fmt.Errorf(`%w: FeatureCollection is missing the "features" array`, model.ErrMalformedInput)
		}
		return root.Features, nil
	case "Feature":
		return []json.RawMessage{data}, nil
	default:
		return nil, fmt.Errorf(`%w: geojson type is %q (want "FeatureCollection")`, model.ErrMalformedInput, root.Type)
	}
}

func decodeFeature(raw json.RawMessage, sel Selection) (model.Feature, error) {
	var rf rawFeature
	if err := json.Unmarshal(raw, &rf); err != nil {
		return model.Feature{}, err
	}
	if rf.Type != "Feature" {
		return model.Feature{}, fmt.Errorf(`type is %q (want "Feature")`, rf.Type)
	}
	f := model.Feature{ID: rf.ID, Properties: rf.Properties.Select(sel.Has)}
	g := bytes.TrimSpace(rf.Geometry)
	if len(g) == 0 || bytes.Equal(g, []byte("null")) {
		return f, nil
	}
	geom, err := geojson.UnmarshalGeometry(g)
	if err != nil {
		return model.Feature{}, fmt.Errorf("geometry: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, g); err != nil {
		return model.Feature{}, fmt.Errorf("geometry: %w", err)
	}
	f.RawGeometry = buf.Bytes()
	f.Geometry = geom.Geometry()
	return f, nil
}
