package session

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/style"
)

// Item is one draw-ready record. Exactly one of Geometry, Position and
// Cell is set, matching the layer kind.
type Item struct {
	Record   int               `json:"record"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
	Position *model.Position `json:"position,omitempty"`
	Cell     string          `json:"hex,omitempty"`
	Boundary orb.Ring        `json:"boundary,omitempty"`
	Fill     style.RGBA      `json:"fill"`
	Size     float64         `json:"size,omitempty"`
}

type RenderedLayer struct {
	ID    int64           `json:"id"`
	Kind  model.LayerKind `json:"type"`
	Items []Item          `json:"items"`
}

// Render returns draw-ready items for every visible layer, in layer order.
func (s *Session) Render() ([]RenderedLayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RenderedLayer, 0, len(s.order))
	for _, id := range s.order {
		l := s.layers[id]
		if !l.Visible {
			continue
		}
		rl, err := s.render(l)
		if err != nil {
			return nil, err
		}
		out = append(out, rl)
	}
	return out, nil
}

// RenderLayer renders one layer. Hidden layers render with no items.
func (s *Session) RenderLayer(id int64) (RenderedLayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, err := s.layer(id)
	if err != nil {
		return RenderedLayer{}, err
	}
	if !l.Visible {
		return RenderedLayer{ID: l.ID, Kind: l.Kind, Items: []Item{}}, nil
	}
	return s.render(l)
}

// caller holds mu
func (s *Session) render(l *model.Layer) (RenderedLayer, error) {
	deps := style.DependenciesOf(l)
	styler, err := style.NewStyler(deps)
	if err != nil {
		return RenderedLayer{}, fmt.Errorf("layer %d style: %w", l.ID, err)
	}
	if s.styles.Sync(l.ID, deps) {
		s.log.Debug("style cache invalidated", "layer_id", l.ID)
	}
	ids, err := s.matching(l)
	if err != nil {
		return RenderedLayer{}, err
	}

	rl := RenderedLayer{ID: l.ID, Kind: l.Kind, Items: make([]Item, 0, len(ids))}
	for _, rid := range ids {
		props := l.Properties(rid)
		r := s.styles.Resolve(style.Key{Layer: l.ID, Record: rid}, func() style.Resolved {
			return styler.Resolve(props)
		})
		it := Item{Record: rid, Fill: r.Fill}
		switch l.Kind {
		case model.KindGeoJSON:
			g, err := l.Features[rid].GeometryJSON()
			if err != nil {
				return RenderedLayer{}, fmt.Errorf("layer %d feature %d: %w", l.ID, rid, err)
			}
			if g == nil {
				continue
			}
			it.Geometry = g
		case model.KindPoint:
			p := l.Points[rid].Position
			it.Position = &p
			it.Size = r.Size
		case model.KindH3:
			cell := l.Hexes[rid].Cell
			ring, err := s.cfg.Mapper.Boundary(cell)
			if err != nil {
				s.log.Debug("skipping h3 cell without boundary", "layer_id", l.ID, "cell", cell, "err", err)
				continue
			}
			it.Cell = cell
			it.Boundary = ring
		}
		rl.Items = append(rl.Items, it)
	}
	return rl, nil
}

// Select returns the properties of one record, the payload of a hover or
// click on the rendered item.
func (s *Session) Select(id int64, record int) (model.PropertyMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, err := s.layer(id)
	if err != nil {
		return model.PropertyMap{}, err
	}
	if record < 0 || record >= l.Len() {
		return model.PropertyMap{}, fmt.Errorf("%w: layer %d has no record %d", model.ErrRecordNotFound, id, record)
	}
	return l.Properties(record).Clone(), nil
}
