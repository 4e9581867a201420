package session

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/filter"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapdoc"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/style"
)

// Export snapshots the whole session as a configuration document.
func (s *Session) Export() (mapdoc.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := mapdoc.Document{
		Version: mapdoc.Version,
		View:    s.view,
		Basemap: s.basemap,
		Layers:  make([]mapdoc.Layer, 0, len(s.order)),
	}
	for _, id := range s.order {
		l := s.layers[id]
		data, err := mapdoc.EncodePayload(l)
		if err != nil {
			return mapdoc.Document{}, fmt.Errorf("export layer %d: %w", id, err)
		}
		doc.Layers = append(doc.Layers, mapdoc.Layer{
			Name:               l.Name,
			Type:               l.Kind,
			Visible:            l.Visible,
			Color:              l.Color,
			Opacity:            l.Opacity,
			PointSize:          l.PointSize,
			LatColumn:          l.LatColumn,
			LngColumn:          l.LngColumn,
			H3Column:           l.H3Column,
			Data:               data,
			Filters:            append([]filter.Descriptor{}, s.filters[id]...),
			SelectedProperties: append([]string{}, l.SelectedProperties...),
			ColorMapping:       cloneColorMapping(l.ColorMapping),
			SizeMapping:        cloneSizeMapping(l.SizeMapping),
		})
	}
	return doc, nil
}

// Import replaces the session contents with doc. Every layer is rebuilt
// before anything is swapped in, so a bad document leaves the session
// untouched. Imported layers get fresh ids.
func (s *Session) Import(ctx context.Context, doc mapdoc.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	built := make([]*model.Layer, 0, len(doc.Layers))
	filters := make([][]filter.Descriptor, 0, len(doc.Layers))
	for i, ld := range doc.Layers {
		l, err := s.layerFromDoc(ctx, ld)
		if err != nil {
			return fmt.Errorf("layer %d (%q): %w", i, ld.Name, err)
		}
		fs := append([]filter.Descriptor{}, ld.Filters...)
		// stored breaks may predate the stored filters
		if err := recomputeWith(l, fs); err != nil {
			return fmt.Errorf("%w: layer %d (%q): %v", model.ErrInvalidConfiguration, i, ld.Name, err)
		}
		built = append(built, l)
		filters = append(filters, fs)
	}

	basemap := doc.Basemap
	if !mapdoc.ValidBasemap(basemap) {
		s.log.WarnContext(ctx, "unknown basemap in document, using default", "basemap", basemap, "default", mapdoc.DefaultBasemap)
		basemap = mapdoc.DefaultBasemap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		s.styles.Forget(id)
	}
	s.layers = make(map[int64]*model.Layer, len(built))
	s.filters = make(map[int64][]filter.Descriptor, len(built))
	s.order = s.order[:0]
	for i, l := range built {
		l.ID = s.nextID
		s.nextID++
		s.layers[l.ID] = l
		s.order = append(s.order, l.ID)
		if len(filters[i]) > 0 {
			s.filters[l.ID] = filters[i]
		}
	}
	s.view = doc.View
	s.basemap = basemap
	s.log.InfoContext(ctx, "configuration imported", "layers", len(built))
	return nil
}

func (s *Session) layerFromDoc(ctx context.Context, ld mapdoc.Layer) (*model.Layer, error) {
	kind, err := model.ParseLayerKind(string(ld.Type))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	color := ld.Color
	if color == "" {
		color = s.cfg.DefaultColor
	}
	c, err := style.ParseColor(color)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	size := ld.PointSize
	if size <= 0 {
		size = s.cfg.DefaultPointSize
	}
	l := &model.Layer{
		Name:               ld.Name,
		Kind:               kind,
		Visible:            ld.Visible,
		Color:              c.Hex(),
		Opacity:            ld.Opacity,
		PointSize:          size,
		LatColumn:          ld.LatColumn,
		LngColumn:          ld.LngColumn,
		H3Column:           ld.H3Column,
		SelectedProperties: append([]string(nil), ld.SelectedProperties...),
	}
	if err := mapdoc.DecodePayload(ctx, l, ld.Data, s.cfg.Mapper); err != nil {
		return nil, err
	}
	if cm := ld.ColorMapping; cm != nil {
		ramp := cm.Ramp
		if ramp == "" {
			ramp = style.DefaultRamp
		}
		if err := style.ValidateClasses(cm.Classes); err != nil {
			return nil, fmt.Errorf("%w: color mapping: %v", model.ErrInvalidConfiguration, err)
		}
		if err := style.ValidateRamp(ramp); err != nil {
			return nil, fmt.Errorf("%w: color mapping: %v", model.ErrInvalidConfiguration, err)
		}
		l.ColorMapping = &model.ColorMapping{Column: cm.Column, Classes: cm.Classes, Ramp: ramp}
	}
	if sm := ld.SizeMapping; sm != nil {
		if err := style.ValidateClasses(sm.Classes); err != nil {
			return nil, fmt.Errorf("%w: size mapping: %v", model.ErrInvalidConfiguration, err)
		}
		if sm.MinSize <= 0 || sm.MaxSize < sm.MinSize {
			return nil, fmt.Errorf("%w: size mapping range [%v,%v]", model.ErrInvalidConfiguration, sm.MinSize, sm.MaxSize)
		}
		l.SizeMapping = &model.SizeMapping{Column: sm.Column, Classes: sm.Classes, MinSize: sm.MinSize, MaxSize: sm.MaxSize}
	}
	return l, nil
}
