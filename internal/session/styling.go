package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/filter"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/style"
)

// SetColorMapping classifies column into classes quantile buckets colored
// along ramp. An empty ramp selects the default ramp.
func (s *Session) SetColorMapping(id int64, column string, classes int, ramp string) error {
	column = strings.TrimSpace(column)
	if column == "" {
		return fmt.Errorf("%w: color mapping needs a column", model.ErrInvalidArgument)
	}
	if ramp == "" {
		ramp = style.DefaultRamp
	}
	ramp = strings.ToLower(ramp)
	if err := style.ValidateClasses(classes); err != nil {
		return err
	}
	if err := style.ValidateRamp(ramp); err != nil {
		return err
	}
	return s.mutate(id, func(l *model.Layer) error {
		breaks, err := s.breaks(l, column, classes)
		if err != nil {
			return err
		}
		l.ColorMapping = &model.ColorMapping{Column: column, Classes: classes, Breaks: breaks, Ramp: ramp}
		return nil
	})
}

func (s *Session) ClearColorMapping(id int64) error {
	return s.mutate(id, func(l *model.Layer) error {
		l.ColorMapping = nil
		return nil
	})
}

// SetSizeMapping scales point radii between minSize and maxSize by the
// quantile bucket of column. Only point layers have sizes.
func (s *Session) SetSizeMapping(id int64, column string, classes int, minSize, maxSize float64) error {
	column = strings.TrimSpace(column)
	if column == "" {
		return fmt.Errorf("%w: size mapping needs a column", model.ErrInvalidArgument)
	}
	if err := style.ValidateClasses(classes); err != nil {
		return err
	}
	if math.IsNaN(minSize) || math.IsNaN(maxSize) || minSize <= 0 || maxSize < minSize {
		return fmt.Errorf("%w: size range [%v,%v] must satisfy 0 < min <= max", model.ErrInvalidArgument, minSize, maxSize)
	}
	return s.mutate(id, func(l *model.Layer) error {
		if l.Kind != model.KindPoint {
			return fmt.Errorf("%w: size mappings apply to point layers, layer %d is %s", model.ErrInvalidArgument, id, l.Kind)
		}
		breaks, err := s.breaks(l, column, classes)
		if err != nil {
			return err
		}
		l.SizeMapping = &model.SizeMapping{Column: column, Classes: classes, Breaks: breaks, MinSize: minSize, MaxSize: maxSize}
		return nil
	})
}

func (s *Session) ClearSizeMapping(id int64) error {
	return s.mutate(id, func(l *model.Layer) error {
		l.SizeMapping = nil
		return nil
	})
}

// AddFilter appends d to the layer's filters and recomputes mapping
// breaks over the newly filtered records.
func (s *Session) AddFilter(id int64, d filter.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return s.mutate(id, func(l *model.Layer) error {
		s.filters[id] = append(s.filters[id], d)
		return s.recompute(l)
	})
}

// RemoveFilter removes the filter at index (insertion order).
func (s *Session) RemoveFilter(id int64, index int) error {
	return s.mutate(id, func(l *model.Layer) error {
		fs := s.filters[id]
		if index < 0 || index >= len(fs) {
			return fmt.Errorf("%w: filter index %d out of range (layer has %d)", model.ErrInvalidArgument, index, len(fs))
		}
		s.filters[id] = append(fs[:index:index], fs[index+1:]...)
		return s.recompute(l)
	})
}

func (s *Session) Filters(id int64) ([]filter.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.layer(id); err != nil {
		return nil, err
	}
	return append([]filter.Descriptor{}, s.filters[id]...), nil
}

// Matching returns the record ids of the layer that pass every filter.
func (s *Session) Matching(id int64) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, err := s.layer(id)
	if err != nil {
		return nil, err
	}
	return s.matching(l)
}

// caller holds mu
func (s *Session) matching(l *model.Layer) ([]int, error) {
	return matchingWith(l, s.filters[l.ID])
}

func matchingWith(l *model.Layer, ds []filter.Descriptor) ([]int, error) {
	pred, err := filter.CompileAll(ds)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		if pred(l.Properties(i)) {
			out = append(out, i)
		}
	}
	return out, nil
}

// breaks computes quantile breaks of column over the filtered records.
func (s *Session) breaks(l *model.Layer, column string, classes int) ([]float64, error) {
	return breaksWith(l, s.filters[l.ID], column, classes)
}

func breaksWith(l *model.Layer, ds []filter.Descriptor, column string, classes int) ([]float64, error) {
	ids, err := matchingWith(l, ds)
	if err != nil {
		return nil, err
	}
	props := make([]model.PropertyMap, len(ids))
	for i, rid := range ids {
		props[i] = l.Properties(rid)
	}
	return style.QuantileBreaks(style.Values(props, column), classes)
}

func (s *Session) recompute(l *model.Layer) error {
	return recomputeWith(l, s.filters[l.ID])
}

// recomputeWith refreshes mapping breaks so they never go stale after a
// filter change.
func recomputeWith(l *model.Layer, ds []filter.Descriptor) error {
	if cm := l.ColorMapping; cm != nil {
		b, err := breaksWith(l, ds, cm.Column, cm.Classes)
		if err != nil {
			return err
		}
		l.ColorMapping = &model.ColorMapping{Column: cm.Column, Classes: cm.Classes, Breaks: b, Ramp: cm.Ramp}
	}
	if sm := l.SizeMapping; sm != nil {
		b, err := breaksWith(l, ds, sm.Column, sm.Classes)
		if err != nil {
			return err
		}
		l.SizeMapping = &model.SizeMapping{Column: sm.Column, Classes: sm.Classes, Breaks: b, MinSize: sm.MinSize, MaxSize: sm.MaxSize}
	}
	return nil
}
