// Package session holds the MapSession aggregate: the layers of one map,
// their filters and style mappings, the view and the basemap. Every core
// operation goes through a Session value; there is no package state.
package session

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/extent"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/filter"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/logger"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapdoc"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapper"
	h3mapper "github.com/mohammed-shakir/h3-layer-viewer/internal/mapper/h3"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/style"
)

type Config struct {
	ChunkSize        int
	SampleRows       int
	StyleCacheSize   int
	DefaultColor     string
	DefaultOpacity   float64
	DefaultPointSize float64
	Basemap          string

	Logger *slog.Logger
	Mapper mapper.Interface
}

func (c *Config) applyDefaults() {
	if c.DefaultColor == "" {
		c.DefaultColor = "#3388ff"
	}
	if c.DefaultOpacity <= 0 || c.DefaultOpacity > 1 {
		c.DefaultOpacity = 0.8
	}
	if c.DefaultPointSize <= 0 {
		c.DefaultPointSize = 5
	}
	if !mapdoc.ValidBasemap(c.Basemap) {
		c.Basemap = mapdoc.DefaultBasemap
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	if c.Mapper == nil {
		c.Mapper = h3mapper.New()
	}
}

// Session is safe for concurrent use; operations are serialized on one
// lock and ingestion only takes it to commit a fully built layer.
type Session struct {
	cfg Config
	log *slog.Logger

	mu      sync.RWMutex
	nextID  int64
	order   []int64
	layers  map[int64]*model.Layer
	filters map[int64][]filter.Descriptor
	view    extent.View
	basemap string

	styles *style.Cache
}

func New(cfg Config) (*Session, error) {
	cfg.applyDefaults()
	if _, err := style.ParseColor(cfg.DefaultColor); err != nil {
		return nil, fmt.Errorf("default layer color: %w", err)
	}
	cache, err := style.NewCache(cfg.StyleCacheSize)
	if err != nil {
		return nil, fmt.Errorf("style cache: %w", err)
	}
	return &Session{
		cfg:     cfg,
		log:     cfg.Logger,
		nextID:  1,
		layers:  make(map[int64]*model.Layer),
		filters: make(map[int64][]filter.Descriptor),
		view:    extent.View{Zoom: extent.MinZoom},
		basemap: cfg.Basemap,
		styles:  cache,
	}, nil
}

// LayerInfo is the read model of a layer without its record payload.
type LayerInfo struct {
	ID                 int64               `json:"id"`
	Name               string              `json:"name"`
	Kind               model.LayerKind     `json:"type"`
	Visible            bool                `json:"visible"`
	Color              string              `json:"color"`
	Opacity            float64             `json:"opacity"`
	PointSize          float64             `json:"pointSize"`
	LatColumn          string              `json:"latColumn,omitempty"`
	LngColumn          string              `json:"lngColumn,omitempty"`
	H3Column           string              `json:"h3Column,omitempty"`
	SelectedProperties []string            `json:"selectedProperties"`
	Records            int                 `json:"records"`
	Filters            int                 `json:"filters"`
	ColorMapping       *model.ColorMapping `json:"colorMapping,omitempty"`
	SizeMapping        *model.SizeMapping  `json:"sizeMapping,omitempty"`
}

func (s *Session) info(l *model.Layer) LayerInfo {
	return LayerInfo{
		ID:                 l.ID,
		Name:               l.Name,
		Kind:               l.Kind,
		Visible:            l.Visible,
		Color:              l.Color,
		Opacity:            l.Opacity,
		PointSize:          l.PointSize,
		LatColumn:          l.LatColumn,
		LngColumn:          l.LngColumn,
		H3Column:           l.H3Column,
		SelectedProperties: append([]string(nil), l.SelectedProperties...),
		Records:            l.Len(),
		Filters:            len(s.filters[l.ID]),
		ColorMapping:       cloneColorMapping(l.ColorMapping),
		SizeMapping:        cloneSizeMapping(l.SizeMapping),
	}
}

// Layers lists layers in creation order.
func (s *Session) Layers() []LayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LayerInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.info(s.layers[id]))
	}
	return out
}

func (s *Session) Layer(id int64) (LayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, err := s.layer(id)
	if err != nil {
		return LayerInfo{}, err
	}
	return s.info(l), nil
}

// caller holds mu
func (s *Session) layer(id int64) (*model.Layer, error) {
	l, ok := s.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", model.ErrLayerNotFound, id)
	}
	return l, nil
}

func (s *Session) mutate(id int64, fn func(l *model.Layer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.layer(id)
	if err != nil {
		return err
	}
	return fn(l)
}

func (s *Session) Rename(id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: layer name must not be empty", model.ErrInvalidArgument)
	}
	return s.mutate(id, func(l *model.Layer) error {
		l.Name = name
		return nil
	})
}

func (s *Session) SetVisible(id int64, visible bool) error {
	return s.mutate(id, func(l *model.Layer) error {
		l.Visible = visible
		return nil
	})
}

// SetColor accepts #rgb or #rrggbb and stores the normalized #rrggbb form.
func (s *Session) SetColor(id int64, hex string) error {
	c, err := style.ParseColor(hex)
	if err != nil {
		return err
	}
	return s.mutate(id, func(l *model.Layer) error {
		l.Color = c.Hex()
		return nil
	})
}

func (s *Session) SetOpacity(id int64, opacity float64) error {
	if math.IsNaN(opacity) || opacity < 0 || opacity > 1 {
		return fmt.Errorf("%w: opacity %v outside [0,1]", model.ErrInvalidArgument, opacity)
	}
	return s.mutate(id, func(l *model.Layer) error {
		l.Opacity = opacity
		return nil
	})
}

func (s *Session) SetPointSize(id int64, size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return fmt.Errorf("%w: point size %v must be positive", model.ErrInvalidArgument, size)
	}
	return s.mutate(id, func(l *model.Layer) error {
		l.PointSize = size
		return nil
	})
}

// Remove drops the layer together with its filters, mappings and cached
// styles. The id is not reused.
func (s *Session) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.layer(id); err != nil {
		return err
	}
	delete(s.layers, id)
	delete(s.filters, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.styles.Forget(id)
	s.log.Info("layer removed", "layer_id", id)
	return nil
}

func (s *Session) View() extent.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Session) SetView(v extent.View) error {
	if math.IsNaN(v.Latitude) || math.IsNaN(v.Longitude) || math.IsNaN(v.Zoom) ||
		v.Latitude < -90 || v.Latitude > 90 || v.Longitude < -180 || v.Longitude > 180 {
		return fmt.Errorf("%w: view %+v out of range", model.ErrInvalidArgument, v)
	}
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	return nil
}

// FitLayer moves the view to the layer's extent. Layers without
// coordinates leave the view unchanged.
func (s *Session) FitLayer(id int64) (extent.View, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.layer(id)
	if err != nil {
		return extent.View{}, false, err
	}
	e, ok := s.extentOf(l)
	if !ok {
		return s.view, false, nil
	}
	s.view = e.View()
	return s.view, true, nil
}

func (s *Session) Basemap() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.basemap
}

func (s *Session) SetBasemap(name string) error {
	if !mapdoc.ValidBasemap(name) {
		return fmt.Errorf("%w: unknown basemap %q (want one of %s)", model.ErrInvalidArgument, name, strings.Join(mapdoc.Basemaps, ", "))
	}
	s.mu.Lock()
	s.basemap = name
	s.mu.Unlock()
	return nil
}

func (s *Session) extentOf(l *model.Layer) (extent.Extent, bool) {
	switch l.Kind {
	case model.KindGeoJSON:
		return extent.OfGeometries(featureGeometries(l.Features))
	case model.KindPoint:
		ps := make([]model.Position, len(l.Points))
		for i, p := range l.Points {
			ps[i] = p.Position
		}
		return extent.OfPositions(ps)
	case model.KindH3:
		pts := make([]orb.Point, 0, len(l.Hexes))
		for _, h := range l.Hexes {
			if c, err := s.cfg.Mapper.Center(h.Cell); err == nil {
				pts = append(pts, c)
			}
		}
		return extent.OfPoints(pts)
	}
	return extent.Extent{}, false
}

func featureGeometries(fs []model.Feature) []orb.Geometry {
	out := make([]orb.Geometry, 0, len(fs))
	for _, f := range fs {
		if f.Geometry != nil {
			out = append(out, f.Geometry)
		}
	}
	return out
}

func cloneColorMapping(m *model.ColorMapping) *model.ColorMapping {
	if m == nil {
		return nil
	}
	c := *m
	c.Breaks = append([]float64(nil), m.Breaks...)
	return &c
}

func cloneSizeMapping(m *model.SizeMapping) *model.SizeMapping {
	if m == nil {
		return nil
	}
	c := *m
	c.Breaks = append([]float64(nil), m.Breaks...)
	return &c
}

// Patch carries optional layer attribute changes; nil fields are left
// alone.
type Patch struct {
	Name      *string  `json:"name,omitempty"`
	Visible   *bool    `json:"visible,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	PointSize *float64 `json:"pointSize,omitempty"`
}

// Update validates every field of p before applying any of them.
func (s *Session) Update(id int64, p Patch) (LayerInfo, error) {
	var name, color string
	if p.Name != nil {
		if name = strings.TrimSpace(*p.Name); name == "" {
			return LayerInfo{}, fmt.Errorf("%w: layer name must not be empty", model.ErrInvalidArgument)
		}
	}
	if p.Color != nil {
		c, err := style.ParseColor(*p.Color)
		if err != nil {
			return LayerInfo{}, err
		}
		color = c.Hex()
	}
	if o := p.Opacity; o != nil && (math.IsNaN(*o) || *o < 0 || *o > 1) {
		return LayerInfo{}, fmt.Errorf("%w: opacity %v outside [0,1]", model.ErrInvalidArgument, *o)
	}
	if ps := p.PointSize; ps != nil && (math.IsNaN(*ps) || math.IsInf(*ps, 0) || *ps <= 0) {
		return LayerInfo{}, fmt.Errorf("%w: point size %v must be positive", model.ErrInvalidArgument, *ps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.layer(id)
	if err != nil {
		return LayerInfo{}, err
	}
	if p.Name != nil {
		l.Name = name
	}
	if p.Visible != nil {
		l.Visible = *p.Visible
	}
	if p.Color != nil {
		l.Color = color
	}
	if p.Opacity != nil {
		l.Opacity = *p.Opacity
	}
	if p.PointSize != nil {
		l.PointSize = *p.PointSize
	}
	return s.info(l), nil
}

// Readiness reports whether the session can serve requests and how many
// layers it holds.
func (s *Session) Readiness() (bool, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layers != nil, len(s.layers)
}
