// Package model defines core domain types shared across the viewer.
package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type LayerKind string

const (
	KindGeoJSON LayerKind = "geojson"
	KindPoint   LayerKind = "point"
	KindH3      LayerKind = "h3"
)

func ParseLayerKind(s string) (LayerKind, error) {
	switch LayerKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindGeoJSON:
		return KindGeoJSON, nil
	case KindPoint:
		return KindPoint, nil
	case KindH3:
		return KindH3, nil
	default:
		return "", fmt.Errorf("%w: unknown layer type %q (want geojson|point|h3)", ErrInvalidArgument, s)
	}
}

// Position is a WGS84 coordinate pair.
type Position struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the position is inside lat [-90,90] and lng [-180,180].
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Position) Point() orb.Point { return orb.Point{p.Lng, p.Lat} }

type PointRecord struct {
	Position   Position    `json:"position"`
	Properties PropertyMap `json:"properties"`
}

type HexRecord struct {
	Cell       string      `json:"hex"`
	Properties PropertyMap `json:"properties"`
}

// Feature is a GeoJSON feature. RawGeometry holds the geometry member
// exactly as uploaded (compacted) and is what gets rendered and exported.
// Geometry is its planar decoding, used for extents only. Both are nil for
// features with a null geometry.
type Feature struct {
	ID          json.RawMessage
	RawGeometry json.RawMessage
	Geometry    orb.Geometry
	Properties  PropertyMap
}

// GeometryJSON returns the geometry as uploaded, falling back to an
// encoding of Geometry for features built in code.
func (f Feature) GeometryJSON() (json.RawMessage, error) {
	if len(f.RawGeometry) > 0 {
		return f.RawGeometry, nil
	}
	if f.Geometry == nil {
		return nil, nil
	}
	return json.Marshal(geojson.NewGeometry(f.Geometry))
}

type ColorMapping struct {
	Column  string    `json:"column"`
	Classes int       `json:"classes"`
	Breaks  []float64 `json:"breaks"`
	Ramp    string    `json:"ramp"`
}

type SizeMapping struct {
	Column  string    `json:"column"`
	Classes int       `json:"classes"`
	Breaks  []float64 `json:"breaks"`
	MinSize float64   `json:"minSize"`
	MaxSize float64   `json:"maxSize"`
}

// Layer owns its record payload exclusively. Only the slice matching Kind
// is populated.
type Layer struct {
	ID        int64
	Name      string
	Kind      LayerKind
	Visible   bool
	Color     string
	Opacity   float64
	PointSize float64

	LatColumn          string
	LngColumn          string
	H3Column           string
	SelectedProperties []string

	Features []Feature
	Points   []PointRecord
	Hexes    []HexRecord

	ColorMapping *ColorMapping
	SizeMapping  *SizeMapping
}

// Len returns the number of records in the layer payload.
func (l *Layer) Len() int {
	switch l.Kind {
	case KindGeoJSON:
		return len(l.Features)
	case KindPoint:
		return len(l.Points)
	case KindH3:
		return len(l.Hexes)
	}
	return 0
}

// Properties returns the property map of record i, or an empty map when i
// is out of range.
func (l *Layer) Properties(i int) PropertyMap {
	if i < 0 || i >= l.Len() {
		return PropertyMap{}
	}
	switch l.Kind {
	case KindGeoJSON:
		return l.Features[i].Properties
	case KindPoint:
		return l.Points[i].Properties
	default:
		return l.Hexes[i].Properties
	}
}
