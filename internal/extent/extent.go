// Package extent computes bounding boxes and an initial map view for a set
// of geometries or positions.
package extent

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

const (
	MinZoom = 3
	MaxZoom = 20
	// zoom = -log2(maxSpan * zoomSpanFactor), clamped to [MinZoom, MaxZoom]
	zoomSpanFactor = 2.5
)

type Extent struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// View is the camera state derived from an extent.
type View struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
}

type builder struct {
	e  Extent
	ok bool
}

func (b *builder) add(p orb.Point) {
	lng, lat := p[0], p[1]
	if !b.ok {
		b.e = Extent{MinLat: lat, MinLng: lng, MaxLat: lat, MaxLng: lng}
		b.ok = true
		return
	}
	b.e.MinLat = math.Min(b.e.MinLat, lat)
	b.e.MaxLat = math.Max(b.e.MaxLat, lat)
	b.e.MinLng = math.Min(b.e.MinLng, lng)
	b.e.MaxLng = math.Max(b.e.MaxLng, lng)
}

// walk flattens every coordinate of g, recursing into collections
func (b *builder) walk(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		b.add(g)
	case orb.MultiPoint:
		for _, p := range g {
			b.add(p)
		}
	case orb.LineString:
		for _, p := range g {
			b.add(p)
		}
	case orb.Ring:
		for _, p := range g {
			b.add(p)
		}
	case orb.MultiLineString:
		for _, ls := range g {
			b.walk(ls)
		}
	case orb.Polygon:
		for _, r := range g {
			b.walk(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			b.walk(p)
		}
	case orb.Collection:
		for _, m := range g {
			b.walk(m)
		}
	case orb.Bound:
		b.add(g.Min)
		b.add(g.Max)
	}
}

// OfGeometries returns the extent of every coordinate in gs. ok is false
// when there are no coordinates at all.
func OfGeometries(gs []orb.Geometry) (Extent, bool) {
	var b builder
	for _, g := range gs {
		if g != nil {
			b.walk(g)
		}
	}
	return b.e, b.ok
}

func OfPoints(pts []orb.Point) (Extent, bool) {
	var b builder
	for _, p := range pts {
		b.add(p)
	}
	return b.e, b.ok
}

func OfPositions(ps []model.Position) (Extent, bool) {
	var b builder
	for _, p := range ps {
		b.add(p.Point())
	}
	return b.e, b.ok
}

// Center is the per-axis midpoint.
func (e Extent) Center() (lat, lng float64) {
	return (e.MinLat + e.MaxLat) / 2, (e.MinLng + e.MaxLng) / 2
}

// Zoom is a fixed heuristic over the larger axis span. A zero span
// (a single point) yields MaxZoom.
func (e Extent) Zoom() float64 {
	span := math.Max(e.MaxLat-e.MinLat, e.MaxLng-e.MinLng)
	z := -math.Log2(span * zoomSpanFactor)
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func (e Extent) View() View {
	lat, lng := e.Center()
	return View{Latitude: lat, Longitude: lng, Zoom: e.Zoom()}
}

func (e Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.MinLng, e.MinLat}, Max: orb.Point{e.MaxLng, e.MaxLat}}
}
