package extent

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

func TestSinglePoint_CenterAndMaxZoom(t *testing.T) {
	e, ok := OfGeometries([]orb.Geometry{orb.Point{20, 10}})
	if !ok {
		t.Fatalf("expected an extent")
	}
	v := e.View()
	if v.Latitude != 10 || v.Longitude != 20 {
		t.Fatalf("center=(%v,%v) want (10,20)", v.Latitude, v.Longitude)
	}
	if v.Zoom != MaxZoom {
		t.Fatalf("zoom=%v want %v", v.Zoom, MaxZoom)
	}
}

func TestEmpty_NoExtent(t *testing.T) {
	if _, ok := OfGeometries(nil); ok {
		t.Fatalf("nil input must yield no extent")
	}
	if _, ok := OfGeometries([]orb.Geometry{nil, orb.MultiPoint{}, orb.Collection{}}); ok {
		t.Fatalf("coordinate-free geometries must yield no extent")
	}
	if _, ok := OfPositions(nil); ok {
		t.Fatalf("no positions must yield no extent")
	}
}

func TestRecursesIntoEveryGeometryKind(t *testing.T) {
	gs := []orb.Geometry{
		orb.LineString{{0, 0}, {1, 1}},
		orb.Polygon{{{-5, -5}, {-4, -5}, {-4, -4}, {-5, -5}}},
		orb.MultiPolygon{{{{2, 2}, {3, 2}, {3, 3}, {2, 2}}}},
		orb.MultiLineString{{{6, 1}, {7, 1}}},
		orb.Collection{
			orb.Point{0, 8},
			orb.Collection{orb.MultiPoint{{-9, 0}}},
		},
	}
	e, ok := OfGeometries(gs)
	if !ok {
		t.Fatalf("expected an extent")
	}
	want := Extent{MinLat: -5, MinLng: -9, MaxLat: 8, MaxLng: 7}
	if e != want {
		t.Fatalf("extent=%+v want %+v", e, want)
	}
}

func TestZoom_FormulaAndClamp(t *testing.T) {
	// span 0.01 -> -log2(0.025) ~= 5.32
	e := Extent{MinLat: 0, MinLng: 0, MaxLat: 0.01, MaxLng: 0.005}
	if got, want := e.Zoom(), -math.Log2(0.01*2.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("zoom=%v want %v", got, want)
	}
	world := Extent{MinLat: -90, MinLng: -180, MaxLat: 90, MaxLng: 180}
	if world.Zoom() != MinZoom {
		t.Fatalf("world zoom=%v want %v", world.Zoom(), MinZoom)
	}
}

func TestOfPositions(t *testing.T) {
	e, ok := OfPositions([]model.Position{{Lng: 1, Lat: 2}, {Lng: -3, Lat: 4}})
	if !ok {
		t.Fatalf("expected an extent")
	}
	lat, lng := e.Center()
	if lat != 3 || lng != -1 {
		t.Fatalf("center=(%v,%v) want (3,-1)", lat, lng)
	}
	if b := e.Bound(); b.Min != (orb.Point{-3, 2}) || b.Max != (orb.Point{1, 4}) {
		t.Fatalf("bound=%+v", b)
	}
}
