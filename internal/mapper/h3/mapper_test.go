package h3mapper

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapper"
)

// res 9 cell near San Francisco
const sfCell = "8928308280fffff"

var _ mapper.Interface = (*Mapper)(nil)

func TestIsValidCell(t *testing.T) {
	m := New()
	if !m.IsValidCell(sfCell) {
		t.Fatalf("expected %s to be valid", sfCell)
	}
	if !m.IsValidCell("  " + sfCell + " ") {
		t.Fatalf("expected surrounding whitespace to be tolerated")
	}
	for _, bad := range []string{"", "hello", "0", "ffffffffffffffff", "12.5"} {
		if m.IsValidCell(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestResolution(t *testing.T) {
	m := New()
	res, err := m.Resolution(sfCell)
	if err != nil {
		t.Fatalf("Resolution err: %v", err)
	}
	if res != 9 {
		t.Fatalf("res=%d want 9", res)
	}
	if _, err := m.Resolution("nope"); err == nil {
		t.Fatalf("expected error for invalid cell")
	}
}

func TestCenterAndBoundary(t *testing.T) {
	m := New()
	c, err := m.Center(sfCell)
	if err != nil {
		t.Fatalf("Center err: %v", err)
	}
	if math.Abs(c.Lat()-37.77) > 0.05 || math.Abs(c.Lon()+122.42) > 0.05 {
		t.Fatalf("center=%v not near San Francisco", c)
	}

	ring, err := m.Boundary(sfCell)
	if err != nil {
		t.Fatalf("Boundary err: %v", err)
	}
	if len(ring) < 7 {
		t.Fatalf("ring len=%d want >= 7 (6 vertices + closing)", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("ring must be closed")
	}
	if _, err := m.Boundary(""); err == nil {
		t.Fatalf("expected error for empty cell")
	}
}
