package h3mapper

import (
	"fmt"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/paulmach/orb"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// IsValidCell reports whether s is the hex address of a valid H3 cell.
func (m *Mapper) IsValidCell(s string) bool {
	_, err := parseCell(s)
	return err == nil
}

// Resolution returns the resolution (0..15) of a valid cell address.
func (m *Mapper) Resolution(s string) (int, error) {
	c, err := parseCell(s)
	if err != nil {
		return 0, err
	}
	return c.Resolution(), nil
}

// Center returns the cell centroid as an orb point (lng, lat).
func (m *Mapper) Center(s string) (orb.Point, error) {
	c, err := parseCell(s)
	if err != nil {
		return orb.Point{}, err
	}
	ll, err := c.LatLng()
	if err != nil {
		return orb.Point{}, fmt.Errorf("h3 center: %w", err)
	}
	return orb.Point{ll.Lng, ll.Lat}, nil
}

// Boundary returns the closed boundary ring of the cell in lng/lat order.
func (m *Mapper) Boundary(s string) (orb.Ring, error) {
	c, err := parseCell(s)
	if err != nil {
		return nil, err
	}
	b, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("h3 boundary: %w", err)
	}
	ring := make(orb.Ring, 0, len(b)+1)
	for _, ll := range b {
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	// close the ring the way GeoJSON expects
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

func parseCell(s string) (h3.Cell, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty h3 cell")
	}
	var c h3.Cell
	if err := c.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", s)
	}
	return c, nil
}
