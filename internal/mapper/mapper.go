// Package mapper converts between H3 cell addresses and geometric coordinates.
package mapper

import "github.com/paulmach/orb"

// Validator is the subset used while ingesting files.
type Validator interface {
	IsValidCell(s string) bool
}

type Interface interface {
	Validator
	Resolution(cell string) (int, error)
	Center(cell string) (orb.Point, error)
	Boundary(cell string) (orb.Ring, error)
}
