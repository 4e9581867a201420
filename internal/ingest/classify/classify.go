// Package classify decides what an uploaded table represents: point
// coordinates, H3 cells, or neither. It also types every column as numeric
// or categorical.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapper"
)

// DefaultSampleRows is how many leading rows feed column typing.
const DefaultSampleRows = 1000

var (
	H3Candidates  = []string{"hex_id", "h3_index", "h3", "hexagon"}
	LatCandidates = []string{"latitude", "lat", "y"}
	LngCandidates = []string{"longitude", "lng", "long", "lon", "x"}
)

type Spatial int

const (
	SpatialNone Spatial = iota
	SpatialPoint
	SpatialH3
)

func (s Spatial) String() string {
	switch s {
	case SpatialPoint:
		return "point"
	case SpatialH3:
		return "h3"
	default:
		return "none"
	}
}

func (s Spatial) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
)

type Column struct {
	Name  string     `json:"name"`
	Index int        `json:"index"`
	Type  ColumnType `json:"type"`
	// Distinct holds the sorted non-empty values of categorical columns.
	Distinct []string `json:"distinct,omitempty"`
	// Pinned columns carry geometry and cannot be deselected.
	Pinned bool `json:"pinned"`
}

type Result struct {
	Spatial   Spatial  `json:"spatial"`
	LatColumn string   `json:"latColumn,omitempty"`
	LngColumn string   `json:"lngColumn,omitempty"`
	H3Column  string   `json:"h3Column,omitempty"`
	Columns   []Column `json:"columns"`
	// Selection is the default property selection: every non-pinned column.
	Selection []string `json:"selection"`
}

// Classify inspects the header and sample rows. It never fails; a table
// with no spatial columns comes back as SpatialNone.
func Classify(header []string, sample [][]string, v mapper.Validator) Result {
	res := Result{Spatial: SpatialNone}

	if i := findH3(header); i >= 0 && len(sample) > 0 && i < len(sample[0]) && v != nil && v.IsValidCell(sample[0][i]) {
		res.Spatial = SpatialH3
		res.H3Column = header[i]
	}
	if res.Spatial == SpatialNone {
		lat := findCoordinate(header, LatCandidates)
		lng := findCoordinate(header, LngCandidates)
		if lat >= 0 && lng >= 0 && lat != lng {
			res.Spatial = SpatialPoint
			res.LatColumn = header[lat]
			res.LngColumn = header[lng]
		}
	}

	res.Columns = make([]Column, 0, len(header))
	res.Selection = make([]string, 0, len(header))
	for i, name := range header {
		col := typeColumn(name, i, sample)
		col.Pinned = res.pins(name)
		if !col.Pinned {
			res.Selection = append(res.Selection, name)
		}
		res.Columns = append(res.Columns, col)
	}
	return res
}

// Column returns the classification of the named column.
func (r Result) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Unsupported builds the error callers return for SpatialNone tables.
func Unsupported(header []string) error {
	return fmt.Errorf("%w: no spatial columns in [%s]; expected one of %s for H3 data, or a latitude column (%s) together with a longitude column (%s)",
		model.ErrUnsupportedFormat,
		strings.Join(header, ", "),
		strings.Join(H3Candidates, "|"),
		strings.Join(LatCandidates, "|"),
		strings.Join(LngCandidates, "|"))
}

func (r Result) pins(name string) bool {
	switch r.Spatial {
	case SpatialH3:
		return name == r.H3Column
	case SpatialPoint:
		return name == r.LatColumn || name == r.LngColumn
	}
	return false
}

func norm(h string) string { return strings.ToLower(strings.TrimSpace(h)) }

// exact match first, then substring containment; header order breaks ties
func findH3(header []string) int {
	for i, h := range header {
		if contains(H3Candidates, norm(h)) {
			return i
		}
	}
	for i, h := range header {
		n := norm(h)
		for _, c := range H3Candidates {
			if strings.Contains(n, c) {
				return i
			}
		}
	}
	return -1
}

// exact match first, then a "name_" prefix; header order breaks ties
func findCoordinate(header []string, candidates []string) int {
	for i, h := range header {
		if contains(candidates, norm(h)) {
			return i
		}
	}
	for i, h := range header {
		n := norm(h)
		for _, c := range candidates {
			if strings.HasPrefix(n, c+"_") {
				return i
			}
		}
	}
	return -1
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func typeColumn(name string, idx int, sample [][]string) Column {
	col := Column{Name: name, Index: idx, Type: Categorical}
	nonEmpty, numeric := 0, 0
	seen := make(map[string]struct{})
	for _, row := range sample {
		if idx >= len(row) || row[idx] == "" {
			continue
		}
		nonEmpty++
		if _, ok := model.ParseNumber(row[idx]); ok {
			numeric++
		}
		seen[row[idx]] = struct{}{}
	}
	if nonEmpty > 0 && numeric*2 >= nonEmpty {
		col.Type = Numeric
		return col
	}
	col.Distinct = make([]string, 0, len(seen))
	for s := range seen {
		col.Distinct = append(col.Distinct, s)
	}
	sortFold(col.Distinct)
	return col
}

// case-insensitive alphabetical order; raw value breaks ties so the result
// does not depend on map iteration
func sortFold(xs []string) {
	sort.Slice(xs, func(i, j int) bool {
		li, lj := strings.ToLower(xs[i]), strings.ToLower(xs[j])
		if li != lj {
			return li < lj
		}
		return xs[i] < xs[j]
	})
}
