// Package records converts classified tables and GeoJSON payloads into
// typed layer records.
package records

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/classify"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/tabular"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapper"
)

type Options struct {
	ChunkSize int
	// Progress is called after every chunk with rows processed so far.
	Progress func(done, total int)
	Logger   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o Options) progress(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}

// Report counts rows seen, kept and skipped by per-row validation.
type Report struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

// Selection is the set of property columns retained on each record.
type Selection struct {
	all   bool
	names map[string]struct{}
}

// All keeps every property.
func All() Selection { return Selection{all: true} }

// Only keeps the named properties; no names keeps none.
func Only(names ...string) Selection {
	s := Selection{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

func (s Selection) Has(name string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// BuildPoints turns every row with parseable, in-range coordinates into a
// point record. Bad rows are skipped, not fatal.
func BuildPoints(ctx context.Context, t *tabular.Table, cls classify.Result, sel Selection, opts Options) ([]model.PointRecord, Report, error) {
	if cls.Spatial != classify.SpatialPoint {
		return nil, Report{}, fmt.Errorf("%w: table is not classified as point data", model.ErrInvalidArgument)
	}
	latIdx, lngIdx := t.Column(cls.LatColumn), t.Column(cls.LngColumn)
	if latIdx < 0 || lngIdx < 0 {
		return nil, Report{}, fmt.Errorf("%w: coordinate columns %q/%q missing from header", model.ErrInvalidArgument, cls.LatColumn, cls.LngColumn)
	}
	props := propertyColumns(t.Header, sel, latIdx, lngIdx)

	out := make([]model.PointRecord, 0, len(t.Rows))
	rep := Report{Total: len(t.Rows)}
	err := t.ForEachChunk(ctx, opts.ChunkSize, func(start int, rows [][]string) error {
		for _, row := range rows {
			lat, ok1 := model.ParseNumber(row[latIdx])
			lng, ok2 := model.ParseNumber(row[lngIdx])
			pos := model.Position{Lng: lng, Lat: lat}
			if !ok1 || !ok2 || !pos.Valid() {
				rep.Skipped++
				continue
			}
			out = append(out, model.PointRecord{Position: pos, Properties: rowProperties(t.Header, row, props)})
		}
		done := start + len(rows)
		opts.logger().Debug("point chunk processed", "done", done, "total", rep.Total, "skipped", rep.Skipped)
		opts.progress(done, rep.Total)
		return nil
	})
	if err != nil {
		return nil, Report{}, err
	}
	rep.Accepted = len(out)
	if rep.Accepted == 0 {
		return nil, rep, fmt.Errorf("%w: all %d rows were skipped; expected numeric %q in [-90,90] and %q in [-180,180]",
			model.ErrNoValidRecords, rep.Skipped, cls.LatColumn, cls.LngColumn)
	}
	return out, rep, nil
}

// BuildHexes keeps every row whose H3 column holds a valid cell address.
func BuildHexes(ctx context.Context, t *tabular.Table, cls classify.Result, sel Selection, v mapper.Validator, opts Options) ([]model.HexRecord, Report, error) {
	if cls.Spatial != classify.SpatialH3 {
		return nil, Report{}, fmt.Errorf("%w: table is not classified as H3 data", model.ErrInvalidArgument)
	}
	hexIdx := t.Column(cls.H3Column)
	if hexIdx < 0 {
		return nil, Report{}, fmt.Errorf("%w: h3 column %q missing from header", model.ErrInvalidArgument, cls.H3Column)
	}
	props := propertyColumns(t.Header, sel, hexIdx)

	out := make([]model.HexRecord, 0, len(t.Rows))
	rep := Report{Total: len(t.Rows)}
	err := t.ForEachChunk(ctx, opts.ChunkSize, func(start int, rows [][]string) error {
		for _, row := range rows {
			cell := row[hexIdx]
			if !v.IsValidCell(cell) {
				rep.Skipped++
				continue
			}
			out = append(out, model.HexRecord{Cell: cell, Properties: rowProperties(t.Header, row, props)})
		}
		done := start + len(rows)
		opts.logger().Debug("h3 chunk processed", "done", done, "total", rep.Total, "skipped", rep.Skipped)
		opts.progress(done, rep.Total)
		return nil
	})
	if err != nil {
		return nil, Report{}, err
	}
	rep.Accepted = len(out)
	if rep.Accepted == 0 {
		return nil, rep, fmt.Errorf("%w: all %d rows were skipped; expected valid H3 cell addresses in %q",
			model.ErrNoValidRecords, rep.Skipped, cls.H3Column)
	}
	return out, rep, nil
}

// indices of selected, non-spatial columns in header order
func propertyColumns(header []string, sel Selection, spatial ...int) []int {
	out := make([]int, 0, len(header))
	for i, h := range header {
		if isOneOf(i, spatial) || !sel.Has(h) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func isOneOf(i int, xs []int) bool {
	for _, x := range xs {
		if x == i {
			return true
		}
	}
	return false
}

func rowProperties(header, row []string, cols []int) model.PropertyMap {
	pm := model.NewPropertyMap(len(cols))
	for _, i := range cols {
		pm.Set(header[i], model.String(row[i]))
	}
	return pm
}
