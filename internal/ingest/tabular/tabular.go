// Package tabular turns delimited text into a rectangular table of trimmed
// string cells.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

// DefaultChunkSize bounds how many rows a validation pass touches before
// yielding. It is a tuning knob, not a correctness requirement.
const DefaultChunkSize = 5000

type Table struct {
	Header []string
	Rows   [][]string
}

// Parse reads comma-delimited text with optional double-quote quoting.
// Blank lines are skipped and every row is aligned to the header width.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var t Table
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%w: csv line %d: %v", model.ErrMalformedInput, pe.Line, pe.Err)
			}
			return nil, fmt.Errorf("%w: read csv: %v", model.ErrMalformedInput, err)
		}
		if t.Header == nil && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
		}
		trimAll(rec)
		if blank(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = append([]string(nil), rec...)
			continue
		}
		t.Rows = append(t.Rows, align(rec, len(t.Header)))
	}

	if t.Header == nil || len(t.Rows) == 0 {
		lines := 0
		if t.Header != nil {
			lines = 1
		}
		return nil, fmt.Errorf("%w: expected a header line and at least one data line, found %d non-empty line(s)",
			model.ErrMalformedInput, lines)
	}
	return &t, nil
}

// ParseString is a convenience wrapper over Parse.
func ParseString(s string) (*Table, error) {
	return Parse(strings.NewReader(s))
}

// Column returns the index of the header named name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Sample returns up to n leading data rows; n <= 0 returns all rows.
func (t *Table) Sample(n int) [][]string {
	if n <= 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// ForEachChunk calls fn with consecutive row windows of at most size rows.
// ctx is checked before each chunk; start is the index of the chunk's first row.
func (t *Table) ForEachChunk(ctx context.Context, size int, fn func(start int, rows [][]string) error) error {
	if size <= 0 {
		size = DefaultChunkSize
	}
	for start := 0; start < len(t.Rows); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(t.Rows))
		if err := fn(start, t.Rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func trimAll(rec []string) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
}

func blank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}

// pads short rows with "" and truncates long ones
func align(rec []string, width int) []string {
	if len(rec) == width {
		return rec
	}
	out := make([]string, width)
	copy(out, rec)
	return out
}
