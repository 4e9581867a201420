package tabular

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

func TestParse_TrimsAndAligns(t *testing.T) {
	tb, err := ParseString(" lat , lng ,name\n10, 20 , a \n\n11,21\n12,22,c,extra\n")
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if !slices.Equal(tb.Header, []string{"lat", "lng", "name"}) {
		t.Fatalf("header=%q", tb.Header)
	}
	want := [][]string{
		{"10", "20", "a"},
		{"11", "21", ""},
		{"12", "22", "c"},
	}
	if len(tb.Rows) != len(want) {
		t.Fatalf("rows=%d want %d", len(tb.Rows), len(want))
	}
	for i := range want {
		if !slices.Equal(tb.Rows[i], want[i]) {
			t.Fatalf("row %d=%q want %q", i, tb.Rows[i], want[i])
		}
	}
}

func TestParse_QuotedFields(t *testing.T) {
	tb, err := ParseString("name,lat,lng\n\"Doe, Jane\",1,2\n\"say \"\"hi\"\"\",3,4\n")
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if got := tb.Rows[0][0]; got != "Doe, Jane" {
		t.Fatalf("quoted comma: got %q", got)
	}
	if got := tb.Rows[1][0]; got != `say "hi"` {
		t.Fatalf("embedded quotes: got %q", got)
	}
	if len(tb.Rows[0]) != 3 {
		t.Fatalf("quoted comma must not split the field: %q", tb.Rows[0])
	}
}

func TestParse_SkipsWhitespaceOnlyLinesAndBOM(t *testing.T) {
	tb, err := ParseString("\ufefflat,lng\n   \n1,2\n , \n")
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if tb.Header[0] != "lat" {
		t.Fatalf("BOM not stripped: %q", tb.Header[0])
	}
	if len(tb.Rows) != 1 {
		t.Fatalf("rows=%d want 1", len(tb.Rows))
	}
}

func TestParse_BOMBeforePaddedHeader(t *testing.T) {
	tb, err := ParseString("\ufeff name ,lat,lng\nBerlin,52.5,13.4\n")
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if tb.Header[0] != "name" {
		t.Fatalf("header[0]=%q want name", tb.Header[0])
	}
	if tb.Column("name") != 0 {
		t.Fatalf("Column(name)=%d want 0", tb.Column("name"))
	}
}

func TestParse_TooFewLines(t *testing.T) {
	for _, in := range []string{"", "\n\n", "lat,lng\n", "lat,lng\n\n  \n"} {
		_, err := ParseString(in)
		if !errors.Is(err, model.ErrMalformedInput) {
			t.Fatalf("input %q: err=%v want ErrMalformedInput", in, err)
		}
	}
}

func TestSampleAndColumn(t *testing.T) {
	tb, err := ParseString("a,b\n1,2\n3,4\n5,6\n")
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if n := len(tb.Sample(2)); n != 2 {
		t.Fatalf("sample len=%d want 2", n)
	}
	if n := len(tb.Sample(0)); n != 3 {
		t.Fatalf("sample(0) len=%d want 3", n)
	}
	if tb.Column("b") != 1 || tb.Column("zzz") != -1 {
		t.Fatalf("Column lookup mismatch")
	}
}

func TestForEachChunk_BoundedAndOrdered(t *testing.T) {
	tb := &Table{Header: []string{"v"}}
	for i := 0; i < 10; i++ {
		tb.Rows = append(tb.Rows, []string{"x"})
	}
	var starts, sizes []int
	err := tb.ForEachChunk(context.Background(), 4, func(start int, rows [][]string) error {
		starts = append(starts, start)
		sizes = append(sizes, len(rows))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachChunk err: %v", err)
	}
	if !slices.Equal(starts, []int{0, 4, 8}) || !slices.Equal(sizes, []int{4, 4, 2}) {
		t.Fatalf("starts=%v sizes=%v", starts, sizes)
	}
}

func TestForEachChunk_StopsOnCancel(t *testing.T) {
	tb := &Table{Header: []string{"v"}, Rows: [][]string{{"1"}, {"2"}, {"3"}}}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := tb.ForEachChunk(ctx, 1, func(int, [][]string) error {
		calls++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}
