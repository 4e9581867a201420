// Package filter compiles serializable filter descriptors into predicates
// over record properties.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

type ValueKind string

const (
	Numeric ValueKind = "numeric"
	Text    ValueKind = "text"
)

type Op string

const (
	OpRange      Op = "range"
	OpCompare    Op = "compare"
	OpMembership Op = "membership"
)

type Operator string

const (
	Eq  Operator = "="
	Lt  Operator = "<"
	Lte Operator = "<="
	Gt  Operator = ">"
	Gte Operator = ">="
)

// Descriptor is the stored form of a filter. Which of the optional fields
// apply depends on Op.
type Descriptor struct {
	Column    string    `json:"column"`
	ValueKind ValueKind `json:"valueKind"`
	Op        Op        `json:"op"`

	// range
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// compare
	Operator Operator `json:"operator,omitempty"`
	Value    string   `json:"value,omitempty"`

	// membership
	Options []string `json:"options,omitempty"`
}

// Range builds a numeric min <= v <= max descriptor.
func Range(column string, lo, hi float64) Descriptor {
	return Descriptor{Column: column, ValueKind: Numeric, Op: OpRange, Min: &lo, Max: &hi}
}

func Compare(column string, kind ValueKind, op Operator, value string) Descriptor {
	return Descriptor{Column: column, ValueKind: kind, Op: OpCompare, Operator: op, Value: value}
}

func Membership(column string, options ...string) Descriptor {
	return Descriptor{Column: column, ValueKind: Text, Op: OpMembership, Options: options}
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Column) == "" {
		return invalid("column is required")
	}
	if d.ValueKind != Numeric && d.ValueKind != Text {
		return invalid("valueKind %q (want numeric|text)", d.ValueKind)
	}
	switch d.Op {
	case OpRange:
		if d.ValueKind != Numeric {
			return invalid("range filters need a numeric column")
		}
		if d.Min == nil || d.Max == nil {
			return invalid("range filter on %q needs both min and max", d.Column)
		}
		if *d.Min > *d.Max {
			return invalid("range filter on %q has min %v > max %v", d.Column, *d.Min, *d.Max)
		}
	case OpCompare:
		switch d.Operator {
		case Eq, Lt, Lte, Gt, Gte:
		default:
			return invalid("operator %q (want one of = < <= > >=)", d.Operator)
		}
		if d.ValueKind == Numeric {
			if _, ok := model.ParseNumber(d.Value); !ok {
				return invalid("compare value %q is not a number", d.Value)
			}
		}
	case OpMembership:
		if d.ValueKind != Text {
			return invalid("membership filters need a text column")
		}
		if !slices.ContainsFunc(d.Options, func(o string) bool { return strings.TrimSpace(o) != "" }) {
			return invalid("membership filter on %q has no non-blank options", d.Column)
		}
	default:
		return invalid("op %q (want range|compare|membership)", d.Op)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: filter: %s", model.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Predicate reports whether a record's properties pass a filter.
type Predicate func(model.PropertyMap) bool

// Compile validates d and returns its predicate. A record without the
// column, or whose value cannot be coerced, fails the predicate.
func Compile(d Descriptor) (Predicate, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	col := d.Column
	switch d.Op {
	case OpRange:
		lo, hi := *d.Min, *d.Max
		return func(p model.PropertyMap) bool {
			v, ok := number(p, col)
			return ok && lo <= v && v <= hi
		}, nil

	case OpCompare:
		op := d.Operator
		if d.ValueKind == Numeric {
			want, _ := model.ParseNumber(d.Value)
			return func(p model.PropertyMap) bool {
				v, ok := number(p, col)
				return ok && compare(op, cmpFloat(v, want))
			}, nil
		}
		want := strings.ToLower(d.Value)
		return func(p model.PropertyMap) bool {
			v, ok := text(p, col)
			return ok && compare(op, strings.Compare(v, want))
		}, nil

	default: // membership
		opts := make([]string, 0, len(d.Options))
		for _, o := range d.Options {
			if o = strings.ToLower(strings.TrimSpace(o)); o != "" {
				opts = append(opts, o)
			}
		}
		return func(p model.PropertyMap) bool {
			v, ok := text(p, col)
			if !ok {
				return false
			}
			for _, o := range opts {
				if strings.Contains(v, o) {
					return true
				}
			}
			return false
		}, nil
	}
}

// Evaluate is Compile followed by a single call. Invalid descriptors
// match nothing.
func Evaluate(d Descriptor, p model.PropertyMap) bool {
	pred, err := Compile(d)
	if err != nil {
		return false
	}
	return pred(p)
}

// All combines predicates with AND. No predicates match everything.
func All(preds ...Predicate) Predicate {
	return func(p model.PropertyMap) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}

// CompileAll compiles ds in order and ANDs them together.
func CompileAll(ds []Descriptor) (Predicate, error) {
	preds := make([]Predicate, 0, len(ds))
	for i, d := range ds {
		pred, err := Compile(d)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		preds = append(preds, pred)
	}
	return All(preds...), nil
}

func number(p model.PropertyMap, col string) (float64, bool) {
	v, ok := p.Get(col)
	if !ok {
		return 0, false
	}
	return v.Float()
}

func text(p model.PropertyMap, col string) (string, bool) {
	v, ok := p.Get(col)
	if !ok || v.IsNull() {
		return "", false
	}
	return strings.ToLower(v.Text()), true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(op Operator, c int) bool {
	switch op {
	case Eq:
		return c == 0
	case Lt:
		return c < 0
	case Lte:
		return c <= 0
	case Gt:
		return c > 0
	case Gte:
		return c >= 0
	}
	return false
}
