// Package style classifies numeric property values into discrete color and
// size buckets and memoizes the resolved style per record.
package style

import (
	"fmt"
	"math"
	"slices"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

const (
	MinClasses = 3
	MaxClasses = 10
)

func ValidateClasses(n int) error {
	if n < MinClasses || n > MaxClasses {
		return fmt.Errorf("%w: class count %d out of range [%d,%d]", model.ErrInvalidArgument, n, MinClasses, MaxClasses)
	}
	return nil
}

// Coerce reads column from props as a number; missing or non-numeric
// values count as 0.
func Coerce(props model.PropertyMap, column string) float64 {
	v, ok := props.Get(column)
	if !ok {
		return 0
	}
	f, ok := v.Float()
	if !ok {
		return 0
	}
	return f
}

// Values coerces column across the given records.
func Values(props []model.PropertyMap, column string) []float64 {
	out := make([]float64, len(props))
	for i, p := range props {
		out[i] = Coerce(p, column)
	}
	return out
}

// QuantileBreaks returns n-1 breakpoints: break i (1-based) is the sorted
// value at floor(i/n * len). No values means no breaks.
func QuantileBreaks(values []float64, n int) ([]float64, error) {
	if err := ValidateClasses(n); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	breaks := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		idx := int(math.Floor(float64(i) / float64(n) * float64(len(sorted))))
		idx = max(0, min(idx, len(sorted)-1))
		breaks = append(breaks, sorted[idx])
	}
	return breaks, nil
}

// Bucket maps v to the first bucket whose break is >= v. Values above the
// last break land in the last bucket, len(breaks).
func Bucket(v float64, breaks []float64) int {
	for i, b := range breaks {
		if v <= b {
			return i
		}
	}
	return len(breaks)
}

// SizeFor interpolates linearly between minSize and maxSize by
// bucket/(classes-1).
func SizeFor(bucket, classes int, minSize, maxSize float64) float64 {
	if classes <= 1 {
		return minSize
	}
	bucket = max(0, min(bucket, classes-1))
	return minSize + (maxSize-minSize)*float64(bucket)/float64(classes-1)
}
