package style

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

// Dependencies is everything a resolved style is derived from. Any change
// here must invalidate memoized styles for the layer.
type Dependencies struct {
	Color        string
	Opacity      float64
	PointSize    float64
	ColorMapping *model.ColorMapping
	SizeMapping  *model.SizeMapping
}

func DependenciesOf(l *model.Layer) Dependencies {
	return Dependencies{
		Color:        l.Color,
		Opacity:      l.Opacity,
		PointSize:    l.PointSize,
		ColorMapping: l.ColorMapping,
		SizeMapping:  l.SizeMapping,
	}
}

// Fingerprint hashes the dependency set. Equal fingerprints mean memoized
// styles are still valid.
func (d Dependencies) Fingerprint() uint64 {
	h := xxhash.New()
	str := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	num := func(f float64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
		_, _ = h.Write(b[:])
	}
	floats := func(fs []float64) {
		num(float64(len(fs)))
		for _, f := range fs {
			num(f)
		}
	}

	str(d.Color)
	num(d.Opacity)
	num(d.PointSize)
	if cm := d.ColorMapping; cm != nil {
		str("color")
		str(cm.Column)
		num(float64(cm.Classes))
		floats(cm.Breaks)
		str(cm.Ramp)
	}
	if sm := d.SizeMapping; sm != nil {
		str("size")
		str(sm.Column)
		num(float64(sm.Classes))
		floats(sm.Breaks)
		num(sm.MinSize)
		num(sm.MaxSize)
	}
	return h.Sum64()
}

// Resolved is the draw-ready style of one record.
type Resolved struct {
	Fill RGBA    `json:"fill"`
	Size float64 `json:"size,omitempty"`
}

// Styler resolves record styles for one snapshot of a layer's dependencies.
type Styler struct {
	deps    Dependencies
	base    RGBA
	classes []RGBA
}

func NewStyler(d Dependencies) (*Styler, error) {
	base, err := ParseColor(d.Color)
	if err != nil {
		return nil, err
	}
	s := &Styler{deps: d, base: toRGBA(base, d.Opacity)}
	if cm := d.ColorMapping; cm != nil {
		cs, err := RampColors(cm.Ramp, cm.Classes)
		if err != nil {
			return nil, err
		}
		s.classes = make([]RGBA, len(cs))
		for i, c := range cs {
			s.classes[i] = toRGBA(c, d.Opacity)
		}
	}
	return s, nil
}

func (s *Styler) Resolve(props model.PropertyMap) Resolved {
	r := Resolved{Fill: s.base, Size: s.deps.PointSize}
	if cm := s.deps.ColorMapping; cm != nil && len(s.classes) > 0 {
		b := Bucket(Coerce(props, cm.Column), cm.Breaks)
		r.Fill = s.classes[min(b, len(s.classes)-1)]
	}
	if sm := s.deps.SizeMapping; sm != nil {
		b := Bucket(Coerce(props, sm.Column), sm.Breaks)
		r.Size = SizeFor(b, sm.Classes, sm.MinSize, sm.MaxSize)
	}
	return r
}
