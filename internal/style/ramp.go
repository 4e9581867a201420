package style

import (
	"fmt"
	"math"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
)

// RGBA is the draw-ready fill color handed to renderers.
type RGBA [4]uint8

const DefaultRamp = "viridis"

// anchor colors, light-to-dark or low-to-high
var ramps = map[string][]string{
	"viridis":  {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
	"magma":    {"#000004", "#51127c", "#b73779", "#fc8961", "#fcfdbf"},
	"blues":    {"#f7fbff", "#c6dbef", "#6baed6", "#2171b5", "#08306b"},
	"greens":   {"#f7fcf5", "#c7e9c0", "#74c476", "#238b45", "#00441b"},
	"reds":     {"#fff5f0", "#fcbba1", "#fb6a4a", "#cb181d", "#67000d"},
	"oranges":  {"#fff5eb", "#fdd0a2", "#fd8d3c", "#d94801", "#7f2704"},
	"purples":  {"#fcfbfd", "#dadaeb", "#9e9ac8", "#6a51a3", "#3f007d"},
	"spectral": {"#d53e4f", "#fc8d59", "#fee08b", "#e6f598", "#99d594", "#3288bd"},
}

// Ramps lists the known ramp names in sorted order.
func Ramps() []string {
	out := make([]string, 0, len(ramps))
	for k := range ramps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func ValidateRamp(name string) error {
	if _, ok := ramps[strings.ToLower(name)]; !ok {
		return fmt.Errorf("%w: unknown color ramp %q (want one of %s)", model.ErrInvalidArgument, name, strings.Join(Ramps(), ", "))
	}
	return nil
}

// RampColors samples n evenly spaced colors along the named ramp,
// interpolating between anchors in Lab space.
func RampColors(name string, n int) ([]colorful.Color, error) {
	if err := ValidateRamp(name); err != nil {
		return nil, err
	}
	anchors := ramps[strings.ToLower(name)]
	stops := make([]colorful.Color, len(anchors))
	for i, h := range anchors {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("ramp %s anchor %d: %w", name, i, err)
		}
		stops[i] = c
	}
	if n <= 1 {
		return stops[:1], nil
	}
	out := make([]colorful.Color, n)
	for k := range out {
		pos := float64(k) / float64(n-1) * float64(len(stops)-1)
		lo := int(math.Floor(pos))
		if lo >= len(stops)-1 {
			out[k] = stops[len(stops)-1]
			continue
		}
		out[k] = stops[lo].BlendLab(stops[lo+1], pos-float64(lo)).Clamped()
	}
	return out, nil
}

// ParseColor accepts #rgb or #rrggbb (the leading # is optional).
func ParseColor(s string) (colorful.Color, error) {
	h := strings.TrimSpace(s)
	if !strings.HasPrefix(h, "#") {
		h = "#" + h
	}
	if len(h) == 4 {
		h = "#" + strings.Repeat(h[1:2], 2) + strings.Repeat(h[2:3], 2) + strings.Repeat(h[3:4], 2)
	}
	c, err := colorful.Hex(strings.ToLower(h))
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: color %q is not #rrggbb", model.ErrInvalidArgument, s)
	}
	return c, nil
}

func toRGBA(c colorful.Color, opacity float64) RGBA {
	r, g, b := c.RGB255()
	return RGBA{r, g, b, alpha(opacity)}
}

func alpha(opacity float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
}
