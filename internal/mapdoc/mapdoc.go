// Package mapdoc defines the map configuration document: a serializable
// snapshot of the view, the basemap and every layer with its data, filters
// and style mappings.
package mapdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/extent"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/filter"
)

// Version is written on export. Import only requires a version to be
// present.
const Version = "1"

const DefaultBasemap = "positron"

var Basemaps = []string{"positron", "dark-matter", "voyager", "osm-bright", "satellite"}

func ValidBasemap(name string) bool { return slices.Contains(Basemaps, name) }

type Document struct {
	Version string      `json:"version"`
	View    extent.View `json:"view"`
	Basemap string      `json:"basemap"`
	Layers  []Layer     `json:"layers"`
}

type Layer struct {
	Name      string          `json:"name"`
	Type      model.LayerKind `json:"type"`
	Visible   bool            `json:"visible"`
	Color     string          `json:"color"`
	Opacity   float64         `json:"opacity"`
	PointSize float64         `json:"pointSize"`

	LatColumn string `json:"latColumn,omitempty"`
	LngColumn string `json:"lngColumn,omitempty"`
	H3Column  string `json:"h3Column,omitempty"`

	// Data is the raw record payload: a FeatureCollection for geojson
	// layers, an array of records otherwise.
	Data json.RawMessage `json:"data"`

	Filters            []filter.Descriptor `json:"filters"`
	SelectedProperties []string            `json:"selectedProperties"`
	ColorMapping       *model.ColorMapping `json:"colorMapping,omitempty"`
	SizeMapping        *model.SizeMapping  `json:"sizeMapping,omitempty"`
}

// Decode parses a JSON document and checks the fields import depends on.
// Every failure wraps model.ErrInvalidConfiguration.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: parse document: %v", model.ErrInvalidConfiguration, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d Document) Validate() error {
	if d.Version == "" {
		return fmt.Errorf(`%w: missing "version"`, model.ErrInvalidConfiguration)
	}
	v := d.View
	if !finite(v.Latitude, v.Longitude, v.Zoom) || v.Latitude < -90 || v.Latitude > 90 || v.Longitude < -180 || v.Longitude > 180 {
		return fmt.Errorf("%w: view %+v is out of range", model.ErrInvalidConfiguration, v)
	}
	for i, l := range d.Layers {
		if err := l.validate(); err != nil {
			return fmt.Errorf("%w: layer %d (%q): %v", model.ErrInvalidConfiguration, i, l.Name, err)
		}
	}
	return nil
}

func (l Layer) validate() error {
	if _, err := model.ParseLayerKind(string(l.Type)); err != nil {
		return err
	}
	if d := bytes.TrimSpace(l.Data); len(d) == 0 || bytes.Equal(d, []byte("null")) {
		return fmt.Errorf(`missing "data"`)
	}
	if l.Opacity < 0 || l.Opacity > 1 || math.IsNaN(l.Opacity) {
		return fmt.Errorf("opacity %v outside [0,1]", l.Opacity)
	}
	if l.Type == model.KindPoint && (l.LatColumn == "" || l.LngColumn == "") {
		return fmt.Errorf("point layers need latColumn and lngColumn")
	}
	if l.SizeMapping != nil && l.Type != model.KindPoint {
		return fmt.Errorf("size mappings apply to point layers only")
	}
	for j, f := range l.Filters {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("filter %d: %v", j, err)
		}
	}
	return nil
}

// JSON renders the document indented for download.
func (d Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func finite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
