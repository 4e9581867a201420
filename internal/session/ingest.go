package session

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/observability"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/classify"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/records"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/tabular"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/logger"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatGeoJSON Format = "geojson"
)

// DetectFormat picks the upload format from an explicit hint or, failing
// that, the file extension.
func DetectFormat(name string, hint Format) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(string(hint)))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatGeoJSON, "json":
		return FormatGeoJSON, nil
	case "":
	default:
		return "", fmt.Errorf("%w: format %q (want csv|geojson)", model.ErrUnsupportedFormat, hint)
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".json", ".geojson":
		return FormatGeoJSON, nil
	}
	return "", fmt.Errorf("%w: cannot tell the format of %q; expected a .csv, .json or .geojson file", model.ErrUnsupportedFormat, name)
}

type Upload struct {
	Name   string
	Data   []byte
	Format Format
}

type IngestOptions struct {
	// Properties is the property selection. nil keeps every property; an
	// empty non-nil slice keeps none.
	Properties []string
	Progress   func(done, total int)
}

func (o IngestOptions) selection() records.Selection {
	if o.Properties == nil {
		return records.All()
	}
	return records.Only(o.Properties...)
}

// Inspection is what a column picker needs before the user commits an
// upload.
type Inspection struct {
	Format         Format           `json:"format"`
	Rows           int              `json:"rows"`
	Classification *classify.Result `json:"classification,omitempty"`
	// Properties lists GeoJSON property keys in first-seen order.
	Properties []string `json:"properties,omitempty"`
}

// Inspect parses and classifies an upload without touching the session.
func (s *Session) Inspect(ctx context.Context, up Upload) (Inspection, error) {
	format, err := DetectFormat(up.Name, up.Format)
	if err != nil {
		return Inspection{}, err
	}
	if format == FormatGeoJSON {
		fs, rep, err := records.BuildFeatures(ctx, up.Data, records.All(), records.Options{ChunkSize: s.cfg.ChunkSize})
		if err != nil {
			return Inspection{}, err
		}
		return Inspection{Format: format, Rows: rep.Total, Properties: records.PropertyKeys(fs)}, nil
	}
	t, cls, err := s.classify(up.Data)
	if err != nil {
		return Inspection{}, err
	}
	return Inspection{Format: format, Rows: len(t.Rows), Classification: &cls}, nil
}

func (s *Session) classify(data []byte) (*tabular.Table, classify.Result, error) {
	t, err := tabular.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, classify.Result{}, err
	}
	rows := s.cfg.SampleRows
	if rows <= 0 {
		rows = classify.DefaultSampleRows
	}
	cls := classify.Classify(t.Header, t.Sample(rows), s.cfg.Mapper)
	if cls.Spatial == classify.SpatialNone {
		return nil, classify.Result{}, classify.Unsupported(t.Header)
	}
	return t, cls, nil
}

// Ingest builds a new layer from an upload and commits it in one step. On
// any error the session is left exactly as it was. On success the view
// moves to the new layer's extent.
func (s *Session) Ingest(ctx context.Context, up Upload, opts IngestOptions) (LayerInfo, records.Report, error) {
	start := time.Now()
	ctx = logger.WithUploadID(ctx, uuid.NewString())
	log := s.log.With("file", up.Name)

	l, rep, err := s.build(ctx, up, opts)
	if err != nil {
		observability.IncIngestFailure(model.ErrorCode(err))
		log.WarnContext(ctx, "ingest rejected", "err", err, "code", model.ErrorCode(err), "skipped", rep.Skipped)
		return LayerInfo{}, rep, err
	}

	s.mu.Lock()
	l.ID = s.nextID
	s.nextID++
	s.layers[l.ID] = l
	s.order = append(s.order, l.ID)
	if e, ok := s.extentOf(l); ok {
		s.view = e.View()
	}
	info := s.info(l)
	s.mu.Unlock()

	observability.ObserveIngest(string(l.Kind), rep.Accepted, rep.Skipped, time.Since(start).Seconds())
	log.InfoContext(logger.WithLayerID(ctx, l.ID), "layer ingested",
		"kind", string(l.Kind), "accepted", rep.Accepted, "skipped", rep.Skipped, "total", rep.Total)
	return info, rep, nil
}

func (s *Session) build(ctx context.Context, up Upload, opts IngestOptions) (*model.Layer, records.Report, error) {
	format, err := DetectFormat(up.Name, up.Format)
	if err != nil {
		return nil, records.Report{}, err
	}
	name := strings.TrimSuffix(path.Base(up.Name), path.Ext(up.Name))
	if name == "" || name == "." || name == "/" {
		name = "layer"
	}
	l := &model.Layer{
		Name:      name,
		Visible:   true,
		Color:     s.cfg.DefaultColor,
		Opacity:   s.cfg.DefaultOpacity,
		PointSize: s.cfg.DefaultPointSize,
	}
	ropts := records.Options{ChunkSize: s.cfg.ChunkSize, Progress: opts.Progress, Logger: s.log}
	sel := opts.selection()

	if format == FormatGeoJSON {
		fs, rep, err := records.BuildFeatures(ctx, up.Data, sel, ropts)
		if err != nil {
			return nil, rep, err
		}
		l.Kind = model.KindGeoJSON
		l.Features = fs
		l.SelectedProperties = records.PropertyKeys(fs)
		return l, rep, nil
	}

	t, cls, err := s.classify(up.Data)
	if err != nil {
		return nil, records.Report{}, err
	}
	var rep records.Report
	switch cls.Spatial {
	case classify.SpatialPoint:
		l.Kind = model.KindPoint
		l.LatColumn, l.LngColumn = cls.LatColumn, cls.LngColumn
		l.Points, rep, err = records.BuildPoints(ctx, t, cls, sel, ropts)
	default:
		l.Kind = model.KindH3
		l.H3Column = cls.H3Column
		l.Hexes, rep, err = records.BuildHexes(ctx, t, cls, sel, s.cfg.Mapper, ropts)
	}
	if err != nil {
		return nil, rep, err
	}
	for _, c := range cls.Columns {
		if !c.Pinned && sel.Has(c.Name) {
			l.SelectedProperties = append(l.SelectedProperties, c.Name)
		}
	}
	return l, rep, nil
}
