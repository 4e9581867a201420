// Package router exposes a MapSession over HTTP.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/config"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/extent"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/filter"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/ingest/records"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/logger"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/mapdoc"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/session"
)

type API struct {
	log     *slog.Logger
	sess    *session.Session
	maxBody int64
}

func New(log *slog.Logger, cfg config.Config, sess *session.Session) *API {
	return &API{log: log, sess: sess, maxBody: cfg.MaxUploadBytes}
}

// Mount registers every /api route on r.
func (a *API) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/inspect", a.inspect)
		r.Get("/render", a.renderAll)
		r.Get("/view", a.getView)
		r.Put("/view", a.putView)
		r.Put("/basemap", a.putBasemap)
		r.Get("/config", a.exportConfig)
		r.Post("/config", a.importConfig)

		r.Route("/layers", func(r chi.Router) {
			r.Get("/", a.listLayers)
			r.Post("/", a.createLayer)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getLayer)
				r.Patch("/", a.patchLayer)
				r.Delete("/", a.deleteLayer)
				r.Post("/fit", a.fitLayer)
				r.Put("/color-mapping", a.putColorMapping)
				r.Delete("/color-mapping", a.deleteColorMapping)
				r.Put("/size-mapping", a.putSizeMapping)
				r.Delete("/size-mapping", a.deleteSizeMapping)
				r.Get("/filters", a.listFilters)
				r.Post("/filters", a.addFilter)
				r.Delete("/filters/{index}", a.removeFilter)
				r.Get("/matching", a.matching)
				r.Get("/render", a.renderLayer)
				r.Get("/records/{rid}", a.selectRecord)
			})
		})
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrMalformedInput),
		errors.Is(err, model.ErrUnsupportedFormat),
		errors.Is(err, model.ErrNoValidRecords):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidConfiguration),
		errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrLayerNotFound),
		errors.Is(err, model.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := model.ErrorCode(err)
	if status == http.StatusRequestEntityTooLarge {
		code = "PayloadTooLarge"
	}
	if status >= 500 {
		a.log.ErrorContext(r.Context(), "request failed", "err", err, "path", r.URL.Path)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) body(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	rd := io.Reader(r.Body)
	if a.maxBody > 0 {
		rd = http.MaxBytesReader(w, r.Body, a.maxBody)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) error {
	b, err := a.body(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: request body: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

func layerID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: layer id %q", model.ErrInvalidArgument, raw)
	}
	return id, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", model.ErrInvalidArgument, name, raw)
	}
	return n, nil
}

func (a *API) upload(w http.ResponseWriter, r *http.Request) (session.Upload, error) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		name = "upload"
	}
	data, err := a.body(w, r)
	if err != nil {
		return session.Upload{}, err
	}
	return session.Upload{Name: name, Data: data, Format: session.Format(q.Get("format"))}, nil
}

// properties=a,b keeps a and b; properties= keeps none; no parameter
// keeps all.
func selection(r *http.Request) []string {
	q := r.URL.Query()
	if !q.Has("properties") {
		return nil
	}
	out := []string{}
	for _, p := range strings.Split(q.Get("properties"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *API) inspect(w http.ResponseWriter, r *http.Request) {
	up, err := a.upload(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	in, err := a.sess.Inspect(r.Context(), up)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

type createResponse struct {
	Layer  session.LayerInfo `json:"layer"`
	Report records.Report    `json:"report"`
	View   extent.View       `json:"view"`
}

func (a *API) createLayer(w http.ResponseWriter, r *http.Request) {
	up, err := a.upload(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	info, rep, err := a.sess.Ingest(r.Context(), up, session.IngestOptions{Properties: selection(r)})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx := logger.WithLayerID(r.Context(), info.ID)
	a.log.InfoContext(ctx, "layer created", "name", info.Name, "skipped", rep.Skipped)
	writeJSON(w, http.StatusCreated, createResponse{Layer: info, Report: rep, View: a.sess.View()})
}

func (a *API) listLayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.sess.Layers())
}

func (a *API) getLayer(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	info, err := a.sess.Layer(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) patchLayer(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var p session.Patch
	if err := a.decode(w, r, &p); err != nil {
		a.fail(w, r, err)
		return
	}
	info, err := a.sess.Update(id, p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) deleteLayer(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err == nil {
		err = a.sess.Remove(id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) fitLayer(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	v, _, err := a.sess.FitLayer(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type colorMappingRequest struct {
	Column  string `json:"column"`
	Classes int    `json:"classes"`
	Ramp    string `json:"ramp"`
}

func (a *API) putColorMapping(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req colorMappingRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sess.SetColorMapping(id, req.Column, req.Classes, req.Ramp); err != nil {
		a.fail(w, r, err)
		return
	}
	a.getLayer(w, r)
}

func (a *API) deleteColorMapping(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err == nil {
		err = a.sess.ClearColorMapping(id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sizeMappingRequest struct {
	Column  string  `json:"column"`
	Classes int     `json:"classes"`
	MinSize float64 `json:"minSize"`
	MaxSize float64 `json:"maxSize"`
}

func (a *API) putSizeMapping(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req sizeMappingRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sess.SetSizeMapping(id, req.Column, req.Classes, req.MinSize, req.MaxSize); err != nil {
		a.fail(w, r, err)
		return
	}
	a.getLayer(w, r)
}

func (a *API) deleteSizeMapping(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err == nil {
		err = a.sess.ClearSizeMapping(id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listFilters(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	fs, err := a.sess.Filters(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (a *API) addFilter(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var d filter.Descriptor
	if err := a.decode(w, r, &d); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sess.AddFilter(id, d); err != nil {
		a.fail(w, r, err)
		return
	}
	fs, err := a.sess.Filters(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fs)
}

func (a *API) removeFilter(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	idx, err := intParam(r, "index")
	if err == nil {
		err = a.sess.RemoveFilter(id, idx)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) matching(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ids, err := a.sess.Matching(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": ids, "count": len(ids)})
}

func (a *API) renderLayer(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rl, err := a.sess.RenderLayer(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rl)
}

func (a *API) renderAll(w http.ResponseWriter, r *http.Request) {
	all, err := a.sess.Render()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *API) selectRecord(w http.ResponseWriter, r *http.Request) {
	id, err := layerID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rid, err := intParam(r, "rid")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	props, err := a.sess.Select(id, rid)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"layer": id, "record": rid, "properties": props})
}

func (a *API) getView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"view": a.sess.View(), "basemap": a.sess.Basemap()})
}

func (a *API) putView(w http.ResponseWriter, r *http.Request) {
	var v extent.View
	if err := a.decode(w, r, &v); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sess.SetView(v); err != nil {
		a.fail(w, r, err)
		return
	}
	a.getView(w, r)
}

func (a *API) putBasemap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Basemap string `json:"basemap"`
	}
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sess.SetBasemap(req.Basemap); err != nil {
		a.fail(w, r, err)
		return
	}
	a.getView(w, r)
}

func wantsYAML(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		return true
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.Contains(ct, "yaml")
}

func (a *API) exportConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := a.sess.Export()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if wantsYAML(r) {
		b, err := doc.YAML()
		if err != nil {
			a.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) importConfig(w http.ResponseWriter, r *http.Request) {
	b, err := a.body(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var doc mapdoc.Document
	if wantsYAML(r) {
		doc, err = mapdoc.DecodeYAML(b)
	} else {
		doc, err = mapdoc.Decode(b)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.sess.Import(r.Context(), doc); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.sess.Layers())
}
