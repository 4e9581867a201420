package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/config"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/core/model"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/logger"
	"github.com/mohammed-shakir/h3-layer-viewer/internal/session"
)

const citiesCSV = `city,lat,lng,pop
Berlin,52.52,13.40,3600
Paris,48.85,2.35,2100
Nowhere,95,0,1
`

func newAPI(t *testing.T, maxBody int64) (http.Handler, *session.Session) {
	t.Helper()
	sess, err := session.New(session.Config{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	r := chi.NewRouter()
	New(logger.Discard(), config.Config{MaxUploadBytes: maxBody}, sess).Mount(r)
	return r, sess
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		model.ErrMalformedInput:       422,
		model.ErrUnsupportedFormat:    422,
		model.ErrNoValidRecords:       422,
		model.ErrInvalidConfiguration: 400,
		model.ErrInvalidArgument:      400,
		model.ErrLayerNotFound:        404,
		model.ErrRecordNotFound:       404,
		errors.New("boom"):            500,
	}
	for err, want := range cases {
		if got := StatusFor(fmt.Errorf("wrapped: %w", err)); got != want {
			t.Fatalf("StatusFor(%v)=%d want %d", err, got, want)
		}
	}
}

func TestCreateLayer_ReportsSkippedRows(t *testing.T) {
	h, _ := newAPI(t, 0)
	rr := do(t, h, http.MethodPost, "/api/layers?name=cities.csv", citiesCSV)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	got := decodeBody[createResponse](t, rr)
	if got.Layer.ID != 1 || got.Layer.Name != "cities" || got.Layer.Records != 2 {
		t.Fatalf("layer=%+v", got.Layer)
	}
	if got.Report.Skipped != 1 || got.Report.Accepted != 2 {
		t.Fatalf("report=%+v", got.Report)
	}
	if got.View.Zoom <= 0 {
		t.Fatalf("view not moved: %+v", got.View)
	}
}

func TestCreateLayer_PropertySelection(t *testing.T) {
	h, _ := newAPI(t, 0)
	rr := do(t, h, http.MethodPost, "/api/layers?name=cities.csv&properties=pop", citiesCSV)
	got := decodeBody[createResponse](t, rr)
	if len(got.Layer.SelectedProperties) != 1 || got.Layer.SelectedProperties[0] != "pop" {
		t.Fatalf("selected=%v want [pop]", got.Layer.SelectedProperties)
	}

	rr = do(t, h, http.MethodPost, "/api/layers?name=cities.csv&properties=", citiesCSV)
	got = decodeBody[createResponse](t, rr)
	if len(got.Layer.SelectedProperties) != 0 {
		t.Fatalf("selected=%v want none", got.Layer.SelectedProperties)
	}
}

func TestCreateLayer_Errors(t *testing.T) {
	h, _ := newAPI(t, 0)
	cases := []struct {
		target, body, code string
		status             int
	}{
		{"/api/layers?name=data.txt", "a,b\n", "UnsupportedFormat", 422},
		{"/api/layers?name=plain.csv", "name,value\na,1\n", "UnsupportedFormat", 422},
		{"/api/layers?name=bad.csv", "lat,lng\n100,0\n", "NoValidRecords", 422},
		{"/api/layers?name=x.geojson", "not json", "MalformedInput", 422},
	}
	for _, c := range cases {
		rr := do(t, h, http.MethodPost, c.target, c.body)
		if rr.Code != c.status {
			t.Fatalf("%s: status=%d want %d", c.target, rr.Code, c.status)
		}
		if body := decodeBody[errorBody](t, rr); body.Code != c.code || body.Error == "" {
			t.Fatalf("%s: body=%+v want code %s", c.target, body, c.code)
		}
	}
	rr := do(t, h, http.MethodGet, "/api/layers", "")
	if layers := decodeBody[[]session.LayerInfo](t, rr); len(layers) != 0 {
		t.Fatalf("failed uploads left %d layers", len(layers))
	}
}

func TestCreateLayer_BodyLimit(t *testing.T) {
	h, _ := newAPI(t, 16)
	rr := do(t, h, http.MethodPost, "/api/layers?name=cities.csv", citiesCSV)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d want 413", rr.Code)
	}
}

func TestInspect(t *testing.T) {
	h, sess := newAPI(t, 0)
	rr := do(t, h, http.MethodPost, "/api/inspect?name=cities.csv", citiesCSV)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Body.String(), `"spatial":"point"`) {
		t.Fatalf("body=%s", rr.Body)
	}
	if len(sess.Layers()) != 0 {
		t.Fatalf("inspect must not add a layer")
	}
}

func TestLayerLifecycle(t *testing.T) {
	h, _ := newAPI(t, 0)
	do(t, h, http.MethodPost, "/api/layers?name=cities.csv", citiesCSV)

	rr := do(t, h, http.MethodPatch, "/api/layers/1", `{"name":"Capitals","color":"#f00","visible":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body)
	}
	info := decodeBody[session.LayerInfo](t, rr)
	if info.Name != "Capitals" || info.Color != "#ff0000" || info.Visible {
		t.Fatalf("patched=%+v", info)
	}

	rr = do(t, h, http.MethodPatch, "/api/layers/1", `{"opacity":2}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad opacity status=%d want 400", rr.Code)
	}

	if rr = do(t, h, http.MethodGet, "/api/layers/abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d want 400", rr.Code)
	}
	if rr = do(t, h, http.MethodDelete, "/api/layers/1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/api/layers/1", "")
	if rr.Code != http.StatusNotFound || decodeBody[errorBody](t, rr).Code != "LayerNotFound" {
		t.Fatalf("get removed status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestMappingsAndFilters(t *testing.T) {
	h, _ := newAPI(t, 0)
	do(t, h, http.MethodPost, "/api/layers?name=cities.csv", citiesCSV)

	rr := do(t, h, http.MethodPut, "/api/layers/1/color-mapping", `{"column":"pop","classes":2,"ramp":"blues"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("color mapping status=%d body=%s", rr.Code, rr.Body)
	}
	info := decodeBody[session.LayerInfo](t, rr)
	if info.ColorMapping == nil || len(info.ColorMapping.Breaks) != 2 {
		t.Fatalf("color mapping=%+v", info.ColorMapping)
	}

	rr = do(t, h, http.MethodPut, "/api/layers/1/size-mapping", `{"column":"pop","classes":3,"minSize":4,"maxSize":2}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("inverted size range status=%d want 400", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/layers/1/filters", `{"column":"pop","valueKind":"numeric","op":"compare","operator":">","value":"3000"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add filter status=%d body=%s", rr.Code, rr.Body)
	}
	rr = do(t, h, http.MethodGet, "/api/layers/1/matching", "")
	type matched struct {
		Records []int `json:"records"`
		Count   int   `json:"count"`
	}
	m := decodeBody[matched](t, rr)
	if m.Count != 1 || m.Records[0] != 0 {
		t.Fatalf("matching=%+v want [0]", m)
	}

	if rr = do(t, h, http.MethodDelete, "/api/layers/1/filters/5", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("remove missing filter status=%d want 400", rr.Code)
	}
	if rr = do(t, h, http.MethodDelete, "/api/layers/1/filters/0", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("remove filter status=%d", rr.Code)
	}
	if rr = do(t, h, http.MethodDelete, "/api/layers/1/color-mapping", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("clear mapping status=%d", rr.Code)
	}
}

func TestRenderAndSelect(t *testing.T) {
	h, _ := newAPI(t, 0)
	do(t, h, http.MethodPost, "/api/layers?name=cities.csv", citiesCSV)

	rr := do(t, h, http.MethodGet, "/api/layers/1/render", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("render status=%d", rr.Code)
	}
	rl := decodeBody[session.RenderedLayer](t, rr)
	if len(rl.Items) != 2 || rl.Items[0].Position == nil {
		t.Fatalf("rendered=%+v", rl)
	}

	rr = do(t, h, http.MethodGet, "/api/layers/1/records/1", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"city":"Paris"`) {
		t.Fatalf("select status=%d body=%s", rr.Code, rr.Body)
	}
	rr = do(t, h, http.MethodGet, "/api/layers/1/records/9", "")
	if rr.Code != http.StatusNotFound || decodeBody[errorBody](t, rr).Code != "RecordNotFound" {
		t.Fatalf("select missing status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestViewAndBasemap(t *testing.T) {
	h, sess := newAPI(t, 0)
	rr := do(t, h, http.MethodPut, "/api/view", `{"latitude":10,"longitude":20,"zoom":4}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("view status=%d body=%s", rr.Code, rr.Body)
	}
	if v := sess.View(); v.Latitude != 10 || v.Longitude != 20 || v.Zoom != 4 {
		t.Fatalf("view=%+v", v)
	}
	if rr = do(t, h, http.MethodPut, "/api/view", `{"latitude":100}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad view status=%d want 400", rr.Code)
	}
	if rr = do(t, h, http.MethodPut, "/api/basemap", `{"basemap":"voyager"}`); rr.Code != http.StatusOK {
		t.Fatalf("basemap status=%d", rr.Code)
	}
	if sess.Basemap() != "voyager" {
		t.Fatalf("basemap=%q", sess.Basemap())
	}
	if rr = do(t, h, http.MethodPut, "/api/basemap", `{"basemap":"moon"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown basemap status=%d want 400", rr.Code)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	h, _ := newAPI(t, 0)
	do(t, h, http.MethodPost, "/api/layers?name=cities.csv", citiesCSV)

	yml := do(t, h, http.MethodGet, "/api/config?format=yaml", "")
	if ct := yml.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(yml.Body.String(), `version: "1"`) {
		t.Fatalf("yaml=%s", yml.Body)
	}

	h2, sess2 := newAPI(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(yml.Body.String()))
	req.Header.Set("Content-Type", "application/yaml")
	rr := httptest.NewRecorder()
	h2.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body)
	}
	layers := sess2.Layers()
	if len(layers) != 1 || layers[0].Name != "cities" || layers[0].Records != 2 {
		t.Fatalf("imported=%+v", layers)
	}

	rr = do(t, h2, http.MethodPost, "/api/config", `{"view":{"zoom":1}}`)
	if rr.Code != http.StatusBadRequest || decodeBody[errorBody](t, rr).Code != "InvalidConfiguration" {
		t.Fatalf("invalid config status=%d body=%s", rr.Code, rr.Body)
	}
	if len(sess2.Layers()) != 1 {
		t.Fatalf("rejected import changed the session")
	}
}
