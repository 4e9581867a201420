package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedLayers int

func (f fixedLayers) Readiness() (bool, int) { return true, int(f) }

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestProvider_MergesDefaultAndPrivateRegistries(t *testing.T) {
	p := Init(Config{})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)
	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	body := scrape(t, p)
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go_goroutines from the default registry; got:\n%s", body)
	}
	if !strings.Contains(body, "test_gauge 42") {
		t.Fatalf("expected test_gauge from the private registry; got:\n%s", body)
	}
}

func TestProvider_TrackLayers(t *testing.T) {
	p := Init(Config{})
	p.TrackLayers(fixedLayers(3))
	if body := scrape(t, p); !strings.Contains(body, "session_layers 3") {
		t.Fatalf("expected session_layers 3; got:\n%s", body)
	}
}

func TestProvider_ServeDisabledReturnsImmediately(t *testing.T) {
	p := Init(Config{Enabled: false})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := p.Serve(context.Background(), log); err != nil {
		t.Fatalf("Serve err=%v want nil", err)
	}
}
