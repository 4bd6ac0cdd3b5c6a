package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveResolutionCountsByKindAndResult(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewTenantMetricsForTest(registry)

	m.ObserveResolution("subdomain", "hit", 0)
	m.ObserveResolution("subdomain", "hit", 0)
	m.ObserveResolution("custom_domain", "miss", 0)

	var out dto.Metric
	if err := m.resolutions.WithLabelValues("subdomain", "hit").Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := out.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 subdomain hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.resolutions.WithLabelValues("custom_domain", "miss")); got != 1 {
		t.Fatalf("expected 1 custom domain miss, got %v", got)
	}
}

func TestNilTenantMetricsIsSafe(t *testing.T) {
	var m *TenantMetrics
	m.ObserveResolution("subdomain", "hit", 0)
}

func TestGinMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{Environment: "test"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/health", http.MethodGet, "2xx")); got != 1 {
		t.Fatalf("expected 1 request recorded, got %v", got)
	}
}
