package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/tenantly/internal/observability/context"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestGinMiddlewareTagsTenantAndActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), "req-1"))
	})
	r.Use(ginMiddleware(provider.Tracer("test")))
	r.Use(func(c *gin.Context) {
		ctx := obscontext.WithOrgID(c.Request.Context(), "org-1")
		ctx = obscontext.WithActor(ctx, "user", "identity-1")
		c.Request = c.Request.WithContext(ctx)
	})
	r.GET("/api/organization", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("secret leaked"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://acme.example.com/api/organization", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Name() != "HTTP GET /api/organization" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
	attrs := attrMap(spans[0].Attributes())
	for key, want := range map[string]string{
		"request_id":    "req-1",
		"tenant.org_id": "org-1",
		"enduser.type":  "user",
		"enduser.id":    "identity-1",
		"http.host":     "acme.example.com",
	} {
		if attrs[key] != want {
			t.Fatalf("attribute %s = %q, want %q", key, attrs[key], want)
		}
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://acme.example.com/boom", nil))
	spans = recorder.Ended()
	last := spans[len(spans)-1]
	if last.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", last.Status())
	}
	if len(last.Events()) == 0 || attrMap(last.Events()[0].Attributes)["exception.message"] != "redacted error" {
		t.Fatalf("expected redacted error event, got %v", last.Events())
	}
}
