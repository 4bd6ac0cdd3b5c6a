package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "01HX"),
		attribute.String("email", "a@example.com"),
		attribute.String("result", "ok"),
		attribute.String("branch", "invitation"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "org_id" || attr.Key == "email" {
			t.Fatalf("unexpected high-cardinality label %s", attr.Key)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordSignIn(context.Background(), "ok")
	m.RecordSignUp(context.Background(), "new_org", "ok")
	m.RecordWebhookEvent(context.Background(), "stripe", "customer.subscription.updated")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "tenantly"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordPermissionDenied(context.Background(), "manage_billing")
	m.RecordRateLimitDenied(context.Background(), "sign_in")
}
