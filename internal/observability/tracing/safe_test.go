package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsCredentials(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/auth/sign-in"),
		attribute.String("email", "a@example.com"),
		attribute.String("Password", "hunter22"),
	)
	if len(attrs) != 1 || attrs[0].Key != "http.route" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestSafeErrorRedactsSecrets(t *testing.T) {
	if got := SafeError(errors.New("invalid session token abc")); got.Error() != "redacted error" {
		t.Fatalf("expected redaction, got %q", got.Error())
	}
	if got := SafeError(errors.New("db timeout")); got.Error() != "db timeout" {
		t.Fatalf("expected passthrough, got %q", got.Error())
	}
	if SafeError(nil) != nil {
		t.Fatal("expected nil")
	}
}
