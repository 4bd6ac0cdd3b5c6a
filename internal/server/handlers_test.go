package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tenantly/internal/auth/session"
	billingdomain "github.com/smallbiznis/tenantly/internal/billing/domain"
	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBillingService struct {
	billingdomain.Service
	payloads  [][]byte
	completed []string
}

func (f *fakeBillingService) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	if signature != "t=1,v1=good" {
		return billingdomain.ErrInvalidSignature
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeBillingService) CompleteCheckout(_ context.Context, sessionID string) (billingdomain.Redirect, error) {
	f.completed = append(f.completed, sessionID)
	return billingdomain.Redirect{URL: "https://acme.example.com/dashboard"}, nil
}

func newHandlerRouter(t *testing.T, billing *fakeBillingService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{RootDomain: "example.com"}
	srv := &Server{
		cfg:        cfg,
		log:        zap.NewNop(),
		sessions:   session.NewManager(cfg),
		billingSvc: billing,
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/stripe/webhook", srv.StripeWebhook)
	router.GET("/api/stripe/checkout", srv.CompleteCheckout)
	router.POST("/auth/sign-out", srv.SignOut)
	return router
}

func TestStripeWebhookRequiresSignature(t *testing.T) {
	billing := &fakeBillingService{}
	router := newHandlerRouter(t, billing)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Empty(t, billing.payloads)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	billing := &fakeBillingService{}
	router := newHandlerRouter(t, billing)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`))
	req.Header.Set(stripeSignatureHeader, "t=1,v1=bad")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_webhook_signature")
}

func TestStripeWebhookAcknowledges(t *testing.T) {
	billing := &fakeBillingService{}
	router := newHandlerRouter(t, billing)

	body := `{"type":"customer.subscription.updated"}`
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(body))
	req.Header.Set(stripeSignatureHeader, "t=1,v1=good")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"received":true}`, resp.Body.String())
	require.Len(t, billing.payloads, 1)
	require.Equal(t, body, string(billing.payloads[0]))
}

func TestCompleteCheckoutWithoutSessionGoesToPricing(t *testing.T) {
	billing := &fakeBillingService{}
	router := newHandlerRouter(t, billing)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/stripe/checkout", nil))

	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/pricing", resp.Header().Get("Location"))
	require.Empty(t, billing.completed)
}

func TestCompleteCheckoutRedirectsToTenant(t *testing.T) {
	billing := &fakeBillingService{}
	router := newHandlerRouter(t, billing)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/stripe/checkout?session_id=cs_test_1", nil))

	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "https://acme.example.com/dashboard", resp.Header().Get("Location"))
	require.Equal(t, []string{"cs_test_1"}, billing.completed)
}

func TestSignOutWithoutCookieClearsAndRedirects(t *testing.T) {
	router := newHandlerRouter(t, &fakeBillingService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	req.Header.Set("Accept", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"redirect_url":"/"}`, resp.Body.String())

	cookie := resp.Header().Get("Set-Cookie")
	require.Contains(t, cookie, session.DefaultCookieName+"=;")
	require.Contains(t, cookie, "Max-Age=0")
}
