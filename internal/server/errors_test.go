package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/authflow"
	"github.com/smallbiznis/tenantly/internal/authorization"
	billingdomain "github.com/smallbiznis/tenantly/internal/billing/domain"
	invitationdomain "github.com/smallbiznis/tenantly/internal/invitation/domain"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/permission"
	"github.com/smallbiznis/tenantly/internal/ratelimit"
	"github.com/smallbiznis/tenantly/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"subdomain too short", organizationdomain.ErrSubdomainTooShort, http.StatusBadRequest, "validation_error"},
		{"reserved subdomain", organizationdomain.ErrSubdomainReserved, http.StatusBadRequest, "validation_error"},
		{"invalid role", invitationdomain.ErrInvalidRole, http.StatusBadRequest, "validation_error"},
		{"bad signature", fmt.Errorf("%w: no signatures found", billingdomain.ErrInvalidSignature), http.StatusBadRequest, "validation_error"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"bad credentials", authdomain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"denied", fmt.Errorf("%w: %w", authorization.ErrForbidden, permission.Assert(permission.RoleMember, permission.ManageBilling)), http.StatusForbidden, "forbidden"},
		{"bare denial", permission.Assert(permission.RoleMember, permission.ManageBilling), http.StatusForbidden, "forbidden"},
		{"organization missing", organizationdomain.ErrOrganizationNotFound, http.StatusNotFound, "not_found"},
		{"invitation missing", invitationdomain.ErrInvitationNotFound, http.StatusNotFound, "not_found"},
		{"record missing", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"subdomain taken", organizationdomain.ErrSubdomainTaken, http.StatusConflict, "conflict"},
		{"domain taken", organizationdomain.ErrCustomDomainTaken, http.StatusConflict, "conflict"},
		{"invitation accepted", invitationdomain.ErrInvitationNotPending, http.StatusConflict, "conflict"},
		{"rate limited", fmt.Errorf("%w: retry after 5s", ratelimit.ErrRateLimited), http.StatusTooManyRequests, "rate_limited"},
		{"gateway", fmt.Errorf("%w: timeout", billingdomain.ErrGateway), http.StatusBadGateway, "external_service_error"},
		{"resolver", fmt.Errorf("%w: dial tcp", tenant.ErrResolverUnavailable), http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}

func TestMapErrorHidesDeniedPermission(t *testing.T) {
	_, payload := mapError(permission.Assert(permission.RoleMember, permission.ManageBilling))
	require.Equal(t, "forbidden", payload.Message)
	require.Empty(t, payload.Errors)
}

func TestValidationErrorPayload(t *testing.T) {
	_, payload := mapError(organizationdomain.ErrSubdomainTooShort)
	require.Len(t, payload.Errors, 1)
	require.Equal(t, "subdomain", payload.Errors[0].Field)
	require.Equal(t, "subdomain_too_short", payload.Errors[0].Code)
}

func TestErrorHandlingMiddlewareRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, organizationdomain.ErrSubdomainTaken)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusConflict, resp.Code)
	require.JSONEq(t, `{"error":{"type":"conflict","message":"conflict"}}`, resp.Body.String())
}

func TestMapFailureStatuses(t *testing.T) {
	cases := map[authflow.FailureKind]int{
		authflow.FailureValidation:                 http.StatusBadRequest,
		authflow.FailureInvalidCredentials:         http.StatusUnauthorized,
		authflow.FailureProfileNotFound:            http.StatusNotFound,
		authflow.FailureInvalidOrExpiredInvitation: http.StatusConflict,
		authflow.FailureSubdomainTaken:             http.StatusConflict,
		authflow.FailureRateLimited:                http.StatusTooManyRequests,
		authflow.FailureExternalService:            http.StatusBadGateway,
		authflow.FailureIdentityCreationFailed:     http.StatusInternalServerError,
		authflow.FailureSignOutFailed:              http.StatusInternalServerError,
	}
	for kind, want := range cases {
		status, payload := mapFailure(&authflow.Failure{Kind: kind, Message: "msg"})
		assert.Equal(t, want, status, kind)
		assert.Equal(t, "msg", payload.Message)
	}

	_, payload := mapFailure(&authflow.Failure{Kind: authflow.FailureValidation, Message: "Name is required.", Field: "name"})
	require.Len(t, payload.Errors, 1)
	require.Equal(t, "name", payload.Errors[0].Field)
}
