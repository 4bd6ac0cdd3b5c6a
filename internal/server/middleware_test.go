package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/auth/session"
	"github.com/smallbiznis/tenantly/internal/authorization"
	"github.com/smallbiznis/tenantly/internal/config"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"github.com/smallbiznis/tenantly/internal/permission"
	"github.com/smallbiznis/tenantly/internal/tenant"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	authdomain.Provider
	sessions map[string]*authdomain.Session
}

func (f *fakeProvider) GetSession(_ context.Context, token string) (*authdomain.Session, error) {
	sess, ok := f.sessions[token]
	if !ok {
		return nil, authdomain.ErrInvalidSession
	}
	return sess, nil
}

type fakeResolver struct {
	tenants map[string]*tenant.Tenant
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, host string) (*tenant.Tenant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants[host], nil
}

type fakeOrgService struct {
	organizationdomain.Service
	memberships map[string]*organizationdomain.Membership
}

func (f *fakeOrgService) LoadMembership(_ context.Context, identityID string) (*organizationdomain.Membership, error) {
	membership, ok := f.memberships[identityID]
	if !ok {
		return nil, organizationdomain.ErrProfileNotFound
	}
	return membership, nil
}

func membership(identityID, orgID, orgName string, role permission.Role) *organizationdomain.Membership {
	return &organizationdomain.Membership{
		Profile: organizationdomain.Profile{
			ID:             identityID,
			OrganizationID: orgID,
			Role:           string(role),
		},
		Organization: organizationdomain.Organization{
			ID:        orgID,
			Name:      orgName,
			Subdomain: orgName,
		},
	}
}

type gateFixture struct {
	router   *gin.Engine
	resolver *fakeResolver
}

func newGateFixture(t *testing.T, identities map[string]*organizationdomain.Membership) *gateFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer()
	require.NoError(t, err)

	resolver := &fakeResolver{tenants: map[string]*tenant.Tenant{
		"acme.example.com": {OrganizationID: "org-acme", Name: "Acme", Kind: tenant.HostSubdomain},
	}}

	sessions := map[string]*authdomain.Session{}
	for identityID := range identities {
		sessions[identityID] = &authdomain.Session{IdentityID: identityID, Email: identityID + "@example.com"}
	}

	cfg := config.Config{RootDomain: "example.com"}
	srv := &Server{
		cfg:      cfg,
		log:      zap.NewNop(),
		provider: &fakeProvider{sessions: sessions},
		sessions: session.NewManager(cfg),
		resolver: resolver,
		authzSvc: authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		orgSvc:   &fakeOrgService{memberships: identities},
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.Use(srv.AccessGate())
	router.GET("/dashboard", srv.RequirePermission(permission.AccessDashboard), func(c *gin.Context) {
		orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"org_id": orgID, "forwarded": c.Request.Header.Get(HeaderOrganizationID)})
	})
	router.GET("/dashboard/activity", srv.RequirePermission(permission.ViewAuditLogs), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/pricing", func(c *gin.Context) { c.Status(http.StatusOK) })

	return &gateFixture{router: router, resolver: resolver}
}

func (f *gateFixture) do(method, host, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Host = host
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestGateBypassesPublicPaths(t *testing.T) {
	f := newGateFixture(t, nil)

	resp := f.do(http.MethodGet, "acme.example.com", "/pricing", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, f.resolver.calls)
}

func TestGateRedirectsWithoutSession(t *testing.T) {
	f := newGateFixture(t, nil)

	resp := f.do(http.MethodGet, "acme.example.com", "/dashboard?tab=members", "")
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/auth/login?redirect=%2Fdashboard%3Ftab%3Dmembers", resp.Header().Get("Location"))
	require.Zero(t, f.resolver.calls)
}

func TestGateRedirectsUnknownTenantHome(t *testing.T) {
	f := newGateFixture(t, map[string]*organizationdomain.Membership{
		"id-1": membership("id-1", "org-acme", "acme", permission.RoleMember),
	})

	resp := f.do(http.MethodGet, "unknown.example.com", "/dashboard", "id-1")
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/", resp.Header().Get("Location"))
}

func TestGateFailsClosedWhenResolverUnavailable(t *testing.T) {
	f := newGateFixture(t, map[string]*organizationdomain.Membership{
		"id-1": membership("id-1", "org-acme", "acme", permission.RoleMember),
	})
	f.resolver.err = errors.Join(tenant.ErrResolverUnavailable, errors.New("connection refused"))

	resp := f.do(http.MethodGet, "acme.example.com", "/dashboard", "id-1")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestGateAnnotatesTenant(t *testing.T) {
	f := newGateFixture(t, map[string]*organizationdomain.Membership{
		"id-1": membership("id-1", "org-acme", "acme", permission.RoleMember),
	})

	resp := f.do(http.MethodGet, "acme.example.com", "/dashboard", "id-1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "org-acme", resp.Header().Get(HeaderOrganizationID))
	require.Equal(t, "Acme", resp.Header().Get(HeaderOrganizationName))
	require.JSONEq(t, `{"org_id":"org-acme","forwarded":"org-acme"}`, resp.Body.String())
}

func TestGatePublicHostUsesMembershipOrganization(t *testing.T) {
	f := newGateFixture(t, map[string]*organizationdomain.Membership{
		"id-1": membership("id-1", "org-acme", "acme", permission.RoleMember),
	})

	resp := f.do(http.MethodGet, "example.com", "/dashboard", "id-1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "org-acme", resp.Header().Get(HeaderOrganizationID))
}

func TestRequirePermissionRejectsForeignMember(t *testing.T) {
	f := newGateFixture(t, map[string]*organizationdomain.Membership{
		"id-2": membership("id-2", "org-globex", "globex", permission.RoleOwner),
	})

	resp := f.do(http.MethodGet, "acme.example.com", "/dashboard", "id-2")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequirePermissionDeniesMissingPermission(t *testing.T) {
	f := newGateFixture(t, map[string]*organizationdomain.Membership{
		"id-1": membership("id-1", "org-acme", "acme", permission.RoleMember),
	})

	resp := f.do(http.MethodGet, "acme.example.com", "/dashboard/activity", "id-1")
	require.Equal(t, http.StatusForbidden, resp.Code)
	require.JSONEq(t, `{"error":{"type":"forbidden","message":"forbidden"}}`, resp.Body.String())
}

func TestBypassGate(t *testing.T) {
	require.True(t, bypassGate("/"))
	require.True(t, bypassGate("/api/stripe/webhook"))
	require.True(t, bypassGate("/auth"))
	require.False(t, bypassGate("/authors"))
	require.False(t, bypassGate("/dashboard"))
}
