package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	auditcontext "github.com/smallbiznis/tenantly/internal/auditcontext"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	obscontext "github.com/smallbiznis/tenantly/internal/observability/context"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"github.com/smallbiznis/tenantly/internal/tenant"
)

const (
	HeaderOrganizationID   = "X-Organization-ID"
	HeaderOrganizationName = "X-Organization-Name"

	contextOrgIDKey      = "org_id"
	contextIdentityIDKey = "identity_id"
	contextSessionKey    = "session"
	contextMembershipKey = "membership"

	loginPath = "/auth/login"
)

var bypassPrefixes = []string{
	"/_next",
	"/static",
	"/auth",
	"/api",
	"/sign-up",
	"/sign-in",
	"/blog",
	"/pricing",
	"/health",
	"/metrics",
}

func bypassGate(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range bypassPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// AccessGate authenticates the caller, resolves the tenant from the Host
// header and annotates the request. Public paths skip it entirely.
func (s *Server) AccessGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if bypassGate(c.Request.URL.Path) {
			c.Next()
			return
		}

		sess, ok := s.loadSession(c)
		if !ok {
			c.Redirect(http.StatusFound, loginRedirect(c.Request.URL))
			c.Abort()
			return
		}

		t, err := s.resolver.Resolve(c.Request.Context(), c.Request.Host)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if t == nil {
			if tenant.Classify(c.Request.Host, s.cfg.RootDomain) != tenant.HostPublic {
				c.Redirect(http.StatusFound, "/")
				c.Abort()
				return
			}
			s.annotateIdentity(c, sess)
			c.Next()
			return
		}

		s.annotateIdentity(c, sess)
		annotateOrganization(c, t.OrganizationID, t.Name)
		c.Next()
	}
}

// SessionRequired rejects requests without a valid session cookie. It is
// used on routes the gate bypasses.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sessionFromContext(c); ok {
			c.Next()
			return
		}
		sess, ok := s.loadSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		s.annotateIdentity(c, sess)
		c.Next()
	}
}

func (s *Server) loadSession(c *gin.Context) (*authdomain.Session, bool) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return nil, false
	}
	sess, err := s.provider.GetSession(c.Request.Context(), token)
	if err != nil || sess == nil {
		return nil, false
	}
	return sess, true
}

func (s *Server) annotateIdentity(c *gin.Context, sess *authdomain.Session) {
	ctx := c.Request.Context()
	ctx = auditcontext.WithActor(ctx, "user", sess.IdentityID)
	ctx = obscontext.WithActor(ctx, "user", sess.IdentityID)
	c.Request = c.Request.WithContext(ctx)

	c.Set(contextSessionKey, sess)
	c.Set(contextIdentityIDKey, sess.IdentityID)
}

func annotateOrganization(c *gin.Context, id, name string) {
	ctx := c.Request.Context()
	ctx = orgcontext.WithOrganization(ctx, id, name)
	ctx = obscontext.WithOrgID(ctx, id)
	c.Request = c.Request.WithContext(ctx)

	c.Request.Header.Set(HeaderOrganizationID, id)
	c.Request.Header.Set(HeaderOrganizationName, name)
	c.Header(HeaderOrganizationID, id)
	c.Header(HeaderOrganizationName, name)
	c.Set(contextOrgIDKey, id)
}

func loginRedirect(u *url.URL) string {
	original := u.Path
	if u.RawQuery != "" {
		original += "?" + u.RawQuery
	}
	return loginPath + "?redirect=" + url.QueryEscape(original)
}

func sessionFromContext(c *gin.Context) (*authdomain.Session, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*authdomain.Session)
	return sess, ok && sess != nil
}

func membershipFromContext(c *gin.Context) (*organizationdomain.Membership, bool) {
	value, ok := c.Get(contextMembershipKey)
	if !ok {
		return nil, false
	}
	membership, ok := value.(*organizationdomain.Membership)
	return membership, ok && membership != nil
}
