package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/smallbiznis/tenantly/internal/authflow"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/permission"
)

type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Redirect string `form:"redirect" json:"redirect"`
	PriceID  string `form:"priceId" json:"price_id"`
}

type SignUpRequest struct {
	Email            string `form:"email" json:"email"`
	Password         string `form:"password" json:"password"`
	Name             string `form:"name" json:"name"`
	OrganizationName string `form:"organizationName" json:"organization_name"`
	Subdomain        string `form:"subdomain" json:"subdomain"`
	InviteID         string `form:"inviteId" json:"invite_id"`
	Redirect         string `form:"redirect" json:"redirect"`
	PriceID          string `form:"priceId" json:"price_id"`
}

type authResponse struct {
	RedirectURL string `json:"redirect_url"`
}

func (s *Server) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, failure := s.authflow.SignIn(c.Request.Context(), authflow.SignInRequest{
		Email:     req.Email,
		Password:  req.Password,
		Redirect:  req.Redirect,
		PriceID:   req.PriceID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	s.renderAuthResult(c, result, failure)
}

func (s *Server) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, failure := s.authflow.SignUp(c.Request.Context(), authflow.SignUpRequest{
		Email:            req.Email,
		Password:         req.Password,
		Name:             req.Name,
		OrganizationName: req.OrganizationName,
		Subdomain:        req.Subdomain,
		InviteID:         req.InviteID,
		Redirect:         req.Redirect,
		PriceID:          req.PriceID,
		IPAddress:        c.ClientIP(),
		UserAgent:        c.Request.UserAgent(),
	})
	s.renderAuthResult(c, result, failure)
}

func (s *Server) SignOut(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	// The cookie goes regardless of what the provider says.
	s.sessions.Clear(c)
	if !ok {
		s.renderAuthResult(c, &authflow.Result{Kind: authflow.ResultSignedOut, RedirectURL: "/"}, nil)
		return
	}

	req := authflow.SignOutRequest{Token: token}
	if sess, err := s.provider.GetSession(c.Request.Context(), token); err == nil && sess != nil {
		req.ProfileID = sess.IdentityID
		if membership, err := s.orgSvc.LoadMembership(c.Request.Context(), sess.IdentityID); err == nil {
			req.OrganizationID = membership.Organization.ID
		}
	}

	result, failure := s.authflow.SignOut(c.Request.Context(), req)
	s.renderAuthResult(c, result, failure)
}

type sessionResponse struct {
	IdentityID   string                           `json:"identity_id"`
	Email        string                           `json:"email"`
	ExpiresAt    string                           `json:"expires_at"`
	Organization *organizationdomain.Organization `json:"organization,omitempty"`
	Profile      *organizationdomain.Profile      `json:"profile,omitempty"`
	Permissions  []permission.Permission          `json:"permissions"`
}

func (s *Server) CurrentSession(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp := sessionResponse{
		IdentityID:  sess.IdentityID,
		Email:       sess.Email,
		ExpiresAt:   sess.ExpiresAt.UTC().Format(time.RFC3339),
		Permissions: []permission.Permission{},
	}

	membership, err := s.orgSvc.LoadMembership(c.Request.Context(), sess.IdentityID)
	switch {
	case err == nil:
		resp.Organization = &membership.Organization
		resp.Profile = &membership.Profile
		resp.Permissions = permission.PermissionsFor(permission.Role(membership.Profile.Role))
	case errors.Is(err, organizationdomain.ErrProfileNotFound),
		errors.Is(err, organizationdomain.ErrOrganizationNotFound):
	default:
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// renderAuthResult persists any issued session and answers with either a
// JSON body or a browser redirect, depending on how the form was posted.
func (s *Server) renderAuthResult(c *gin.Context, result *authflow.Result, failure *authflow.Failure) {
	if failure != nil {
		status, payload := mapFailure(failure)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
		return
	}

	s.sessions.Set(c, result.Session)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, authResponse{RedirectURL: result.RedirectURL})
		return
	}
	c.Redirect(http.StatusSeeOther, result.RedirectURL)
}

func mapFailure(f *authflow.Failure) (int, errorPayload) {
	payload := errorPayload{Type: string(f.Kind), Message: f.Message}
	if f.Field != "" {
		payload.Errors = []ValidationError{{Field: f.Field, Code: string(f.Kind), Message: f.Message}}
	}

	switch f.Kind {
	case authflow.FailureValidation:
		return http.StatusBadRequest, payload
	case authflow.FailureInvalidCredentials:
		return http.StatusUnauthorized, payload
	case authflow.FailureProfileNotFound, authflow.FailureOrganizationRequired:
		return http.StatusNotFound, payload
	case authflow.FailureInvalidOrExpiredInvitation, authflow.FailureSubdomainTaken:
		return http.StatusConflict, payload
	case authflow.FailureRateLimited:
		return http.StatusTooManyRequests, payload
	case authflow.FailureExternalService:
		return http.StatusBadGateway, payload
	default:
		return http.StatusInternalServerError, payload
	}
}

func wantsJSON(c *gin.Context) bool {
	if c.ContentType() == binding.MIMEJSON {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), binding.MIMEJSON)
}
