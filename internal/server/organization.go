package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/permission"
)

type dashboardResponse struct {
	Organization organizationdomain.Organization `json:"organization"`
	Profile      organizationdomain.Profile      `json:"profile"`
	Permissions  []permission.Permission         `json:"permissions"`
	Assignable   []permission.Role               `json:"assignable_roles"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type addDomainRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) GetDashboard(c *gin.Context) {
	membership, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	role := permission.Role(membership.Profile.Role)
	c.JSON(http.StatusOK, dashboardResponse{
		Organization: membership.Organization,
		Profile:      membership.Profile,
		Permissions:  permission.PermissionsFor(role),
		Assignable:   permission.AssignableRoles(role),
	})
}

func (s *Server) GetOrganization(c *gin.Context) {
	membership, ok := membershipFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	org, err := s.orgSvc.GetByID(c.Request.Context(), membership.Organization.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) UpdateOrganization(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req organizationdomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.orgSvc.UpdateSettings(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) ListMembers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	members, err := s.orgSvc.ListMembers(c.Request.Context(), actor.OrganizationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) ChangeMemberRole(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.orgSvc.ChangeMemberRole(c.Request.Context(), actor, strings.TrimSpace(c.Param("id")), req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (s *Server) RemoveMember(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.orgSvc.RemoveMember(c.Request.Context(), actor, strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListCustomDomains(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	domains, err := s.orgSvc.ListCustomDomains(c.Request.Context(), actor.OrganizationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": domains})
}

func (s *Server) AddCustomDomain(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	domain, err := s.orgSvc.AddCustomDomain(c.Request.Context(), actor, req.Domain)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": domain,
		"dns": gin.H{
			"type":  "TXT",
			"name":  organizationdomain.VerificationRecordPrefix + domain.Domain,
			"value": domain.VerificationCode,
		},
	})
}

func (s *Server) VerifyCustomDomain(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	domain, err := s.orgSvc.VerifyCustomDomain(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": domain})
}
