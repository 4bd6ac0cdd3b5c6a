package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	leaddomain "github.com/smallbiznis/tenantly/internal/lead/domain"
)

func (s *Server) ListLeads(c *gin.Context) {
	leads, err := s.leadSvc.ListLeads(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": leads})
}

func (s *Server) CreateLead(c *gin.Context) {
	var req leaddomain.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lead, err := s.leadSvc.CreateLead(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": lead})
}

func (s *Server) ListCampaigns(c *gin.Context) {
	campaigns, err := s.leadSvc.ListCampaigns(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": campaigns})
}

func (s *Server) CreateCampaign(c *gin.Context) {
	var req leaddomain.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	campaign, err := s.leadSvc.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": campaign})
}

func (s *Server) ListLeadPages(c *gin.Context) {
	pages, err := s.leadSvc.ListPages(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pages})
}

func (s *Server) CreateLeadPage(c *gin.Context) {
	var req leaddomain.CreatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := s.leadSvc.CreatePage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": page})
}
