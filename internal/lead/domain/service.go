package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type CreateLeadRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Message      *string `json:"message"`
	AssignedTo   *string `json:"assigned_to"`
	FollowUpDate *string `json:"follow_up_date"`
}

type CreateCampaignStep struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Delay   int    `json:"delay"`
}

type CreateCampaignRequest struct {
	Name         string               `json:"name"`
	TriggerEvent *string              `json:"trigger_event"`
	Steps        []CreateCampaignStep `json:"steps"`
}

type CreatePageRequest struct {
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	MetaDescription *string `json:"meta_description"`
	City            *string `json:"city"`
	State           *string `json:"state"`
	Country         *string `json:"country"`
	ZipCode         *string `json:"zip_code"`
	Content         string  `json:"content"`
	Published       bool    `json:"published"`
}

// Service operations are scoped to the organization in the request context.
type Service interface {
	CreateLead(ctx context.Context, req CreateLeadRequest) (*Lead, error)
	ListLeads(ctx context.Context) ([]Lead, error)
	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*DripCampaign, error)
	ListCampaigns(ctx context.Context) ([]DripCampaign, error)
	CreatePage(ctx context.Context, req CreatePageRequest) (*LeadPage, error)
	ListPages(ctx context.Context) ([]LeadPage, error)
}

type Repository interface {
	InsertLead(ctx context.Context, db *gorm.DB, lead *Lead) error
	ListLeads(ctx context.Context, db *gorm.DB, orgID string) ([]Lead, error)
	InsertCampaign(ctx context.Context, db *gorm.DB, campaign *DripCampaign) error
	ListCampaigns(ctx context.Context, db *gorm.DB, orgID string) ([]DripCampaign, error)
	InsertPage(ctx context.Context, db *gorm.DB, page *LeadPage) error
	ListPages(ctx context.Context, db *gorm.DB, orgID string) ([]LeadPage, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidLead         = errors.New("invalid_lead")
	ErrInvalidCampaign     = errors.New("invalid_campaign")
	ErrInvalidStep         = errors.New("invalid_campaign_step")
	ErrInvalidPage         = errors.New("invalid_lead_page")
	ErrSlugTaken           = errors.New("slug_taken")
)
