package repository

import (
	"context"

	"github.com/smallbiznis/tenantly/internal/lead/domain"
	"github.com/smallbiznis/tenantly/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertLead(ctx context.Context, tx *gorm.DB, lead *domain.Lead) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO leads (id, organization_id, name, email, phone, message, assigned_to, status, follow_up_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID,
		lead.OrganizationID,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Message,
		lead.AssignedTo,
		lead.Status,
		lead.FollowUpDate,
		lead.CreatedAt,
		lead.UpdatedAt,
	).Error
}

func (r *repo) ListLeads(ctx context.Context, tx *gorm.DB, orgID string) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := tx.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&leads).Error
	return leads, err
}

func (r *repo) InsertCampaign(ctx context.Context, tx *gorm.DB, campaign *domain.DripCampaign) error {
	return tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO drip_campaigns (id, organization_id, name, trigger_event, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			campaign.ID,
			campaign.OrganizationID,
			campaign.Name,
			campaign.TriggerEvent,
			campaign.CreatedAt,
			campaign.UpdatedAt,
		).Error; err != nil {
			return err
		}
		for _, step := range campaign.Steps {
			if err := tx.Exec(
				`INSERT INTO drip_campaign_steps (id, campaign_id, type, content, delay, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				step.ID,
				step.CampaignID,
				step.Type,
				step.Content,
				step.Delay,
				step.CreatedAt,
				step.UpdatedAt,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) ListCampaigns(ctx context.Context, tx *gorm.DB, orgID string) ([]domain.DripCampaign, error) {
	var campaigns []domain.DripCampaign
	err := tx.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&campaigns).Error
	return campaigns, err
}

func (r *repo) InsertPage(ctx context.Context, tx *gorm.DB, page *domain.LeadPage) error {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO lead_pages (id, organization_id, slug, title, meta_description, city, state, country, zip_code, content, published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID,
		page.OrganizationID,
		page.Slug,
		page.Title,
		page.MetaDescription,
		page.City,
		page.State,
		page.Country,
		page.ZipCode,
		page.Content,
		page.Published,
		page.CreatedAt,
		page.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrSlugTaken
	}
	return err
}

func (r *repo) ListPages(ctx context.Context, tx *gorm.DB, orgID string) ([]domain.LeadPage, error) {
	var pages []domain.LeadPage
	err := tx.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&pages).Error
	return pages, err
}
