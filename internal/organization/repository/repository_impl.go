package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, subdomain, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Subdomain,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrSubdomainTaken
	}
	return err
}

func (r *repository) DeleteOrganization(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Exec(`DELETE FROM organizations WHERE id = ?`, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*domain.Organization, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindBySubdomain(ctx context.Context, subdomain string) (*domain.Organization, error) {
	return r.findOne(ctx, "subdomain = ?", subdomain)
}

func (r *repository) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Organization{}).
		Where("subdomain = ?", subdomain).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByVerifiedCustomDomain(ctx context.Context, host string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.*
		 FROM organizations o
		 JOIN custom_domains d ON d.organization_id = o.id
		 WHERE d.domain = ? AND d.verified = ?
		 LIMIT 1`,
		host,
		true,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == "" {
		return nil, domain.ErrOrganizationNotFound
	}
	return &org, nil
}

func (r *repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.Organization, error) {
	return r.findOne(ctx, "stripe_customer_id = ?", customerID)
}

func (r *repository) SetStripeCustomerID(ctx context.Context, orgID, customerID string) error {
	err := r.updateOrganization(ctx, orgID, map[string]any{"stripe_customer_id": customerID})
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrStripeCustomerTaken
	}
	return err
}

func (r *repository) UpdateSubscription(ctx context.Context, orgID string, update domain.SubscriptionUpdate) error {
	fields := map[string]any{
		"stripe_subscription_id": update.SubscriptionID,
		"subscription_status":    update.Status,
	}
	if update.ProductID != nil {
		fields["stripe_product_id"] = *update.ProductID
	}
	if update.PlanName != nil {
		fields["plan_name"] = *update.PlanName
	}
	if update.SubscriptionID == nil {
		fields["stripe_product_id"] = nil
		fields["plan_name"] = nil
	}
	return r.updateOrganization(ctx, orgID, fields)
}

func (r *repository) UpdateName(ctx context.Context, orgID, name string) error {
	return r.updateOrganization(ctx, orgID, map[string]any{"name": name})
}

func (r *repository) SetCustomDomain(ctx context.Context, orgID string, host *string) error {
	err := r.updateOrganization(ctx, orgID, map[string]any{"custom_domain": host})
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrCustomDomainTaken
	}
	return err
}

func (r *repository) CreateProfile(ctx context.Context, profile domain.Profile) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO profiles (id, organization_id, email, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.OrganizationID,
		profile.Email,
		profile.Name,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Error
}

func (r *repository) DeleteProfile(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *repository) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListProfiles(ctx context.Context, orgID string) ([]domain.Profile, error) {
	var profiles []domain.Profile
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) UpdateProfileRole(ctx context.Context, orgID, profileID, role string) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ? AND organization_id = ?", profileID, orgID).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *repository) CreateCustomDomain(ctx context.Context, d domain.CustomDomain) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO custom_domains (id, organization_id, domain, verification_code, verified, is_primary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.OrganizationID,
		d.Domain,
		d.VerificationCode,
		false,
		false,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrCustomDomainTaken
	}
	return err
}

func (r *repository) FindCustomDomain(ctx context.Context, orgID string, id snowflake.ID) (*domain.CustomDomain, error) {
	var d domain.CustomDomain
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCustomDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListCustomDomains(ctx context.Context, orgID string) ([]domain.CustomDomain, error) {
	var domains []domain.CustomDomain
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&domains).Error
	if err != nil {
		return nil, err
	}
	return domains, nil
}

func (r *repository) MarkCustomDomainVerified(ctx context.Context, id snowflake.ID, verifiedAt time.Time, primary bool) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.CustomDomain{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verified":    true,
			"verified_at": verifiedAt,
			"is_primary":  primary,
			"updated_at":  verifiedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrCustomDomainNotFound
	}
	return nil
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where(query, args...).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) updateOrganization(ctx context.Context, orgID string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	tx := r.db.WithContext(ctx).
		Model(&domain.Organization{}).
		Where("id = ?", orgID).
		Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}
