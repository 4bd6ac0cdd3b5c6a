// Package domain contains persistence models for tenants and their members.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization represents a tenant.
type Organization struct {
	ID                   string    `gorm:"type:text;primaryKey" json:"id"`
	Name                 string    `gorm:"type:varchar(100);not null" json:"name"`
	Subdomain            string    `gorm:"type:varchar(63);not null;uniqueIndex:ux_organizations_subdomain" json:"subdomain"`
	CustomDomain         *string   `gorm:"type:text;uniqueIndex:ux_organizations_custom_domain" json:"custom_domain,omitempty"`
	StripeCustomerID     *string   `gorm:"type:text;uniqueIndex:ux_organizations_stripe_customer" json:"-"`
	StripeSubscriptionID *string   `gorm:"type:text;uniqueIndex:ux_organizations_stripe_subscription" json:"-"`
	StripeProductID      *string   `gorm:"type:text" json:"-"`
	PlanName             *string   `gorm:"type:varchar(50)" json:"plan_name,omitempty"`
	SubscriptionStatus   *string   `gorm:"type:varchar(20)" json:"subscription_status,omitempty"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Profile is a member identity. Its id matches the identity provider's id.
type Profile struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID string    `gorm:"type:text;not null;index" json:"organization_id"`
	Email          string    `gorm:"type:varchar(255);not null" json:"email"`
	Name           string    `gorm:"type:varchar(100)" json:"name"`
	AvatarURL      *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	Role           string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }

// CustomDomain is a customer-owned hostname awaiting or holding DNS proof.
type CustomDomain struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID   string       `gorm:"type:text;not null;index" json:"organization_id"`
	Domain           string       `gorm:"type:varchar(253);not null;uniqueIndex:ux_custom_domains_domain" json:"domain"`
	VerificationCode string       `gorm:"type:text;not null" json:"verification_code"`
	Verified         bool         `gorm:"not null;default:false" json:"verified"`
	IsPrimary        bool         `gorm:"column:is_primary;not null;default:false" json:"primary"`
	VerifiedAt       *time.Time   `json:"verified_at,omitempty"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CustomDomain) TableName() string { return "custom_domains" }

// SubscriptionUpdate carries the billing columns written on reconciliation.
// A nil SubscriptionID clears the stored subscription.
type SubscriptionUpdate struct {
	SubscriptionID *string
	Status         string
	ProductID      *string
	PlanName       *string
}
