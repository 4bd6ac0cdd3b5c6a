package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const LeadStatusNew = "new"

type Lead struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID string       `gorm:"type:text;not null;index" json:"organization_id"`
	Name           *string      `gorm:"type:varchar(255)" json:"name,omitempty"`
	Email          *string      `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          *string      `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Message        *string      `gorm:"type:text" json:"message,omitempty"`
	AssignedTo     *string      `gorm:"type:text" json:"assigned_to,omitempty"`
	Status         string       `gorm:"type:varchar(20);not null;default:'new'" json:"status"`
	FollowUpDate   *time.Time   `json:"follow_up_date,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

type DripCampaign struct {
	ID             snowflake.ID       `gorm:"primaryKey" json:"id"`
	OrganizationID string             `gorm:"type:text;not null;index" json:"organization_id"`
	Name           string             `gorm:"type:varchar(255);not null" json:"name"`
	TriggerEvent   *string            `gorm:"type:varchar(50)" json:"trigger_event,omitempty"`
	Steps          []DripCampaignStep `gorm:"foreignKey:CampaignID" json:"steps"`
	CreatedAt      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DripCampaign) TableName() string { return "drip_campaigns" }

// DripCampaignStep is one message in a campaign. Delay is in hours after the
// previous step.
type DripCampaignStep struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CampaignID snowflake.ID `gorm:"not null;index" json:"campaign_id"`
	Type       string       `gorm:"type:varchar(20);not null" json:"type"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	Delay      int          `gorm:"not null" json:"delay"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DripCampaignStep) TableName() string { return "drip_campaign_steps" }

type LeadPage struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID  string       `gorm:"type:text;not null;uniqueIndex:ux_lead_pages_org_slug" json:"organization_id"`
	Slug            string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_lead_pages_org_slug" json:"slug"`
	Title           string       `gorm:"type:varchar(255);not null" json:"title"`
	MetaDescription *string      `gorm:"type:text" json:"meta_description,omitempty"`
	City            *string      `gorm:"type:varchar(100)" json:"city,omitempty"`
	State           *string      `gorm:"type:varchar(100)" json:"state,omitempty"`
	Country         *string      `gorm:"type:varchar(100)" json:"country,omitempty"`
	ZipCode         *string      `gorm:"type:varchar(20)" json:"zip_code,omitempty"`
	GeoJSON         *string      `gorm:"column:geo_json;type:text" json:"geo_json,omitempty"`
	SchemaMarkup    *string      `gorm:"type:text" json:"schema_markup,omitempty"`
	Content         string       `gorm:"type:text;not null" json:"content"`
	Published       bool         `gorm:"not null;default:false" json:"published"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (LeadPage) TableName() string { return "lead_pages" }
