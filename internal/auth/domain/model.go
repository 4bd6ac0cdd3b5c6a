// Package domain contains core types for the identity provider.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Identity is an authenticated principal. Its id doubles as the profile id.
type Identity struct {
	ID           string            `gorm:"type:text;primaryKey"`
	Email        string            `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;type:text;not null"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Identity) TableName() string { return "identities" }

// IdentitySession is a persisted login session. Only the token hash is stored.
type IdentitySession struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	IdentityID string       `gorm:"column:identity_id;type:text;not null;index"`
	TokenHash  string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	UserAgent  string       `gorm:"column:user_agent;type:text"`
	IPAddress  string       `gorm:"column:ip_address;type:text"`
	ExpiresAt  time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt  *time.Time   `gorm:"column:revoked_at"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (IdentitySession) TableName() string { return "identity_sessions" }

// Metadata is passed through on sign-up so the identity can be tied to a tenant.
type Metadata struct {
	Name           string
	OrganizationID string
}

func (m Metadata) toMap() datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.OrganizationID != "" {
		out["organization_id"] = m.OrganizationID
	}
	return out
}

// JSON returns the metadata in its stored form.
func (m Metadata) JSON() datatypes.JSONMap { return m.toMap() }

// Session is returned to callers after sign-in, sign-up or token verification.
type Session struct {
	ID         snowflake.ID
	IdentityID string
	Email      string
	Metadata   map[string]any
	Token      string
	ExpiresAt  time.Time
}

// OrganizationID returns the organization id recorded at sign-up, if any.
func (s *Session) OrganizationID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	value, _ := s.Metadata["organization_id"].(string)
	return value
}
