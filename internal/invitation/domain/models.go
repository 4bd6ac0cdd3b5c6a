// Package domain contains the invitation model and its contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantly/internal/permission"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// Invitation grants a named email the right to join one organization once.
type Invitation struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID string       `gorm:"type:text;not null;index" json:"organization_id"`
	Email          string       `gorm:"type:varchar(255);not null;index" json:"email"`
	Role           string       `gorm:"type:varchar(20);not null" json:"role"`
	InvitedBy      string       `gorm:"type:text;not null" json:"invited_by"`
	Status         Status       `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	InvitedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"invited_at"`
	AcceptedAt     *time.Time   `json:"accepted_at,omitempty"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

type CreateRequest struct {
	OrganizationID string
	InvitedBy      string
	InviterRole    permission.Role
	Email          string
	Role           string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, inv Invitation) error
	FindByID(ctx context.Context, id snowflake.ID) (*Invitation, error)
	FindPendingByEmail(ctx context.Context, orgID, email string) (*Invitation, error)
	ListPending(ctx context.Context, orgID string) ([]Invitation, error)
	// MarkAccepted flips a pending invitation to accepted in one conditional
	// write and reports whether this call won.
	MarkAccepted(ctx context.Context, id snowflake.ID, at time.Time) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invitation, error)
	ListPending(ctx context.Context, orgID string) ([]Invitation, error)
	// GetPending returns the invitation only when id, email and pending
	// status all match.
	GetPending(ctx context.Context, id string, email string) (*Invitation, error)
	Accept(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidRole          = errors.New("invalid_role")
	ErrInvitationNotFound   = errors.New("invitation_not_found")
	ErrInvitationNotPending = errors.New("invitation_not_pending")
	ErrAlreadyInvited       = errors.New("already_invited")
	ErrRoleNotAssignable    = errors.New("role_not_assignable")
)
