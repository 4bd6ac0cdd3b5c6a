package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/tenantly/pkg/db/pagination"
	"gorm.io/gorm"
)

type RecordRequest struct {
	OrganizationID string
	UserID         string
	Action         ActivityType
	Metadata       map[string]any
}

type ListActivityRequest struct {
	pagination.Pagination
	Action string `form:"action"`
	UserID string `form:"user_id"`
}

type ListActivityResponse struct {
	pagination.PageInfo
	Activities []ActivityEntry `json:"activities"`
}

type Service interface {
	// Record appends an activity. An empty organization id makes it a no-op.
	Record(ctx context.Context, req RecordRequest) error
	List(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ActivityEntry, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrInvalidAction       = errors.New("invalid_action")
)
