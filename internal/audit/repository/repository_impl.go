package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/tenantly/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ActivityLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO activity_logs (
			id, organization_id, user_id, action, ip_address, user_agent, metadata, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrganizationID,
		entry.UserID,
		entry.Action,
		entry.IPAddress,
		entry.UserAgent,
		entry.Metadata,
		entry.Timestamp,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ActivityEntry, error) {
	var entries []*domain.ActivityEntry
	stmt := db.WithContext(ctx).
		Table("activity_logs AS a").
		Select(`a.id, a.organization_id, a.user_id, a.action, a.ip_address, a.user_agent,
			a.metadata, a.timestamp, p.name AS user_name`).
		Joins("LEFT JOIN profiles p ON p.id = a.user_id").
		Where("a.organization_id = ?", filter.OrganizationID)

	if action := strings.TrimSpace(string(filter.Action)); action != "" {
		stmt = stmt.Where("a.action = ?", action)
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		stmt = stmt.Where("a.user_id = ?", userID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(a.timestamp < ?) OR (a.timestamp = ? AND a.id < ?)",
			filter.Cursor.Timestamp,
			filter.Cursor.Timestamp,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("a.timestamp desc, a.id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
