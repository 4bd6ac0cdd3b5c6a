// Package domain contains the activity log model and its contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivitySignUp           ActivityType = "SIGN_UP"
	ActivitySignIn           ActivityType = "SIGN_IN"
	ActivitySignOut          ActivityType = "SIGN_OUT"
	ActivityUpdatePassword   ActivityType = "UPDATE_PASSWORD"
	ActivityDeleteAccount    ActivityType = "DELETE_ACCOUNT"
	ActivityUpdateAccount    ActivityType = "UPDATE_ACCOUNT"
	ActivityCreateTeam       ActivityType = "CREATE_TEAM"
	ActivityRemoveTeamMember ActivityType = "REMOVE_TEAM_MEMBER"
	ActivityInviteTeamMember ActivityType = "INVITE_TEAM_MEMBER"
	ActivityAcceptInvitation ActivityType = "ACCEPT_INVITATION"

	ActivityUpdateMemberRole   ActivityType = "UPDATE_MEMBER_ROLE"
	ActivityAddCustomDomain    ActivityType = "ADD_CUSTOM_DOMAIN"
	ActivityVerifyCustomDomain ActivityType = "VERIFY_CUSTOM_DOMAIN"
	ActivityUpdateSubscription ActivityType = "UPDATE_SUBSCRIPTION"
	ActivityPermissionDenied   ActivityType = "PERMISSION_DENIED"
)

var activityTypes = map[ActivityType]struct{}{
	ActivitySignUp: {}, ActivitySignIn: {}, ActivitySignOut: {},
	ActivityUpdatePassword: {}, ActivityDeleteAccount: {}, ActivityUpdateAccount: {},
	ActivityCreateTeam: {}, ActivityRemoveTeamMember: {}, ActivityInviteTeamMember: {},
	ActivityAcceptInvitation: {}, ActivityUpdateMemberRole: {}, ActivityAddCustomDomain: {},
	ActivityVerifyCustomDomain: {}, ActivityUpdateSubscription: {}, ActivityPermissionDenied: {},
}

func (a ActivityType) Valid() bool {
	_, ok := activityTypes[a]
	return ok
}

// ActivityLog is an append-only record of something a member did.
type ActivityLog struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrganizationID string            `gorm:"type:text;not null;index:idx_activity_logs_org_ts,priority:1" json:"organization_id"`
	UserID         *string           `gorm:"type:text;index" json:"user_id,omitempty"`
	Action         ActivityType      `gorm:"type:text;not null" json:"action"`
	IPAddress      *string           `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent      *string           `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	Timestamp      time.Time         `gorm:"not null;index:idx_activity_logs_org_ts,priority:2" json:"timestamp"`
}

// TableName sets the database table name.
func (ActivityLog) TableName() string { return "activity_logs" }

// ActivityEntry is an activity log joined with the acting member's name.
type ActivityEntry struct {
	ActivityLog
	UserName *string `gorm:"column:user_name" json:"user_name,omitempty"`
}

type ActivityCursor struct {
	ID        snowflake.ID
	Timestamp time.Time
}

type ListFilter struct {
	OrganizationID string
	Action         ActivityType
	UserID         string
	Cursor         *ActivityCursor
	Limit          int
}
