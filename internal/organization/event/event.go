package event

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrganizationCreatedTopic  = "organization.created"
	OrganizationDeletedTopic  = "organization.deleted"
	CustomDomainVerifiedTopic = "organization.custom_domain_verified"
	SubscriptionChangedTopic  = "organization.subscription_changed"
)

var ErrMissingOrganization = errors.New("missing organization_id")

// OutboxEvent is a domain event persisted for asynchronous delivery.
type OutboxEvent struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	OrganizationID string         `gorm:"type:text;not null;index"`
	Topic          string         `gorm:"type:text;not null;index"`
	Payload        datatypes.JSON `gorm:"type:jsonb;not null"`
	Published      bool           `gorm:"not null;default:false;index"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OutboxEvent) TableName() string { return "outbox_events" }

type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node) EventPublisher {
	return &outboxPublisher{
		db:    db,
		genID: genID,
	}
}

type envelope struct {
	OrganizationID string `json:"organization_id"`
}

// Publish writes payload to the outbox. The payload must carry an
// organization_id field.
func (p *outboxPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	var parsed envelope
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return err
	}

	orgID := strings.TrimSpace(parsed.OrganizationID)
	if orgID == "" {
		return ErrMissingOrganization
	}

	return p.db.WithContext(ctx).Exec(
		`INSERT INTO outbox_events (id, organization_id, topic, payload, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.genID.Generate(),
		orgID,
		topic,
		datatypes.JSON(payload),
		false,
		time.Now().UTC(),
	).Error
}
