package scheduler

import (
	"context"
	"errors"

	"github.com/smallbiznis/tenantly/internal/organization/event"
	"go.uber.org/zap"
)

// PurgeSessionsJob deletes sessions that expired or were revoked longer ago
// than the retention window.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.cfg.SessionRetention)

	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM identity_sessions
		 WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)`,
		cutoff,
		cutoff,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// RelayOutboxJob hands unpublished outbox events to the publisher in id
// order and flags each one once delivered. A failed delivery stops the batch
// so later events never overtake it.
func (s *Scheduler) RelayOutboxJob(ctx context.Context) (int, error) {
	if s.publisher == nil {
		return 0, nil
	}

	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		var events []event.OutboxEvent
		err := s.db.WithContext(ctx).Raw(
			`SELECT id, organization_id, topic, payload, published, created_at
			 FROM outbox_events
			 WHERE published = ?
			 ORDER BY id ASC
			 LIMIT ?`,
			false,
			s.cfg.BatchSize,
		).Scan(&events).Error
		if err != nil {
			return processed, err
		}
		if len(events) == 0 {
			return processed, nil
		}

		for _, ev := range events {
			if err := s.publisher.Publish(ctx, OutboxMessage{
				ID:             ev.ID.String(),
				OrganizationID: ev.OrganizationID,
				Topic:          ev.Topic,
				Payload:        ev.Payload,
			}); err != nil {
				s.log.Warn("outbox publish failed",
					zap.String("event_id", ev.ID.String()),
					zap.String("topic", ev.Topic),
					zap.Error(err),
				)
				return processed, errors.Join(ErrPublishFailed, err)
			}

			if err := s.db.WithContext(ctx).Exec(
				`UPDATE outbox_events SET published = ? WHERE id = ?`,
				true,
				ev.ID,
			).Error; err != nil {
				return processed, err
			}
			processed++
		}

		if len(events) < s.cfg.BatchSize {
			return processed, nil
		}
	}
}
