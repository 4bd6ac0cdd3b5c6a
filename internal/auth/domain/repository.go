package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	Delete(ctx context.Context, id string) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *IdentitySession) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*IdentitySession, error)
	UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error
	RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error
	RevokeIdentitySessions(ctx context.Context, identityID string, revokedAt time.Time) error
}
