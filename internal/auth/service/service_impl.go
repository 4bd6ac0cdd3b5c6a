package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/auth/password"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/config"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	minPasswordLength = 8
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Repo     domain.Repository
	Sessions domain.SessionRepository
	GenID    *snowflake.Node
	Clock    clock.Clock
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	sessions domain.SessionRepository
	genID    *snowflake.Node
	clock    clock.Clock
	secret   []byte
	issuer   string
	ttl      time.Duration
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func New(p Params) domain.Provider {
	ttl := p.Cfg.AuthSessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("auth.service"),
		repo:     p.Repo,
		sessions: p.Sessions,
		genID:    p.GenID,
		clock:    c,
		secret:   []byte(p.Cfg.AuthJWTSecret),
		issuer:   p.Cfg.AppName,
		ttl:      ttl,
	}
}

func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.Session, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, identity.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueSession(ctx, identity, req.UserAgent, req.IPAddress)
}

func (s *Service) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.Session, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		Metadata:     req.Metadata.JSON(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}

	session, err := s.issueSession(ctx, identity, req.UserAgent, req.IPAddress)
	if err != nil {
		// An identity is never left behind without a session.
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), identity.ID); delErr != nil {
			s.ctxLog(ctx).Warn("failed to remove identity after session error",
				zap.String("identity_id", identity.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrInvalidSession
	}

	stored, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if stored.IdentityID != claims.Subject {
		return nil, domain.ErrInvalidSession
	}

	now := s.clock.Now()
	if stored.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(stored.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	identity, err := s.repo.FindByID(ctx, stored.IdentityID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	if err := s.sessions.UpdateLastSeen(ctx, stored.ID, now); err != nil {
		s.ctxLog(ctx).Warn("failed to update session last seen", zap.Error(err))
	}

	return &domain.Session{
		ID:         stored.ID,
		IdentityID: identity.ID,
		Email:      identity.Email,
		Metadata:   identity.Metadata,
		Token:      token,
		ExpiresAt:  stored.ExpiresAt,
	}, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidSession
	}

	stored, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}
	if stored.RevokedAt != nil {
		return nil
	}

	return s.sessions.RevokeSession(ctx, stored.ID, s.clock.Now())
}

func (s *Service) DeleteIdentity(ctx context.Context, identityID string) error {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return domain.ErrIdentityNotFound
	}
	return s.repo.Delete(ctx, identityID)
}

func (s *Service) issueSession(ctx context.Context, identity *domain.Identity, userAgent, ipAddress string) (*domain.Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)
	sessionID := s.genID.Generate()

	claims := sessionClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID.String(),
			Subject:   identity.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	stored := &domain.IdentitySession{
		ID:         sessionID,
		IdentityID: identity.ID,
		TokenHash:  hashToken(signed),
		UserAgent:  strings.TrimSpace(userAgent),
		IPAddress:  strings.TrimSpace(ipAddress),
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.CreateSession(ctx, stored); err != nil {
		return nil, err
	}

	return &domain.Session{
		ID:         sessionID,
		IdentityID: identity.ID,
		Email:      identity.Email,
		Metadata:   identity.Metadata,
		Token:      signed,
		ExpiresAt:  expiresAt,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *Service) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
