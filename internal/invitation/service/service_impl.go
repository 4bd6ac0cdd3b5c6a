package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/invitation/domain"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"github.com/smallbiznis/tenantly/internal/permission"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
	Audit auditdomain.Service `optional:"true"`
}

type service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &service{
		log:   p.Log.Named("invitation.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: c,
		audit: p.Audit,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Invitation, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	role, err := permission.ParseRole(req.Role)
	if err != nil {
		return nil, domain.ErrInvalidRole
	}
	if !permission.CanAssignRole(req.InviterRole, role) {
		return nil, domain.ErrRoleNotAssignable
	}

	if _, err := s.repo.FindPendingByEmail(ctx, req.OrganizationID, email); err == nil {
		return nil, domain.ErrAlreadyInvited
	} else if !errors.Is(err, domain.ErrInvitationNotFound) {
		return nil, err
	}

	inv := domain.Invitation{
		ID:             s.genID.Generate(),
		OrganizationID: req.OrganizationID,
		Email:          email,
		Role:           string(role),
		InvitedBy:      req.InvitedBy,
		Status:         domain.StatusPending,
		InvitedAt:      s.clock.Now(),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, auditdomain.RecordRequest{
			OrganizationID: req.OrganizationID,
			UserID:         req.InvitedBy,
			Action:         auditdomain.ActivityInviteTeamMember,
			Metadata:       map[string]any{"email": email, "role": string(role)},
		}); err != nil {
			s.ctxLog(ctx).Warn("failed to record invitation", zap.Error(err))
		}
	}
	return &inv, nil
}

func (s *service) ListPending(ctx context.Context, orgID string) ([]domain.Invitation, error) {
	return s.repo.ListPending(ctx, strings.TrimSpace(orgID))
}

func (s *service) GetPending(ctx context.Context, rawID string, rawEmail string) (*domain.Invitation, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvitationNotFound
	}
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, domain.ErrInvitationNotFound
	}

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Email != email {
		return nil, domain.ErrInvitationNotFound
	}
	if inv.Status != domain.StatusPending {
		return nil, domain.ErrInvitationNotPending
	}
	return inv, nil
}

func (s *service) Accept(ctx context.Context, id snowflake.ID) error {
	won, err := s.repo.MarkAccepted(ctx, id, s.clock.Now())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvitationNotPending
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *service) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
