package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"github.com/smallbiznis/tenantly/internal/observability/metrics"
	"github.com/smallbiznis/tenantly/internal/permission"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

// NewEnforcer builds an in-memory enforcer seeded once from the static
// permission table.
func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, perms ...permission.Permission) error {
	if strings.TrimSpace(actor.IdentityID) == "" {
		return ErrInvalidActor
	}
	if strings.TrimSpace(actor.OrganizationID) == "" {
		return ErrInvalidOrganization
	}

	subject := roleSubject(actor.Role)
	for _, perm := range perms {
		allowed, err := s.enforcer.Enforce(subject, string(perm))
		if err != nil {
			return err
		}
		if allowed {
			continue
		}

		s.ctxLog(ctx).Debug("permission denied",
			zap.String("identity_id", actor.IdentityID),
			zap.String("organization_id", actor.OrganizationID),
			zap.String("role", string(actor.Role)),
			zap.String("permission", string(perm)),
		)
		s.metrics.RecordPermissionDenied(ctx, string(perm))
		s.auditDenied(ctx, actor, perm)
		return fmt.Errorf("%w: %w", ErrForbidden, permission.AssertAll(actor.Role, perms...))
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor Actor, perm permission.Permission) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.RecordRequest{
		OrganizationID: actor.OrganizationID,
		UserID:         actor.IdentityID,
		Action:         auditdomain.ActivityPermissionDenied,
		Metadata: map[string]any{
			"permission": string(perm),
			"role":       string(actor.Role),
		},
	})
	if err != nil {
		s.ctxLog(ctx).Warn("failed to audit permission denial", zap.Error(err))
	}
}

func roleSubject(role permission.Role) string {
	return "role:" + strings.ToLower(strings.TrimSpace(string(role)))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string
	for _, role := range permission.Roles() {
		for _, perm := range permission.PermissionsFor(role) {
			policies = append(policies, []string{roleSubject(role), string(perm)})
		}
	}
	_, err := enforcer.AddPolicies(policies)
	return err
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *ServiceImpl) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
