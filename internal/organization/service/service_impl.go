package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/config"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/organization/event"
	"github.com/smallbiznis/tenantly/internal/permission"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLength = 100

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Repo      domain.Repository
	GenID     *snowflake.Node
	Clock     clock.Clock
	Publisher event.EventPublisher `optional:"true"`
	Audit     auditdomain.Service  `optional:"true"`
	Resolver  domain.TXTResolver   `optional:"true"`
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	rootDomain string
	repo       domain.Repository
	genID      *snowflake.Node
	clock      clock.Clock
	publisher  event.EventPublisher
	audit      auditdomain.Service
	resolver   domain.TXTResolver
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &service{
		db:         p.DB,
		log:        p.Log.Named("organization.service"),
		rootDomain: strings.ToLower(strings.TrimSpace(p.Cfg.RootDomain)),
		repo:       p.Repo,
		genID:      p.GenID,
		clock:      c,
		publisher:  p.Publisher,
		audit:      p.Audit,
		resolver:   p.Resolver,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}

	subdomain, err := domain.NormalizeSubdomain(req.Subdomain)
	if err != nil {
		return nil, err
	}

	// Advisory only; the unique index decides races.
	exists, err := s.repo.SubdomainExists(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrSubdomainTaken
	}

	now := s.clock.Now()
	org := domain.Organization{
		ID:        ulid.Make().String(),
		Name:      name,
		Subdomain: subdomain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	s.emit(ctx, event.OrganizationCreatedTopic, map[string]any{
		"organization_id": org.ID,
		"subdomain":       org.Subdomain,
		"created_at":      org.CreatedAt,
	})

	return &org, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrInvalidOrganization
	}
	if err := s.repo.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, event.OrganizationDeletedTopic, map[string]any{"organization_id": id})
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) UpdateSettings(ctx context.Context, actor domain.Member, req domain.UpdateSettingsRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	if err := s.repo.UpdateName(ctx, actor.OrganizationID, name); err != nil {
		return nil, err
	}
	s.record(ctx, actor, auditdomain.ActivityUpdateAccount, map[string]any{"name": name})
	return s.repo.FindByID(ctx, actor.OrganizationID)
}

func (s *service) CreateProfile(ctx context.Context, req domain.CreateProfileRequest) (*domain.Profile, error) {
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.OrganizationID) == "" {
		return nil, domain.ErrInvalidOrganization
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	profile := domain.Profile{
		ID:             strings.TrimSpace(req.ID),
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Name:           strings.TrimSpace(req.Name),
		Role:           string(req.Role),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *service) DeleteProfile(ctx context.Context, id string) error {
	return s.repo.DeleteProfile(ctx, strings.TrimSpace(id))
}

func (s *service) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrProfileNotFound
	}
	return s.repo.FindProfile(ctx, id)
}

func (s *service) LoadMembership(ctx context.Context, identityID string) (*domain.Membership, error) {
	profile, err := s.GetProfile(ctx, identityID)
	if err != nil {
		return nil, err
	}
	org, err := s.repo.FindByID(ctx, profile.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &domain.Membership{Profile: *profile, Organization: *org}, nil
}

func (s *service) ListMembers(ctx context.Context, orgID string) ([]domain.Profile, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.ListProfiles(ctx, orgID)
}

func (s *service) ChangeMemberRole(ctx context.Context, actor domain.Member, targetID string, rawRole string) (*domain.Profile, error) {
	role, err := permission.ParseRole(rawRole)
	if err != nil {
		return nil, domain.ErrInvalidRole
	}

	target, err := s.memberOf(ctx, actor.OrganizationID, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, domain.ErrRoleChangeForbidden
	}
	if !permission.CanModifyRole(actor.Role, permission.Role(target.Role)) {
		return nil, domain.ErrRoleChangeForbidden
	}
	if !permission.CanAssignRole(actor.Role, role) {
		return nil, domain.ErrRoleChangeForbidden
	}

	if err := s.repo.UpdateProfileRole(ctx, actor.OrganizationID, target.ID, string(role)); err != nil {
		return nil, err
	}
	s.record(ctx, actor, auditdomain.ActivityUpdateMemberRole, map[string]any{
		"target_id": target.ID,
		"from":      target.Role,
		"to":        string(role),
	})

	target.Role = string(role)
	return target, nil
}

func (s *service) RemoveMember(ctx context.Context, actor domain.Member, targetID string) error {
	target, err := s.memberOf(ctx, actor.OrganizationID, targetID)
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return domain.ErrCannotRemoveSelf
	}
	if permission.Role(target.Role) == permission.RoleOwner {
		return domain.ErrCannotRemoveOwner
	}
	if !permission.CanModifyRole(actor.Role, permission.Role(target.Role)) {
		return domain.ErrRoleChangeForbidden
	}

	if err := s.repo.DeleteProfile(ctx, target.ID); err != nil {
		return err
	}
	s.record(ctx, actor, auditdomain.ActivityRemoveTeamMember, map[string]any{
		"target_id": target.ID,
		"email":     target.Email,
	})
	return nil
}

func (s *service) AddCustomDomain(ctx context.Context, actor domain.Member, raw string) (*domain.CustomDomain, error) {
	host := domain.NormalizeDomain(raw)
	if !validHostname(host) {
		return nil, domain.ErrInvalidDomain
	}
	if s.rootDomain != "" && (host == s.rootDomain || strings.HasSuffix(host, "."+s.rootDomain)) {
		return nil, domain.ErrInvalidDomain
	}

	now := s.clock.Now()
	cd := domain.CustomDomain{
		ID:               s.genID.Generate(),
		OrganizationID:   actor.OrganizationID,
		Domain:           host,
		VerificationCode: strings.ReplaceAll(uuid.NewString(), "-", ""),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateCustomDomain(ctx, cd); err != nil {
		return nil, err
	}

	s.record(ctx, actor, auditdomain.ActivityAddCustomDomain, map[string]any{"domain": host})
	return &cd, nil
}

func (s *service) ListCustomDomains(ctx context.Context, orgID string) ([]domain.CustomDomain, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.ListCustomDomains(ctx, orgID)
}

func (s *service) VerifyCustomDomain(ctx context.Context, actor domain.Member, domainID snowflake.ID) (*domain.CustomDomain, error) {
	cd, err := s.repo.FindCustomDomain(ctx, actor.OrganizationID, domainID)
	if err != nil {
		return nil, err
	}
	if cd.Verified {
		return cd, nil
	}
	if s.resolver == nil {
		return nil, domain.ErrDomainVerificationFailed
	}

	records, err := s.resolver.LookupTXT(ctx, domain.VerificationRecordPrefix+cd.Domain)
	if err != nil {
		s.ctxLog(ctx).Info("custom domain TXT lookup failed",
			zap.String("domain", cd.Domain),
			zap.Error(err),
		)
		return nil, domain.ErrDomainVerificationFailed
	}
	if !containsRecord(records, cd.VerificationCode) {
		return nil, domain.ErrDomainVerificationFailed
	}

	org, err := s.repo.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	primary := org.CustomDomain == nil

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkCustomDomainVerified(ctx, cd.ID, now, primary); err != nil {
			return err
		}
		if primary {
			return repo.SetCustomDomain(ctx, actor.OrganizationID, &cd.Domain)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cd.Verified = true
	cd.VerifiedAt = &now
	cd.IsPrimary = primary

	s.record(ctx, actor, auditdomain.ActivityVerifyCustomDomain, map[string]any{
		"domain":  cd.Domain,
		"primary": primary,
	})
	s.emit(ctx, event.CustomDomainVerifiedTopic, map[string]any{
		"organization_id": actor.OrganizationID,
		"domain":          cd.Domain,
		"primary":         primary,
	})
	return cd, nil
}

func (s *service) memberOf(ctx context.Context, orgID, profileID string) (*domain.Profile, error) {
	target, err := s.repo.FindProfile(ctx, strings.TrimSpace(profileID))
	if err != nil {
		return nil, err
	}
	// Profiles of other tenants are reported as missing.
	if target.OrganizationID != orgID {
		return nil, domain.ErrProfileNotFound
	}
	return target, nil
}

func (s *service) record(ctx context.Context, actor domain.Member, action auditdomain.ActivityType, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, auditdomain.RecordRequest{
		OrganizationID: actor.OrganizationID,
		UserID:         actor.ID,
		Action:         action,
		Metadata:       metadata,
	})
	if err != nil {
		s.ctxLog(ctx).Warn("failed to record activity", zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *service) emit(ctx context.Context, topic string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.ctxLog(ctx).Warn("failed to marshal event payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, topic, data); err != nil {
		s.ctxLog(ctx).Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}

func containsRecord(records []string, code string) bool {
	for _, record := range records {
		if strings.TrimSpace(record) == code {
			return true
		}
	}
	return false
}

func validHostname(host string) bool {
	if len(host) == 0 || len(host) > 253 || !strings.Contains(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
				return false
			}
		}
	}
	return true
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *service) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
