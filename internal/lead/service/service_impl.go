package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/lead/domain"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var stepTypes = map[string]struct{}{
	"email": {},
	"sms":   {},
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("lead.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: c,
	}
}

func (s *Service) CreateLead(ctx context.Context, req domain.CreateLeadRequest) (*domain.Lead, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	if blank(req.Name) && blank(req.Email) && blank(req.Phone) {
		return nil, domain.ErrInvalidLead
	}

	var followUp *time.Time
	if !blank(req.FollowUpDate) {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.FollowUpDate))
		if err != nil {
			return nil, domain.ErrInvalidLead
		}
		parsed = parsed.UTC()
		followUp = &parsed
	}

	now := s.clock.Now()
	lead := domain.Lead{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		Name:           trimmed(req.Name),
		Email:          trimmed(req.Email),
		Phone:          trimmed(req.Phone),
		Message:        trimmed(req.Message),
		AssignedTo:     trimmed(req.AssignedTo),
		Status:         domain.LeadStatusNew,
		FollowUpDate:   followUp,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertLead(ctx, s.db, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *Service) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLeads(ctx, s.db, orgID)
}

func (s *Service) CreateCampaign(ctx context.Context, req domain.CreateCampaignRequest) (*domain.DripCampaign, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidCampaign
	}

	now := s.clock.Now()
	campaign := domain.DripCampaign{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		Name:           name,
		TriggerEvent:   trimmed(req.TriggerEvent),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, step := range req.Steps {
		kind := strings.ToLower(strings.TrimSpace(step.Type))
		if _, ok := stepTypes[kind]; !ok || strings.TrimSpace(step.Content) == "" || step.Delay < 0 {
			return nil, domain.ErrInvalidStep
		}
		campaign.Steps = append(campaign.Steps, domain.DripCampaignStep{
			ID:         s.genID.Generate(),
			CampaignID: campaign.ID,
			Type:       kind,
			Content:    step.Content,
			Delay:      step.Delay,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.repo.InsertCampaign(ctx, s.db, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *Service) ListCampaigns(ctx context.Context) ([]domain.DripCampaign, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCampaigns(ctx, s.db, orgID)
}

func (s *Service) CreatePage(ctx context.Context, req domain.CreatePageRequest) (*domain.LeadPage, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		return nil, domain.ErrInvalidPage
	}

	source := req.Slug
	if strings.TrimSpace(source) == "" {
		source = title
	}
	pageSlug := slug.Make(source)
	if pageSlug == "" {
		return nil, domain.ErrInvalidPage
	}

	now := s.clock.Now()
	page := domain.LeadPage{
		ID:              s.genID.Generate(),
		OrganizationID:  orgID,
		Slug:            pageSlug,
		Title:           title,
		MetaDescription: trimmed(req.MetaDescription),
		City:            trimmed(req.City),
		State:           trimmed(req.State),
		Country:         trimmed(req.Country),
		ZipCode:         trimmed(req.ZipCode),
		Content:         req.Content,
		Published:       req.Published,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertPage(ctx, s.db, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Service) ListPages(ctx context.Context) ([]domain.LeadPage, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPages(ctx, s.db, orgID)
}

func (s *Service) orgID(ctx context.Context) (string, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return "", domain.ErrInvalidOrganization
	}
	return orgID, nil
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

func trimmed(v *string) *string {
	if blank(v) {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}
