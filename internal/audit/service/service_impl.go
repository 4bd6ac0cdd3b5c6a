package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	"github.com/smallbiznis/tenantly/internal/audit/masking"
	auditcontext "github.com/smallbiznis/tenantly/internal/auditcontext"
	"github.com/smallbiznis/tenantly/internal/clock"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"github.com/smallbiznis/tenantly/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxIPAddressLength = 45

var sensitiveMetadataKeys = []string{
	"stripe_customer_id",
	"stripe_subscription_id",
	"verification_code",
	"token",
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: c,
	}
}

func (s *Service) Record(ctx context.Context, req auditdomain.RecordRequest) error {
	orgID := strings.TrimSpace(req.OrganizationID)
	if orgID == "" {
		return nil
	}
	if !req.Action.Valid() {
		return auditdomain.ErrInvalidAction
	}

	payload := masking.MaskFields(req.Metadata, sensitiveMetadataKeys...)
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.ActivityLog{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		UserID:         s.resolveUser(ctx, req.UserID),
		Action:         req.Action,
		Metadata:       datatypes.JSONMap(payload),
		Timestamp:      s.clock.Now(),
	}
	if ip := truncate(auditcontext.IPAddressFromContext(ctx), maxIPAddressLength); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.ctxLog(ctx).Warn("failed to write activity log",
			zap.String("action", string(req.Action)),
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListActivityRequest) (auditdomain.ListActivityResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidOrganization
	}

	action := auditdomain.ActivityType(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action != "" && !action.Valid() {
		return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidAction
	}

	var cursor *auditdomain.ActivityCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		ts, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListActivityResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.ActivityCursor{ID: id, Timestamp: ts.UTC()}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		OrganizationID: orgID,
		Action:         action,
		UserID:         req.UserID,
		Cursor:         cursor,
		Limit:          limit,
	})
	if err != nil {
		return auditdomain.ListActivityResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(item *auditdomain.ActivityEntry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.Timestamp.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	activities := make([]auditdomain.ActivityEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		activities = append(activities, *item)
	}

	return auditdomain.ListActivityResponse{PageInfo: pageInfo, Activities: activities}, nil
}

func (s *Service) resolveUser(ctx context.Context, userID string) *string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		if actorType, actorID := auditcontext.ActorFromContext(ctx); actorType == "user" {
			userID = actorID
		}
	}
	if userID == "" {
		return nil
	}
	return &userID
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) > max {
		return value[:max]
	}
	return value
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *Service) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
