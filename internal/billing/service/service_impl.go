package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	"github.com/smallbiznis/tenantly/internal/billing/domain"
	"github.com/smallbiznis/tenantly/internal/config"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"github.com/smallbiznis/tenantly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/organization/event"
	"github.com/smallbiznis/tenantly/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	webhookLockTTL     = 30 * time.Second
	webhookLockKeyFmt  = "billing:webhook:%s"
	checkoutSessionVar = "{CHECKOUT_SESSION_ID}"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Gateway   domain.Gateway
	OrgRepo   orgdomain.Repository
	Policy    *config.BillingPolicyHolder
	Locker    *ratelimit.Locker    `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
	Audit     auditdomain.Service  `optional:"true"`
	Publisher event.EventPublisher `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	baseURL   string
	gateway   domain.Gateway
	orgRepo   orgdomain.Repository
	policy    *config.BillingPolicyHolder
	locker    *ratelimit.Locker
	metrics   *metrics.Metrics
	audit     auditdomain.Service
	publisher event.EventPublisher
}

func NewService(p Params) domain.Service {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy())
	}
	return &Service{
		log:       p.Log.Named("billing.service"),
		baseURL:   strings.TrimRight(p.Cfg.BaseURL, "/"),
		gateway:   p.Gateway,
		orgRepo:   p.OrgRepo,
		policy:    policy,
		locker:    p.Locker,
		metrics:   p.Metrics,
		audit:     p.Audit,
		publisher: p.Publisher,
	}
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.Redirect, error) {
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		return domain.Redirect{}, domain.ErrPriceRequired
	}
	if req.Organization == nil || req.Profile == nil {
		return domain.Redirect{URL: "/sign-up?redirect=checkout&priceId=" + url.QueryEscape(priceID)}, nil
	}

	params := domain.CheckoutParams{
		PriceID:           priceID,
		ClientReferenceID: req.Profile.ID,
		SuccessURL:        s.baseURL + "/api/stripe/checkout?session_id=" + checkoutSessionVar,
		CancelURL:         s.baseURL + "/pricing",
		TrialPeriodDays:   s.policy.Get().TrialPeriodDays,
	}
	if req.Organization.StripeCustomerID != nil {
		params.CustomerID = *req.Organization.StripeCustomerID
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.ctxLog(ctx).Error("failed to create checkout session",
			zap.String("organization_id", req.Organization.ID),
			zap.Error(err),
		)
		return domain.Redirect{}, err
	}
	return domain.Redirect{URL: session.URL}, nil
}

func (s *Service) CreateCustomerPortalSession(ctx context.Context, org *orgdomain.Organization) (domain.Redirect, error) {
	if org == nil || org.StripeCustomerID == nil || strings.TrimSpace(*org.StripeCustomerID) == "" {
		return domain.Redirect{URL: "/pricing"}, nil
	}

	configuration, err := s.gateway.FirstPortalConfiguration(ctx)
	if err != nil {
		return domain.Redirect{}, err
	}
	if configuration == nil {
		policy := s.policy.Get()
		configuration, err = s.gateway.CreatePortalConfiguration(ctx, domain.PortalPolicy{
			Headline:            policy.PortalHeadline,
			AllowedUpdates:      policy.AllowedUpdates,
			ProrationBehavior:   policy.ProrationBehavior,
			CancelMode:          policy.CancelMode,
			CancellationReasons: policy.CancellationReasons,
		})
		if err != nil {
			return domain.Redirect{}, err
		}
		s.ctxLog(ctx).Info("created billing portal configuration", zap.String("configuration_id", configuration.ID))
	}

	portalURL, err := s.gateway.CreatePortalSession(ctx, domain.PortalSessionParams{
		CustomerID:      *org.StripeCustomerID,
		ReturnURL:       s.baseURL + "/dashboard",
		ConfigurationID: configuration.ID,
	})
	if err != nil {
		return domain.Redirect{}, err
	}
	return domain.Redirect{URL: portalURL}, nil
}

func (s *Service) CompleteCheckout(ctx context.Context, sessionID string) (domain.Redirect, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Redirect{}, domain.ErrInvalidCheckoutSession
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return domain.Redirect{}, err
	}
	if session.CustomerID == "" || session.ClientReferenceID == "" || session.Subscription == nil {
		return domain.Redirect{}, domain.ErrInvalidCheckoutSession
	}

	profile, err := s.orgRepo.FindProfile(ctx, session.ClientReferenceID)
	if err != nil {
		return domain.Redirect{}, err
	}
	if err := s.orgRepo.SetStripeCustomerID(ctx, profile.OrganizationID, session.CustomerID); err != nil {
		return domain.Redirect{}, err
	}

	sub := session.Subscription
	if err := s.HandleSubscriptionChange(ctx, domain.SubscriptionEvent{
		CustomerID:     session.CustomerID,
		SubscriptionID: sub.ID,
		Status:         sub.Status,
		ProductID:      sub.ProductID,
		PlanName:       sub.PlanName,
	}); err != nil {
		return domain.Redirect{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, auditdomain.RecordRequest{
			OrganizationID: profile.OrganizationID,
			UserID:         profile.ID,
			Action:         auditdomain.ActivityUpdateSubscription,
			Metadata: map[string]any{
				"stripe_customer_id":     session.CustomerID,
				"stripe_subscription_id": sub.ID,
				"status":                 sub.Status,
			},
		}); err != nil {
			s.ctxLog(ctx).Warn("failed to record checkout completion", zap.Error(err))
		}
	}
	return domain.Redirect{URL: "/dashboard"}, nil
}

func (s *Service) HandleSubscriptionChange(ctx context.Context, change domain.SubscriptionEvent) error {
	customerID := strings.TrimSpace(change.CustomerID)
	org, err := s.orgRepo.FindByStripeCustomerID(ctx, customerID)
	if errors.Is(err, orgdomain.ErrOrganizationNotFound) {
		s.ctxLog(ctx).Error("organization not found for stripe customer", zap.String("customer_id", customerID))
		return nil
	}
	if err != nil {
		return err
	}

	var update orgdomain.SubscriptionUpdate
	switch change.Status {
	case domain.StatusActive, domain.StatusTrialing:
		subscriptionID := change.SubscriptionID
		update = orgdomain.SubscriptionUpdate{
			SubscriptionID: &subscriptionID,
			Status:         change.Status,
			ProductID:      optional(change.ProductID),
			PlanName:       optional(change.PlanName),
		}
	case domain.StatusCanceled, domain.StatusUnpaid:
		update = orgdomain.SubscriptionUpdate{Status: change.Status}
	default:
		s.ctxLog(ctx).Debug("ignoring subscription status",
			zap.String("organization_id", org.ID),
			zap.String("status", change.Status),
		)
		return nil
	}

	if err := s.orgRepo.UpdateSubscription(ctx, org.ID, update); err != nil {
		return err
	}
	s.ctxLog(ctx).Info("subscription updated",
		zap.String("organization_id", org.ID),
		zap.String("status", change.Status),
	)
	s.publishChange(ctx, org.ID, change)
	return nil
}

func (s *Service) publishChange(ctx context.Context, orgID string, change domain.SubscriptionEvent) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"organization_id": orgID,
		"subscription_id": change.SubscriptionID,
		"status":          change.Status,
		"product_id":      change.ProductID,
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.SubscriptionChangedTopic, payload); err != nil {
		s.ctxLog(ctx).Warn("failed to publish subscription change", zap.String("organization_id", orgID), zap.Error(err))
	}
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.ctxLog(ctx).Warn("rejected webhook", zap.Error(err))
		return err
	}
	s.metrics.RecordWebhookEvent(ctx, "stripe", evt.Type)

	switch evt.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		s.ctxLog(ctx).Debug("ignoring webhook event", zap.String("event_type", evt.Type))
		return nil
	}
	if evt.Subscription == nil {
		return domain.ErrInvalidPayload
	}

	sub := evt.Subscription
	err = s.locker.WithLock(ctx, fmt.Sprintf(webhookLockKeyFmt, evt.ID), webhookLockTTL, func(ctx context.Context) error {
		return s.HandleSubscriptionChange(ctx, domain.SubscriptionEvent{
			CustomerID:     sub.CustomerID,
			SubscriptionID: sub.ID,
			Status:         sub.Status,
			ProductID:      sub.ProductID,
			PlanName:       sub.PlanName,
		})
	})
	if errors.Is(err, ratelimit.ErrLockHeld) {
		s.ctxLog(ctx).Info("webhook event already in flight", zap.String("event_id", evt.ID))
		return nil
	}
	return err
}

func (s *Service) ListPrices(ctx context.Context) ([]domain.Price, error) {
	return s.gateway.ListPrices(ctx)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.gateway.ListProducts(ctx)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *Service) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
