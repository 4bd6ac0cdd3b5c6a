// Package gateway adapts the Stripe API to the billing domain.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/tenantly/internal/billing/domain"
	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(cfg config.Config, log *zap.Logger) domain.Gateway {
	if cfg.Stripe.SecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set, billing calls will fail")
	}
	return &StripeGateway{
		api:           client.New(cfg.Stripe.SecretKey, nil),
		webhookSecret: cfg.Stripe.WebhookSecret,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p domain.CheckoutParams) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(p.SuccessURL),
		CancelURL:           stripe.String(p.CancelURL),
		ClientReferenceID:   stripe.String(p.ClientReferenceID),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(p.TrialPeriodDays),
		},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrap(err)
	}
	return toCheckoutSession(sess), nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("customer")
	params.AddExpand("subscription")
	params.AddExpand("subscription.items.data.price.product")

	sess, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, wrap(err)
	}
	return toCheckoutSession(sess), nil
}

func (g *StripeGateway) FirstPortalConfiguration(ctx context.Context) (*domain.PortalConfiguration, error) {
	params := &stripe.BillingPortalConfigurationListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := g.api.BillingPortalConfigurations.List(params)
	if iter.Next() {
		return &domain.PortalConfiguration{ID: iter.BillingPortalConfiguration().ID}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, wrap(err)
	}
	return nil, nil
}

func (g *StripeGateway) CreatePortalConfiguration(ctx context.Context, policy domain.PortalPolicy) (*domain.PortalConfiguration, error) {
	params := &stripe.BillingPortalConfigurationParams{
		BusinessProfile: &stripe.BillingPortalConfigurationBusinessProfileParams{
			Headline: stripe.String(policy.Headline),
		},
		Features: &stripe.BillingPortalConfigurationFeaturesParams{
			SubscriptionUpdate: &stripe.BillingPortalConfigurationFeaturesSubscriptionUpdateParams{
				Enabled:               stripe.Bool(true),
				DefaultAllowedUpdates: stripe.StringSlice(policy.AllowedUpdates),
				ProrationBehavior:     stripe.String(policy.ProrationBehavior),
			},
			SubscriptionCancel: &stripe.BillingPortalConfigurationFeaturesSubscriptionCancelParams{
				Enabled: stripe.Bool(true),
				Mode:    stripe.String(policy.CancelMode),
				CancellationReason: &stripe.BillingPortalConfigurationFeaturesSubscriptionCancelCancellationReasonParams{
					Enabled: stripe.Bool(true),
					Options: stripe.StringSlice(policy.CancellationReasons),
				},
			},
		},
	}
	params.Context = ctx

	cfg, err := g.api.BillingPortalConfigurations.New(params)
	if err != nil {
		return nil, wrap(err)
	}
	return &domain.PortalConfiguration{ID: cfg.ID}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, p domain.PortalSessionParams) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:      stripe.String(p.CustomerID),
		ReturnURL:     stripe.String(p.ReturnURL),
		Configuration: stripe.String(p.ConfigurationID),
	}
	params.Context = ctx

	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", wrap(err)
	}
	return sess.URL, nil
}

func (g *StripeGateway) ListPrices(ctx context.Context) ([]domain.Price, error) {
	params := &stripe.PriceListParams{
		Active: stripe.Bool(true),
		Type:   stripe.String(string(stripe.PriceTypeRecurring)),
	}
	params.Context = ctx
	params.AddExpand("data.product")

	var prices []domain.Price
	iter := g.api.Prices.List(params)
	for iter.Next() {
		p := iter.Price()
		price := domain.Price{
			ID:         p.ID,
			UnitAmount: p.UnitAmount,
			Currency:   string(p.Currency),
		}
		if p.Product != nil {
			price.ProductID = p.Product.ID
		}
		if p.Recurring != nil {
			price.Interval = string(p.Recurring.Interval)
			price.TrialPeriodDays = p.Recurring.TrialPeriodDays
		}
		prices = append(prices, price)
	}
	if err := iter.Err(); err != nil {
		return nil, wrap(err)
	}
	return prices, nil
}

func (g *StripeGateway) ListProducts(ctx context.Context) ([]domain.Product, error) {
	params := &stripe.ProductListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExpand("data.default_price")

	var products []domain.Product
	iter := g.api.Products.List(params)
	for iter.Next() {
		p := iter.Product()
		product := domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
		}
		if p.DefaultPrice != nil {
			product.DefaultPriceID = p.DefaultPrice.ID
		}
		products = append(products, product)
	}
	if err := iter.Err(); err != nil {
		return nil, wrap(err)
	}
	return products, nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*domain.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}

	out := &domain.Event{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "customer.subscription.") {
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPayload, err)
		}
		out.Subscription = toSubscription(&sub)
	}
	return out, nil
}

func toCheckoutSession(sess *stripe.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:                sess.ID,
		URL:               sess.URL,
		ClientReferenceID: sess.ClientReferenceID,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.Subscription = toSubscription(sess.Subscription)
		if out.Subscription.CustomerID == "" {
			out.Subscription.CustomerID = out.CustomerID
		}
	}
	return out
}

func toSubscription(sub *stripe.Subscription) *domain.Subscription {
	out := &domain.Subscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		if price.Product != nil {
			out.ProductID = price.Product.ID
			out.PlanName = price.Product.Name
		}
		if out.PlanName == "" {
			out.PlanName = price.Nickname
		}
	}
	return out
}

func wrap(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrGateway, err)
}
