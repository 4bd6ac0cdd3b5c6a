package domain

import (
	"context"
	"errors"

	orgdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
)

const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusCanceled = "canceled"
	StatusUnpaid   = "unpaid"
)

// Redirect is where the caller should send the browser next.
type Redirect struct {
	URL string `json:"url"`
}

type CheckoutRequest struct {
	Organization *orgdomain.Organization
	Profile      *orgdomain.Profile
	PriceID      string
}

type SubscriptionEvent struct {
	CustomerID     string
	SubscriptionID string
	Status         string
	ProductID      string
	PlanName       string
}

type Pricing struct {
	Prices   []Price   `json:"prices"`
	Products []Product `json:"products"`
}

type Service interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Redirect, error)
	CreateCustomerPortalSession(ctx context.Context, org *orgdomain.Organization) (Redirect, error)
	CompleteCheckout(ctx context.Context, sessionID string) (Redirect, error)
	// HandleSubscriptionChange applies the event's status to the owning
	// organization. Applying the same event twice leaves the same state.
	HandleSubscriptionChange(ctx context.Context, event SubscriptionEvent) error
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ListPrices(ctx context.Context) ([]Price, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

var (
	ErrGateway                = errors.New("billing_gateway_error")
	ErrInvalidSignature       = errors.New("invalid_webhook_signature")
	ErrInvalidPayload         = errors.New("invalid_webhook_payload")
	ErrInvalidCheckoutSession = errors.New("invalid_checkout_session")
	ErrPriceRequired          = errors.New("price_required")
)
