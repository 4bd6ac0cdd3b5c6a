package domain

import "context"

//go:generate mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks

// Gateway is the payment provider surface the billing service needs.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	// FirstPortalConfiguration returns nil without error when none exist.
	FirstPortalConfiguration(ctx context.Context) (*PortalConfiguration, error)
	CreatePortalConfiguration(ctx context.Context, policy PortalPolicy) (*PortalConfiguration, error)
	CreatePortalSession(ctx context.Context, params PortalSessionParams) (string, error)
	ListPrices(ctx context.Context) ([]Price, error)
	ListProducts(ctx context.Context) ([]Product, error)
	// ConstructEvent verifies signature over payload and decodes the event.
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

type CheckoutParams struct {
	PriceID           string
	CustomerID        string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	TrialPeriodDays   int64
}

type CheckoutSession struct {
	ID                string
	URL               string
	ClientReferenceID string
	CustomerID        string
	Subscription      *Subscription
}

type Subscription struct {
	ID         string
	CustomerID string
	Status     string
	ProductID  string
	PlanName   string
}

type PortalConfiguration struct {
	ID string
}

type PortalPolicy struct {
	Headline            string
	AllowedUpdates      []string
	ProrationBehavior   string
	CancelMode          string
	CancellationReasons []string
}

type PortalSessionParams struct {
	CustomerID      string
	ReturnURL       string
	ConfigurationID string
}

type Price struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	UnitAmount      int64  `json:"unit_amount"`
	Currency        string `json:"currency"`
	Interval        string `json:"interval,omitempty"`
	TrialPeriodDays int64  `json:"trial_period_days,omitempty"`
}

type Product struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	DefaultPriceID string `json:"default_price_id,omitempty"`
}

type Event struct {
	ID           string
	Type         string
	Subscription *Subscription
}
