package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org Organization) error
	DeleteOrganization(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*Organization, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
	FindByVerifiedCustomDomain(ctx context.Context, domain string) (*Organization, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Organization, error)
	SetStripeCustomerID(ctx context.Context, orgID, customerID string) error
	UpdateSubscription(ctx context.Context, orgID string, update SubscriptionUpdate) error
	UpdateName(ctx context.Context, orgID, name string) error
	SetCustomDomain(ctx context.Context, orgID string, domain *string) error

	CreateProfile(ctx context.Context, profile Profile) error
	DeleteProfile(ctx context.Context, id string) error
	FindProfile(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context, orgID string) ([]Profile, error)
	UpdateProfileRole(ctx context.Context, orgID, profileID, role string) error

	CreateCustomDomain(ctx context.Context, domain CustomDomain) error
	FindCustomDomain(ctx context.Context, orgID string, id snowflake.ID) (*CustomDomain, error)
	ListCustomDomains(ctx context.Context, orgID string) ([]CustomDomain, error)
	MarkCustomDomainVerified(ctx context.Context, id snowflake.ID, verifiedAt time.Time, primary bool) error
}

// TXTResolver looks up DNS TXT records. *net.Resolver satisfies it.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}
