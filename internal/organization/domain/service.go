package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantly/internal/permission"
)

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*Organization, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	UpdateSettings(ctx context.Context, actor Member, req UpdateSettingsRequest) (*Organization, error)

	CreateProfile(ctx context.Context, req CreateProfileRequest) (*Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	LoadMembership(ctx context.Context, identityID string) (*Membership, error)

	ListMembers(ctx context.Context, orgID string) ([]Profile, error)
	ChangeMemberRole(ctx context.Context, actor Member, targetID string, role string) (*Profile, error)
	RemoveMember(ctx context.Context, actor Member, targetID string) error

	AddCustomDomain(ctx context.Context, actor Member, domain string) (*CustomDomain, error)
	ListCustomDomains(ctx context.Context, orgID string) ([]CustomDomain, error)
	VerifyCustomDomain(ctx context.Context, actor Member, domainID snowflake.ID) (*CustomDomain, error)
}

// Member identifies the acting profile for member-management operations.
type Member struct {
	ID             string
	OrganizationID string
	Role           permission.Role
}

// Membership is a profile joined with its organization.
type Membership struct {
	Profile      Profile
	Organization Organization
}

type CreateOrganizationRequest struct {
	Name      string
	Subdomain string
}

type UpdateSettingsRequest struct {
	Name string `json:"name"`
}

type CreateProfileRequest struct {
	ID             string
	OrganizationID string
	Email          string
	Name           string
	Role           permission.Role
}

const VerificationRecordPrefix = "_tenantly-verification."

var (
	ErrInvalidName              = errors.New("invalid_name")
	ErrInvalidOrganization      = errors.New("invalid_organization")
	ErrOrganizationNotFound     = errors.New("organization_not_found")
	ErrProfileNotFound          = errors.New("profile_not_found")
	ErrSubdomainTaken           = errors.New("subdomain_taken")
	ErrSubdomainTooShort        = errors.New("subdomain_too_short")
	ErrSubdomainTooLong         = errors.New("subdomain_too_long")
	ErrSubdomainReserved        = errors.New("subdomain_reserved")
	ErrInvalidRole              = errors.New("invalid_role")
	ErrRoleChangeForbidden      = errors.New("role_change_forbidden")
	ErrCannotRemoveOwner        = errors.New("cannot_remove_owner")
	ErrCannotRemoveSelf         = errors.New("cannot_remove_self")
	ErrInvalidDomain            = errors.New("invalid_domain")
	ErrCustomDomainTaken        = errors.New("custom_domain_taken")
	ErrStripeCustomerTaken      = errors.New("stripe_customer_taken")
	ErrCustomDomainNotFound     = errors.New("custom_domain_not_found")
	ErrDomainVerificationFailed = errors.New("domain_verification_failed")
)
