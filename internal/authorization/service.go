package authorization

import (
	"context"
	"errors"

	"github.com/smallbiznis/tenantly/internal/permission"
)

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
)

// Actor is the caller being authorized within one organization.
type Actor struct {
	IdentityID     string
	OrganizationID string
	Role           permission.Role
}

type Service interface {
	// Authorize succeeds only when the actor holds every listed permission.
	Authorize(ctx context.Context, actor Actor, perms ...permission.Permission) error
}
