package orgcontext

import (
	"context"
	"strings"
)

// OrgContextKey is the request context key for the resolved organization.
type OrgContextKey struct{}

// Organization is the tenant attached to a request by the access gate.
type Organization struct {
	ID   string
	Name string
}

// WithOrganization stores the resolved organization in the context.
func WithOrganization(ctx context.Context, id, name string) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, Organization{
		ID:   strings.TrimSpace(id),
		Name: strings.TrimSpace(name),
	})
}

// OrganizationFromContext returns the resolved organization, if set.
func OrganizationFromContext(ctx context.Context) (Organization, bool) {
	if ctx == nil {
		return Organization{}, false
	}
	org, ok := ctx.Value(OrgContextKey{}).(Organization)
	if !ok || org.ID == "" {
		return Organization{}, false
	}
	return org, true
}

// OrgIDFromContext returns only the organization id.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	org, ok := OrganizationFromContext(ctx)
	return org.ID, ok
}
