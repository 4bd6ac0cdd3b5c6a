// Package tenant maps request hostnames to organizations.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/smallbiznis/tenantly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrResolverUnavailable means the store could not answer. Callers must fail
// closed.
var ErrResolverUnavailable = errors.New("tenant_resolver_unavailable")

type HostKind string

const (
	HostPublic       HostKind = "public"
	HostSubdomain    HostKind = "subdomain"
	HostCustomDomain HostKind = "custom_domain"
)

// Tenant is the organization a host belongs to.
type Tenant struct {
	OrganizationID string
	Name           string
	Kind           HostKind
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Repo    orgdomain.Repository
	Metrics *metrics.TenantMetrics `optional:"true"`
}

type Resolver struct {
	log        *zap.Logger
	rootDomain string
	repo       orgdomain.Repository
	metrics    *metrics.TenantMetrics
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		log:        p.Log.Named("tenant.resolver"),
		rootDomain: normalizeHost(p.Cfg.RootDomain),
		repo:       p.Repo,
		metrics:    p.Metrics,
	}
}

// Classify decides how host should be looked up relative to rootDomain.
func Classify(host, rootDomain string) HostKind {
	host = normalizeHost(host)
	root := normalizeHost(rootDomain)
	if host == "" || host == root {
		return HostPublic
	}
	if strings.HasSuffix(host, "."+root) {
		if label(host) == "www" {
			return HostPublic
		}
		return HostSubdomain
	}
	return HostCustomDomain
}

// Resolve returns the tenant owning host, or nil when the host is public or
// unknown.
func (r *Resolver) Resolve(ctx context.Context, host string) (*Tenant, error) {
	host = normalizeHost(host)
	kind := Classify(host, r.rootDomain)
	if kind == HostPublic {
		r.metrics.ObserveResolution(string(kind), "public", 0)
		return nil, nil
	}

	start := time.Now()
	var (
		org *orgdomain.Organization
		err error
	)
	switch kind {
	case HostSubdomain:
		org, err = r.repo.FindBySubdomain(ctx, label(host))
	default:
		org, err = r.repo.FindByVerifiedCustomDomain(ctx, host)
	}
	elapsed := time.Since(start)

	if errors.Is(err, orgdomain.ErrOrganizationNotFound) {
		r.metrics.ObserveResolution(string(kind), "miss", elapsed)
		return nil, nil
	}
	if err != nil {
		r.metrics.ObserveResolution(string(kind), "error", elapsed)
		r.log.Error("tenant lookup failed",
			zap.String("host", host),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrResolverUnavailable, err)
	}

	r.metrics.ObserveResolution(string(kind), "hit", elapsed)
	return &Tenant{
		OrganizationID: org.ID,
		Name:           org.Name,
		Kind:           kind,
	}, nil
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// label is the host up to its first dot.
func label(host string) string {
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[:i]
	}
	return host
}
