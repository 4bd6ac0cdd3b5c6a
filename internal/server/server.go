package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tenantly/internal/audit"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	"github.com/smallbiznis/tenantly/internal/auth"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/auth/session"
	"github.com/smallbiznis/tenantly/internal/authflow"
	"github.com/smallbiznis/tenantly/internal/authorization"
	"github.com/smallbiznis/tenantly/internal/billing"
	billingdomain "github.com/smallbiznis/tenantly/internal/billing/domain"
	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/smallbiznis/tenantly/internal/invitation"
	invitationdomain "github.com/smallbiznis/tenantly/internal/invitation/domain"
	"github.com/smallbiznis/tenantly/internal/lead"
	leaddomain "github.com/smallbiznis/tenantly/internal/lead/domain"
	"github.com/smallbiznis/tenantly/internal/observability"
	obsmiddleware "github.com/smallbiznis/tenantly/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tenantly/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tenantly/internal/observability/tracing"
	"github.com/smallbiznis/tenantly/internal/organization"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/permission"
	"github.com/smallbiznis/tenantly/internal/ratelimit"
	"github.com/smallbiznis/tenantly/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	organization.Module,
	invitation.Module,
	tenant.Module,
	ratelimit.Module,
	billing.Module,
	authflow.Module,
	lead.Module,
	fx.Provide(func(r *tenant.Resolver) TenantResolver { return r }),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// TenantResolver maps a request host to its organization.
type TenantResolver interface {
	Resolve(ctx context.Context, host string) (*tenant.Tenant, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	provider      authdomain.Provider
	sessions      *session.Manager
	resolver      TenantResolver
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	authflow      *authflow.Service
	billingSvc    billingdomain.Service
	orgSvc        organizationdomain.Service
	invitationSvc invitationdomain.Service
	leadSvc       leaddomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Provider      authdomain.Provider
	Sessions      *session.Manager
	Resolver      TenantResolver
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	Authflow      *authflow.Service
	BillingSvc    billingdomain.Service
	OrgSvc        organizationdomain.Service
	InvitationSvc invitationdomain.Service
	LeadSvc       leaddomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		provider:      p.Provider,
		sessions:      p.Sessions,
		resolver:      p.Resolver,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		authflow:      p.Authflow,
		billingSvc:    p.BillingSvc,
		orgSvc:        p.OrgSvc,
		invitationSvc: p.InvitationSvc,
		leadSvc:       p.LeadSvc,
	}

	svc.engine.Use(svc.AccessGate())

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerDashboardRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/sign-in", s.SignIn)
	auth.POST("/sign-up", s.SignUp)
	auth.POST("/sign-out", s.SignOut)
	auth.GET("/session", s.SessionRequired(), s.CurrentSession)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/pricing", s.ListPricing)

	stripe := api.Group("/stripe")
	{
		stripe.POST("/checkout", s.SessionRequired(), s.CreateCheckout)
		stripe.GET("/checkout", s.CompleteCheckout)
		stripe.POST("/portal", s.SessionRequired(), s.RequirePermission(permission.ManageBilling), s.CreatePortal)
		stripe.POST("/webhook", s.StripeWebhook)
	}
}

func (s *Server) registerDashboardRoutes() {
	dashboard := s.engine.Group("/dashboard")

	dashboard.GET("", s.RequirePermission(permission.AccessDashboard), s.GetDashboard)

	dashboard.GET("/organization", s.RequirePermission(permission.AccessDashboard), s.GetOrganization)
	dashboard.PATCH("/organization", s.RequirePermission(permission.UpdateOrganizationSettings), s.UpdateOrganization)

	dashboard.GET("/members", s.RequirePermission(permission.ViewMembers), s.ListMembers)
	dashboard.PATCH("/members/:id/role", s.RequirePermission(permission.UpdateMemberRoles), s.ChangeMemberRole)
	dashboard.DELETE("/members/:id", s.RequirePermission(permission.RemoveMembers), s.RemoveMember)

	dashboard.GET("/invitations", s.RequirePermission(permission.ViewMembers), s.ListInvitations)
	dashboard.POST("/invitations", s.RequirePermission(permission.InviteMembers), s.CreateInvitation)

	dashboard.GET("/domains", s.RequirePermission(permission.ManageCustomDomain), s.ListCustomDomains)
	dashboard.POST("/domains", s.RequirePermission(permission.ManageCustomDomain), s.AddCustomDomain)
	dashboard.POST("/domains/:id/verify", s.RequirePermission(permission.ManageCustomDomain), s.VerifyCustomDomain)

	dashboard.GET("/activity", s.RequirePermission(permission.ViewAuditLogs), s.ListActivity)

	dashboard.GET("/leads", s.RequirePermission(permission.AccessDashboard), s.ListLeads)
	dashboard.POST("/leads", s.RequirePermission(permission.AccessDashboard), s.CreateLead)
	dashboard.GET("/campaigns", s.RequirePermission(permission.AccessDashboard), s.ListCampaigns)
	dashboard.POST("/campaigns", s.RequirePermission(permission.AccessDashboard), s.CreateCampaign)
	dashboard.GET("/pages", s.RequirePermission(permission.AccessDashboard), s.ListLeadPages)
	dashboard.POST("/pages", s.RequirePermission(permission.AccessDashboard), s.CreateLeadPage)
}
