package authflow

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	billingdomain "github.com/smallbiznis/tenantly/internal/billing/domain"
	invitationdomain "github.com/smallbiznis/tenantly/internal/invitation/domain"
	obslogger "github.com/smallbiznis/tenantly/internal/observability/logger"
	"github.com/smallbiznis/tenantly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/permission"
	"github.com/smallbiznis/tenantly/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	redirectCheckout  = "checkout"
	redirectDashboard = "/dashboard"
	redirectHome      = "/"

	branchInvitation = "invitation"
	branchNewOrg     = "new_organization"
)

// Limiter throttles sign-in attempts.
type Limiter interface {
	Allow(ctx context.Context, email, ip string) error
}

type SignInRequest struct {
	Email     string
	Password  string
	Redirect  string
	PriceID   string
	IPAddress string
	UserAgent string
}

type SignUpRequest struct {
	Email            string
	Password         string
	Name             string
	OrganizationName string
	Subdomain        string
	InviteID         string
	Redirect         string
	PriceID          string
	IPAddress        string
	UserAgent        string
}

type SignOutRequest struct {
	Token          string
	OrganizationID string
	ProfileID      string
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Provider    authdomain.Provider
	Orgs        orgdomain.Service
	Invitations invitationdomain.Service
	Audit       auditdomain.Service
	Billing     billingdomain.Service
	Limiter     Limiter          `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	provider    authdomain.Provider
	orgs        orgdomain.Service
	invitations invitationdomain.Service
	audit       auditdomain.Service
	billing     billingdomain.Service
	limiter     Limiter
	metrics     *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:         p.Log.Named("authflow.service"),
		provider:    p.Provider,
		orgs:        p.Orgs,
		invitations: p.Invitations,
		audit:       p.Audit,
		billing:     p.Billing,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
	}
}

func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*Result, *Failure) {
	result, failure := s.signIn(ctx, req)
	s.metrics.RecordSignIn(ctx, outcome(failure))
	return result, failure
}

func (s *Service) signIn(ctx context.Context, req SignInRequest) (*Result, *Failure) {
	email := strings.TrimSpace(req.Email)
	if n := utf8.RuneCountInString(email); n < 3 || n > 255 || !validEmail(email) {
		return nil, invalidField("email", msgInvalidEmail)
	}
	if n := utf8.RuneCountInString(req.Password); n < 8 || n > 100 {
		return nil, invalidField("password", msgInvalidPassword)
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, email, req.IPAddress); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				return nil, fail(FailureRateLimited, msgRateLimited, err)
			}
			s.ctxLog(ctx).Warn("sign-in limiter error", zap.Error(err))
		}
	}

	session, err := s.provider.SignIn(ctx, authdomain.SignInRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if errors.Is(err, authdomain.ErrInvalidCredentials) {
		return nil, fail(FailureInvalidCredentials, msgInvalidCredentials, err)
	}
	if err != nil {
		s.ctxLog(ctx).Error("identity provider sign-in failed", zap.Error(err))
		return nil, fail(FailureExternalService, msgExternalService, err)
	}

	profile, err := s.orgs.GetProfile(ctx, session.IdentityID)
	if err != nil {
		s.discardSession(ctx, session)
		if errors.Is(err, orgdomain.ErrProfileNotFound) {
			return nil, fail(FailureProfileNotFound, msgProfileNotFound, err)
		}
		s.ctxLog(ctx).Error("failed to load profile", zap.String("identity_id", session.IdentityID), zap.Error(err))
		return nil, fail(FailureExternalService, msgExternalService, err)
	}

	org, err := s.orgs.GetByID(ctx, profile.OrganizationID)
	if err != nil && !errors.Is(err, orgdomain.ErrOrganizationNotFound) && !errors.Is(err, orgdomain.ErrInvalidOrganization) {
		s.discardSession(ctx, session)
		s.ctxLog(ctx).Error("failed to load organization", zap.String("organization_id", profile.OrganizationID), zap.Error(err))
		return nil, fail(FailureExternalService, msgExternalService, err)
	}

	if org != nil {
		s.record(ctx, org.ID, profile.ID, auditdomain.ActivitySignIn)
	}

	redirectURL, failure := s.redirectAfterAuth(ctx, req.Redirect, req.PriceID, org, profile)
	if failure != nil {
		return nil, failure
	}
	return &Result{Kind: ResultSignedIn, RedirectURL: redirectURL, Session: session}, nil
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*Result, *Failure) {
	branch := branchNewOrg
	if strings.TrimSpace(req.InviteID) != "" {
		branch = branchInvitation
	}
	result, failure := s.signUp(ctx, req, branch)
	s.metrics.RecordSignUp(ctx, branch, outcome(failure))
	return result, failure
}

func (s *Service) signUp(ctx context.Context, req SignUpRequest, branch string) (*Result, *Failure) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(email) {
		return nil, invalidField("email", msgInvalidEmail)
	}
	if utf8.RuneCountInString(req.Password) < 8 {
		return nil, invalidField("password", msgPasswordTooShort)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidField("name", msgNameRequired)
	}
	req.Email, req.Name = email, name

	var (
		session *authdomain.Session
		profile *orgdomain.Profile
		org     *orgdomain.Organization
		failure *Failure
	)
	if branch == branchInvitation {
		session, profile, org, failure = s.acceptInvitation(ctx, req)
	} else {
		session, profile, org, failure = s.createOrganization(ctx, req)
	}
	if failure != nil {
		return nil, failure
	}

	redirectURL, failure := s.redirectAfterAuth(ctx, req.Redirect, req.PriceID, org, profile)
	if failure != nil {
		return nil, failure
	}
	return &Result{Kind: ResultSignedUp, RedirectURL: redirectURL, Session: session}, nil
}

func (s *Service) acceptInvitation(ctx context.Context, req SignUpRequest) (*authdomain.Session, *orgdomain.Profile, *orgdomain.Organization, *Failure) {
	invitation, err := s.invitations.GetPending(ctx, req.InviteID, req.Email)
	if err != nil {
		if errors.Is(err, invitationdomain.ErrInvitationNotFound) || errors.Is(err, invitationdomain.ErrInvitationNotPending) {
			return nil, nil, nil, fail(FailureInvalidOrExpiredInvitation, msgInvalidInvitation, err)
		}
		return nil, nil, nil, fail(FailureExternalService, msgExternalService, err)
	}

	role, err := permission.ParseRole(invitation.Role)
	if err != nil {
		return nil, nil, nil, fail(FailureInvalidOrExpiredInvitation, msgInvalidInvitation, err)
	}

	session, err := s.provider.SignUp(ctx, authdomain.SignUpRequest{
		Email:     req.Email,
		Password:  req.Password,
		Metadata:  authdomain.Metadata{Name: req.Name, OrganizationID: invitation.OrganizationID},
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		if s.invitationLost(ctx, req, err) {
			return nil, nil, nil, fail(FailureInvalidOrExpiredInvitation, msgInvalidInvitation, err)
		}
		s.ctxLog(ctx).Warn("identity creation failed", zap.String("branch", branchInvitation), zap.Error(err))
		return nil, nil, nil, fail(FailureIdentityCreationFailed, msgIdentityCreation, err)
	}

	comp := newCompensation(s.log)
	comp.add("delete identity", func(ctx context.Context) error {
		return s.provider.DeleteIdentity(ctx, session.IdentityID)
	})

	profile, err := s.orgs.CreateProfile(ctx, orgdomain.CreateProfileRequest{
		ID:             session.IdentityID,
		OrganizationID: invitation.OrganizationID,
		Email:          req.Email,
		Name:           req.Name,
		Role:           role,
	})
	if err != nil {
		_ = comp.run(ctx)
		return nil, nil, nil, fail(FailureIdentityCreationFailed, msgIdentityCreation, err)
	}
	comp.add("delete profile", func(ctx context.Context) error {
		return s.orgs.DeleteProfile(ctx, profile.ID)
	})

	if err := s.invitations.Accept(ctx, invitation.ID); err != nil {
		_ = comp.run(ctx)
		if errors.Is(err, invitationdomain.ErrInvitationNotPending) {
			return nil, nil, nil, fail(FailureInvalidOrExpiredInvitation, msgInvalidInvitation, err)
		}
		return nil, nil, nil, fail(FailureExternalService, msgExternalService, err)
	}

	s.record(ctx, invitation.OrganizationID, profile.ID, auditdomain.ActivityAcceptInvitation)

	org, err := s.orgs.GetByID(ctx, invitation.OrganizationID)
	if err != nil {
		s.ctxLog(ctx).Warn("invited organization not found", zap.String("organization_id", invitation.OrganizationID), zap.Error(err))
		org = nil
	}
	return session, profile, org, nil
}

// invitationLost reports whether an identity failure in the invitation branch
// means another sign-up already claimed the invitation. The invited email is
// fixed, so a concurrent winner surfaces here as an existing identity.
func (s *Service) invitationLost(ctx context.Context, req SignUpRequest, signUpErr error) bool {
	if errors.Is(signUpErr, authdomain.ErrIdentityExists) {
		return true
	}
	_, err := s.invitations.GetPending(ctx, req.InviteID, req.Email)
	return errors.Is(err, invitationdomain.ErrInvitationNotFound) || errors.Is(err, invitationdomain.ErrInvitationNotPending)
}

func (s *Service) createOrganization(ctx context.Context, req SignUpRequest) (*authdomain.Session, *orgdomain.Profile, *orgdomain.Organization, *Failure) {
	if strings.TrimSpace(req.OrganizationName) == "" || strings.TrimSpace(req.Subdomain) == "" {
		return nil, nil, nil, fail(FailureValidation, msgOrganizationFields, nil)
	}

	org, err := s.orgs.Create(ctx, orgdomain.CreateOrganizationRequest{
		Name:      req.OrganizationName,
		Subdomain: req.Subdomain,
	})
	if err != nil {
		return nil, nil, nil, organizationFailure(err)
	}

	comp := newCompensation(s.log)
	comp.add("delete organization", func(ctx context.Context) error {
		return s.orgs.Delete(ctx, org.ID)
	})

	session, err := s.provider.SignUp(ctx, authdomain.SignUpRequest{
		Email:     req.Email,
		Password:  req.Password,
		Metadata:  authdomain.Metadata{Name: req.Name, OrganizationID: org.ID},
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		s.ctxLog(ctx).Warn("identity creation failed", zap.String("branch", branchNewOrg), zap.Error(err))
		_ = comp.run(ctx)
		return nil, nil, nil, fail(FailureIdentityCreationFailed, msgIdentityCreation, err)
	}
	comp.add("delete identity", func(ctx context.Context) error {
		return s.provider.DeleteIdentity(ctx, session.IdentityID)
	})

	profile, err := s.orgs.CreateProfile(ctx, orgdomain.CreateProfileRequest{
		ID:             session.IdentityID,
		OrganizationID: org.ID,
		Email:          req.Email,
		Name:           req.Name,
		Role:           permission.RoleOwner,
	})
	if err != nil {
		_ = comp.run(ctx)
		return nil, nil, nil, fail(FailureIdentityCreationFailed, msgIdentityCreation, err)
	}

	s.record(ctx, org.ID, profile.ID, auditdomain.ActivityCreateTeam)
	s.record(ctx, org.ID, profile.ID, auditdomain.ActivitySignUp)
	return session, profile, org, nil
}

func (s *Service) SignOut(ctx context.Context, req SignOutRequest) (*Result, *Failure) {
	err := s.provider.SignOut(ctx, req.Token)
	switch {
	case err == nil,
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionExpired):
	default:
		s.ctxLog(ctx).Error("sign-out failed", zap.Error(err))
		return nil, fail(FailureSignOutFailed, msgSignOutFailed, err)
	}

	s.record(ctx, req.OrganizationID, req.ProfileID, auditdomain.ActivitySignOut)
	return &Result{Kind: ResultSignedOut, RedirectURL: redirectHome}, nil
}

func (s *Service) redirectAfterAuth(ctx context.Context, redirect, priceID string, org *orgdomain.Organization, profile *orgdomain.Profile) (string, *Failure) {
	if strings.TrimSpace(redirect) != redirectCheckout {
		return redirectDashboard, nil
	}
	if org == nil {
		return "", fail(FailureOrganizationRequired, msgOrganizationRequired, orgdomain.ErrOrganizationNotFound)
	}

	target, err := s.billing.CreateCheckoutSession(ctx, billingdomain.CheckoutRequest{
		Organization: org,
		Profile:      profile,
		PriceID:      priceID,
	})
	if errors.Is(err, billingdomain.ErrPriceRequired) {
		return "", invalidField("priceId", msgPriceRequired)
	}
	if err != nil {
		return "", fail(FailureExternalService, msgExternalService, err)
	}
	return target.URL, nil
}

// discardSession revokes a session issued for a sign-in that did not
// complete.
func (s *Service) discardSession(ctx context.Context, session *authdomain.Session) {
	if err := s.provider.SignOut(context.WithoutCancel(ctx), session.Token); err != nil {
		s.ctxLog(ctx).Warn("failed to revoke incomplete session", zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, orgID, userID string, action auditdomain.ActivityType) {
	if s.audit == nil || strings.TrimSpace(orgID) == "" {
		return
	}
	if err := s.audit.Record(ctx, auditdomain.RecordRequest{
		OrganizationID: orgID,
		UserID:         userID,
		Action:         action,
	}); err != nil {
		s.ctxLog(ctx).Warn("failed to record activity", zap.String("action", string(action)), zap.Error(err))
	}
}

func organizationFailure(err error) *Failure {
	switch {
	case errors.Is(err, orgdomain.ErrSubdomainTaken):
		return &Failure{Kind: FailureSubdomainTaken, Message: msgSubdomainTaken, Field: "subdomain", Err: err}
	case errors.Is(err, orgdomain.ErrSubdomainTooShort):
		return &Failure{Kind: FailureValidation, Message: msgSubdomainTooShort, Field: "subdomain", Err: err}
	case errors.Is(err, orgdomain.ErrSubdomainTooLong):
		return &Failure{Kind: FailureValidation, Message: msgSubdomainTooLong, Field: "subdomain", Err: err}
	case errors.Is(err, orgdomain.ErrSubdomainReserved):
		return &Failure{Kind: FailureValidation, Message: msgSubdomainReserved, Field: "subdomain", Err: err}
	case errors.Is(err, orgdomain.ErrInvalidName):
		return &Failure{Kind: FailureValidation, Message: msgInvalidOrganization, Field: "organizationName", Err: err}
	default:
		return fail(FailureExternalService, msgExternalService, err)
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func outcome(f *Failure) string {
	if f == nil {
		return "success"
	}
	return string(f.Kind)
}

// ctxLog carries request, organization and actor fields from ctx.
func (s *Service) ctxLog(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
