// Package authflow runs the sign-in, sign-up and sign-out workflows on top of
// the identity provider and the organization store.
package authflow

import (
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
)

type ResultKind string

const (
	ResultSignedIn  ResultKind = "signed_in"
	ResultSignedUp  ResultKind = "signed_up"
	ResultSignedOut ResultKind = "signed_out"
)

// Result is the successful outcome of a workflow. Session is set when a new
// session was issued and the caller must persist its token.
type Result struct {
	Kind        ResultKind
	RedirectURL string
	Session     *authdomain.Session
}

type FailureKind string

const (
	FailureValidation                 FailureKind = "validation"
	FailureInvalidCredentials         FailureKind = "invalid_credentials"
	FailureProfileNotFound            FailureKind = "profile_not_found"
	FailureOrganizationRequired       FailureKind = "organization_required"
	FailureInvalidOrExpiredInvitation FailureKind = "invalid_or_expired_invitation"
	FailureIdentityCreationFailed     FailureKind = "identity_creation_failed"
	FailureSubdomainTaken             FailureKind = "subdomain_taken"
	FailureSignOutFailed              FailureKind = "sign_out_failed"
	FailureRateLimited                FailureKind = "rate_limited"
	FailureExternalService            FailureKind = "external_service"
)

const (
	msgInvalidCredentials   = "Invalid email or password. Please try again."
	msgProfileNotFound      = "Profile not found. Please contact support."
	msgOrganizationRequired = "Organization not found."
	msgInvalidInvitation    = "Invalid or expired invitation."
	msgIdentityCreation     = "Failed to create user. Please try again."
	msgOrganizationFields   = "Organization name and subdomain are required."
	msgSubdomainTaken       = "This subdomain is already taken. Please choose another."
	msgSignOutFailed        = "Failed to sign out. Please try again."
	msgRateLimited          = "Too many attempts. Please wait a moment and try again."
	msgExternalService      = "Something went wrong. Please try again."
	msgInvalidEmail         = "Please enter a valid email address."
	msgInvalidPassword      = "Password must be between 8 and 100 characters."
	msgPasswordTooShort     = "Password must be at least 8 characters."
	msgNameRequired         = "Name is required."
	msgSubdomainTooShort    = "Subdomain must be at least 3 characters."
	msgSubdomainTooLong     = "Subdomain must be at most 63 characters."
	msgSubdomainReserved    = "This subdomain is reserved. Please choose another."
	msgInvalidOrganization  = "Organization name is invalid."
	msgPriceRequired        = "A price must be selected to start checkout."
)

// Failure is a user-facing workflow failure. Err carries the underlying
// cause for logging and is never shown to the user.
type Failure struct {
	Kind    FailureKind
	Message string
	Field   string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return string(f.Kind) + ": " + f.Err.Error()
	}
	return string(f.Kind) + ": " + f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(kind FailureKind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

func invalidField(field, message string) *Failure {
	return &Failure{Kind: FailureValidation, Message: message, Field: field}
}
