package domain

import "context"

// Provider is the identity collaborator used by the auth workflows.
type Provider interface {
	SignIn(ctx context.Context, req SignInRequest) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*Session, error)
	GetSession(ctx context.Context, token string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	DeleteIdentity(ctx context.Context, identityID string) error
}

type SignInRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type SignUpRequest struct {
	Email     string
	Password  string
	Metadata  Metadata
	UserAgent string
	IPAddress string
}
