package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/auth/repository"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/smallbiznis/tenantly/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, clk clock.Clock) authdomain.Provider {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.Identity{}, &authdomain.IdentitySession{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(Params{
		Log:      zap.NewNop(),
		Cfg:      config.Config{AppName: "tenantly", AuthJWTSecret: "test-secret", AuthSessionTTL: time.Hour},
		Repo:     repo,
		Sessions: sessionRepo,
		GenID:    node,
		Clock:    clk,
	})
}

func TestSignInWrongPassword(t *testing.T) {
	svc := newTestService(t, clock.SystemClock{})

	if _, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	}); err != nil {
		t.Fatalf("failed to sign up: %v", err)
	}

	_, err := svc.SignIn(context.Background(), authdomain.SignInRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = svc.SignIn(context.Background(), authdomain.SignInRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected unknown email to look like bad credentials, got %v", err)
	}
}

func TestSignUpCarriesMetadata(t *testing.T) {
	svc := newTestService(t, clock.SystemClock{})

	sess, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "Bob@Example.com",
		Password: "strong-password",
		Metadata: authdomain.Metadata{Name: "Bob", OrganizationID: "01HORG"},
	})
	if err != nil {
		t.Fatalf("failed to sign up: %v", err)
	}
	if _, err := uuid.Parse(sess.IdentityID); err != nil {
		t.Fatalf("expected identity id UUID, got %v", err)
	}
	if sess.Email != "bob@example.com" {
		t.Fatalf("expected normalized email, got %s", sess.Email)
	}
	if sess.OrganizationID() != "01HORG" {
		t.Fatalf("expected organization metadata, got %v", sess.Metadata)
	}

	_, err = svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "bob@example.com",
		Password: "strong-password",
	})
	if !errors.Is(err, authdomain.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}

func TestGetSessionAndSignOut(t *testing.T) {
	svc := newTestService(t, clock.SystemClock{})

	sess, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "carol@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to sign up: %v", err)
	}

	got, err := svc.GetSession(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("expected valid session, got %v", err)
	}
	if got.IdentityID != sess.IdentityID {
		t.Fatalf("expected identity %s, got %s", sess.IdentityID, got.IdentityID)
	}

	if err := svc.SignOut(context.Background(), sess.Token); err != nil {
		t.Fatalf("failed to sign out: %v", err)
	}
	if _, err := svc.GetSession(context.Background(), sess.Token); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestGetSessionRejectsTamperedAndExpiredTokens(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	svc := newTestService(t, clk)

	sess, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "dave@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to sign up: %v", err)
	}

	if _, err := svc.GetSession(context.Background(), sess.Token+"x"); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := svc.GetSession(context.Background(), sess.Token); !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestDeleteIdentity(t *testing.T) {
	svc := newTestService(t, clock.SystemClock{})

	sess, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:    "erin@example.com",
		Password: "strong-password",
	})
	if err != nil {
		t.Fatalf("failed to sign up: %v", err)
	}
	if err := svc.DeleteIdentity(context.Background(), sess.IdentityID); err != nil {
		t.Fatalf("failed to delete identity: %v", err)
	}
	if _, err := svc.SignIn(context.Background(), authdomain.SignInRequest{
		Email:    "erin@example.com",
		Password: "strong-password",
	}); !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected deleted identity to fail sign in, got %v", err)
	}
}

type flakySessionRepository struct {
	authdomain.SessionRepository
	failures int
}

func (r *flakySessionRepository) CreateSession(ctx context.Context, session *authdomain.IdentitySession) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("session store unavailable")
	}
	return r.SessionRepository.CreateSession(ctx, session)
}

func TestSignUpSessionFailureReleasesEmail(t *testing.T) {
	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.Identity{}, &authdomain.IdentitySession{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	sessions := &flakySessionRepository{SessionRepository: sessionRepo, failures: 1}
	svc := New(Params{
		Log:      zap.NewNop(),
		Cfg:      config.Config{AppName: "tenantly", AuthJWTSecret: "test-secret", AuthSessionTTL: time.Hour},
		Repo:     repo,
		Sessions: sessions,
		GenID:    node,
		Clock:    clock.SystemClock{},
	})

	req := authdomain.SignUpRequest{Email: "gina@example.com", Password: "strong-password"}
	if _, err := svc.SignUp(context.Background(), req); err == nil {
		t.Fatalf("expected sign up to fail while the session store is down")
	}

	var count int64
	if err := dbConn.Model(&authdomain.Identity{}).Where("email = ?", "gina@example.com").Count(&count).Error; err != nil {
		t.Fatalf("failed to count identities: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no identity left behind, got %d", count)
	}

	sess, err := svc.SignUp(context.Background(), req)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if sess.Email != "gina@example.com" {
		t.Fatalf("unexpected session email %q", sess.Email)
	}
}
