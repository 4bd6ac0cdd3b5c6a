package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantly/internal/invitation/domain"
	"github.com/smallbiznis/tenantly/internal/invitation/repository"
	"github.com/smallbiznis/tenantly/internal/permission"
	"github.com/smallbiznis/tenantly/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Invitation{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Log:   zap.NewNop(),
		Repo:  repository.NewRepository(conn),
		GenID: node,
	}), conn
}

func createInvite(t *testing.T, svc domain.Service) *domain.Invitation {
	t.Helper()
	inv, err := svc.Create(context.Background(), domain.CreateRequest{
		OrganizationID: "org-1",
		InvitedBy:      "owner-1",
		InviterRole:    permission.RoleOwner,
		Email:          "New.Hire@Example.com",
		Role:           "admin",
	})
	require.NoError(t, err)
	return inv
}

func TestCreateValidatesRoleAndDuplicates(t *testing.T) {
	svc, _ := newTestService(t)

	inv := createInvite(t, svc)
	require.Equal(t, "new.hire@example.com", inv.Email)
	require.Equal(t, domain.StatusPending, inv.Status)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		OrganizationID: "org-1", InvitedBy: "owner-1", InviterRole: permission.RoleOwner,
		Email: "new.hire@example.com", Role: "member",
	})
	require.ErrorIs(t, err, domain.ErrAlreadyInvited)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		OrganizationID: "org-1", InvitedBy: "owner-1", InviterRole: permission.RoleOwner,
		Email: "boss@example.com", Role: "owner",
	})
	require.ErrorIs(t, err, domain.ErrRoleNotAssignable)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		OrganizationID: "org-1", InvitedBy: "m-1", InviterRole: permission.RoleMember,
		Email: "peer@example.com", Role: "admin",
	})
	require.ErrorIs(t, err, domain.ErrRoleNotAssignable)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		OrganizationID: "org-1", InvitedBy: "owner-1", InviterRole: permission.RoleOwner,
		Email: "not-an-email", Role: "member",
	})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestGetPendingRequiresMatchingEmail(t *testing.T) {
	svc, _ := newTestService(t)
	inv := createInvite(t, svc)

	got, err := svc.GetPending(context.Background(), inv.ID.String(), "new.hire@example.com")
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)

	_, err = svc.GetPending(context.Background(), inv.ID.String(), "someone@example.com")
	require.ErrorIs(t, err, domain.ErrInvitationNotFound)

	_, err = svc.GetPending(context.Background(), "not-a-number", "new.hire@example.com")
	require.ErrorIs(t, err, domain.ErrInvitationNotFound)

	require.NoError(t, svc.Accept(context.Background(), inv.ID))
	_, err = svc.GetPending(context.Background(), inv.ID.String(), "new.hire@example.com")
	require.ErrorIs(t, err, domain.ErrInvitationNotPending)

	pending, err := svc.ListPending(context.Background(), "org-1")
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestAcceptIsExactlyOnce(t *testing.T) {
	svc, conn := newTestService(t)
	inv := createInvite(t, svc)

	const attempts = 2
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Accept(context.Background(), inv.ID)
		}(i)
	}
	wg.Wait()

	var successes, losses int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInvitationNotPending):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, losses)

	var accepted int64
	require.NoError(t, conn.Model(&domain.Invitation{}).Where("status = ?", domain.StatusAccepted).Count(&accepted).Error)
	require.Equal(t, int64(1), accepted)
}
