package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tenantly/internal/audit/domain"
	"github.com/smallbiznis/tenantly/internal/audit/repository"
	auditcontext "github.com/smallbiznis/tenantly/internal/auditcontext"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"github.com/smallbiznis/tenantly/pkg/db"
	"github.com/smallbiznis/tenantly/pkg/db/pagination"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.ActivityLog{}))
	require.NoError(t, conn.Exec(`CREATE TABLE profiles (id TEXT PRIMARY KEY, name TEXT)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, conn, clk
}

func countActivities(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&auditdomain.ActivityLog{}).Count(&n).Error)
	return n
}

func TestRecordWithoutOrganizationIsNoop(t *testing.T) {
	svc, conn, _ := newTestService(t)

	err := svc.Record(context.Background(), auditdomain.RecordRequest{
		UserID: "user-1",
		Action: auditdomain.ActivitySignIn,
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), countActivities(t, conn))
}

func TestRecordCapturesRequestContext(t *testing.T) {
	svc, conn, _ := newTestService(t)

	ctx := auditcontext.WithIPAddress(context.Background(), "203.0.113.9")
	ctx = auditcontext.WithUserAgent(ctx, "curl/8")
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	ctx = auditcontext.WithActor(ctx, "user", "user-7")

	err := svc.Record(ctx, auditdomain.RecordRequest{
		OrganizationID: "org-1",
		Action:         auditdomain.ActivityUpdateSubscription,
		Metadata:       map[string]any{"stripe_customer_id": "cus_1234567890"},
	})
	require.NoError(t, err)

	var stored auditdomain.ActivityLog
	require.NoError(t, conn.First(&stored).Error)
	require.Equal(t, "org-1", stored.OrganizationID)
	require.NotNil(t, stored.UserID)
	require.Equal(t, "user-7", *stored.UserID)
	require.Equal(t, "203.0.113.9", *stored.IPAddress)
	require.Equal(t, "cus_****7890", stored.Metadata["stripe_customer_id"])
	require.Equal(t, "req-1", stored.Metadata["request_id"])
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Record(context.Background(), auditdomain.RecordRequest{
		OrganizationID: "org-1",
		Action:         "DANCE",
	})
	require.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginatesLatestFirstWithMemberName(t *testing.T) {
	svc, conn, clk := newTestService(t)
	require.NoError(t, conn.Exec(`INSERT INTO profiles (id, name) VALUES (?, ?)`, "user-1", "Ada").Error)

	actions := []auditdomain.ActivityType{
		auditdomain.ActivitySignUp,
		auditdomain.ActivityCreateTeam,
		auditdomain.ActivitySignIn,
	}
	for _, action := range actions {
		require.NoError(t, svc.Record(context.Background(), auditdomain.RecordRequest{
			OrganizationID: "org-1",
			UserID:         "user-1",
			Action:         action,
		}))
		clk.Advance(time.Second)
	}
	require.NoError(t, svc.Record(context.Background(), auditdomain.RecordRequest{
		OrganizationID: "org-2",
		UserID:         "user-9",
		Action:         auditdomain.ActivitySignIn,
	}))

	ctx := orgcontext.WithOrganization(context.Background(), "org-1", "Acme")
	first, err := svc.List(ctx, auditdomain.ListActivityRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Activities, 2)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)
	require.Equal(t, auditdomain.ActivitySignIn, first.Activities[0].Action)
	require.NotNil(t, first.Activities[0].UserName)
	require.Equal(t, "Ada", *first.Activities[0].UserName)

	second, err := svc.List(ctx, auditdomain.ListActivityRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Activities, 1)
	require.False(t, second.HasMore)
	require.Equal(t, auditdomain.ActivitySignUp, second.Activities[0].Action)
}

func TestListRequiresOrganization(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.List(context.Background(), auditdomain.ListActivityRequest{})
	require.ErrorIs(t, err, auditdomain.ErrInvalidOrganization)

	ctx := orgcontext.WithOrganization(context.Background(), "org-1", "Acme")
	_, err = svc.List(ctx, auditdomain.ListActivityRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	require.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
