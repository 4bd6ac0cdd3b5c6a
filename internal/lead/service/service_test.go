package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantly/internal/clock"
	"github.com/smallbiznis/tenantly/internal/lead/domain"
	"github.com/smallbiznis/tenantly/internal/lead/repository"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"github.com/smallbiznis/tenantly/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Lead{},
		&domain.DripCampaign{},
		&domain.DripCampaignStep{},
		&domain.LeadPage{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)),
	})
}

func strPtr(v string) *string { return &v }

func TestLeadsAreScopedToOrganization(t *testing.T) {
	svc := newTestService(t)
	acme := orgcontext.WithOrganization(context.Background(), "org-acme", "Acme")
	globex := orgcontext.WithOrganization(context.Background(), "org-globex", "Globex")

	lead, err := svc.CreateLead(acme, domain.CreateLeadRequest{Name: strPtr(" Jane "), Email: strPtr("jane@example.com")})
	require.NoError(t, err)
	require.Equal(t, domain.LeadStatusNew, lead.Status)
	require.Equal(t, "Jane", *lead.Name)

	_, err = svc.CreateLead(acme, domain.CreateLeadRequest{Message: strPtr("hi")})
	require.ErrorIs(t, err, domain.ErrInvalidLead)

	leads, err := svc.ListLeads(acme)
	require.NoError(t, err)
	require.Len(t, leads, 1)

	leads, err = svc.ListLeads(globex)
	require.NoError(t, err)
	require.Empty(t, leads)

	_, err = svc.ListLeads(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCampaignStoresSteps(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrganization(context.Background(), "org-acme", "Acme")

	_, err := svc.CreateCampaign(ctx, domain.CreateCampaignRequest{
		Name:         "Welcome",
		TriggerEvent: strPtr("lead_created"),
		Steps: []domain.CreateCampaignStep{
			{Type: "email", Content: "Welcome aboard", Delay: 0},
			{Type: "SMS", Content: "Checking in", Delay: 48},
		},
	})
	require.NoError(t, err)

	_, err = svc.CreateCampaign(ctx, domain.CreateCampaignRequest{
		Name:  "Broken",
		Steps: []domain.CreateCampaignStep{{Type: "fax", Content: "x"}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidStep)

	campaigns, err := svc.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Len(t, campaigns[0].Steps, 2)
	require.Equal(t, "sms", campaigns[0].Steps[1].Type)
	require.Equal(t, 48, campaigns[0].Steps[1].Delay)
}

func TestPageSlugUniquePerOrganization(t *testing.T) {
	svc := newTestService(t)
	acme := orgcontext.WithOrganization(context.Background(), "org-acme", "Acme")
	globex := orgcontext.WithOrganization(context.Background(), "org-globex", "Globex")

	page, err := svc.CreatePage(acme, domain.CreatePageRequest{Title: "Plumbing in Austin, TX", Content: "<h1>Hi</h1>"})
	require.NoError(t, err)
	require.Equal(t, "plumbing-in-austin-tx", page.Slug)

	_, err = svc.CreatePage(acme, domain.CreatePageRequest{Title: "Other", Slug: "Plumbing in Austin TX", Content: "x"})
	require.ErrorIs(t, err, domain.ErrSlugTaken)

	_, err = svc.CreatePage(globex, domain.CreatePageRequest{Title: "Plumbing in Austin, TX", Content: "x"})
	require.NoError(t, err)

	pages, err := svc.ListPages(acme)
	require.NoError(t, err)
	require.Len(t, pages, 1)
}
