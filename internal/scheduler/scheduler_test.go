package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	authdomain "github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/clock"
	obsmetrics "github.com/smallbiznis/tenantly/internal/observability/metrics"
	"github.com/smallbiznis/tenantly/internal/organization/event"
	"github.com/smallbiznis/tenantly/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	published []OutboxMessage
	failOn    string
}

func (p *recordingPublisher) Publish(_ context.Context, msg OutboxMessage) error {
	if msg.Topic == p.failOn {
		return errors.New("stream unavailable")
	}
	p.published = append(p.published, msg)
	return nil
}

type fixture struct {
	conn  *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	sched *Scheduler
}

func newFixture(t *testing.T, publisher Publisher, cfg Config) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.IdentitySession{}, &event.OutboxEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	sched, err := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Publisher: publisher,
		Config:    cfg,
	})
	require.NoError(t, err)

	return &fixture{conn: conn, node: node, clock: fakeClock, sched: sched}
}

func (f *fixture) insertSession(t *testing.T, expiresAt time.Time, revokedAt *time.Time) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.conn.Create(&authdomain.IdentitySession{
		ID:         id,
		IdentityID: "identity-1",
		TokenHash:  id.String(),
		ExpiresAt:  expiresAt,
		RevokedAt:  revokedAt,
		CreatedAt:  expiresAt.Add(-time.Hour),
		LastSeenAt: expiresAt.Add(-time.Hour),
	}).Error)
	return id
}

func (f *fixture) insertEvent(t *testing.T, orgID, topic string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.conn.Create(&event.OutboxEvent{
		ID:             id,
		OrganizationID: orgID,
		Topic:          topic,
		Payload:        []byte(`{"organization_id":"` + orgID + `"}`),
		CreatedAt:      f.clock.Now(),
	}).Error)
	return id
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPurgeSessionsKeepsLiveAndRecent(t *testing.T) {
	f := newFixture(t, nil, Config{SessionRetention: 24 * time.Hour})
	now := f.clock.Now()

	longExpired := f.insertSession(t, now.Add(-48*time.Hour), nil)
	recentlyExpired := f.insertSession(t, now.Add(-time.Hour), nil)
	live := f.insertSession(t, now.Add(24*time.Hour), nil)
	revokedAt := now.Add(-72 * time.Hour)
	longRevoked := f.insertSession(t, now.Add(24*time.Hour), &revokedAt)

	purged, err := f.sched.PurgeSessionsJob(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, purged)

	var remaining []snowflake.ID
	require.NoError(t, f.conn.Model(&authdomain.IdentitySession{}).Order("id").Pluck("id", &remaining).Error)
	require.ElementsMatch(t, []snowflake.ID{recentlyExpired, live}, remaining)
	require.NotContains(t, remaining, longExpired)
	require.NotContains(t, remaining, longRevoked)
}

func TestRelayOutboxPublishesInOrder(t *testing.T) {
	publisher := &recordingPublisher{}
	f := newFixture(t, publisher, Config{BatchSize: 2})

	first := f.insertEvent(t, "org-1", event.OrganizationCreatedTopic)
	second := f.insertEvent(t, "org-1", event.CustomDomainVerifiedTopic)
	third := f.insertEvent(t, "org-2", event.OrganizationCreatedTopic)

	relayed, err := f.sched.RelayOutboxJob(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, relayed)

	require.Len(t, publisher.published, 3)
	require.Equal(t, first.String(), publisher.published[0].ID)
	require.Equal(t, second.String(), publisher.published[1].ID)
	require.Equal(t, third.String(), publisher.published[2].ID)
	require.Equal(t, "org-2", publisher.published[2].OrganizationID)

	var pending int64
	require.NoError(t, f.conn.Model(&event.OutboxEvent{}).Where("published = ?", false).Count(&pending).Error)
	require.Zero(t, pending)

	relayed, err = f.sched.RelayOutboxJob(context.Background())
	require.NoError(t, err)
	require.Zero(t, relayed)
	require.Len(t, publisher.published, 3)
}

func TestRelayOutboxStopsAtFirstFailure(t *testing.T) {
	publisher := &recordingPublisher{failOn: event.CustomDomainVerifiedTopic}
	f := newFixture(t, publisher, Config{})

	f.insertEvent(t, "org-1", event.OrganizationCreatedTopic)
	blocked := f.insertEvent(t, "org-1", event.CustomDomainVerifiedTopic)
	f.insertEvent(t, "org-1", event.OrganizationDeletedTopic)

	relayed, err := f.sched.RelayOutboxJob(context.Background())
	require.ErrorIs(t, err, ErrPublishFailed)
	require.Equal(t, 1, relayed)

	var pending []snowflake.ID
	require.NoError(t, f.conn.Model(&event.OutboxEvent{}).Where("published = ?", false).Order("id").Pluck("id", &pending).Error)
	require.Len(t, pending, 2)
	require.Equal(t, blocked, pending[0])
}

func TestRelayOutboxWithoutPublisherLeavesEvents(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.insertEvent(t, "org-1", event.OrganizationCreatedTopic)

	relayed, err := f.sched.RelayOutboxJob(context.Background())
	require.NoError(t, err)
	require.Zero(t, relayed)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	registry := prometheus.NewRegistry()
	f := newFixture(t, nil, Config{})
	f.sched.metrics = obsmetrics.NewSchedulerMetricsForTest(registry)

	err := f.sched.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)

	require.Equal(t, 1, testutil.CollectAndCount(registry, "tenantly_scheduler_job_timeouts_total"))
	require.Equal(t, 1, testutil.CollectAndCount(registry, "tenantly_scheduler_job_errors_total"))
}

func TestRunJobWrapsFailure(t *testing.T) {
	f := newFixture(t, nil, Config{})

	boom := errors.New("boom")
	err := f.sched.runJob(context.Background(), "failing_job", time.Second, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "failing_job")
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	publisher := &recordingPublisher{}
	f := newFixture(t, publisher, Config{EnabledJobs: []string{JobPurgeSessions}})
	f.insertEvent(t, "org-1", event.OrganizationCreatedTopic)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	require.Empty(t, publisher.published)
}
