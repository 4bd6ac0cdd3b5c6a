package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditcontext "github.com/smallbiznis/tenantly/internal/auditcontext"
	"github.com/smallbiznis/tenantly/internal/clock"
	obsmetrics "github.com/smallbiznis/tenantly/internal/observability/metrics"
	"github.com/smallbiznis/tenantly/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrPublishFailed = errors.New("outbox_publish_failed")
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Publisher Publisher                    `optional:"true"`
	Locker    *ratelimit.Locker            `optional:"true"`
	Metrics   *obsmetrics.SchedulerMetrics `optional:"true"`
	Config    Config                       `optional:"true"`
}

// Scheduler runs periodic maintenance: purging dead sessions and relaying
// the organization outbox.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	publisher Publisher
	locker    *ratelimit.Locker
	metrics   *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		publisher: p.Publisher,
		locker:    p.Locker,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) (int, error),
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, "system", "scheduler")
	log := s.log.With(
		zap.String("job", name),
		zap.String("run_id", s.genID.Generate().String()),
	)

	var processed int
	err := s.locker.WithLock(ctx, "tenantly:scheduler:"+name, timeout, func(ctx context.Context) error {
		var runErr error
		processed, runErr = fn(ctx)
		return runErr
	})
	if errors.Is(err, ratelimit.ErrLockHeld) {
		log.Debug("job skipped, another instance holds the lock")
		return nil
	}

	// Deadline is a soft timeout; the next tick picks up the rest.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.ObserveJob(name, processed, time.Since(start), err, isTimeout)

	switch {
	case err == nil:
		if processed > 0 {
			log.Info("job finished", zap.Int("processed", processed), zap.Duration("duration", time.Since(start)))
		}
		return nil
	case isTimeout:
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Int("processed", processed),
			zap.Error(err),
		)
		return nil
	default:
		return fmt.Errorf("%s: %w", name, err)
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) (int, error)
	}{
		{JobPurgeSessions, s.PurgeSessionsJob},
		{JobRelayOutbox, s.RelayOutboxJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
