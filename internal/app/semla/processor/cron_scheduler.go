package processor

import (
	"context"
	"time"

	"semelfinder/internal/app/semla/repository"
	"semelfinder/pkg/logger"
	"semelfinder/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// CronScheduler периодически удаляет устаревшие строки счётчиков действий.
// Счётчики нужны только в пределах одного дня, старые строки - мусор.
type CronScheduler struct {
	cron          *cron.Cron
	trackers      repository.TrackerRepository
	retentionDays int
}

func NewCronScheduler(trackers repository.TrackerRepository, retentionDays int) *CronScheduler {
	return &CronScheduler{
		cron:          cron.New(),
		trackers:      trackers,
		retentionDays: retentionDays,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().
		Str("schedule", schedule).
		Int("retention_days", s.retentionDays).
		Msg("starting cron scheduler")

	_, err := s.cron.AddFunc(schedule, func() {
		s.purgeStaleTrackers(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()

	// Первый прогон сразу при старте, чтобы не ждать расписания
	s.purgeStaleTrackers(ctx)

	return nil
}

func (s *CronScheduler) purgeStaleTrackers(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	deleted, err := s.trackers.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("failed to purge stale action trackers")
		return
	}

	metrics.RecordTrackerRowsPurged(deleted)
	logger.Info().
		Int64("deleted", deleted).
		Str("cutoff", cutoff.Format("2006-01-02")).
		Msg("purged stale action trackers")
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("stopping cron scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
