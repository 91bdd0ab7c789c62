package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/jobs"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// Scheduler fires the aggregator on a fixed cadence. Ticks are
// single-flight: if a run outlasts the interval the next tick is skipped
// rather than letting two runs race on the same upsert batch.
type Scheduler struct {
	aggregator *Aggregator
	jobStore   *jobs.Store
	interval   time.Duration
	logger     *logrus.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(aggregator *Aggregator, jobStore *jobs.Store, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		aggregator: aggregator,
		jobStore:   jobStore,
		interval:   interval,
		logger:     logger,
	}
}

// Start blocks until ctx is cancelled, running the aggregator immediately
// and then once per interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("ranking scheduler started")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ranking scheduler stopped")
			return
		case <-ticker.C:
			go s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous ranking run still in progress, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.jobStore != nil {
		enabled, err := s.jobStore.Enabled(ctx, jobs.RankingJob)
		if err != nil {
			s.logger.WithError(err).Warn("job switch unavailable, running anyway")
		} else if !enabled {
			s.logger.Debug("ranking job disabled, skipping tick")
			return
		}
	}

	status := models.RunStatus{StartedAt: time.Now().UTC()}

	records, err := s.aggregator.Run(ctx)
	status.FinishedAt = time.Now().UTC()
	status.Records = len(records)
	if err != nil {
		status.Error = err.Error()
		s.logger.WithError(err).Error("ranking run failed")
	}

	if s.jobStore != nil {
		if err := s.jobStore.RecordRun(ctx, jobs.RankingJob, status); err != nil {
			s.logger.WithError(err).Warn("failed to record run status")
		}
	}
}
