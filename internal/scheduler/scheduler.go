// Package scheduler runs the background housekeeping jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/store"
)

// ExpiryLister lists stocked batches expiring within a number of days.
type ExpiryLister interface {
	ExpiringBatches(ctx context.Context, days int) ([]store.ExpiringBatch, error)
}

// SessionPurger closes idle sale sessions.
type SessionPurger interface {
	PurgeIdle(maxIdle time.Duration) int
}

type Config struct {
	ExpiryAlertDays int
	ExpirySweepAt   string // HH:MM, local time
	SessionIdle     time.Duration
}

type Scheduler struct {
	cron     *gocron.Scheduler
	batches  ExpiryLister
	sessions SessionPurger
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      Config
}

func New(cfg Config, batches ExpiryLister, sessions SessionPurger, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if cfg.ExpirySweepAt == "" {
		cfg.ExpirySweepAt = "01:01"
	}
	return &Scheduler{
		cron:     gocron.NewScheduler(time.Local),
		batches:  batches,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(1).Day().At(s.cfg.ExpirySweepAt).Do(s.SweepExpiring); err != nil {
		return errors.Wrap(err, "schedule expiry sweep")
	}
	if s.cfg.SessionIdle > 0 {
		interval := int(s.cfg.SessionIdle / (2 * time.Minute))
		if interval < 1 {
			interval = 1
		}
		if _, err := s.cron.Every(interval).Minutes().Do(s.PurgeSessions); err != nil {
			return errors.Wrap(err, "schedule session purge")
		}
	}
	s.cron.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Jobs())
}

// SweepExpiring logs every stocked batch inside the alert window and
// publishes their count.
func (s *Scheduler) SweepExpiring() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	batches, err := s.batches.ExpiringBatches(ctx, s.cfg.ExpiryAlertDays)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	for _, b := range batches {
		s.logger.Warn("batch expiring soon",
			zap.String("product", b.ProductName),
			zap.String("batch_number", b.BatchNumber),
			zap.String("expiration_date", b.ExpirationDate),
			zap.Int("quantity", b.Quantity),
		)
	}
	if s.metrics != nil {
		s.metrics.ExpiringBatches.Set(float64(len(batches)))
	}
	s.logger.Info("expiry sweep finished", zap.Int("expiring", len(batches)), zap.Int("window_days", s.cfg.ExpiryAlertDays))
}

// PurgeSessions closes sale sessions idle for longer than the configured
// window.
func (s *Scheduler) PurgeSessions() {
	if n := s.sessions.PurgeIdle(s.cfg.SessionIdle); n > 0 {
		s.logger.Info("purged idle sale sessions", zap.Int("count", n))
	}
}
