package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/config"
)

// AuditPruner removes audit entries recorded before the cutoff.
type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// RetentionScheduler runs the periodic audit retention sweep.
type RetentionScheduler struct {
	cron      *cron.Cron
	pruner    AuditPruner
	retention time.Duration
	schedule  string
	logger    *zap.Logger
}

// NewRetentionScheduler creates the scheduler from config.
func NewRetentionScheduler(cfg config.RetentionConfig, pruner AuditPruner, logger *zap.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		cron:      cron.New(),
		pruner:    pruner,
		retention: cfg.AuditRetention,
		schedule:  cfg.Schedule,
		logger:    logger,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *RetentionScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Audit retention scheduler started",
		zap.String("schedule", s.schedule),
		zap.Duration("retention", s.retention),
	)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *RetentionScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *RetentionScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Audit retention sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Audit retention sweep completed",
		zap.Int64("entries_deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
}
