package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/resolver"
)

const historyRetention = 30 * 24 * time.Hour

// Scheduler manages the periodic jobs of serve mode: connectivity refresh and
// history pruning
type Scheduler struct {
	cron     *cron.Cron
	resolver *resolver.Resolver
	db       *models.Database
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(res *resolver.Resolver, db *models.Database, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		resolver: res,
		db:       db,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 5 minutes: refresh connectivity so a recovered backend is
	// picked up without user action
	_, err := s.cron.AddFunc("*/5 * * * *", func() {
		s.runProbe()
	})
	if err != nil {
		return fmt.Errorf("failed to add probe job: %w", err)
	}

	// Daily: drop old history entries
	_, err = s.cron.AddFunc("0 4 * * *", func() {
		s.runPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	s.cron.Start()

	// Run the first probe immediately so serve mode starts with a known state
	go s.runProbe()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runProbe() {
	state := s.resolver.Probe(context.Background())
	s.logger.WithField("connectivity", state).Debug("Scheduled connectivity probe finished")
}

func (s *Scheduler) runPrune() {
	removed, err := s.db.PruneHistoryBefore(time.Now().Add(-historyRetention))
	if err != nil {
		s.logger.WithError(err).Error("Failed to prune download history")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Pruned old download history")
	}
}
