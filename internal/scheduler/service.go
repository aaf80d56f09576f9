package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/monitoring"
)

// cycleTimeout bounds one full cycle so a hung network call cannot stall the
// process indefinitely.
const cycleTimeout = 5 * time.Minute

// Service drives the fixed-interval polling loop.
type Service struct {
	config            *config.Config
	monitoringService *monitoring.Service
	cron              *cron.Cron
}

// NewService creates a new scheduler service. Cycles never overlap: if one
// is still running when the next tick fires, the tick is skipped.
func NewService(cfg *config.Config, monitoringService *monitoring.Service) *Service {
	return &Service{
		config:            cfg,
		monitoringService: monitoringService,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start begins the polling schedule.
func (s *Service) Start() error {
	spec := fmt.Sprintf("@every %ds", s.config.Application.FetchIntervalSeconds)

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
		defer cancel()

		if err := s.monitoringService.RunCycle(ctx); err != nil {
			logrus.Errorf("Scheduled cycle failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started, polling every %v", s.config.FetchInterval())
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
