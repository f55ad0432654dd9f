package scheduler

import (
	"context"

	"github.com/georankers/visibility-agent/internal/config"
	"github.com/georankers/visibility-agent/internal/watcher"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service handles scheduled re-analysis of the tracked product
type Service struct {
	config         *config.Config
	watcherService *watcher.Service
	cron           *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, watcherService *watcher.Service) *Service {
	return &Service{
		config:         cfg,
		watcherService: watcherService,
		cron:           cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled re-analysis runs
func (s *Service) Start(ctx context.Context) error {
	var cronExpression string

	switch s.config.ReportSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		// Default to weekly
		cronExpression = "0 0 9 * * MON"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled re-analysis run")
		if err := s.watcherService.TriggerReanalysis(ctx); err != nil {
			logrus.Errorf("Scheduled re-analysis failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule", s.config.ReportSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
