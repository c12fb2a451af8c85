package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/finsight/expense-insights-service/internal/service"
)

// Scheduler triggers the daily anomaly-detection sweep across all active
// organizations. Per-organization failures are isolated inside the detector,
// so a scheduled run never fails outright.
type Scheduler struct {
	cron     *cron.Cron
	detector *service.AnomalyDetector
	logger   *logrus.Logger
}

// New creates a scheduler around the detector
func New(detector *service.AnomalyDetector, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		detector: detector,
		logger:   logger,
	}
}

// Start registers the detection job on the given cron schedule
// (default "0 2 * * *") and starts the scheduler.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.runDetection)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("schedule", schedule).Info("Anomaly detection scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runDetection() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.detector.RunDetection(ctx, "", time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).Error("Scheduled anomaly detection failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"detected":      result.Detected,
		"organizations": result.OrganizationsScanned,
	}).Info("Scheduled anomaly detection completed")
}
