package service

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finsight/expense-insights-service/internal/domain"
	"github.com/finsight/expense-insights-service/internal/repository"
	"github.com/finsight/expense-insights-service/internal/stats"
)

// detectionWindowDays is the trailing window of daily totals the detector
// scores, and minSampleDays the minimum distinct days required before any
// day can be flagged.
const (
	detectionWindowDays = 30
	minSampleDays       = 7
	maxAnomaliesListed  = 30
)

// severityThreshold is one tier of the classification table. Either statistic
// alone exceeding its limit triggers the tier.
type severityThreshold struct {
	zLimit   float64
	madLimit float64
	severity string
}

// severityThresholds is evaluated top-down; the first matching tier wins.
var severityThresholds = []severityThreshold{
	{zLimit: 3, madLimit: 3.5, severity: domain.SeverityHigh},
	{zLimit: 2.5, madLimit: 3, severity: domain.SeverityMedium},
	{zLimit: 2, madLimit: 2.5, severity: domain.SeverityLow},
}

// classifySeverity returns the severity tier for a day's scores, or "" when
// the day is unremarkable.
func classifySeverity(zScore, madScore float64) string {
	for _, t := range severityThresholds {
		if zScore > t.zLimit || madScore > t.madLimit {
			return t.severity
		}
	}
	return ""
}

// AnomalyDetector flags days of unusual spending using two independent
// outlier statistics: a z-score against the mean, and a robust MAD-based
// score against the median that resists the very outliers being searched for.
type AnomalyDetector struct {
	transactions repository.TransactionRepository
	anomalies    repository.AnomalyRepository
	logger       *logrus.Logger
}

// NewAnomalyDetector creates a new anomaly detector
func NewAnomalyDetector(
	transactions repository.TransactionRepository,
	anomalies repository.AnomalyRepository,
	logger *logrus.Logger,
) *AnomalyDetector {
	return &AnomalyDetector{
		transactions: transactions,
		anomalies:    anomalies,
		logger:       logger,
	}
}

// DetectForOrganization scores the organization's trailing-30-day daily
// spending as of the given time and records newly flagged days. Days that
// already carry an anomaly row are left untouched, so re-running detection
// is idempotent. Returns the number of anomalies created.
func (d *AnomalyDetector) DetectForOrganization(ctx context.Context, orgID string, asOf time.Time) (int, error) {
	from := asOf.AddDate(0, 0, -detectionWindowDays)
	dailySpending, err := d.transactions.DailySpendTotals(ctx, orgID, from, asOf)
	if err != nil {
		return 0, &ServiceError{Op: "load_daily_spending", Err: err}
	}

	if len(dailySpending) < minSampleDays {
		return 0, nil
	}

	amounts := make([]float64, len(dailySpending))
	for i, day := range dailySpending {
		amounts[i] = day.Total
	}

	mean := stats.Mean(amounts)
	stdDev := stats.StdDev(amounts)
	median := stats.Median(amounts)
	mad := stats.MAD(amounts)

	detected := 0
	for _, day := range dailySpending {
		var zScore, madScore float64
		if stdDev > 0 {
			zScore = math.Abs(day.Total-mean) / stdDev
		}
		if mad > 0 {
			madScore = math.Abs(day.Total-median) / mad
		}

		severity := classifySeverity(zScore, madScore)
		if severity == "" {
			continue
		}

		created, err := d.anomalies.CreateIfAbsent(ctx, &domain.Anomaly{
			OrganizationID: orgID,
			Date:           day.Date,
			Amount:         day.Total,
			ZScore:         zScore,
			MADScore:       madScore,
			Type:           domain.AnomalyTypeHighSpending,
			Severity:       severity,
		})
		if err != nil {
			// One day's failure must not abort the remaining days.
			d.logger.WithError(err).WithFields(logrus.Fields{
				"organization_id": orgID,
				"date":            day.Date.Format("2006-01-02"),
			}).Warn("Failed to record anomaly")
			continue
		}
		if created {
			detected++
		}
	}

	return detected, nil
}

// RunDetection runs detection for one organization, or for every organization
// with activity in the trailing 30 days when orgID is empty. One
// organization's failure is logged and does not stop the others.
func (d *AnomalyDetector) RunDetection(ctx context.Context, orgID string, asOf time.Time) (*domain.DetectionResult, error) {
	var orgs []string
	if orgID != "" {
		orgs = []string{orgID}
	} else {
		var err error
		orgs, err = d.transactions.ActiveOrganizations(ctx, asOf.AddDate(0, 0, -detectionWindowDays))
		if err != nil {
			return nil, &ServiceError{Op: "list_active_organizations", Err: err}
		}
	}

	result := &domain.DetectionResult{OrganizationsScanned: len(orgs)}

	for _, org := range orgs {
		detected, err := d.DetectForOrganization(ctx, org, asOf)
		if err != nil {
			d.logger.WithError(err).WithField("organization_id", org).
				Error("Anomaly detection failed for organization")
			continue
		}
		result.Detected += detected
	}

	return result, nil
}

// ListAnomalies returns the organization's anomalies, most recent first,
// capped at 30
func (d *AnomalyDetector) ListAnomalies(ctx context.Context, orgID string) ([]domain.Anomaly, error) {
	anomalies, err := d.anomalies.ListRecent(ctx, orgID, maxAnomaliesListed)
	if err != nil {
		return nil, &ServiceError{Op: "list_anomalies", Err: err}
	}
	return anomalies, nil
}

// Acknowledge marks an anomaly as acknowledged. Acknowledging a nonexistent
// or foreign anomaly returns ErrAnomalyNotFound.
func (d *AnomalyDetector) Acknowledge(ctx context.Context, anomalyID, orgID string) error {
	updated, err := d.anomalies.Acknowledge(ctx, anomalyID, orgID)
	if err != nil {
		return &ServiceError{Op: "acknowledge_anomaly", Err: err}
	}
	if !updated {
		return ErrAnomalyNotFound
	}
	return nil
}
