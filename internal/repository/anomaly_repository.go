package repository

import (
	"context"
	"time"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// AnomalyRepository defines data access for detected spending anomalies.
type AnomalyRepository interface {
	// CreateIfAbsent inserts an anomaly unless one already exists for the
	// organization and date. Reports whether a row was inserted. Existing
	// rows are never updated, so re-running detection is a no-op per day.
	CreateIfAbsent(ctx context.Context, anomaly *domain.Anomaly) (bool, error)

	// ListRecent returns the organization's anomalies, most recent first.
	ListRecent(ctx context.Context, orgID string, limit int) ([]domain.Anomaly, error)

	// Acknowledge marks an anomaly as acknowledged, scoped to the
	// organization. Reports whether a row was updated.
	Acknowledge(ctx context.Context, anomalyID, orgID string) (bool, error)

	// UnacknowledgedInPeriod returns unacknowledged anomalies within
	// [start, end], most recent first.
	UnacknowledgedInPeriod(ctx context.Context, orgID string, start, end time.Time, limit int) ([]domain.Anomaly, error)
}

// InsightRepository defines data access for cached period insights.
type InsightRepository interface {
	// FindByPeriod returns the cached insight for the exact period bounds,
	// or nil when none has been generated yet.
	FindByPeriod(ctx context.Context, orgID string, periodStart, periodEnd time.Time) (*domain.Insight, error)

	// Save stores a freshly generated insight.
	Save(ctx context.Context, insight *domain.Insight) error
}
