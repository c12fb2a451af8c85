package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// PostgresAnomalyRepository implements AnomalyRepository using PostgreSQL
type PostgresAnomalyRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAnomalyRepository creates a new PostgreSQL anomaly repository
func NewPostgresAnomalyRepository(db *pgxpool.Pool) *PostgresAnomalyRepository {
	return &PostgresAnomalyRepository{
		db: db,
	}
}

// CreateIfAbsent inserts an anomaly unless one exists for (organization, date).
// The unique constraint makes concurrent detection runs fail safely on the
// second insert instead of duplicating rows.
func (r *PostgresAnomalyRepository) CreateIfAbsent(ctx context.Context, anomaly *domain.Anomaly) (bool, error) {
	commandTag, err := r.db.Exec(ctx, `
		INSERT INTO anomalies (
			organization_id, date, amount, z_score, mad_score, type, severity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, date) DO NOTHING
	`, anomaly.OrganizationID, anomaly.Date, anomaly.Amount,
		anomaly.ZScore, anomaly.MADScore, anomaly.Type, anomaly.Severity)
	if err != nil {
		return false, fmt.Errorf("failed to insert anomaly: %w", err)
	}

	return commandTag.RowsAffected() > 0, nil
}

// ListRecent returns the organization's anomalies, most recent first
func (r *PostgresAnomalyRepository) ListRecent(ctx context.Context, orgID string, limit int) ([]domain.Anomaly, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, date, amount, z_score, mad_score,
		       type, severity, acknowledged, created_at
		FROM anomalies
		WHERE organization_id = $1
		ORDER BY date DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

// Acknowledge marks an anomaly as acknowledged, scoped to the organization
func (r *PostgresAnomalyRepository) Acknowledge(ctx context.Context, anomalyID, orgID string) (bool, error) {
	commandTag, err := r.db.Exec(ctx, `
		UPDATE anomalies
		SET acknowledged = true
		WHERE id = $1 AND organization_id = $2
	`, anomalyID, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge anomaly: %w", err)
	}

	return commandTag.RowsAffected() > 0, nil
}

// UnacknowledgedInPeriod returns unacknowledged anomalies within [start, end]
func (r *PostgresAnomalyRepository) UnacknowledgedInPeriod(ctx context.Context, orgID string, start, end time.Time, limit int) ([]domain.Anomaly, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, date, amount, z_score, mad_score,
		       type, severity, acknowledged, created_at
		FROM anomalies
		WHERE organization_id = $1
		  AND date >= $2
		  AND date <= $3
		  AND acknowledged = false
		ORDER BY date DESC
		LIMIT $4
	`, orgID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unacknowledged anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

func scanAnomalies(rows pgx.Rows) ([]domain.Anomaly, error) {
	anomalies := []domain.Anomaly{}
	for rows.Next() {
		var a domain.Anomaly
		if err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.Date, &a.Amount, &a.ZScore, &a.MADScore,
			&a.Type, &a.Severity, &a.Acknowledged, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating anomalies: %w", err)
	}

	return anomalies, nil
}

// PostgresInsightRepository implements InsightRepository using PostgreSQL
type PostgresInsightRepository struct {
	db *pgxpool.Pool
}

// NewPostgresInsightRepository creates a new PostgreSQL insight repository
func NewPostgresInsightRepository(db *pgxpool.Pool) *PostgresInsightRepository {
	return &PostgresInsightRepository{
		db: db,
	}
}

// FindByPeriod returns the cached insight for the exact period bounds
func (r *PostgresInsightRepository) FindByPeriod(ctx context.Context, orgID string, periodStart, periodEnd time.Time) (*domain.Insight, error) {
	var insight domain.Insight
	var bulletsJSON []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, organization_id, period_start, period_end, bullets, summary, created_at
		FROM insights
		WHERE organization_id = $1
		  AND period_start = $2
		  AND period_end = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, orgID, periodStart, periodEnd).Scan(
		&insight.ID, &insight.OrganizationID, &insight.PeriodStart, &insight.PeriodEnd,
		&bulletsJSON, &insight.Summary, &insight.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached insight: %w", err)
	}

	if err := json.Unmarshal(bulletsJSON, &insight.Bullets); err != nil {
		return nil, fmt.Errorf("failed to decode insight bullets: %w", err)
	}

	return &insight, nil
}

// Save stores a freshly generated insight
func (r *PostgresInsightRepository) Save(ctx context.Context, insight *domain.Insight) error {
	bulletsJSON, err := json.Marshal(insight.Bullets)
	if err != nil {
		return fmt.Errorf("failed to encode insight bullets: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO insights (organization_id, period_start, period_end, bullets, summary)
		VALUES ($1, $2, $3, $4, $5)
	`, insight.OrganizationID, insight.PeriodStart, insight.PeriodEnd, bulletsJSON, insight.Summary)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}

	return nil
}
