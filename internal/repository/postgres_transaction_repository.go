package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// PostgresTransactionRepository implements TransactionRepository using PostgreSQL
type PostgresTransactionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository
func NewPostgresTransactionRepository(db *pgxpool.Pool) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{
		db: db,
	}
}

// GetByID retrieves a transaction scoped to an organization
func (r *PostgresTransactionRepository) GetByID(ctx context.Context, orgID, transactionID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := r.db.QueryRow(ctx, `
		SELECT id, organization_id, COALESCE(batch_id, ''), date, amount,
		       COALESCE(merchant, ''), description,
		       COALESCE(category, ''), COALESCE(ai_category, ''),
		       COALESCE(ai_confidence, 0), COALESCE(ai_explanation, ''),
		       COALESCE(model_version, ''), COALESCE(is_manual_category, false),
		       created_at, updated_at
		FROM transactions
		WHERE id = $1 AND organization_id = $2
	`, transactionID, orgID).Scan(
		&txn.ID, &txn.OrganizationID, &txn.BatchID, &txn.Date, &txn.Amount,
		&txn.Merchant, &txn.Description,
		&txn.Category, &txn.AICategory,
		&txn.AIConfidence, &txn.AIExplanation,
		&txn.ModelVersion, &txn.IsManualCategory,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// ListUncategorizedByBatch retrieves an import batch's transactions still
// eligible for automatic categorization
func (r *PostgresTransactionRepository) ListUncategorizedByBatch(ctx context.Context, orgID, batchID string) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, COALESCE(batch_id, ''), date, amount,
		       COALESCE(merchant, ''), description,
		       COALESCE(category, ''), COALESCE(is_manual_category, false)
		FROM transactions
		WHERE organization_id = $1
		  AND batch_id = $2
		  AND COALESCE(is_manual_category, false) = false
		ORDER BY date DESC
	`, orgID, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch transactions: %w", err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.OrganizationID, &txn.BatchID, &txn.Date, &txn.Amount,
			&txn.Merchant, &txn.Description,
			&txn.Category, &txn.IsManualCategory,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SaveSuggestion persists the categorizer's output onto a transaction.
// COALESCE keeps an already-assigned category untouched.
func (r *PostgresTransactionRepository) SaveSuggestion(ctx context.Context, transactionID string, suggestion *domain.Suggestion) error {
	_, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET ai_category = $1,
		    ai_confidence = $2,
		    ai_explanation = $3,
		    model_version = $4,
		    category = COALESCE(category, $1),
		    updated_at = NOW()
		WHERE id = $5
	`, suggestion.Category, suggestion.Confidence, suggestion.Explanation, suggestion.ModelVersion, transactionID)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	return nil
}

// ApplyCategory commits a category and marks the transaction as manually categorized
func (r *PostgresTransactionRepository) ApplyCategory(ctx context.Context, transactionID, category string) error {
	commandTag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET category = $1,
		    is_manual_category = true,
		    updated_at = NOW()
		WHERE id = $2
	`, category, transactionID)
	if err != nil {
		return fmt.Errorf("failed to apply category: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", transactionID)
	}
	return nil
}

// DailySpendTotals aggregates positive-amount transactions into daily totals
func (r *PostgresTransactionRepository) DailySpendTotals(ctx context.Context, orgID string, from, to time.Time) ([]domain.DailySpend, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DATE(date) AS date, SUM(amount) AS total
		FROM transactions
		WHERE organization_id = $1
		  AND date >= $2
		  AND date < $3
		  AND amount > 0
		GROUP BY DATE(date)
		ORDER BY date
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily spending: %w", err)
	}
	defer rows.Close()

	totals := []domain.DailySpend{}
	for rows.Next() {
		var day domain.DailySpend
		if err := rows.Scan(&day.Date, &day.Total); err != nil {
			return nil, fmt.Errorf("failed to scan daily spending: %w", err)
		}
		totals = append(totals, day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily spending: %w", err)
	}

	return totals, nil
}

// ActiveOrganizations lists organizations with transaction activity since the given time
func (r *PostgresTransactionRepository) ActiveOrganizations(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT organization_id
		FROM transactions
		WHERE date >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active organizations: %w", err)
	}
	defer rows.Close()

	orgs := []string{}
	for rows.Next() {
		var orgID string
		if err := rows.Scan(&orgID); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		orgs = append(orgs, orgID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

// PeriodStats aggregates positive-amount spend over [start, end]
func (r *PostgresTransactionRepository) PeriodStats(ctx context.Context, orgID string, start, end time.Time) (*domain.PeriodStats, error) {
	var stats domain.PeriodStats
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) AS total,
		       COUNT(*) AS count,
		       COALESCE(SUM(amount), 0) / GREATEST(EXTRACT(DAY FROM ($3::timestamptz - $2::timestamptz)), 1) AS avg_daily
		FROM transactions
		WHERE organization_id = $1
		  AND date >= $2
		  AND date <= $3
		  AND amount > 0
	`, orgID, start, end).Scan(&stats.Total, &stats.Count, &stats.AvgDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to query period stats: %w", err)
	}
	return &stats, nil
}

// PeriodTotal sums positive-amount spend over [start, end)
func (r *PostgresTransactionRepository) PeriodTotal(ctx context.Context, orgID string, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE organization_id = $1
		  AND date >= $2
		  AND date < $3
		  AND amount > 0
	`, orgID, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to query period total: %w", err)
	}
	return total, nil
}

// TopCategories returns the highest-spend categories in [start, end]
func (r *PostgresTransactionRepository) TopCategories(ctx context.Context, orgID string, start, end time.Time, limit int) ([]domain.CategoryTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(category, 'Uncategorized') AS category, SUM(amount) AS total
		FROM transactions
		WHERE organization_id = $1
		  AND date >= $2
		  AND date <= $3
		  AND amount > 0
		GROUP BY category
		ORDER BY total DESC
		LIMIT $4
	`, orgID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.CategoryTotal{}
	for rows.Next() {
		var ct domain.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		categories = append(categories, ct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	return categories, nil
}
