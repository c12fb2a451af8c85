package repository

import (
	"context"
	"time"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// TransactionRepository defines data access for transactions and the
// aggregates the detector and insight generator read from them.
type TransactionRepository interface {
	// GetByID retrieves a transaction scoped to an organization.
	// Returns nil when no such transaction exists.
	GetByID(ctx context.Context, orgID, transactionID string) (*domain.Transaction, error)

	// ListUncategorizedByBatch retrieves the transactions of an import batch
	// that are still eligible for automatic categorization.
	ListUncategorizedByBatch(ctx context.Context, orgID, batchID string) ([]domain.Transaction, error)

	// SaveSuggestion persists the categorizer's output onto a transaction.
	// The assigned category is only filled in when it was previously unset.
	SaveSuggestion(ctx context.Context, transactionID string, suggestion *domain.Suggestion) error

	// ApplyCategory commits a category onto a transaction and marks it as
	// manually categorized, excluding it from future automatic passes.
	ApplyCategory(ctx context.Context, transactionID, category string) error

	// DailySpendTotals aggregates positive-amount transactions into daily
	// totals within [from, to), ordered by date ascending.
	DailySpendTotals(ctx context.Context, orgID string, from, to time.Time) ([]domain.DailySpend, error)

	// ActiveOrganizations lists organizations with any transaction since the
	// given time.
	ActiveOrganizations(ctx context.Context, since time.Time) ([]string, error)

	// PeriodStats aggregates positive-amount spend over [start, end].
	PeriodStats(ctx context.Context, orgID string, start, end time.Time) (*domain.PeriodStats, error)

	// PeriodTotal sums positive-amount spend over [start, end).
	PeriodTotal(ctx context.Context, orgID string, start, end time.Time) (float64, error)

	// TopCategories returns the highest-spend categories in [start, end].
	TopCategories(ctx context.Context, orgID string, start, end time.Time, limit int) ([]domain.CategoryTotal, error)
}
