package repository

import (
	"context"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// RuleRepository defines data access for categorization rules.
type RuleRepository interface {
	// FindBestMatch returns the organization's best rule whose merchant
	// pattern is contained in the normalized text, preferring higher priority
	// and then higher confidence. Returns nil when no rule matches. This is a
	// pure read; usage counting is a separate call.
	FindBestMatch(ctx context.Context, orgID, normalizedText string) (*domain.CategorizationRule, error)

	// RecordUsage increments the usage count of every organization rule
	// targeting the given category.
	RecordUsage(ctx context.Context, orgID, category string) error

	// Create inserts a rule unless one with the same merchant pattern already
	// exists for the organization. Reports whether a row was inserted.
	Create(ctx context.Context, rule *domain.CategorizationRule) (bool, error)

	// List returns the organization's rules ordered by priority descending.
	List(ctx context.Context, orgID string) ([]domain.CategorizationRule, error)
}

// MerchantRepository defines read access to the known-merchant reference table.
type MerchantRepository interface {
	// FindCategory returns the category pre-assigned to the merchant with the
	// given normalized name, or "" when the merchant is unknown or
	// uncategorized.
	FindCategory(ctx context.Context, orgID, normalizedName string) (string, error)
}
