package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// PostgresRuleRepository implements RuleRepository using PostgreSQL
type PostgresRuleRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRuleRepository creates a new PostgreSQL rule repository
func NewPostgresRuleRepository(db *pgxpool.Pool) *PostgresRuleRepository {
	return &PostgresRuleRepository{
		db: db,
	}
}

// FindBestMatch returns the best rule whose pattern is contained in the text.
// Pattern-in-text containment, case-insensitive; highest priority wins,
// tie-broken by highest confidence.
func (r *PostgresRuleRepository) FindBestMatch(ctx context.Context, orgID, normalizedText string) (*domain.CategorizationRule, error) {
	var rule domain.CategorizationRule
	err := r.db.QueryRow(ctx, `
		SELECT id, organization_id, merchant_pattern, category, confidence,
		       rule_type, usage_count, priority
		FROM categorization_rules
		WHERE organization_id = $1
		  AND $2 ILIKE '%' || merchant_pattern || '%'
		ORDER BY priority DESC, confidence DESC
		LIMIT 1
	`, orgID, normalizedText).Scan(
		&rule.ID, &rule.OrganizationID, &rule.MerchantPattern, &rule.Category,
		&rule.Confidence, &rule.RuleType, &rule.UsageCount, &rule.Priority,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to match rule: %w", err)
	}

	return &rule, nil
}

// RecordUsage increments the usage count of every rule targeting the category
func (r *PostgresRuleRepository) RecordUsage(ctx context.Context, orgID, category string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE categorization_rules
		SET usage_count = usage_count + 1
		WHERE organization_id = $1 AND category = $2
	`, orgID, category)
	if err != nil {
		return fmt.Errorf("failed to record rule usage: %w", err)
	}
	return nil
}

// Create inserts a rule; the unique (organization_id, merchant_pattern)
// constraint makes duplicate creation a safe no-op even under concurrent
// writers.
func (r *PostgresRuleRepository) Create(ctx context.Context, rule *domain.CategorizationRule) (bool, error) {
	commandTag, err := r.db.Exec(ctx, `
		INSERT INTO categorization_rules (
			organization_id, merchant_pattern, category,
			confidence, rule_type, priority, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, merchant_pattern) DO NOTHING
	`, rule.OrganizationID, rule.MerchantPattern, rule.Category,
		rule.Confidence, rule.RuleType, rule.Priority, rule.CreatedBy)
	if err != nil {
		return false, fmt.Errorf("failed to create rule: %w", err)
	}

	return commandTag.RowsAffected() > 0, nil
}

// List returns the organization's rules ordered by priority descending
func (r *PostgresRuleRepository) List(ctx context.Context, orgID string) ([]domain.CategorizationRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, merchant_pattern, category, confidence,
		       rule_type, usage_count, priority, created_at
		FROM categorization_rules
		WHERE organization_id = $1
		ORDER BY priority DESC, created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.CategorizationRule{}
	for rows.Next() {
		var rule domain.CategorizationRule
		if err := rows.Scan(
			&rule.ID, &rule.OrganizationID, &rule.MerchantPattern, &rule.Category,
			&rule.Confidence, &rule.RuleType, &rule.UsageCount, &rule.Priority,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// PostgresMerchantRepository implements MerchantRepository using PostgreSQL
type PostgresMerchantRepository struct {
	db *pgxpool.Pool
}

// NewPostgresMerchantRepository creates a new PostgreSQL merchant repository
func NewPostgresMerchantRepository(db *pgxpool.Pool) *PostgresMerchantRepository {
	return &PostgresMerchantRepository{
		db: db,
	}
}

// FindCategory looks up the category pre-assigned to a known merchant
func (r *PostgresMerchantRepository) FindCategory(ctx context.Context, orgID, normalizedName string) (string, error) {
	var category string
	err := r.db.QueryRow(ctx, `
		SELECT category
		FROM merchants
		WHERE organization_id = $1
		  AND category IS NOT NULL
		  AND normalized_name = $2
		LIMIT 1
	`, orgID, normalizedName).Scan(&category)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up merchant: %w", err)
	}

	return category, nil
}
