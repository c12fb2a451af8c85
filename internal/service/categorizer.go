package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/finsight/expense-insights-service/internal/domain"
	"github.com/finsight/expense-insights-service/internal/repository"
)

// Model version tags recording which strategy produced a suggestion
const (
	ModelVersionRule      = "rule-based-v1"
	ModelVersionMerchant  = "merchant-match-v1"
	ModelVersionHeuristic = "heuristic-v1"
)

// MatchContext carries everything a matching strategy may consult.
type MatchContext struct {
	OrganizationID string
	NormalizedText string
	RawText        string
	Amount         float64
	Description    string
}

// MatchStrategy is one tier of the categorization cascade. Strategies are
// tried in order and the first non-nil suggestion wins; returning (nil, nil)
// means "no opinion, try the next tier".
type MatchStrategy interface {
	Name() string
	AttemptMatch(ctx context.Context, mc MatchContext) (*domain.Suggestion, error)
}

// ruleStrategy matches organization-specific learned rules by pattern
// containment. It is a pure read; usage counting happens after the cascade.
type ruleStrategy struct {
	rules repository.RuleRepository
}

func (s *ruleStrategy) Name() string { return "rule" }

func (s *ruleStrategy) AttemptMatch(ctx context.Context, mc MatchContext) (*domain.Suggestion, error) {
	rule, err := s.rules.FindBestMatch(ctx, mc.OrganizationID, mc.NormalizedText)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, nil
	}

	return &domain.Suggestion{
		Category:     rule.Category,
		Confidence:   rule.Confidence,
		Explanation:  "Matched rule for merchant pattern",
		ModelVersion: ModelVersionRule,
	}, nil
}

// merchantStrategy looks the normalized text up in the organization's
// known-merchant table.
type merchantStrategy struct {
	merchants repository.MerchantRepository
}

func (s *merchantStrategy) Name() string { return "merchant" }

func (s *merchantStrategy) AttemptMatch(ctx context.Context, mc MatchContext) (*domain.Suggestion, error) {
	category, err := s.merchants.FindCategory(ctx, mc.OrganizationID, mc.NormalizedText)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return nil, nil
	}

	return &domain.Suggestion{
		Category:     category,
		Confidence:   0.85,
		Explanation:  fmt.Sprintf("Based on similar merchant: %s", mc.RawText),
		ModelVersion: ModelVersionMerchant,
	}, nil
}

// keywordPattern is one row of the static heuristic table.
type keywordPattern struct {
	keywords   []string
	category   string
	confidence float64
}

// heuristicTable is ordered; the first pattern with any keyword contained in
// the normalized text wins.
var heuristicTable = []keywordPattern{
	{[]string{"zomato", "swiggy", "uber eats", "food", "restaurant", "cafe"}, "Food & Dining", 0.90},
	{[]string{"amazon", "flipkart", "myntra", "shopping", "store"}, "Shopping", 0.85},
	{[]string{"uber", "ola", "taxi", "transport", "metro", "bus"}, "Transportation", 0.90},
	{[]string{"netflix", "spotify", "prime", "subscription"}, "Entertainment", 0.95},
	{[]string{"electricity", "water", "gas", "utility", "bill"}, "Utilities", 0.90},
	{[]string{"rent", "lease", "housing"}, "Housing", 0.95},
	{[]string{"hospital", "clinic", "pharmacy", "medical", "health"}, "Healthcare", 0.90},
	{[]string{"gym", "fitness", "yoga"}, "Fitness", 0.90},
}

// heuristicStrategy matches the static keyword table. It needs no storage.
type heuristicStrategy struct{}

func (s *heuristicStrategy) Name() string { return "heuristic" }

func (s *heuristicStrategy) AttemptMatch(_ context.Context, mc MatchContext) (*domain.Suggestion, error) {
	for _, pattern := range heuristicTable {
		for _, kw := range pattern.keywords {
			if strings.Contains(mc.NormalizedText, kw) {
				return &domain.Suggestion{
					Category:     pattern.category,
					Confidence:   pattern.confidence,
					Explanation:  fmt.Sprintf("Merchant name contains keywords related to %s", pattern.category),
					ModelVersion: ModelVersionHeuristic,
				}, nil
			}
		}
	}
	return nil, nil
}

// Categorizer assigns categories to transactions through a strict cascade of
// matching strategies: learned rules, known merchants, then static keyword
// heuristics. First match wins; signals are never blended.
type Categorizer struct {
	transactions repository.TransactionRepository
	rules        repository.RuleRepository
	strategies   []MatchStrategy
	logger       *logrus.Logger
}

// NewCategorizer creates a categorizer with the standard strategy order
func NewCategorizer(
	transactions repository.TransactionRepository,
	rules repository.RuleRepository,
	merchants repository.MerchantRepository,
	logger *logrus.Logger,
) *Categorizer {
	return &Categorizer{
		transactions: transactions,
		rules:        rules,
		strategies: []MatchStrategy{
			&ruleStrategy{rules: rules},
			&merchantStrategy{merchants: merchants},
			&heuristicStrategy{},
		},
		logger: logger,
	}
}

// normalizeText lowercases and trims merchant/description text for matching
func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Categorize produces a best-guess category for the given merchant or
// description text, or nil when no strategy matches. The decision path is
// side-effect free.
func (c *Categorizer) Categorize(ctx context.Context, orgID, merchantOrDescription string, amount float64, description string) (*domain.Suggestion, error) {
	mc := MatchContext{
		OrganizationID: orgID,
		NormalizedText: normalizeText(merchantOrDescription),
		RawText:        merchantOrDescription,
		Amount:         amount,
		Description:    description,
	}

	for _, strategy := range c.strategies {
		suggestion, err := strategy.AttemptMatch(ctx, mc)
		if err != nil {
			return nil, &ServiceError{Op: "match_" + strategy.Name(), Err: err}
		}
		if suggestion != nil {
			return suggestion, nil
		}
	}

	return nil, nil
}

// RunBatch categorizes every still-uncategorized transaction of an import
// batch. A single transaction's failure is counted as skipped and does not
// abort the rest of the batch.
func (c *Categorizer) RunBatch(ctx context.Context, orgID, batchID string) (*domain.BatchResult, error) {
	transactions, err := c.transactions.ListUncategorizedByBatch(ctx, orgID, batchID)
	if err != nil {
		return nil, &ServiceError{Op: "list_batch_transactions", Err: err}
	}

	result := &domain.BatchResult{TotalProcessed: len(transactions)}

	for _, txn := range transactions {
		if txn.IsManualCategory {
			result.Skipped++
			continue
		}

		text := txn.Merchant
		if text == "" {
			text = txn.Description
		}

		suggestion, err := c.Categorize(ctx, orgID, text, txn.Amount, txn.Description)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"transaction_id":  txn.ID,
				"organization_id": orgID,
			}).Warn("Skipping transaction after categorization failure")
			result.Skipped++
			continue
		}
		if suggestion == nil {
			result.Skipped++
			continue
		}

		if err := c.transactions.SaveSuggestion(ctx, txn.ID, suggestion); err != nil {
			c.logger.WithError(err).WithField("transaction_id", txn.ID).
				Warn("Skipping transaction after failing to persist suggestion")
			result.Skipped++
			continue
		}

		// Usage recording is deliberately separate from the match itself so
		// the cascade stays side-effect free.
		if suggestion.ModelVersion == ModelVersionRule {
			if err := c.rules.RecordUsage(ctx, orgID, suggestion.Category); err != nil {
				c.logger.WithError(err).WithField("category", suggestion.Category).
					Warn("Failed to record rule usage")
			}
		}

		result.Categorized++
	}

	return result, nil
}

// ApplySuggestion commits a transaction's stored AI suggestion as its
// category. Accepting a suggestion is modeled as a manual override, so the
// transaction leaves the automatic re-categorization pool. With createRule a
// reusable rule is promoted from the transaction's merchant, idempotently.
func (c *Categorizer) ApplySuggestion(ctx context.Context, orgID, userID, transactionID string, createRule bool) (*domain.ApplyResult, error) {
	txn, err := c.transactions.GetByID(ctx, orgID, transactionID)
	if err != nil {
		return nil, &ServiceError{Op: "get_transaction", Err: err}
	}
	if txn == nil || txn.AICategory == "" {
		return nil, ErrSuggestionUnavailable
	}

	if err := c.transactions.ApplyCategory(ctx, transactionID, txn.AICategory); err != nil {
		return nil, &ServiceError{Op: "apply_category", Err: err}
	}

	result := &domain.ApplyResult{Success: true}

	if createRule && txn.Merchant != "" {
		created, err := c.rules.Create(ctx, &domain.CategorizationRule{
			OrganizationID:  orgID,
			MerchantPattern: normalizeText(txn.Merchant),
			Category:        txn.AICategory,
			Confidence:      1.0,
			RuleType:        "manual",
			CreatedBy:       userID,
		})
		if err != nil {
			return nil, &ServiceError{Op: "create_rule", Err: err}
		}
		result.RuleCreated = created
	}

	return result, nil
}

// ListRules returns the organization's categorization rules
func (c *Categorizer) ListRules(ctx context.Context, orgID string) ([]domain.CategorizationRule, error) {
	rules, err := c.rules.List(ctx, orgID)
	if err != nil {
		return nil, &ServiceError{Op: "list_rules", Err: err}
	}
	return rules, nil
}

// CreateRule creates a user-defined categorization rule. Duplicate patterns
// are a no-op.
func (c *Categorizer) CreateRule(ctx context.Context, rule *domain.CategorizationRule) (bool, error) {
	rule.MerchantPattern = normalizeText(rule.MerchantPattern)
	if rule.Confidence == 0 {
		rule.Confidence = 1.0
	}
	if rule.RuleType == "" {
		rule.RuleType = "manual"
	}

	created, err := c.rules.Create(ctx, rule)
	if err != nil {
		return false, &ServiceError{Op: "create_rule", Err: err}
	}
	return created, nil
}
