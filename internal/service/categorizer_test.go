package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/expense-insights-service/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestCategorizer(txns *fakeTransactionRepo, rules *fakeRuleRepo, merchants *fakeMerchantRepo) *Categorizer {
	if txns == nil {
		txns = newFakeTransactionRepo()
	}
	if rules == nil {
		rules = &fakeRuleRepo{}
	}
	if merchants == nil {
		merchants = &fakeMerchantRepo{categories: map[string]string{}}
	}
	return NewCategorizer(txns, rules, merchants, testLogger())
}

func TestCategorizeHeuristicKeyword(t *testing.T) {
	c := newTestCategorizer(nil, nil, nil)

	suggestion, err := c.Categorize(context.Background(), "org-1", "SWIGGY BANGALORE", 450, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	assert.Equal(t, "Food & Dining", suggestion.Category)
	assert.Equal(t, 0.90, suggestion.Confidence)
	assert.Equal(t, ModelVersionHeuristic, suggestion.ModelVersion)
	assert.Equal(t, "Merchant name contains keywords related to Food & Dining", suggestion.Explanation)
}

func TestCategorizeHeuristicTableOrder(t *testing.T) {
	c := newTestCategorizer(nil, nil, nil)

	// "uber eats" appears in the food row before "uber" in the transport row.
	suggestion, err := c.Categorize(context.Background(), "org-1", "UBER EATS ORDER", 300, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "Food & Dining", suggestion.Category)

	suggestion, err = c.Categorize(context.Background(), "org-1", "UBER TRIP 4421", 180, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "Transportation", suggestion.Category)
}

func TestCategorizeRuleBeatsMerchantAndHeuristic(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*domain.CategorizationRule{
		{ID: "r1", OrganizationID: "org-1", MerchantPattern: "netflix", Category: "Business Subscriptions", Confidence: 1.0, Priority: 5},
	}}
	merchants := &fakeMerchantRepo{categories: map[string]string{
		"org-1|netflix.com": "Entertainment",
	}}
	c := newTestCategorizer(nil, rules, merchants)

	suggestion, err := c.Categorize(context.Background(), "org-1", "NETFLIX.COM", 649, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	assert.Equal(t, "Business Subscriptions", suggestion.Category)
	assert.Equal(t, 1.0, suggestion.Confidence)
	assert.Equal(t, ModelVersionRule, suggestion.ModelVersion)
}

func TestCategorizeMerchantBeatsHeuristic(t *testing.T) {
	merchants := &fakeMerchantRepo{categories: map[string]string{
		"org-1|swiggy instamart": "Groceries",
	}}
	c := newTestCategorizer(nil, nil, merchants)

	suggestion, err := c.Categorize(context.Background(), "org-1", "Swiggy Instamart", 820, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	assert.Equal(t, "Groceries", suggestion.Category)
	assert.Equal(t, 0.85, suggestion.Confidence)
	assert.Equal(t, ModelVersionMerchant, suggestion.ModelVersion)
}

func TestCategorizeRulePreferenceOrdering(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*domain.CategorizationRule{
		{ID: "r1", OrganizationID: "org-1", MerchantPattern: "amazon", Category: "Shopping", Confidence: 0.9, Priority: 1},
		{ID: "r2", OrganizationID: "org-1", MerchantPattern: "amazon web", Category: "Cloud Services", Confidence: 0.8, Priority: 10},
	}}
	c := newTestCategorizer(nil, rules, nil)

	suggestion, err := c.Categorize(context.Background(), "org-1", "AMAZON WEB SERVICES", 3400, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "Cloud Services", suggestion.Category)
}

func TestCategorizeRulesAreOrganizationScoped(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*domain.CategorizationRule{
		{ID: "r1", OrganizationID: "org-other", MerchantPattern: "acme", Category: "Supplies", Confidence: 1.0},
	}}
	c := newTestCategorizer(nil, rules, nil)

	suggestion, err := c.Categorize(context.Background(), "org-1", "ACME CORP", 100, "")
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestCategorizeNoMatch(t *testing.T) {
	c := newTestCategorizer(nil, nil, nil)

	suggestion, err := c.Categorize(context.Background(), "org-1", "XKQJW 99123", 42, "")
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestRunBatchCategorizesAndSkips(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", BatchID: "b1", Merchant: "SWIGGY BANGALORE", Amount: 450}
	txns.txns["t2"] = &domain.Transaction{ID: "t2", OrganizationID: "org-1", BatchID: "b1", Merchant: "XKQJW 99123", Amount: 42}
	txns.txns["t3"] = &domain.Transaction{ID: "t3", OrganizationID: "org-1", BatchID: "b1", Merchant: "UBER TRIP", Amount: 180, IsManualCategory: true, Category: "Travel"}
	txns.txns["t4"] = &domain.Transaction{ID: "t4", OrganizationID: "org-1", BatchID: "b2", Merchant: "ZOMATO", Amount: 300}

	c := newTestCategorizer(txns, nil, nil)

	result, err := c.RunBatch(context.Background(), "org-1", "b1")
	require.NoError(t, err)

	// t3 is manual and never enters the batch; t4 belongs to another batch.
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Categorized)
	assert.Equal(t, 1, result.Skipped)

	assert.Equal(t, "Food & Dining", txns.txns["t1"].AICategory)
	assert.Equal(t, "Food & Dining", txns.txns["t1"].Category)
	assert.Equal(t, ModelVersionHeuristic, txns.txns["t1"].ModelVersion)
	assert.Empty(t, txns.txns["t2"].AICategory)
	assert.Equal(t, "Travel", txns.txns["t3"].Category)
}

func TestRunBatchFallsBackToDescription(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", BatchID: "b1", Merchant: "", Description: "Monthly gym membership", Amount: 1500}

	c := newTestCategorizer(txns, nil, nil)

	result, err := c.RunBatch(context.Background(), "org-1", "b1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Categorized)
	assert.Equal(t, "Fitness", txns.txns["t1"].AICategory)
}

func TestRunBatchRecordsRuleUsage(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", BatchID: "b1", Merchant: "NETFLIX.COM", Amount: 649}
	txns.txns["t2"] = &domain.Transaction{ID: "t2", OrganizationID: "org-1", BatchID: "b1", Merchant: "SWIGGY", Amount: 450}

	rules := &fakeRuleRepo{rules: []*domain.CategorizationRule{
		{ID: "r1", OrganizationID: "org-1", MerchantPattern: "netflix", Category: "Entertainment", Confidence: 1.0},
		{ID: "r2", OrganizationID: "org-1", MerchantPattern: "prime video", Category: "Entertainment", Confidence: 0.9},
	}}
	c := newTestCategorizer(txns, rules, nil)

	_, err := c.RunBatch(context.Background(), "org-1", "b1")
	require.NoError(t, err)

	// Usage accrues on every rule sharing the matched category, but only for
	// rule matches; the heuristic hit on t2 records nothing.
	assert.Equal(t, 1, rules.rules[0].UsageCount)
	assert.Equal(t, 1, rules.rules[1].UsageCount)
}

func TestRunBatchIsolatesPerTransactionFailures(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", BatchID: "b1", Merchant: "BROKEN MERCHANT", Amount: 100}
	txns.txns["t2"] = &domain.Transaction{ID: "t2", OrganizationID: "org-1", BatchID: "b1", Merchant: "SWIGGY", Amount: 450}

	rules := &fakeRuleRepo{failOnText: "broken"}
	c := newTestCategorizer(txns, rules, nil)

	result, err := c.RunBatch(context.Background(), "org-1", "b1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Categorized)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "Food & Dining", txns.txns["t2"].AICategory)
}

func TestApplySuggestionWithoutSuggestionFails(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", Merchant: "SWIGGY", Amount: 450}

	c := newTestCategorizer(txns, nil, nil)

	_, err := c.ApplySuggestion(context.Background(), "org-1", "user-1", "t1", false)
	assert.ErrorIs(t, err, ErrSuggestionUnavailable)

	_, err = c.ApplySuggestion(context.Background(), "org-1", "user-1", "missing", false)
	assert.ErrorIs(t, err, ErrSuggestionUnavailable)
}

func TestApplySuggestionIsOrganizationScoped(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-other", Merchant: "SWIGGY", AICategory: "Food & Dining"}

	c := newTestCategorizer(txns, nil, nil)

	_, err := c.ApplySuggestion(context.Background(), "org-1", "user-1", "t1", false)
	assert.ErrorIs(t, err, ErrSuggestionUnavailable)
}

func TestApplySuggestionMarksManual(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{
		ID: "t1", OrganizationID: "org-1", BatchID: "b1",
		Merchant: "SWIGGY BANGALORE", AICategory: "Food & Dining", AIConfidence: 0.90,
	}

	c := newTestCategorizer(txns, nil, nil)

	result, err := c.ApplySuggestion(context.Background(), "org-1", "user-1", "t1", false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.RuleCreated)

	assert.Equal(t, "Food & Dining", txns.txns["t1"].Category)
	assert.True(t, txns.txns["t1"].IsManualCategory)

	// The transaction leaves the automatic pool: a batch re-run processes nothing.
	batch, err := c.RunBatch(context.Background(), "org-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.TotalProcessed)
	assert.Equal(t, 0, batch.Categorized)
}

func TestApplySuggestionRulePromotionIsIdempotent(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", Merchant: "SWIGGY BANGALORE", AICategory: "Food & Dining"}
	txns.txns["t2"] = &domain.Transaction{ID: "t2", OrganizationID: "org-1", Merchant: "Swiggy Bangalore", AICategory: "Food & Dining"}

	rules := &fakeRuleRepo{}
	c := newTestCategorizer(txns, rules, nil)

	first, err := c.ApplySuggestion(context.Background(), "org-1", "user-1", "t1", true)
	require.NoError(t, err)
	assert.True(t, first.RuleCreated)

	// Same merchant, different casing: normalization makes it the same pattern.
	second, err := c.ApplySuggestion(context.Background(), "org-1", "user-1", "t2", true)
	require.NoError(t, err)
	assert.False(t, second.RuleCreated)

	require.Len(t, rules.rules, 1)
	rule := rules.rules[0]
	assert.Equal(t, "swiggy bangalore", rule.MerchantPattern)
	assert.Equal(t, "Food & Dining", rule.Category)
	assert.Equal(t, 1.0, rule.Confidence)
	assert.Equal(t, "manual", rule.RuleType)
	assert.Equal(t, "user-1", rule.CreatedBy)
}

func TestPromotedRuleWinsNextCategorization(t *testing.T) {
	txns := newFakeTransactionRepo()
	txns.txns["t1"] = &domain.Transaction{ID: "t1", OrganizationID: "org-1", Merchant: "BLUE TOKAI ROASTERS", AICategory: "Coffee"}

	rules := &fakeRuleRepo{}
	c := newTestCategorizer(txns, rules, nil)

	_, err := c.ApplySuggestion(context.Background(), "org-1", "user-1", "t1", true)
	require.NoError(t, err)

	suggestion, err := c.Categorize(context.Background(), "org-1", "Blue Tokai Roasters HSR", 320, "")
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "Coffee", suggestion.Category)
	assert.Equal(t, ModelVersionRule, suggestion.ModelVersion)
}

func TestCreateRuleDefaultsAndDuplicates(t *testing.T) {
	rules := &fakeRuleRepo{}
	c := newTestCategorizer(nil, rules, nil)

	created, err := c.CreateRule(context.Background(), &domain.CategorizationRule{
		OrganizationID:  "org-1",
		MerchantPattern: "  Chai Point ",
		Category:        "Food & Dining",
		CreatedBy:       "user-1",
	})
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, rules.rules, 1)
	assert.Equal(t, "chai point", rules.rules[0].MerchantPattern)
	assert.Equal(t, 1.0, rules.rules[0].Confidence)
	assert.Equal(t, "manual", rules.rules[0].RuleType)

	created, err = c.CreateRule(context.Background(), &domain.CategorizationRule{
		OrganizationID:  "org-1",
		MerchantPattern: "CHAI POINT",
		Category:        "Beverages",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, rules.rules, 1)
}

func TestListRules(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*domain.CategorizationRule{
		{ID: "r1", OrganizationID: "org-1", MerchantPattern: "swiggy", Category: "Food & Dining", Priority: 1, CreatedAt: time.Now()},
		{ID: "r2", OrganizationID: "org-2", MerchantPattern: "uber", Category: "Transportation"},
	}}
	c := newTestCategorizer(nil, rules, nil)

	listed, err := c.ListRules(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "swiggy", listed[0].MerchantPattern)
}
