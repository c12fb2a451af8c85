package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/finsight/expense-insights-service/internal/domain"
)

// In-memory repository fakes shared by the service tests.

type fakeTransactionRepo struct {
	txns map[string]*domain.Transaction

	daily      map[string][]domain.DailySpend
	failDaily  map[string]bool
	activeOrgs []string

	stats      *domain.PeriodStats
	statsCalls int
	prevTotal  float64
	topCats    []domain.CategoryTotal
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{
		txns:      map[string]*domain.Transaction{},
		daily:     map[string][]domain.DailySpend{},
		failDaily: map[string]bool{},
	}
}

func (f *fakeTransactionRepo) GetByID(_ context.Context, orgID, transactionID string) (*domain.Transaction, error) {
	txn, ok := f.txns[transactionID]
	if !ok || txn.OrganizationID != orgID {
		return nil, nil
	}
	copied := *txn
	return &copied, nil
}

func (f *fakeTransactionRepo) ListUncategorizedByBatch(_ context.Context, orgID, batchID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, txn := range f.txns {
		if txn.OrganizationID == orgID && txn.BatchID == batchID && !txn.IsManualCategory {
			out = append(out, *txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTransactionRepo) SaveSuggestion(_ context.Context, transactionID string, s *domain.Suggestion) error {
	txn, ok := f.txns[transactionID]
	if !ok {
		return fmt.Errorf("transaction not found: %s", transactionID)
	}
	txn.AICategory = s.Category
	txn.AIConfidence = s.Confidence
	txn.AIExplanation = s.Explanation
	txn.ModelVersion = s.ModelVersion
	if txn.Category == "" {
		txn.Category = s.Category
	}
	return nil
}

func (f *fakeTransactionRepo) ApplyCategory(_ context.Context, transactionID, category string) error {
	txn, ok := f.txns[transactionID]
	if !ok {
		return fmt.Errorf("transaction not found: %s", transactionID)
	}
	txn.Category = category
	txn.IsManualCategory = true
	return nil
}

func (f *fakeTransactionRepo) DailySpendTotals(_ context.Context, orgID string, _, _ time.Time) ([]domain.DailySpend, error) {
	if f.failDaily[orgID] {
		return nil, errors.New("daily totals unavailable")
	}
	return f.daily[orgID], nil
}

func (f *fakeTransactionRepo) ActiveOrganizations(_ context.Context, _ time.Time) ([]string, error) {
	return f.activeOrgs, nil
}

func (f *fakeTransactionRepo) PeriodStats(_ context.Context, _ string, _, _ time.Time) (*domain.PeriodStats, error) {
	f.statsCalls++
	if f.stats == nil {
		return &domain.PeriodStats{}, nil
	}
	copied := *f.stats
	return &copied, nil
}

func (f *fakeTransactionRepo) PeriodTotal(_ context.Context, _ string, _, _ time.Time) (float64, error) {
	return f.prevTotal, nil
}

func (f *fakeTransactionRepo) TopCategories(_ context.Context, _ string, _, _ time.Time, limit int) ([]domain.CategoryTotal, error) {
	if len(f.topCats) > limit {
		return f.topCats[:limit], nil
	}
	return f.topCats, nil
}

type fakeRuleRepo struct {
	rules      []*domain.CategorizationRule
	failOnText string
}

func (f *fakeRuleRepo) FindBestMatch(_ context.Context, orgID, normalizedText string) (*domain.CategorizationRule, error) {
	if f.failOnText != "" && strings.Contains(normalizedText, f.failOnText) {
		return nil, errors.New("rule lookup failed")
	}

	var best *domain.CategorizationRule
	for _, rule := range f.rules {
		if rule.OrganizationID != orgID || !strings.Contains(normalizedText, rule.MerchantPattern) {
			continue
		}
		if best == nil || rule.Priority > best.Priority ||
			(rule.Priority == best.Priority && rule.Confidence > best.Confidence) {
			best = rule
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (f *fakeRuleRepo) RecordUsage(_ context.Context, orgID, category string) error {
	for _, rule := range f.rules {
		if rule.OrganizationID == orgID && rule.Category == category {
			rule.UsageCount++
		}
	}
	return nil
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *domain.CategorizationRule) (bool, error) {
	for _, existing := range f.rules {
		if existing.OrganizationID == rule.OrganizationID && existing.MerchantPattern == rule.MerchantPattern {
			return false, nil
		}
	}
	copied := *rule
	copied.ID = fmt.Sprintf("rule-%d", len(f.rules)+1)
	f.rules = append(f.rules, &copied)
	return true, nil
}

func (f *fakeRuleRepo) List(_ context.Context, orgID string) ([]domain.CategorizationRule, error) {
	out := []domain.CategorizationRule{}
	for _, rule := range f.rules {
		if rule.OrganizationID == orgID {
			out = append(out, *rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

type fakeMerchantRepo struct {
	categories map[string]string // orgID|normalizedName -> category
}

func (f *fakeMerchantRepo) FindCategory(_ context.Context, orgID, normalizedName string) (string, error) {
	return f.categories[orgID+"|"+normalizedName], nil
}

type fakeAnomalyRepo struct {
	anomalies []*domain.Anomaly
}

func anomalyKey(orgID string, date time.Time) string {
	return orgID + "|" + date.Format("2006-01-02")
}

func (f *fakeAnomalyRepo) CreateIfAbsent(_ context.Context, anomaly *domain.Anomaly) (bool, error) {
	for _, existing := range f.anomalies {
		if anomalyKey(existing.OrganizationID, existing.Date) == anomalyKey(anomaly.OrganizationID, anomaly.Date) {
			return false, nil
		}
	}
	copied := *anomaly
	copied.ID = fmt.Sprintf("anomaly-%d", len(f.anomalies)+1)
	f.anomalies = append(f.anomalies, &copied)
	return true, nil
}

func (f *fakeAnomalyRepo) ListRecent(_ context.Context, orgID string, limit int) ([]domain.Anomaly, error) {
	out := []domain.Anomaly{}
	for _, a := range f.anomalies {
		if a.OrganizationID == orgID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAnomalyRepo) Acknowledge(_ context.Context, anomalyID, orgID string) (bool, error) {
	for _, a := range f.anomalies {
		if a.ID == anomalyID && a.OrganizationID == orgID {
			a.Acknowledged = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAnomalyRepo) UnacknowledgedInPeriod(_ context.Context, orgID string, start, end time.Time, limit int) ([]domain.Anomaly, error) {
	out := []domain.Anomaly{}
	for _, a := range f.anomalies {
		if a.OrganizationID == orgID && !a.Acknowledged && !a.Date.Before(start) && !a.Date.After(end) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeInsightRepo struct {
	saved []*domain.Insight
}

func (f *fakeInsightRepo) FindByPeriod(_ context.Context, orgID string, periodStart, periodEnd time.Time) (*domain.Insight, error) {
	for _, insight := range f.saved {
		if insight.OrganizationID == orgID &&
			insight.PeriodStart.Equal(periodStart) && insight.PeriodEnd.Equal(periodEnd) {
			copied := *insight
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeInsightRepo) Save(_ context.Context, insight *domain.Insight) error {
	copied := *insight
	f.saved = append(f.saved, &copied)
	return nil
}
