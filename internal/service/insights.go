package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finsight/expense-insights-service/internal/domain"
	"github.com/finsight/expense-insights-service/internal/repository"
)

const (
	topCategoryLimit   = 3
	insightAnomalyCap  = 3
	forecastWindowDays = 90
	forecastSpanDays   = 30
)

// InsightsService renders deterministic, template-driven insight bullets and
// summaries from period aggregates, anomaly counts and the prior period's
// spend. Identical inputs produce byte-identical output, which is what makes
// the period cache safe.
type InsightsService struct {
	transactions repository.TransactionRepository
	anomalies    repository.AnomalyRepository
	insights     repository.InsightRepository
	logger       *logrus.Logger
}

// NewInsightsService creates a new insights service
func NewInsightsService(
	transactions repository.TransactionRepository,
	anomalies repository.AnomalyRepository,
	insights repository.InsightRepository,
	logger *logrus.Logger,
) *InsightsService {
	return &InsightsService{
		transactions: transactions,
		anomalies:    anomalies,
		insights:     insights,
		logger:       logger,
	}
}

// GetInsights returns the organization's insights for the period, defaulting
// to [first of asOf's month, asOf]. The first read of an exact period
// computes and caches the row; later reads with the same bounds return the
// cached row without re-aggregating.
func (s *InsightsService) GetInsights(ctx context.Context, orgID string, periodStart, periodEnd *time.Time, asOf time.Time) (*domain.Insight, error) {
	start := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	end := asOf
	if periodStart != nil {
		start = *periodStart
	}
	if periodEnd != nil {
		end = *periodEnd
	}

	if !start.Before(end) {
		return nil, ErrInvalidPeriod
	}

	cached, err := s.insights.FindByPeriod(ctx, orgID, start, end)
	if err != nil {
		return nil, &ServiceError{Op: "load_cached_insight", Err: err}
	}
	if cached != nil {
		return cached, nil
	}

	insight, err := s.generate(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.insights.Save(ctx, insight); err != nil {
		return nil, &ServiceError{Op: "save_insight", Err: err}
	}

	return insight, nil
}

// generate computes the period's bullets and summary from fixed templates
func (s *InsightsService) generate(ctx context.Context, orgID string, start, end time.Time) (*domain.Insight, error) {
	current, err := s.transactions.PeriodStats(ctx, orgID, start, end)
	if err != nil {
		return nil, &ServiceError{Op: "load_period_stats", Err: err}
	}

	// Prior period of equal length, ending where this one starts.
	prevStart := start.Add(-end.Sub(start))
	prevTotal, err := s.transactions.PeriodTotal(ctx, orgID, prevStart, start)
	if err != nil {
		return nil, &ServiceError{Op: "load_prior_period_total", Err: err}
	}

	topCategories, err := s.transactions.TopCategories(ctx, orgID, start, end, topCategoryLimit)
	if err != nil {
		return nil, &ServiceError{Op: "load_top_categories", Err: err}
	}

	anomalies, err := s.anomalies.UnacknowledgedInPeriod(ctx, orgID, start, end, insightAnomalyCap)
	if err != nil {
		return nil, &ServiceError{Op: "load_period_anomalies", Err: err}
	}

	var momChange float64
	if prevTotal > 0 {
		momChange = (current.Total - prevTotal) / prevTotal * 100
	}

	bullets := buildBullets(current, momChange, topCategories, len(anomalies))
	summary := buildSummary(current, momChange, topCategories, len(anomalies))

	return &domain.Insight{
		OrganizationID: orgID,
		PeriodStart:    start,
		PeriodEnd:      end,
		Bullets:        bullets,
		Summary:        summary,
	}, nil
}

// buildBullets renders the ordered bullet list from fixed templates keyed off
// numeric thresholds
func buildBullets(current *domain.PeriodStats, momChange float64, topCategories []domain.CategoryTotal, anomalyCount int) []domain.Bullet {
	bullets := []domain.Bullet{}

	if math.Abs(momChange) > 10 {
		direction := "decreased"
		if momChange > 0 {
			direction = "increased"
		}
		bulletType := domain.BulletInfo
		if momChange > 20 {
			bulletType = domain.BulletWarning
		} else if momChange < -10 {
			bulletType = domain.BulletSuccess
		}
		bullets = append(bullets, domain.Bullet{
			Text: fmt.Sprintf("Spending %s by %.1f%% vs last period", direction, math.Abs(momChange)),
			Type: bulletType,
		})
	}

	if len(topCategories) > 0 {
		top := topCategories[0]
		bullets = append(bullets, domain.Bullet{
			Text: fmt.Sprintf("Top spending: %s (₹%.0f)", top.Category, top.Total),
			Type: domain.BulletInfo,
			Link: fmt.Sprintf("/transactions?category=%s", top.Category),
		})
	}

	if anomalyCount > 0 {
		noun := "days"
		if anomalyCount == 1 {
			noun = "day"
		}
		bullets = append(bullets, domain.Bullet{
			Text: fmt.Sprintf("%d unusual spending %s detected", anomalyCount, noun),
			Type: domain.BulletWarning,
		})
	}

	if current.AvgDaily > 0 {
		bullets = append(bullets, domain.Bullet{
			Text: fmt.Sprintf("Average daily spend: ₹%.0f", current.AvgDaily),
			Type: domain.BulletInfo,
		})
	}

	return bullets
}

// buildSummary renders the one-paragraph summary
func buildSummary(current *domain.PeriodStats, momChange float64, topCategories []domain.CategoryTotal, anomalyCount int) string {
	summary := fmt.Sprintf("This period you spent ₹%.0f across %d transactions. ", current.Total, current.Count)

	switch {
	case momChange > 10:
		driver := "various categories"
		if len(topCategories) > 0 {
			driver = topCategories[0].Category
		}
		summary += fmt.Sprintf("Spending increased by %.1f%% compared to last month, primarily driven by %s.", momChange, driver)
	case momChange < -10:
		summary += fmt.Sprintf("Great job! Spending decreased by %.1f%% compared to last month.", math.Abs(momChange))
	default:
		summary += "Spending remained relatively stable compared to last month."
	}

	if anomalyCount > 0 {
		summary += fmt.Sprintf(" We detected %d unusual spending patterns that may need your attention.", anomalyCount)
	}

	return summary
}

// Forecast projects the next 30 days of spend from the trailing 90-day
// average daily spend
func (s *InsightsService) Forecast(ctx context.Context, orgID string, asOf time.Time) (*domain.Forecast, error) {
	from := asOf.AddDate(0, 0, -forecastWindowDays)
	total, err := s.transactions.PeriodTotal(ctx, orgID, from, asOf)
	if err != nil {
		return nil, &ServiceError{Op: "load_forecast_window", Err: err}
	}

	avgDaily := total / forecastWindowDays
	return &domain.Forecast{
		ForecastedSpending: avgDaily * forecastSpanDays,
	}, nil
}
