package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/expense-insights-service/internal/domain"
)

func dailySpends(asOf time.Time, totals []float64) []domain.DailySpend {
	days := make([]domain.DailySpend, len(totals))
	for i, total := range totals {
		days[i] = domain.DailySpend{
			Date:  asOf.AddDate(0, 0, -(len(totals) - i)),
			Total: total,
		}
	}
	return days
}

func TestDetectRequiresMinimumSample(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	txns := newFakeTransactionRepo()
	txns.daily["org-1"] = dailySpends(asOf, []float64{100, 100, 100, 100, 100, 9000})

	anomalies := &fakeAnomalyRepo{}
	d := NewAnomalyDetector(txns, anomalies, testLogger())

	detected, err := d.DetectForOrganization(context.Background(), "org-1", asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, detected)
	assert.Empty(t, anomalies.anomalies)
}

func TestDetectFlagsOutlierNotBaseline(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	txns := newFakeTransactionRepo()
	txns.daily["org-1"] = dailySpends(asOf, []float64{100, 100, 100, 100, 100, 100, 1000})

	anomalies := &fakeAnomalyRepo{}
	d := NewAnomalyDetector(txns, anomalies, testLogger())

	detected, err := d.DetectForOrganization(context.Background(), "org-1", asOf)
	require.NoError(t, err)

	require.Equal(t, 1, detected)
	require.Len(t, anomalies.anomalies, 1)

	flagged := anomalies.anomalies[0]
	assert.Equal(t, 1000.0, flagged.Amount)
	assert.Equal(t, domain.AnomalyTypeHighSpending, flagged.Type)
	assert.NotEmpty(t, flagged.Severity)
	assert.Greater(t, flagged.ZScore, 2.0)
	// Every deviation from the median is zero except the outlier's, so the
	// MAD collapses to zero and the robust score is guarded to zero.
	assert.Equal(t, 0.0, flagged.MADScore)
}

func TestDetectClassifiesExtremeDayHigh(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	txns := newFakeTransactionRepo()
	txns.daily["org-1"] = dailySpends(asOf, []float64{200, 210, 195, 205, 190, 215, 5000})

	anomalies := &fakeAnomalyRepo{}
	d := NewAnomalyDetector(txns, anomalies, testLogger())

	detected, err := d.DetectForOrganization(context.Background(), "org-1", asOf)
	require.NoError(t, err)

	require.Equal(t, 1, detected)
	flagged := anomalies.anomalies[0]
	assert.Equal(t, 5000.0, flagged.Amount)
	assert.Equal(t, domain.SeverityHigh, flagged.Severity)
	assert.Greater(t, flagged.MADScore, 3.5)
}

func TestDetectIsIdempotent(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	txns := newFakeTransactionRepo()
	txns.daily["org-1"] = dailySpends(asOf, []float64{200, 210, 195, 205, 190, 215, 5000})

	anomalies := &fakeAnomalyRepo{}
	d := NewAnomalyDetector(txns, anomalies, testLogger())

	first, err := d.DetectForOrganization(context.Background(), "org-1", asOf)
	require.NoError(t, err)
	require.Equal(t, 1, first)

	severity := anomalies.anomalies[0].Severity

	second, err := d.DetectForOrganization(context.Background(), "org-1", asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Len(t, anomalies.anomalies, 1)
	assert.Equal(t, severity, anomalies.anomalies[0].Severity)
}

func TestClassifySeverityTiers(t *testing.T) {
	cases := []struct {
		name     string
		zScore   float64
		madScore float64
		want     string
	}{
		{"high by z-score", 3.1, 0, domain.SeverityHigh},
		{"high by mad score", 0, 3.6, domain.SeverityHigh},
		{"medium by z-score", 2.6, 0, domain.SeverityMedium},
		{"medium by mad score", 0, 3.1, domain.SeverityMedium},
		{"low by z-score", 2.1, 0, domain.SeverityLow},
		{"low by mad score", 0, 2.6, domain.SeverityLow},
		{"thresholds are strict", 2.0, 2.5, ""},
		{"unremarkable day", 0.4, 0.3, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifySeverity(tc.zScore, tc.madScore))
		})
	}
}

func TestRunDetectionScansActiveOrganizations(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	txns := newFakeTransactionRepo()
	txns.activeOrgs = []string{"org-broken", "org-quiet", "org-spiky"}
	txns.failDaily["org-broken"] = true
	txns.daily["org-quiet"] = dailySpends(asOf, []float64{100, 105, 95, 100, 102, 98, 101})
	txns.daily["org-spiky"] = dailySpends(asOf, []float64{200, 210, 195, 205, 190, 215, 5000})

	anomalies := &fakeAnomalyRepo{}
	d := NewAnomalyDetector(txns, anomalies, testLogger())

	result, err := d.RunDetection(context.Background(), "", asOf)
	require.NoError(t, err)

	assert.Equal(t, 3, result.OrganizationsScanned)
	assert.Equal(t, 1, result.Detected)
	require.Len(t, anomalies.anomalies, 1)
	assert.Equal(t, "org-spiky", anomalies.anomalies[0].OrganizationID)
}

func TestRunDetectionForSingleOrganization(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	txns := newFakeTransactionRepo()
	txns.daily["org-1"] = dailySpends(asOf, []float64{200, 210, 195, 205, 190, 215, 5000})

	anomalies := &fakeAnomalyRepo{}
	d := NewAnomalyDetector(txns, anomalies, testLogger())

	result, err := d.RunDetection(context.Background(), "org-1", asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrganizationsScanned)
	assert.Equal(t, 1, result.Detected)
}

func TestAcknowledge(t *testing.T) {
	anomalies := &fakeAnomalyRepo{anomalies: []*domain.Anomaly{
		{ID: "a1", OrganizationID: "org-1", Date: time.Now(), Severity: domain.SeverityLow},
	}}
	d := NewAnomalyDetector(newFakeTransactionRepo(), anomalies, testLogger())

	require.NoError(t, d.Acknowledge(context.Background(), "a1", "org-1"))
	assert.True(t, anomalies.anomalies[0].Acknowledged)

	assert.ErrorIs(t, d.Acknowledge(context.Background(), "missing", "org-1"), ErrAnomalyNotFound)
	assert.ErrorIs(t, d.Acknowledge(context.Background(), "a1", "org-other"), ErrAnomalyNotFound)
}

func TestListAnomaliesMostRecentFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	anomalies := &fakeAnomalyRepo{anomalies: []*domain.Anomaly{
		{ID: "a1", OrganizationID: "org-1", Date: base, Severity: domain.SeverityLow},
		{ID: "a2", OrganizationID: "org-1", Date: base.AddDate(0, 0, 5), Severity: domain.SeverityHigh},
		{ID: "a3", OrganizationID: "org-other", Date: base.AddDate(0, 0, 9), Severity: domain.SeverityHigh},
	}}
	d := NewAnomalyDetector(newFakeTransactionRepo(), anomalies, testLogger())

	listed, err := d.ListAnomalies(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "a2", listed[0].ID)
	assert.Equal(t, "a1", listed[1].ID)
}
