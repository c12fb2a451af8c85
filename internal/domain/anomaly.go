package domain

import (
	"time"
)

// Anomaly severity tiers.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// AnomalyTypeHighSpending is the only anomaly type currently produced.
const AnomalyTypeHighSpending = "high_spending"

// Anomaly flags one day of unusual spending for an organization.
// At most one row exists per (organization, date).
type Anomaly struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Date           time.Time `json:"date"`
	Amount         float64   `json:"amount"`
	ZScore         float64   `json:"zScore"`
	MADScore       float64   `json:"madScore"`
	Type           string    `json:"type"`
	Severity       string    `json:"severity"`
	Acknowledged   bool      `json:"acknowledged"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DailySpend is one day's total positive spend for an organization.
type DailySpend struct {
	Date  time.Time `json:"date"`
	Total float64   `json:"total"`
}

// DetectionResult reports a detection run over one or more organizations.
type DetectionResult struct {
	Detected             int `json:"detected"`
	OrganizationsScanned int `json:"organizationsScanned"`
}
