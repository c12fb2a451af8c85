package domain

import (
	"time"
)

// Bullet severity tags used by insight templates.
const (
	BulletInfo    = "info"
	BulletWarning = "warning"
	BulletSuccess = "success"
)

// Bullet is one natural-language insight line.
type Bullet struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Link string `json:"link,omitempty"`
}

// Insight is the cached set of bullets and summary for one exact period.
// Rows are created lazily on first read and reused for identical period bounds.
type Insight struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	Bullets        []Bullet  `json:"bullets"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PeriodStats aggregates positive-amount spend for a period.
type PeriodStats struct {
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
	AvgDaily float64 `json:"avgDaily"`
}

// CategoryTotal is one category's spend within a period.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// Forecast projects next-30-day spend from trailing average daily spend.
type Forecast struct {
	ForecastedSpending float64 `json:"forecastedSpending"`
}
