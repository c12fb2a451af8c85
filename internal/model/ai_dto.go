package model

// CategorizeBatchRequest identifies the import batch to categorize
type CategorizeBatchRequest struct {
	FileID string `json:"fileId" binding:"required"`
}

// CategorizeBatchResponse reports batch categorization counts
type CategorizeBatchResponse struct {
	TotalProcessed int `json:"totalProcessed"`
	Categorized    int `json:"categorized"`
	Skipped        int `json:"skipped"`
}

// ApplySuggestionRequest carries the optional rule-promotion flag
type ApplySuggestionRequest struct {
	CreateRule bool `json:"createRule"`
}

// ApplySuggestionResponse reports the outcome of applying a suggestion
type ApplySuggestionResponse struct {
	Success     bool `json:"success"`
	RuleCreated bool `json:"ruleCreated"`
}

// AnomalyResponse represents one detected spending anomaly
type AnomalyResponse struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	ZScore       float64 `json:"zScore"`
	MADScore     float64 `json:"madScore"`
	Type         string  `json:"type"`
	Severity     string  `json:"severity"`
	Acknowledged bool    `json:"acknowledged"`
}

// AnomaliesListResponse wraps the anomaly list
type AnomaliesListResponse struct {
	Anomalies []AnomalyResponse `json:"anomalies"`
}

// DetectionResponse reports a detection run
type DetectionResponse struct {
	Detected             int `json:"detected"`
	OrganizationsScanned int `json:"organizationsScanned"`
}

// BulletResponse is one rendered insight line
type BulletResponse struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Link string `json:"link,omitempty"`
}

// InsightsResponse carries the rendered bullets and summary for a period
type InsightsResponse struct {
	Bullets     []BulletResponse `json:"bullets"`
	Summary     string           `json:"summary"`
	PeriodStart string           `json:"periodStart"`
	PeriodEnd   string           `json:"periodEnd"`
}

// ForecastResponse projects next-30-day spending
type ForecastResponse struct {
	ForecastedSpending float64 `json:"forecastedSpending"`
}

// RuleResponse represents one categorization rule
type RuleResponse struct {
	ID              string  `json:"id"`
	MerchantPattern string  `json:"merchantPattern"`
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
	RuleType        string  `json:"ruleType"`
	UsageCount      int     `json:"usageCount"`
	Priority        int     `json:"priority"`
}

// RulesListResponse wraps the rule list
type RulesListResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// CreateRuleRequest creates a new categorization rule
type CreateRuleRequest struct {
	MerchantPattern string  `json:"merchantPattern" binding:"required"`
	Category        string  `json:"category" binding:"required"`
	Priority        int     `json:"priority"`
	Confidence      float64 `json:"confidence"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
