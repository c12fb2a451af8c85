package domain

import (
	"time"
)

// Transaction represents an imported or manually entered expense transaction.
// Positive amounts are spend by convention.
type Transaction struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organizationId"`
	BatchID          string    `json:"batchId,omitempty"`
	Date             time.Time `json:"date"`
	Amount           float64   `json:"amount"`
	Merchant         string    `json:"merchant,omitempty"`
	Description      string    `json:"description"`
	Category         string    `json:"category,omitempty"`
	AICategory       string    `json:"aiCategory,omitempty"`
	AIConfidence     float64   `json:"aiConfidence,omitempty"`
	AIExplanation    string    `json:"aiExplanation,omitempty"`
	ModelVersion     string    `json:"modelVersion,omitempty"`
	IsManualCategory bool      `json:"isManualCategory"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Suggestion is the categorizer's output for a single transaction.
type Suggestion struct {
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	Explanation  string  `json:"explanation"`
	ModelVersion string  `json:"modelVersion"`
}

// CategorizationRule maps a merchant pattern to a category for one organization.
// Patterns are stored normalized (lowercase, trimmed) and matched by substring
// containment against the transaction's merchant or description text.
type CategorizationRule struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organizationId"`
	MerchantPattern string    `json:"merchantPattern"`
	Category        string    `json:"category"`
	Confidence      float64   `json:"confidence"`
	RuleType        string    `json:"ruleType"`
	UsageCount      int       `json:"usageCount"`
	Priority        int       `json:"priority"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Merchant is a known merchant reference row, optionally pre-assigned a category.
type Merchant struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	NormalizedName string `json:"normalizedName"`
	Category       string `json:"category,omitempty"`
}

// BatchResult reports the outcome of a batch categorization pass.
type BatchResult struct {
	TotalProcessed int `json:"totalProcessed"`
	Categorized    int `json:"categorized"`
	Skipped        int `json:"skipped"`
}

// ApplyResult reports the outcome of applying an AI suggestion.
type ApplyResult struct {
	Success     bool `json:"success"`
	RuleCreated bool `json:"ruleCreated"`
}
