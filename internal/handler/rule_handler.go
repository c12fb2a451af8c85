package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finsight/expense-insights-service/internal/domain"
	"github.com/finsight/expense-insights-service/internal/middleware"
	"github.com/finsight/expense-insights-service/internal/model"
	"github.com/finsight/expense-insights-service/internal/service"
)

// RuleHandler handles HTTP requests for categorization rules
type RuleHandler struct {
	categorizer *service.Categorizer
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(categorizer *service.Categorizer) *RuleHandler {
	return &RuleHandler{
		categorizer: categorizer,
	}
}

// ListRules handles the GET /categories/rules endpoint
// @Summary List categorization rules
// @Description Get the organization's categorization rules ordered by priority
// @Tags categories
// @Produce json
// @Success 200 {object} model.RulesListResponse "Rule list"
// @Failure 400 {object} model.ErrorResponse "Missing organization scope"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/categories/rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}

	rules, err := h.categorizer.ListRules(c.Request.Context(), orgID)
	if err != nil {
		respondInternalServerError(c, fmt.Sprintf("Failed to retrieve rules: %v", err))
		return
	}

	response := model.RulesListResponse{Rules: make([]model.RuleResponse, 0, len(rules))}
	for _, r := range rules {
		response.Rules = append(response.Rules, formatRuleResponse(&r))
	}

	respondOK(c, response)
}

// CreateRule handles the POST /categories/rules endpoint
// @Summary Create a categorization rule
// @Description Create a merchant-pattern rule; creating a duplicate pattern is a no-op
// @Tags categories
// @Accept json
// @Produce json
// @Param rule body model.CreateRuleRequest true "Rule definition"
// @Success 201 {object} model.RuleResponse "Rule created"
// @Success 200 {object} model.SuccessResponse "Identical rule already exists"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/categories/rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}
	userID := c.GetString(middleware.ContextUserID)

	var input model.CreateRuleRequest
	if err := bindJSON(c, &input); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	rule := &domain.CategorizationRule{
		OrganizationID:  orgID,
		MerchantPattern: input.MerchantPattern,
		Category:        input.Category,
		Confidence:      input.Confidence,
		Priority:        input.Priority,
		CreatedBy:       userID,
	}

	created, err := h.categorizer.CreateRule(c.Request.Context(), rule)
	if err != nil {
		respondInternalServerError(c, fmt.Sprintf("Failed to create rule: %v", err))
		return
	}

	if !created {
		c.JSON(http.StatusOK, model.SuccessResponse{
			Status:  "OK",
			Message: "A rule with this merchant pattern already exists",
		})
		return
	}

	respondCreated(c, formatRuleResponse(rule))
}

func formatRuleResponse(r *domain.CategorizationRule) model.RuleResponse {
	return model.RuleResponse{
		ID:              r.ID,
		MerchantPattern: r.MerchantPattern,
		Category:        r.Category,
		Confidence:      r.Confidence,
		RuleType:        r.RuleType,
		UsageCount:      r.UsageCount,
		Priority:        r.Priority,
	}
}

// RegisterRuleRoutes registers the rule API routes
func (h *RuleHandler) RegisterRuleRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	categories := router.Group("/categories", authMiddleware)
	{
		categories.GET("/rules", h.ListRules)
		categories.POST("/rules", h.CreateRule)
	}
}
