package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/finsight/expense-insights-service/internal/middleware"
	"github.com/finsight/expense-insights-service/internal/model"
	"github.com/finsight/expense-insights-service/internal/service"
)

// CategorizeHandler handles HTTP requests for transaction categorization
type CategorizeHandler struct {
	categorizer *service.Categorizer
}

// NewCategorizeHandler creates a new categorization handler
func NewCategorizeHandler(categorizer *service.Categorizer) *CategorizeHandler {
	return &CategorizeHandler{
		categorizer: categorizer,
	}
}

// CategorizeBatch handles the POST /ai/categorize-batch endpoint
// @Summary Categorize an import batch
// @Description Run the rule/merchant/heuristic cascade over every uncategorized transaction of an uploaded file
// @Tags ai
// @Accept json
// @Produce json
// @Param request body model.CategorizeBatchRequest true "Import batch identifier"
// @Success 200 {object} model.CategorizeBatchResponse "Batch counts"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/categorize-batch [post]
func (h *CategorizeHandler) CategorizeBatch(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}

	var input model.CategorizeBatchRequest
	if err := bindJSON(c, &input); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("fileId", "File ID is required"))
		return
	}

	result, err := h.categorizer.RunBatch(c.Request.Context(), orgID, input.FileID)
	if err != nil {
		respondInternalServerError(c, fmt.Sprintf("Failed to categorize batch: %v", err))
		return
	}

	respondOK(c, model.CategorizeBatchResponse{
		TotalProcessed: result.TotalProcessed,
		Categorized:    result.Categorized,
		Skipped:        result.Skipped,
	})
}

// ApplySuggestion handles the POST /ai/apply-suggestion/{transactionId} endpoint
// @Summary Apply an AI category suggestion
// @Description Commit a transaction's stored AI suggestion as its category, optionally promoting it into a reusable rule
// @Tags ai
// @Accept json
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Param request body model.ApplySuggestionRequest false "Rule promotion flag"
// @Success 200 {object} model.ApplySuggestionResponse "Suggestion applied"
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 404 {object} model.ErrorResponse "Transaction not found or no suggestion available"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/apply-suggestion/{transactionId} [post]
func (h *CategorizeHandler) ApplySuggestion(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}
	userID := c.GetString(middleware.ContextUserID)

	transactionID, err := getPathUUID(c, "transactionId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	// Body is optional; createRule defaults to false.
	var input model.ApplySuggestionRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &input); err != nil {
			respondBadRequest(c, ErrInvalidInput)
			return
		}
	}

	result, err := h.categorizer.ApplySuggestion(c.Request.Context(), orgID, userID, transactionID, input.CreateRule)
	if err != nil {
		if errors.Is(err, service.ErrSuggestionUnavailable) {
			respondNotFound(c, err.Error())
			return
		}
		respondInternalServerError(c, fmt.Sprintf("Failed to apply suggestion: %v", err))
		return
	}

	respondOK(c, model.ApplySuggestionResponse{
		Success:     result.Success,
		RuleCreated: result.RuleCreated,
	})
}

// RegisterCategorizeRoutes registers the categorization API routes
func (h *CategorizeHandler) RegisterCategorizeRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	ai := router.Group("/ai", authMiddleware)
	{
		ai.POST("/categorize-batch", h.CategorizeBatch)
		ai.POST("/apply-suggestion/:transactionId", h.ApplySuggestion)
	}
}
