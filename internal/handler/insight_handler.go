package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finsight/expense-insights-service/internal/model"
	"github.com/finsight/expense-insights-service/internal/service"
)

// InsightHandler handles HTTP requests for period insights and forecasts
type InsightHandler struct {
	insights *service.InsightsService
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(insights *service.InsightsService) *InsightHandler {
	return &InsightHandler{
		insights: insights,
	}
}

// GetInsights handles the GET /ai/insights endpoint
// @Summary Get period insights
// @Description Get rendered insight bullets and a summary for the period, defaulting to the current calendar month. Identical period bounds return the cached row.
// @Tags ai
// @Produce json
// @Param periodStart query string false "Period start (RFC 3339 or YYYY-MM-DD)"
// @Param periodEnd query string false "Period end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} model.InsightsResponse "Insights"
// @Failure 400 {object} model.ErrorResponse "Invalid period bounds"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/insights [get]
func (h *InsightHandler) GetInsights(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}

	periodStart, err := parseTimeParam(c, "periodStart")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	periodEnd, err := parseTimeParam(c, "periodEnd")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	insight, err := h.insights.GetInsights(c.Request.Context(), orgID, periodStart, periodEnd, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrInvalidPeriod) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalServerError(c, fmt.Sprintf("Failed to generate insights: %v", err))
		return
	}

	response := model.InsightsResponse{
		Bullets:     make([]model.BulletResponse, 0, len(insight.Bullets)),
		Summary:     insight.Summary,
		PeriodStart: insight.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   insight.PeriodEnd.Format(time.RFC3339),
	}
	for _, b := range insight.Bullets {
		response.Bullets = append(response.Bullets, model.BulletResponse{
			Text: b.Text,
			Type: b.Type,
			Link: b.Link,
		})
	}

	respondOK(c, response)
}

// GetForecast handles the GET /ai/forecast endpoint
// @Summary Forecast next-30-day spending
// @Description Project the next 30 days of spend from the trailing 90-day average daily spend
// @Tags ai
// @Produce json
// @Success 200 {object} model.ForecastResponse "Forecast"
// @Failure 400 {object} model.ErrorResponse "Missing organization scope"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/forecast [get]
func (h *InsightHandler) GetForecast(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}

	forecast, err := h.insights.Forecast(c.Request.Context(), orgID, time.Now().UTC())
	if err != nil {
		respondInternalServerError(c, fmt.Sprintf("Failed to compute forecast: %v", err))
		return
	}

	respondOK(c, model.ForecastResponse{ForecastedSpending: forecast.ForecastedSpending})
}

// RegisterInsightRoutes registers the insight API routes
func (h *InsightHandler) RegisterInsightRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	ai := router.Group("/ai", authMiddleware)
	{
		ai.GET("/insights", h.GetInsights)
		ai.GET("/forecast", h.GetForecast)
	}
}
