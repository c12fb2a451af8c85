package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finsight/expense-insights-service/internal/model"
	"github.com/finsight/expense-insights-service/internal/service"
)

// AnomalyHandler handles HTTP requests for spending anomalies
type AnomalyHandler struct {
	detector *service.AnomalyDetector
}

// NewAnomalyHandler creates a new anomaly handler
func NewAnomalyHandler(detector *service.AnomalyDetector) *AnomalyHandler {
	return &AnomalyHandler{
		detector: detector,
	}
}

// DetectAnomalies handles the POST /ai/detect-anomalies endpoint
// @Summary Run anomaly detection on demand
// @Description Score trailing-30-day daily spending; omit organizationId to scan all active organizations. Intended for testing and backfill; the scheduler runs this daily.
// @Tags ai
// @Accept json
// @Produce json
// @Param organizationId query string false "Restrict detection to one organization"
// @Param asOf query string false "Detection reference time (RFC 3339 or YYYY-MM-DD, default now)"
// @Success 200 {object} model.DetectionResponse "Detection counts"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/detect-anomalies [post]
func (h *AnomalyHandler) DetectAnomalies(c *gin.Context) {
	orgID := c.Query("organizationId")

	asOf := time.Now().UTC()
	if parsed, err := parseTimeParam(c, "asOf"); err != nil {
		respondBadRequest(c, err.Error())
		return
	} else if parsed != nil {
		asOf = *parsed
	}

	result, err := h.detector.RunDetection(c.Request.Context(), orgID, asOf)
	if err != nil {
		respondInternalServerError(c, fmt.Sprintf("Failed to run detection: %v", err))
		return
	}

	respondOK(c, model.DetectionResponse{
		Detected:             result.Detected,
		OrganizationsScanned: result.OrganizationsScanned,
	})
}

// GetAnomalies handles the GET /ai/anomalies endpoint
// @Summary List spending anomalies
// @Description Get the organization's detected anomalies, most recent first, capped at 30
// @Tags ai
// @Produce json
// @Success 200 {object} model.AnomaliesListResponse "Anomaly list"
// @Failure 400 {object} model.ErrorResponse "Missing organization scope"
// @Failure 401 {object} model.ErrorResponse "Unauthorized"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/anomalies [get]
func (h *AnomalyHandler) GetAnomalies(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}

	anomalies, err := h.detector.ListAnomalies(c.Request.Context(), orgID)
	if err != nil {
		respondInternalServerError(c, fmt.Sprintf("Failed to retrieve anomalies: %v", err))
		return
	}

	response := model.AnomaliesListResponse{Anomalies: make([]model.AnomalyResponse, 0, len(anomalies))}
	for _, a := range anomalies {
		response.Anomalies = append(response.Anomalies, model.AnomalyResponse{
			ID:           a.ID,
			Date:         a.Date.Format("2006-01-02"),
			Amount:       a.Amount,
			ZScore:       a.ZScore,
			MADScore:     a.MADScore,
			Type:         a.Type,
			Severity:     a.Severity,
			Acknowledged: a.Acknowledged,
		})
	}

	respondOK(c, response)
}

// AcknowledgeAnomaly handles the POST /ai/anomalies/{anomalyId}/acknowledge endpoint
// @Summary Acknowledge an anomaly
// @Description Mark an anomaly as acknowledged, scoped to the caller's organization
// @Tags ai
// @Produce json
// @Param anomalyId path string true "Anomaly ID"
// @Success 200 {object} model.SuccessResponse "Anomaly acknowledged"
// @Failure 400 {object} model.ErrorResponse "Invalid anomaly ID"
// @Failure 404 {object} model.ErrorResponse "Anomaly not found"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/ai/anomalies/{anomalyId}/acknowledge [post]
func (h *AnomalyHandler) AcknowledgeAnomaly(c *gin.Context) {
	orgID, ok := requireOrganization(c)
	if !ok {
		return
	}

	anomalyID, err := getPathUUID(c, "anomalyId")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.detector.Acknowledge(c.Request.Context(), anomalyID, orgID); err != nil {
		if errors.Is(err, service.ErrAnomalyNotFound) {
			respondNotFound(c, fmt.Sprintf("Anomaly not found: %s", anomalyID))
			return
		}
		respondInternalServerError(c, fmt.Sprintf("Failed to acknowledge anomaly: %v", err))
		return
	}

	respondOK(c, model.SuccessResponse{Status: "OK", Message: "Anomaly acknowledged"})
}

// RegisterAnomalyRoutes registers the anomaly API routes
func (h *AnomalyHandler) RegisterAnomalyRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	ai := router.Group("/ai", authMiddleware)
	{
		ai.POST("/detect-anomalies", h.DetectAnomalies)
		ai.GET("/anomalies", h.GetAnomalies)
		ai.POST("/anomalies/:anomalyId/acknowledge", h.AcknowledgeAnomaly)
	}
}
