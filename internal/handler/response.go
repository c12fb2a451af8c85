package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finsight/expense-insights-service/internal/model"
)

// Common error messages
const (
	ErrInvalidInput        = "Invalid input format"
	ErrInvalidID           = "Invalid ID provided"
	ErrResourceNotFound    = "Resource not found"
	ErrInternalServer      = "Internal server error"
	ErrInvalidQueryParams  = "Invalid query parameters"
	ErrOrganizationMissing = "Organization ID required"
)

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, message string, details ...model.ErrorDetail) {
	response := model.ErrorResponse{
		Status:  http.StatusText(statusCode),
		Message: message,
		Details: details,
	}
	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...model.ErrorDetail) {
	respondWithError(c, http.StatusBadRequest, message, details...)
}

// respondUnauthorized sends a 401 Unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	respondWithError(c, http.StatusUnauthorized, message)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string) {
	respondWithError(c, http.StatusNotFound, message)
}

// respondInternalServerError sends a 500 Internal Server Error response
func respondInternalServerError(c *gin.Context, message string) {
	respondWithError(c, http.StatusInternalServerError, message)
}

// respondOK sends a 200 OK response with data
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// respondCreated sends a 201 Created response with data
func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// newErrorDetail creates a new error detail
func newErrorDetail(field, message string) model.ErrorDetail {
	return model.ErrorDetail{
		Field:   field,
		Message: message,
	}
}
