package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finsight/expense-insights-service/internal/middleware"
)

// requireOrganization returns the verified organization scope of the request.
// Absence is an input-validation failure per the identity contract.
func requireOrganization(c *gin.Context) (string, bool) {
	orgID := c.GetString(middleware.ContextOrganizationID)
	if orgID == "" {
		respondBadRequest(c, ErrOrganizationMissing)
		return "", false
	}
	return orgID, true
}

// getPathUUID retrieves a path parameter and validates it as a UUID
func getPathUUID(c *gin.Context, paramName string) (string, error) {
	value := c.Param(paramName)
	if value == "" {
		return "", fmt.Errorf("%s is required", paramName)
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", fmt.Errorf("invalid %s: must be a UUID", paramName)
	}
	return value, nil
}

// parseTimeParam parses an optional RFC 3339 or YYYY-MM-DD query parameter
func parseTimeParam(c *gin.Context, paramName string) (*time.Time, error) {
	value := c.Query(paramName)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}

	return nil, fmt.Errorf("invalid %s: expected RFC 3339 or YYYY-MM-DD", paramName)
}

// bindJSON binds JSON request body to a struct
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid JSON format: %v", err)
	}
	return nil
}
