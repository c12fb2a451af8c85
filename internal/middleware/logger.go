package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// sensitiveHeaderPatterns match headers that must never reach the logs
var sensitiveHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)authorization`),
	regexp.MustCompile(`(?i)api[-_]?key`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)cookie`),
	regexp.MustCompile(`(?i)session`),
}

// RequestLogger logs every request with latency, status and redacted headers
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(startTime).String(),
			"client_ip": c.ClientIP(),
			"headers":   redactHeaders(c.Request.Header),
		})

		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("Request failed")
			return
		}

		if c.Writer.Status() >= 500 {
			entry.Error("Request completed")
		} else {
			entry.Info("Request completed")
		}
	}
}

// redactHeaders replaces sensitive header values with a marker
func redactHeaders(headers map[string][]string) map[string]string {
	redacted := make(map[string]string, len(headers))
	for key, values := range headers {
		if isSensitiveHeader(key) {
			redacted[key] = "[REDACTED]"
		} else {
			redacted[key] = strings.Join(values, ", ")
		}
	}
	return redacted
}

func isSensitiveHeader(headerName string) bool {
	for _, pattern := range sensitiveHeaderPatterns {
		if pattern.MatchString(headerName) {
			return true
		}
	}
	return false
}
