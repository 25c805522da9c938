package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/id"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID tags every request with an ID. A valid incoming header is kept,
// anything else is replaced with a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := id.RequestID(c.GetHeader(RequestIDHeader))
		if _, err := id.ParsePrefixed(id.RequestPrefix, string(rid)); err != nil {
			rid = id.NewRequestID()
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid.String())
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "" when absent.
func GetRequestID(c *gin.Context) id.RequestID {
	if v, ok := c.Get(requestIDKey); ok {
		if rid, ok := v.(id.RequestID); ok {
			return rid
		}
	}
	return ""
}

// AccessLog writes one debug line per request.
func AccessLog(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", GetRequestID(c).String()),
		)
	}
}
