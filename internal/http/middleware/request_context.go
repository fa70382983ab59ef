package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttachRequestContext stamps every request with a trace id used to
// correlate logs across the ingestion pipeline for that request.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("trace_id", traceID)
		c.Next()
	}
}
