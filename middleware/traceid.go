package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TraceIDKey = "trace_id"
const TraceIDHeader = "X-Trace-ID"

// maxTraceIDLen bounds caller-supplied ids so they stay log friendly.
const maxTraceIDLen = 64

// TraceID injects a UUID trace ID into every request context and response
// header. A caller-supplied id is reused when it is short enough.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the Gin context.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// RequestLogger returns base annotated with the request's trace id.
func RequestLogger(c *gin.Context, base *zap.Logger) *zap.Logger {
	if id := GetTraceID(c); id != "" {
		return base.With(zap.String("trace_id", id))
	}
	return base
}
