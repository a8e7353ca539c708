package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"binance-pattern-trader/internal/logging"
)

// requestLogger tags each request with a trace ID and logs its completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx, log := logging.WithTraceContext(c.Request.Context(), s.logger, c.GetHeader("X-Trace-ID"))
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", logging.TraceID(ctx))

		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/api/health" {
			event = log.Debug()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("Request completed")
	}
}
