package middleware

import (
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

// LoggerMiddleware logs one line per request. Uploads move megabytes through
// POST /batch, so response size and duration carry more signal here than in a
// JSON-only API; health probes are demoted to debug to keep them out of the
// way.
func LoggerMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		event := zlog.Logger.Info()
		if path == "/health" {
			event = zlog.Logger.Debug()
		}
		event.
			Str("method", method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Int("response_bytes", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
