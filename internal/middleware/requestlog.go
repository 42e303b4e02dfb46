package middleware

import (
	"net"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLog is a middleware that logs every operation once it has been served.
func RequestLog(logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		status := ctx.Status()
		fields := []zap.Field{
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.URL().Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("clientIp", ClientIP(ctx)),
		}

		if id := chimiddleware.GetReqID(ctx.Context()); id != "" {
			fields = append(fields, zap.String("requestId", id))
		}

		if status >= 500 {
			logger.Error("request served", fields...)

			return
		}

		logger.Info("request served", fields...)
	}
}

// ClientIP returns the originating client address, honoring proxy headers.
func ClientIP(ctx huma.Context) string {
	// X-Forwarded-For may carry a chain; the first hop is the client.
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}

	return addr
}
