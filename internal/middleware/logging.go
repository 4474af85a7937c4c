// Package middleware provides request-scoped fiber middleware.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"myblog/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals shared between middleware and handlers.
const (
	RequestIDLocal = "requestid"
	UserIDLocal    = "userID"
	TraceIDLocal   = "traceID"
)

// ContextMiddleware copies request id, user id and trace id from fiber locals
// into the request context so the context-aware logger picks them up.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(withLocals(c, c.UserContext()))
		return c.Next()
	}
}

func withLocals(c *fiber.Ctx, ctx context.Context) context.Context {
	if rid, ok := c.Locals(RequestIDLocal).(string); ok && rid != "" {
		ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
	}
	if uid, ok := c.Locals(UserIDLocal).(uint); ok && uid != 0 {
		ctx = observability.WithUserID(ctx, uid)
	}
	if tid, ok := c.Locals(TraceIDLocal).(string); ok && tid != "" {
		ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
	}
	return ctx
}

// StructuredLogger logs one line per request with status, method, path and latency.
func StructuredLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		// The user id may only be known after the handlers ran.
		ctx := withLocals(c, c.UserContext())
		if err != nil && status >= fiber.StatusInternalServerError {
			fields = append(fields, slog.String("error", err.Error()))
			logger.ErrorContext(ctx, "request failed", fields...)
		} else {
			logger.InfoContext(ctx, "request processed", fields...)
		}

		return err
	}
}
