package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CronAuthMiddleware guards the batch-processing endpoints with a
// shared secret, for external schedulers that cannot carry a tenant
// identity header.
type CronAuthMiddleware struct {
	token string
}

// NewCronAuthMiddleware creates a new CronAuthMiddleware
func NewCronAuthMiddleware(token string) *CronAuthMiddleware {
	return &CronAuthMiddleware{token: token}
}

// Authenticate returns an Echo middleware that validates the cron token
func (m *CronAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.token == "" {
				log.Warn().Msg("Cron endpoint called but no cron token is configured")
				return unauthorizedError(c, "Cron processing is not enabled")
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.token)) != 1 {
				return unauthorizedError(c, "Invalid cron token")
			}
			return next(c)
		}
	}
}
