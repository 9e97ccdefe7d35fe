package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated tenant's user ID
	UserIDKey contextKey = "user_id"

	// userIDHeader carries the tenant identity set by the gateway in
	// front of this service. The gateway strips it from client requests.
	userIDHeader = "X-User-ID"
)

// TenantMiddleware resolves the tenant identity on every request
type TenantMiddleware struct{}

// NewTenantMiddleware creates a new TenantMiddleware
func NewTenantMiddleware() *TenantMiddleware {
	return &TenantMiddleware{}
}

// Authenticate returns an Echo middleware that requires a tenant identity
func (m *TenantMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(userIDHeader)
			if raw == "" {
				return unauthorizedError(c, "Missing tenant identity")
			}
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				return unauthorizedError(c, "Invalid tenant identity")
			}
			c.Set(string(UserIDKey), userID)
			return next(c)
		}
	}
}

// GetUserID extracts the tenant's user ID from the context
func GetUserID(c echo.Context) int64 {
	if id, ok := c.Get(string(UserIDKey)).(int64); ok {
		return id
	}
	return 0
}
