package api

import (
	echo "github.com/labstack/echo/v5"
)

// securityHeaders sets standard security response headers. Identical to
// the teacher's middleware.go — unlike the teacher, which declares this but
// never registers it in setupRoutes, this core wires it into every route
// (see server.go).
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			return next(c)
		}
	}
}
