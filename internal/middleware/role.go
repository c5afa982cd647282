package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/fault"
)

// RequireRole returns a middleware that enforces that the authenticated
// principal holds at least one of the specified roles.  It assumes JWTAuth
// ran earlier in the chain.  Requests without a principal fail with an
// unauthorized fault and requests whose roles do not intersect the allowed
// set with a forbidden fault; both flow through the problem-details error
// handler.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return fault.Unauthorized("authentication required")
			}
			for _, r := range p.Roles {
				if allowed[r] {
					return next(c)
				}
			}
			return fault.Forbidden("role not allowed for this operation")
		}
	}
}
