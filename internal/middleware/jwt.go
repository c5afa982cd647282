package middleware // reusable HTTP middleware for the API edge

import (
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

// principalKey is the context key the verified principal is stored under.
const principalKey = "principal"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the verified principal into the request context.  The secret
// is the decoded HMAC key; tokens must be signed with HS256.  The core only
// consumes the claims – token issuance belongs to the identity service.
// Expected claims: "sub" (principal id), "email" and "roles" (array of
// strings).  Failures are returned as unauthorized faults so they render
// through the same problem-details error handler as every other failure.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return fault.Unauthorized("missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				// Reject any signing method other than HMAC before trusting
				// the claims.
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fault.Unauthorized("unexpected signing method")
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return fault.Unauthorized("invalid token")
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return fault.Unauthorized("invalid claims")
			}

			p := model.Principal{}
			if sub, ok := claims["sub"].(string); ok {
				p.ID = sub
			}
			if p.ID == "" {
				return fault.Unauthorized("token has no subject")
			}
			if email, ok := claims["email"].(string); ok {
				p.Email = email
			}
			// Roles arrive as a JSON array; tolerate a single string too.
			switch v := claims["roles"].(type) {
			case []interface{}:
				for _, r := range v {
					if s, ok := r.(string); ok {
						p.Roles = append(p.Roles, s)
					}
				}
			case string:
				p.Roles = append(p.Roles, v)
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom extracts the verified principal stored by JWTAuth.  The
// boolean is false on anonymous requests.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}
