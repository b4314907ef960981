package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ContextUserIDKey is where the optional middleware stores the caller's user id.
const ContextUserIDKey = "auth_user_id"

// Optional parses a bearer token when one is present and stores the caller
// identity in the request context. Requests with no token, or with a token
// that fails validation, proceed anonymously: every endpoint is open and the
// identity only supplies the default author on article creation.
func Optional(jwtService *JWTService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if raw, ok := bearerToken(header); ok {
				if claims, err := jwtService.ValidateToken(raw); err == nil {
					c.Set(ContextUserIDKey, claims.UserID)
				}
			}
			return next(c)
		}
	}
}

// CallerID returns the authenticated user's id, or nil for anonymous requests.
func CallerID(c echo.Context) *uint {
	if id, ok := c.Get(ContextUserIDKey).(uint); ok {
		return &id
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):]), true
	}
	return "", false
}
