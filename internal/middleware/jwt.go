package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects a typed Actor into the request context.  The provided
// secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			raw := strings.TrimPrefix(auth, "Bearer ")
			if !strings.HasPrefix(auth, "Bearer ") {
				// Browser websocket clients cannot set headers.
				raw = c.QueryParam("access_token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, errEnvelope("missing_token", "missing bearer token"))
			}

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				// Reject tokens signed with anything but HMAC.
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, errEnvelope("invalid_token", "invalid token"))
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errEnvelope("invalid_token", "invalid claims"))
			}

			actor := Actor{}
			switch sub := claims["sub"].(type) {
			case float64:
				actor.UserID = uint64(sub)
			case string:
				if parsed, perr := strconv.ParseUint(sub, 10, 64); perr == nil {
					actor.UserID = parsed
				}
			}
			if role, ok := claims["role"].(string); ok {
				actor.Role = role
			}
			if sid, ok := claims["sid"].(string); ok {
				actor.SessionID = sid
			}
			if actor.UserID == 0 || actor.Role == "" {
				return c.JSON(http.StatusUnauthorized, errEnvelope("invalid_token", "invalid claims"))
			}
			setActor(c, actor)
			return next(c)
		}
	}
}

// errEnvelope builds the standard error body used before the handler
// layer is reached.
func errEnvelope(code, msg string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   map[string]any{"code": code, "message": msg},
	}
}
