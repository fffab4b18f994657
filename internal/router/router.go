// Package router wires handlers to routes.  Routes are grouped by
// authentication requirement: the health check and shop browsing are
// public, /v1/auth issues tokens, and everything else runs behind the
// JWT middleware with per-route capability checks.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kirei-app/kirei-api/internal/handler"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the guest browse surface.  The optional
// cache middleware serves repeated shop lookups straight from redis.
func RegisterPublic(e *echo.Echo, s *handler.ShopHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	e.GET("/v1/shops", s.List, mws...)
	e.GET("/v1/shops/:id", s.Get, mws...)
}

// RegisterAuth registers the token-issuing endpoints under /v1/auth.
// Logout is reachable both without a token (refresh_token in the body)
// and from the protected group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}
