// Package router wires handlers onto the Echo instance. Routes are split
// by audience: unauthenticated (health, auth, public catalog, gateway
// webhooks), customer-scoped and staff-scoped.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/handler"
	"github.com/kavelio/studio-booking/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints. Register, login, refresh
// and logout live under /v1/auth and need no access token; /v1/me requires
// one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout-all", a.LogoutAll)
}
