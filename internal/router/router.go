package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/gas-cylinder-distribution/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/gas-cylinder-distribution/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Map the GET request at path "/healthz" to the Health handler.  This
    // endpoint can be used by load balancers or monitoring systems to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    // Operations that do not require an existing session: register, login,
    // refresh.  Each of these handlers generates or exchanges tokens.
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Refresh rotates the refresh token and returns a new pair.
    g.POST("/refresh", a.Refresh)
    // Logout accepts either a bearer token (revoke all sessions) or a
    // refresh_token in the body (revoke one session); it does not require
    // the JWT middleware.
    g.POST("/logout", a.Logout)

    // Routes that require a valid access token.  Any authenticated role is
    // accepted here; role-specific groups apply their own checks.
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("CONSUMER", "OUTLET", "ADMIN"))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated catalog endpoints.  Guests can
// browse products and outlets before creating an account.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler) {
    e.GET("/v1/products", p.ListProducts)
    e.GET("/v1/outlets", p.ListOutlets)
}
