package router

import (
    "github.com/iliyamo/gas-cylinder-distribution/internal/handler"
    "github.com/iliyamo/gas-cylinder-distribution/internal/middleware"
    "github.com/labstack/echo/v4"
)

// RegisterOutlet registers outlet-operator endpoints under /v1/outlet.
// All routes require a valid JWT and the OUTLET role; each handler
// additionally resolves the operator's outlet and rejects cross-outlet
// access.
func RegisterOutlet(e *echo.Echo, h *handler.OutletHandler, s *handler.StockHandler, st *handler.StatsHandler, jwtSecret string) {
    g := e.Group(
        "/v1/outlet",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("OUTLET"),
    )
    // Token validation approves both the token and its request.
    g.POST("/tokens/validate", h.ValidateToken)
    // Over-the-counter fulfillment: deliver immediately at the outlet.
    g.POST("/requests/:id/fulfill", h.FulfillRequest)
    // Courier path: schedule, assign and advance a delivery.
    g.POST("/requests/:id/delivery", h.CreateDelivery)
    g.POST("/deliveries/:id/assign", h.AssignDelivery)
    g.PATCH("/deliveries/:id/status", h.UpdateDeliveryStatus)
    // Stock management.
    g.POST("/stock/replenish", s.Replenish)
    g.GET("/stock", s.List)
    // Per-status delivery counts, optionally windowed by date.
    g.GET("/stats/deliveries", st.DeliveryStats)
}
