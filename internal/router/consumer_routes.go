package router

import (
    "github.com/iliyamo/gas-cylinder-distribution/internal/handler"
    "github.com/iliyamo/gas-cylinder-distribution/internal/middleware"
    "github.com/labstack/echo/v4"
)

// RegisterConsumer registers consumer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CONSUMER role.  Consumers submit
// requests, list their own requests, track deliveries and manage their
// notifications.
func RegisterConsumer(e *echo.Echo, h *handler.ConsumerHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CONSUMER"),
    )
    g.POST("/requests", h.SubmitRequest)
    g.GET("/requests", h.ListRequests)
    g.GET("/requests/:id/delivery", h.TrackDelivery)
    g.GET("/notifications", h.ListNotifications)
    g.POST("/notifications/:id/read", h.MarkNotificationRead)
}
