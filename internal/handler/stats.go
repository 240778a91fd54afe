package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/labstack/echo/v4"
)

// StatsHandler serves the outlet delivery statistics endpoint.
type StatsHandler struct {
    DeliveryRepo *repository.DeliveryRepo
    UserRepo     *repository.UserRepo
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(deliveryRepo *repository.DeliveryRepo, userRepo *repository.UserRepo) *StatsHandler {
    if deliveryRepo == nil || userRepo == nil {
        panic("nil dependency passed to NewStatsHandler")
    }
    return &StatsHandler{DeliveryRepo: deliveryRepo, UserRepo: userRepo}
}

// DeliveryStats handles GET /v1/outlet/stats/deliveries. Optional
// `from` and `to` query params (YYYY-MM-DD) bound the window by
// creation date; `to` is exclusive. Every status appears in the
// response, zero-filled when no delivery holds it.
func (h *StatsHandler) DeliveryStats(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, fail("unauthorized"))
    }
    outletID, err := h.UserRepo.OutletIDFor(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrForbidden) {
            return c.JSON(http.StatusForbidden, fail("not an outlet operator"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }

    var from, to *time.Time
    if s := c.QueryParam("from"); s != "" {
        t, err := time.Parse("2006-01-02", s)
        if err != nil {
            return c.JSON(http.StatusBadRequest, fail("invalid from date"))
        }
        from = &t
    }
    if s := c.QueryParam("to"); s != "" {
        t, err := time.Parse("2006-01-02", s)
        if err != nil {
            return c.JSON(http.StatusBadRequest, fail("invalid to date"))
        }
        to = &t
    }

    counts, err := h.DeliveryRepo.Stats(c.Request().Context(), outletID, from, to)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load stats"))
    }
    total := 0
    for _, n := range counts {
        total += n
    }
    return c.JSON(http.StatusOK, echo.Map{
        "total":            total,
        "pending":          counts[model.DeliveryPending],
        "assigned":         counts[model.DeliveryAssigned],
        "out_for_delivery": counts[model.DeliveryOutForDelivery],
        "delivered":        counts[model.DeliveryDelivered],
        "cancelled":        counts[model.DeliveryCancelled],
        "failed":           counts[model.DeliveryFailed],
    })
}
