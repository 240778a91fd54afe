package handler

import (
    "errors"
    "net/http"

    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/labstack/echo/v4"
)

// StockHandler serves the outlet-side stock endpoints. Replenishment
// takes the same per-(outlet, product) lock as deduction so restocks and
// fulfillments against one record serialize.
type StockHandler struct {
    StockRepo   *repository.StockRepo
    ProductRepo *repository.ProductRepo
    UserRepo    *repository.UserRepo
}

// NewStockHandler constructs a StockHandler. All dependencies must be non-nil.
func NewStockHandler(stockRepo *repository.StockRepo, productRepo *repository.ProductRepo, userRepo *repository.UserRepo) *StockHandler {
    if stockRepo == nil || productRepo == nil || userRepo == nil {
        panic("nil dependency passed to NewStockHandler")
    }
    return &StockHandler{StockRepo: stockRepo, ProductRepo: productRepo, UserRepo: userRepo}
}

// outletFor resolves the operator's outlet, writing the error response
// itself on failure.
func (h *StockHandler) outletFor(c echo.Context) (uint64, bool) {
    userID, err := getUserID(c)
    if err != nil {
        _ = c.JSON(http.StatusUnauthorized, fail("unauthorized"))
        return 0, false
    }
    outletID, err := h.UserRepo.OutletIDFor(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrForbidden) {
            _ = c.JSON(http.StatusForbidden, fail("not an outlet operator"))
        } else {
            _ = c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        return 0, false
    }
    return outletID, true
}

// Replenish handles POST /v1/outlet/stock/replenish. Delta may be
// negative for corrections; the stored quantity clamps at zero. The
// record is created on first replenishment.
func (h *StockHandler) Replenish(c echo.Context) error {
    outletID, ok := h.outletFor(c)
    if !ok {
        return nil
    }
    var body struct {
        ProductID uint64 `json:"product_id"`
        Delta     int64  `json:"delta"`
    }
    if err := c.Bind(&body); err != nil || body.ProductID == 0 {
        return c.JSON(http.StatusBadRequest, fail("product_id is required"))
    }
    if body.Delta == 0 {
        return c.JSON(http.StatusBadRequest, fail("delta must be non-zero"))
    }
    ctx := c.Request().Context()
    if _, err := h.ProductRepo.GetActive(ctx, body.ProductID); err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, fail("product not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }

    unlock := h.StockRepo.Lock(outletID, body.ProductID)
    defer unlock()

    tx, err := h.UserRepo.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to start transaction"))
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    rec, err := h.StockRepo.ReplenishTx(ctx, tx, outletID, body.ProductID, body.Delta)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to update stock"))
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true
    return c.JSON(http.StatusOK, echo.Map{"stock": rec})
}

// List handles GET /v1/outlet/stock.
func (h *StockHandler) List(c echo.Context) error {
    outletID, ok := h.outletFor(c)
    if !ok {
        return nil
    }
    items, err := h.StockRepo.ListByOutlet(c.Request().Context(), outletID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load stock"))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
