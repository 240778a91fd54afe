package handler

import (
    "database/sql" // for sentinel errors returned from repository
    "errors"       // for errors.Is comparisons
    "fmt"          // message formatting for notifications
    "net/http"     // HTTP status codes
    "time"         // working with timestamps

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/iliyamo/gas-cylinder-distribution/internal/service"
    "github.com/iliyamo/gas-cylinder-distribution/internal/utils"
    "github.com/labstack/echo/v4"
)

// ConsumerHandler groups the repositories needed to submit requests,
// track deliveries and read notifications on behalf of consumers. All
// methods assume JWT authentication and role validation have already
// been performed by middleware. Critical multi-record writes run inside
// a transaction to guarantee atomicity.
type ConsumerHandler struct {
    RequestRepo      *repository.RequestRepo
    TokenRepo        *repository.PickupTokenRepo
    OutletRepo       *repository.OutletRepo
    ProductRepo      *repository.ProductRepo
    DeliveryRepo     *repository.DeliveryRepo
    NotificationRepo *repository.NotificationRepo
    Codes            utils.CodeSource
    Dispatcher       *service.Dispatcher
}

// NewConsumerHandler constructs a ConsumerHandler with the provided
// dependencies. All dependencies must be non-nil.
func NewConsumerHandler(requestRepo *repository.RequestRepo, tokenRepo *repository.PickupTokenRepo, outletRepo *repository.OutletRepo, productRepo *repository.ProductRepo, deliveryRepo *repository.DeliveryRepo, notificationRepo *repository.NotificationRepo, codes utils.CodeSource, dispatcher *service.Dispatcher) *ConsumerHandler {
    if requestRepo == nil || tokenRepo == nil || outletRepo == nil || productRepo == nil || deliveryRepo == nil || notificationRepo == nil || codes == nil || dispatcher == nil {
        panic("nil dependency passed to NewConsumerHandler")
    }
    return &ConsumerHandler{
        RequestRepo:      requestRepo,
        TokenRepo:        tokenRepo,
        OutletRepo:       outletRepo,
        ProductRepo:      productRepo,
        DeliveryRepo:     deliveryRepo,
        NotificationRepo: notificationRepo,
        Codes:            codes,
        Dispatcher:       dispatcher,
    }
}

// SubmitRequest handles POST /v1/requests. It validates the outlet,
// product and quantity bound, then creates the request (PENDING) and its
// pickup token in one transaction. The token code and expiry are
// returned so the consumer can present them at the outlet.
func (h *ConsumerHandler) SubmitRequest(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, fail("unauthorized"))
    }
    var body struct {
        ProductID uint64 `json:"product_id"`
        OutletID  uint64 `json:"outlet_id"`
        Quantity  uint32 `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, fail("invalid request body"))
    }
    if body.Quantity < model.MinRequestQuantity || body.Quantity > model.MaxRequestQuantity {
        return c.JSON(http.StatusBadRequest, fail("quantity must be between 1 and 1000"))
    }
    ctx := c.Request().Context()
    if _, err := h.OutletRepo.GetActive(ctx, body.OutletID); err != nil {
        if errors.Is(err, repository.ErrOutletNotFound) {
            return c.JSON(http.StatusNotFound, fail("outlet not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    product, err := h.ProductRepo.GetActive(ctx, body.ProductID)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, fail("product not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }

    tx, err := h.RequestRepo.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to start transaction"))
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    req := &model.Request{
        ConsumerID: userID,
        OutletID:   body.OutletID,
        ProductID:  body.ProductID,
        Quantity:   body.Quantity,
        Status:     model.RequestPending,
    }
    if err := h.RequestRepo.CreateTx(ctx, tx, req); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to create request"))
    }
    tok, err := h.TokenRepo.IssueTx(ctx, tx, req.ID, h.Codes)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to issue pickup token"))
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true

    h.Dispatcher.Notify(ctx, userID, "Request submitted",
        fmt.Sprintf("Your request for %d x %s was submitted. Pickup code: %s", req.Quantity, product.Name, tok.Code),
        model.NotifyRequest, req.ID, nil, string(req.Status))

    return c.JSON(http.StatusCreated, echo.Map{
        "request": req,
        "token":   tok,
    })
}

// ListRequests handles GET /v1/requests. It returns all requests placed
// by the current consumer, newest first.
func (h *ConsumerHandler) ListRequests(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, fail("unauthorized"))
    }
    items, err := h.RequestRepo.ListByConsumer(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load requests"))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// trackNote is the consumer-facing view of a tracking note. The proof
// field is deliberately absent from this read.
type trackNote struct {
    Status    model.DeliveryStatus `json:"status"`
    Note      string               `json:"note"`
    CreatedAt time.Time            `json:"created_at"`
}

// TrackDelivery handles GET /v1/requests/:id/delivery. It returns the
// delivery timeline for one of the consumer's requests: status, dates,
// tracking notes (without proof), the delivery person and the outlet.
func (h *ConsumerHandler) TrackDelivery(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, fail("unauthorized"))
    }
    requestID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, fail("invalid request id"))
    }
    ctx := c.Request().Context()
    req, err := h.RequestRepo.GetByID(ctx, requestID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("request not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if req.ConsumerID != userID {
        return c.JSON(http.StatusForbidden, fail("forbidden"))
    }
    del, err := h.DeliveryRepo.GetByRequestID(ctx, requestID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("no delivery for request yet"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    notes, err := h.DeliveryRepo.ListNotes(ctx, del.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load tracking notes"))
    }
    view := make([]trackNote, 0, len(notes))
    for _, n := range notes {
        view = append(view, trackNote{Status: n.Status, Note: n.Note, CreatedAt: n.CreatedAt})
    }
    resp := echo.Map{
        "status":         del.Status,
        "estimated_date": del.EstimatedDate,
        "actual_date":    del.ActualDate,
        "tracking_notes": view,
    }
    if del.DeliveryPersonID != nil {
        resp["delivery_person"] = *del.DeliveryPersonID
    }
    if outlet, err := h.OutletRepo.GetActive(ctx, del.OutletID); err == nil {
        resp["outlet"] = echo.Map{"id": outlet.ID, "name": outlet.Name, "city": outlet.City}
    }
    return c.JSON(http.StatusOK, resp)
}

// ListNotifications handles GET /v1/notifications.
func (h *ConsumerHandler) ListNotifications(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, fail("unauthorized"))
    }
    items, err := h.NotificationRepo.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to load notifications"))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MarkNotificationRead handles POST /v1/notifications/:id/read.
func (h *ConsumerHandler) MarkNotificationRead(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, fail("unauthorized"))
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, fail("invalid notification id"))
    }
    if err := h.NotificationRepo.MarkRead(c.Request().Context(), id, userID); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("notification not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("failed to update notification"))
    }
    return c.NoContent(http.StatusNoContent)
}
