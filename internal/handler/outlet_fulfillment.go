package handler

import (
    "database/sql"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/iliyamo/gas-cylinder-distribution/internal/service"
    "github.com/labstack/echo/v4"
)

// OutletHandler serves the outlet-side workflow: validating pickup
// codes, fulfilling requests over the counter, and running the delivery
// lifecycle. Handlers own their transactions; repositories only execute
// statements inside them. Stock movements take the per-(outlet, product)
// lock for the whole transaction so concurrent deductions serialize.
type OutletHandler struct {
    RequestRepo     *repository.RequestRepo
    TokenRepo       *repository.PickupTokenRepo
    DeliveryRepo    *repository.DeliveryRepo
    FulfillmentRepo *repository.FulfillmentRepo
    StockRepo       *repository.StockRepo
    UserRepo        *repository.UserRepo
    Dispatcher      *service.Dispatcher
    EnforceExpiry   bool
}

// NewOutletHandler constructs an OutletHandler. All dependencies must be
// non-nil.
func NewOutletHandler(requestRepo *repository.RequestRepo, tokenRepo *repository.PickupTokenRepo, deliveryRepo *repository.DeliveryRepo, fulfillmentRepo *repository.FulfillmentRepo, stockRepo *repository.StockRepo, userRepo *repository.UserRepo, dispatcher *service.Dispatcher, enforceExpiry bool) *OutletHandler {
    if requestRepo == nil || tokenRepo == nil || deliveryRepo == nil || fulfillmentRepo == nil || stockRepo == nil || userRepo == nil || dispatcher == nil {
        panic("nil dependency passed to NewOutletHandler")
    }
    return &OutletHandler{
        RequestRepo:     requestRepo,
        TokenRepo:       tokenRepo,
        DeliveryRepo:    deliveryRepo,
        FulfillmentRepo: fulfillmentRepo,
        StockRepo:       stockRepo,
        UserRepo:        userRepo,
        Dispatcher:      dispatcher,
        EnforceExpiry:   enforceExpiry,
    }
}

// operatorOutlet resolves the outlet the authenticated operator acts
// for, writing the error response itself on failure.
func (h *OutletHandler) operatorOutlet(c echo.Context) (uint64, uint64, bool) {
    userID, err := getUserID(c)
    if err != nil {
        _ = c.JSON(http.StatusUnauthorized, fail("unauthorized"))
        return 0, 0, false
    }
    outletID, err := h.UserRepo.OutletIDFor(c.Request().Context(), userID)
    if err != nil {
        if errors.Is(err, repository.ErrForbidden) {
            _ = c.JSON(http.StatusForbidden, fail("not an outlet operator"))
        } else {
            _ = c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        return 0, 0, false
    }
    return userID, outletID, true
}

// ValidateToken handles POST /v1/outlet/tokens/validate. Presenting a
// valid pending code approves both the token and its request in one
// transaction. A code that was already validated yields 409; an expired
// one is marked EXPIRED and yields 410 when expiry enforcement is on.
func (h *OutletHandler) ValidateToken(c echo.Context) error {
    _, outletID, ok := h.operatorOutlet(c)
    if !ok {
        return nil
    }
    var body struct {
        Code string `json:"code"`
    }
    if err := c.Bind(&body); err != nil || body.Code == "" {
        return c.JSON(http.StatusBadRequest, fail("code is required"))
    }
    ctx := c.Request().Context()
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

    tok, err := h.TokenRepo.GetByCodeTx(ctx, tx, body.Code)
    if err != nil {
        if errors.Is(err, repository.ErrTokenNotFound) {
            return c.JSON(http.StatusNotFound, fail("token not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if tok.Status == model.TokenApproved {
        return c.JSON(http.StatusConflict, failWith("token already validated", "token_already_used"))
    }
    if tok.Status == model.TokenExpired {
        return c.JSON(http.StatusGone, fail("token expired"))
    }
    if h.EnforceExpiry && tok.Expired(time.Now().UTC()) {
        // Lazy expiry: the row flips to EXPIRED the first time an
        // operator presents it past its window.
        if err := h.TokenRepo.UpdateStatusTx(ctx, tx, tok.ID, model.TokenPending, model.TokenExpired); err != nil && !errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        if err := tx.Commit(); err != nil {
            return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
        }
        committed = true
        return c.JSON(http.StatusGone, fail("token expired"))
    }

    req, err := h.RequestRepo.GetByIDTx(ctx, tx, tok.RequestID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if req.OutletID != outletID {
        return c.JSON(http.StatusForbidden, fail("token belongs to another outlet"))
    }
    if req.Status != model.RequestPending {
        return c.JSON(http.StatusConflict, failWith("request is not pending", "invalid_transition"))
    }
    if err := h.TokenRepo.UpdateStatusTx(ctx, tx, tok.ID, model.TokenPending, model.TokenApproved); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, failWith("token already validated", "token_already_used"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := h.RequestRepo.UpdateStatusTx(ctx, tx, req.ID, model.RequestPending, model.RequestApproved); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, failWith("request changed concurrently", "invalid_transition"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true
    tok.Status = model.TokenApproved
    req.Status = model.RequestApproved

    h.Dispatcher.Notify(ctx, req.ConsumerID, "Request approved",
        fmt.Sprintf("Your pickup code was validated at the outlet. Request #%d is approved.", req.ID),
        model.NotifyRequest, req.ID, nil, string(req.Status))

    return c.JSON(http.StatusOK, echo.Map{
        "token":   tok,
        "request": req,
    })
}

// deliverTx drives a delivery to DELIVERED inside the caller's
// transaction: deducts stock, stamps the actual date, appends the
// terminal tracking note, writes the fulfillment audit record and moves
// the request to DELIVERED. The caller must hold the stock lock for
// (req.OutletID, req.ProductID) and commit afterwards. The returned
// fulfillment is the record as written, so callers never re-read it.
func (h *OutletHandler) deliverTx(c echo.Context, tx *sql.Tx, req model.Request, del model.Delivery, operatorID uint64, note string, proof *string) (model.Delivery, model.Fulfillment, error) {
    ctx := c.Request().Context()
    var ful model.Fulfillment
    if _, err := h.StockRepo.DeductTx(ctx, tx, req.OutletID, req.ProductID, req.Quantity); err != nil {
        return del, ful, err
    }
    now := time.Now().UTC().Truncate(time.Second)
    if err := h.DeliveryRepo.UpdateStatusTx(ctx, tx, del.ID, del.Status, model.DeliveryDelivered, &now); err != nil {
        return del, ful, err
    }
    if note == "" {
        note = "Delivered to consumer"
    }
    if err := h.DeliveryRepo.AppendNoteTx(ctx, tx, &model.TrackingNote{
        DeliveryID: del.ID,
        Status:     model.DeliveryDelivered,
        Note:       note,
        Proof:      proof,
    }); err != nil {
        return del, ful, err
    }
    ful = model.Fulfillment{
        RequestID:         req.ID,
        DeliveryID:        del.ID,
        QuantityFulfilled: req.Quantity,
        VerifiedBy:        operatorID,
    }
    if err := h.FulfillmentRepo.CreateTx(ctx, tx, &ful); err != nil {
        return del, ful, err
    }
    if err := h.RequestRepo.UpdateStatusTx(ctx, tx, req.ID, req.Status, model.RequestDelivered); err != nil {
        return del, ful, err
    }
    del.Status = model.DeliveryDelivered
    del.ActualDate = &now
    return del, ful, nil
}

// FulfillRequest handles POST /v1/outlet/requests/:id/fulfill, the
// over-the-counter path: the consumer is present, so the handler creates
// the delivery record and drives it straight to DELIVERED in a single
// transaction, deducting stock and writing the fulfillment audit row.
func (h *OutletHandler) FulfillRequest(c echo.Context) error {
    operatorID, outletID, ok := h.operatorOutlet(c)
    if !ok {
        return nil
    }
    requestID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, fail("invalid request id"))
    }
    var body struct {
        Location string  `json:"location"`
        Note     string  `json:"note"`
        Proof    *string `json:"proof"`
    }
    _ = c.Bind(&body) // body is optional
    note := body.Note
    if note == "" && body.Location != "" {
        note = "Handed over at " + body.Location
    }

    ctx := c.Request().Context()
    req, err := h.RequestRepo.GetByID(ctx, requestID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("request not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if req.OutletID != outletID {
        return c.JSON(http.StatusForbidden, fail("request belongs to another outlet"))
    }
    if req.Status != model.RequestApproved {
        return c.JSON(http.StatusConflict, failWith("request is not approved", "invalid_transition"))
    }
    consumer, err := h.UserRepo.GetByID(ctx, req.ConsumerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }

    unlock := h.StockRepo.Lock(req.OutletID, req.ProductID)
    defer unlock()

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

    del := model.Delivery{
        RequestID: req.ID,
        OutletID:  req.OutletID,
        Status:    model.DeliveryPending,
        Priority:  "NORMAL",
        Street:    consumer.Street,
        City:      consumer.City,
        Contact:   consumer.Contact,
    }
    if err := h.DeliveryRepo.CreateTx(ctx, tx, &del); err != nil {
        if errors.Is(err, repository.ErrDuplicateDelivery) {
            return c.JSON(http.StatusConflict, failWith("request already has a delivery", "duplicate_delivery"))
        }
        return c.JSON(http.StatusInternalServerError, fail("failed to create delivery"))
    }
    if err := h.RequestRepo.UpdateStatusTx(ctx, tx, req.ID, model.RequestApproved, model.RequestProcessing); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, failWith("request changed concurrently", "invalid_transition"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    req.Status = model.RequestProcessing
    del, ful, err := h.deliverTx(c, tx, req, del, operatorID, note, body.Proof)
    if err != nil {
        if errors.Is(err, repository.ErrInsufficientStock) {
            return c.JSON(http.StatusConflict, failWith("insufficient stock", "insufficient_stock"))
        }
        if errors.Is(err, repository.ErrAlreadyFulfilled) || errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, failWith("request already fulfilled", "already_fulfilled"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true

    req.Status = model.RequestDelivered

    h.Dispatcher.Notify(ctx, req.ConsumerID, "Order delivered",
        fmt.Sprintf("Your order #%d was handed over at the outlet.", req.ID),
        model.NotifyDelivery, req.ID, &del.ID, string(del.Status))

    return c.JSON(http.StatusOK, echo.Map{
        "request":     req,
        "delivery":    del,
        "fulfillment": ful,
    })
}

// CreateDelivery handles POST /v1/outlet/requests/:id/delivery. It
// schedules a courier delivery for an approved request, snapshotting the
// consumer's address, and moves the request to PROCESSING.
func (h *OutletHandler) CreateDelivery(c echo.Context) error {
    _, outletID, ok := h.operatorOutlet(c)
    if !ok {
        return nil
    }
    requestID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, fail("invalid request id"))
    }
    var body struct {
        Priority      string     `json:"priority"`
        EstimatedDate *time.Time `json:"estimated_date"`
    }
    _ = c.Bind(&body)
    if body.Priority == "" {
        body.Priority = "NORMAL"
    }

    ctx := c.Request().Context()
    req, err := h.RequestRepo.GetByID(ctx, requestID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("request not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if req.OutletID != outletID {
        return c.JSON(http.StatusForbidden, fail("request belongs to another outlet"))
    }
    if req.Status != model.RequestApproved {
        return c.JSON(http.StatusConflict, failWith("request is not approved", "invalid_transition"))
    }
    consumer, err := h.UserRepo.GetByID(ctx, req.ConsumerID)
    if err != nil {
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

    del := model.Delivery{
        RequestID:     req.ID,
        OutletID:      req.OutletID,
        Status:        model.DeliveryPending,
        Priority:      body.Priority,
        Street:        consumer.Street,
        City:          consumer.City,
        Contact:       consumer.Contact,
        EstimatedDate: body.EstimatedDate,
    }
    if err := h.DeliveryRepo.CreateTx(ctx, tx, &del); err != nil {
        if errors.Is(err, repository.ErrDuplicateDelivery) {
            return c.JSON(http.StatusConflict, failWith("request already has a delivery", "duplicate_delivery"))
        }
        return c.JSON(http.StatusInternalServerError, fail("failed to create delivery"))
    }
    if err := h.RequestRepo.UpdateStatusTx(ctx, tx, req.ID, model.RequestApproved, model.RequestProcessing); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, failWith("request changed concurrently", "invalid_transition"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := h.DeliveryRepo.AppendNoteTx(ctx, tx, &model.TrackingNote{
        DeliveryID: del.ID,
        Status:     model.DeliveryPending,
        Note:       "Delivery created",
    }); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true

    h.Dispatcher.Notify(ctx, req.ConsumerID, "Delivery scheduled",
        fmt.Sprintf("A delivery was scheduled for your order #%d.", req.ID),
        model.NotifyDelivery, req.ID, &del.ID, string(del.Status))

    return c.JSON(http.StatusCreated, echo.Map{"delivery": del})
}

// AssignDelivery handles POST /v1/outlet/deliveries/:id/assign. It sets
// the delivery person and moves the delivery PENDING→ASSIGNED.
func (h *OutletHandler) AssignDelivery(c echo.Context) error {
    _, outletID, ok := h.operatorOutlet(c)
    if !ok {
        return nil
    }
    deliveryID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, fail("invalid delivery id"))
    }
    var body struct {
        DeliveryPersonID uint64 `json:"delivery_person_id"`
    }
    if err := c.Bind(&body); err != nil || body.DeliveryPersonID == 0 {
        return c.JSON(http.StatusBadRequest, fail("delivery_person_id is required"))
    }

    ctx := c.Request().Context()
    del, err := h.DeliveryRepo.GetByID(ctx, deliveryID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("delivery not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if del.OutletID != outletID {
        return c.JSON(http.StatusForbidden, fail("delivery belongs to another outlet"))
    }
    req, err := h.RequestRepo.GetByID(ctx, del.RequestID)
    if err != nil {
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

    if err := h.DeliveryRepo.UpdateStatusTx(ctx, tx, del.ID, model.DeliveryPending, model.DeliveryAssigned, nil); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, failWith("delivery is not pending", "invalid_transition"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := h.DeliveryRepo.AssignTx(ctx, tx, del.ID, body.DeliveryPersonID); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := h.DeliveryRepo.AppendNoteTx(ctx, tx, &model.TrackingNote{
        DeliveryID: del.ID,
        Status:     model.DeliveryAssigned,
        Note:       fmt.Sprintf("Assigned to delivery person #%d", body.DeliveryPersonID),
    }); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true
    del.Status = model.DeliveryAssigned
    del.DeliveryPersonID = &body.DeliveryPersonID

    h.Dispatcher.Notify(ctx, req.ConsumerID, "Delivery assigned",
        fmt.Sprintf("A delivery person was assigned to your order #%d.", req.ID),
        model.NotifyDelivery, req.ID, &del.ID, string(del.Status))

    return c.JSON(http.StatusOK, echo.Map{"delivery": del})
}

// UpdateDeliveryStatus handles PATCH /v1/outlet/deliveries/:id/status.
// Each call moves the delivery along one legal edge, appends exactly one
// tracking note and notifies the consumer once. The DELIVERED edge is the
// canonical completion path: it deducts stock and writes the fulfillment
// record atomically. CANCELLED and FAILED also cancel the request.
func (h *OutletHandler) UpdateDeliveryStatus(c echo.Context) error {
    operatorID, outletID, ok := h.operatorOutlet(c)
    if !ok {
        return nil
    }
    deliveryID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, fail("invalid delivery id"))
    }
    var body struct {
        Status string  `json:"status"`
        Note   string  `json:"note"`
        Proof  *string `json:"proof"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, fail("invalid request body"))
    }
    next := model.DeliveryStatus(body.Status)
    if !next.Valid() {
        return c.JSON(http.StatusBadRequest, fail("unknown delivery status"))
    }

    ctx := c.Request().Context()
    del, err := h.DeliveryRepo.GetByID(ctx, deliveryID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, fail("delivery not found"))
        }
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }
    if del.OutletID != outletID {
        return c.JSON(http.StatusForbidden, fail("delivery belongs to another outlet"))
    }
    if !del.Status.CanTransition(next) {
        return c.JSON(http.StatusConflict, failWith(
            fmt.Sprintf("cannot move delivery from %s to %s", del.Status, next), "invalid_transition"))
    }
    req, err := h.RequestRepo.GetByID(ctx, del.RequestID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, fail("database error"))
    }

    var unlock func()
    if next == model.DeliveryDelivered {
        unlock = h.StockRepo.Lock(req.OutletID, req.ProductID)
        defer unlock()
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

    var title, message string
    switch next {
    case model.DeliveryDelivered:
        del, _, err = h.deliverTx(c, tx, req, del, operatorID, body.Note, body.Proof)
        if err != nil {
            if errors.Is(err, repository.ErrInsufficientStock) {
                return c.JSON(http.StatusConflict, failWith("insufficient stock", "insufficient_stock"))
            }
            if errors.Is(err, repository.ErrAlreadyFulfilled) || errors.Is(err, repository.ErrConflict) {
                return c.JSON(http.StatusConflict, failWith("delivery changed concurrently", "invalid_transition"))
            }
            return c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        title = "Order delivered"
        message = fmt.Sprintf("Your order #%d was delivered.", req.ID)
    case model.DeliveryCancelled, model.DeliveryFailed:
        if err := h.DeliveryRepo.UpdateStatusTx(ctx, tx, del.ID, del.Status, next, nil); err != nil {
            if errors.Is(err, repository.ErrConflict) {
                return c.JSON(http.StatusConflict, failWith("delivery changed concurrently", "invalid_transition"))
            }
            return c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        note := body.Note
        if note == "" {
            note = "Delivery " + string(next)
        }
        if err := h.DeliveryRepo.AppendNoteTx(ctx, tx, &model.TrackingNote{
            DeliveryID: del.ID, Status: next, Note: note, Proof: body.Proof,
        }); err != nil {
            return c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        if req.Status == model.RequestProcessing {
            if err := h.RequestRepo.UpdateStatusTx(ctx, tx, req.ID, model.RequestProcessing, model.RequestCancelled); err != nil {
                if errors.Is(err, repository.ErrConflict) {
                    return c.JSON(http.StatusConflict, failWith("request changed concurrently", "invalid_transition"))
                }
                return c.JSON(http.StatusInternalServerError, fail("database error"))
            }
        }
        del.Status = next
        title = "Delivery " + string(next)
        message = fmt.Sprintf("Delivery for your order #%d is %s.", req.ID, next)
    default:
        if err := h.DeliveryRepo.UpdateStatusTx(ctx, tx, del.ID, del.Status, next, nil); err != nil {
            if errors.Is(err, repository.ErrConflict) {
                return c.JSON(http.StatusConflict, failWith("delivery changed concurrently", "invalid_transition"))
            }
            return c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        note := body.Note
        if note == "" {
            note = "Status changed to " + string(next)
        }
        if err := h.DeliveryRepo.AppendNoteTx(ctx, tx, &model.TrackingNote{
            DeliveryID: del.ID, Status: next, Note: note, Proof: body.Proof,
        }); err != nil {
            return c.JSON(http.StatusInternalServerError, fail("database error"))
        }
        del.Status = next
        title = "Delivery update"
        message = fmt.Sprintf("Delivery for your order #%d is now %s.", req.ID, next)
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, fail("failed to commit transaction"))
    }
    committed = true

    h.Dispatcher.Notify(ctx, req.ConsumerID, title, message,
        model.NotifyDelivery, req.ID, &del.ID, string(del.Status))

    return c.JSON(http.StatusOK, echo.Map{"delivery": del})
}
