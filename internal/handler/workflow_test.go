package handler_test

import (
    "database/sql"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    _ "modernc.org/sqlite" // pure-Go SQLite driver

    "github.com/iliyamo/gas-cylinder-distribution/internal/handler"
    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/iliyamo/gas-cylinder-distribution/internal/service"
)

// seqSource yields 0,1,2,... modulo n so generated codes are deterministic.
type seqSource struct{ i int }

func (s *seqSource) Intn(n int) int {
    v := s.i % n
    s.i++
    return v
}

type env struct {
    t  *testing.T
    db *sql.DB
    e  *echo.Echo

    consumer  uint64 // consumer at outlet 1
    operator  uint64 // operator of outlet 1
    operator2 uint64 // operator of outlet 2

    ch *handler.ConsumerHandler
    oh *handler.OutletHandler
    sh *handler.StockHandler
    st *handler.StatsHandler
}

const schema = `
CREATE TABLE users(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  outlet_id INTEGER,
  street TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  contact TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE outlets(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  city TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE products(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  weight_kg REAL NOT NULL,
  price_cents INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE requests(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  consumer_id INTEGER NOT NULL,
  outlet_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE tokens(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id INTEGER NOT NULL,
  code TEXT NOT NULL,
  status TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE stock_records(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  outlet_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  UNIQUE(outlet_id, product_id)
);
CREATE TABLE deliveries(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id INTEGER NOT NULL UNIQUE,
  outlet_id INTEGER NOT NULL,
  delivery_person_id INTEGER,
  status TEXT NOT NULL,
  priority TEXT NOT NULL,
  street TEXT NOT NULL,
  city TEXT NOT NULL,
  contact TEXT NOT NULL,
  estimated_date TEXT,
  actual_date TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE tracking_notes(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  delivery_id INTEGER NOT NULL,
  status TEXT NOT NULL,
  note TEXT NOT NULL,
  proof TEXT,
  created_at TEXT NOT NULL
);
CREATE TABLE fulfillments(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id INTEGER NOT NULL,
  delivery_id INTEGER NOT NULL UNIQUE,
  quantity_fulfilled INTEGER NOT NULL,
  verified_by INTEGER NOT NULL,
  created_at TEXT NOT NULL
);
CREATE TABLE notifications(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  type TEXT NOT NULL,
  is_read INTEGER NOT NULL DEFAULT 0,
  request_id INTEGER,
  created_at TEXT NOT NULL
);
CREATE TABLE refresh_tokens(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  token_hash TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  revoked_at TEXT,
  created_at TEXT NOT NULL
);
`

// newEnv builds a full stack over an in-memory database: two outlets,
// one product, a consumer and an operator per outlet, and the given
// starting stock at outlet 1. Event publishing is off in tests.
func newEnv(t *testing.T, enforceExpiry bool, initialStock int) *env {
    t.Helper()
    db, err := sql.Open("sqlite", ":memory:")
    if err != nil {
        t.Fatal(err)
    }
    db.SetMaxOpenConns(1)
    t.Cleanup(func() { _ = db.Close() })
    if _, err := db.Exec(schema); err != nil {
        t.Fatal(err)
    }

    now := "2025-06-01 09:00:00"
    mustExec := func(q string, args ...any) uint64 {
        res, err := db.Exec(q, args...)
        if err != nil {
            t.Fatal(err)
        }
        id, _ := res.LastInsertId()
        return uint64(id)
    }
    mustExec(`INSERT INTO outlets(name, city, is_active, created_at, updated_at) VALUES('Central Depot','Accra',1,?,?)`, now, now)
    mustExec(`INSERT INTO outlets(name, city, is_active, created_at, updated_at) VALUES('East Depot','Tema',1,?,?)`, now, now)
    mustExec(`INSERT INTO products(name, weight_kg, price_cents, is_active, created_at, updated_at) VALUES('12kg Cylinder',12.0,15000,1,?,?)`, now, now)
    consumer := mustExec(`INSERT INTO users(email, password_hash, role, street, city, contact, is_active, created_at, updated_at)
        VALUES('consumer@example.com','x','CONSUMER','12 Ring Rd','Accra','+233200000001',1,?,?)`, now, now)
    operator := mustExec(`INSERT INTO users(email, password_hash, role, outlet_id, is_active, created_at, updated_at)
        VALUES('op1@example.com','x','OUTLET',1,1,?,?)`, now, now)
    operator2 := mustExec(`INSERT INTO users(email, password_hash, role, outlet_id, is_active, created_at, updated_at)
        VALUES('op2@example.com','x','OUTLET',2,1,?,?)`, now, now)
    if initialStock > 0 {
        mustExec(`INSERT INTO stock_records(outlet_id, product_id, quantity, created_at, updated_at) VALUES(1,1,?,?,?)`,
            initialStock, now, now)
    }

    userRepo := repository.NewUserRepo(db)
    requestRepo := repository.NewRequestRepo(db)
    tokenRepo := repository.NewPickupTokenRepo(db)
    outletRepo := repository.NewOutletRepo(db)
    productRepo := repository.NewProductRepo(db)
    deliveryRepo := repository.NewDeliveryRepo(db)
    fulfillmentRepo := repository.NewFulfillmentRepo(db)
    stockRepo := repository.NewStockRepo(db)
    notificationRepo := repository.NewNotificationRepo(db)
    dispatcher := service.NewDispatcher(notificationRepo, false)

    return &env{
        t:         t,
        db:        db,
        e:         echo.New(),
        consumer:  consumer,
        operator:  operator,
        operator2: operator2,
        ch: handler.NewConsumerHandler(requestRepo, tokenRepo, outletRepo, productRepo,
            deliveryRepo, notificationRepo, &seqSource{}, dispatcher),
        oh: handler.NewOutletHandler(requestRepo, tokenRepo, deliveryRepo, fulfillmentRepo,
            stockRepo, userRepo, dispatcher, enforceExpiry),
        sh: handler.NewStockHandler(stockRepo, productRepo, userRepo),
        st: handler.NewStatsHandler(deliveryRepo, userRepo),
    }
}

// do invokes a handler directly with a synthetic request. uid is placed
// in the context the way the JWT middleware would.
func (v *env) do(h echo.HandlerFunc, method, path, body string, uid uint64, pnames, pvals []string) *httptest.ResponseRecorder {
    v.t.Helper()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := v.e.NewContext(req, rec)
    if len(pnames) > 0 {
        c.SetParamNames(pnames...)
        c.SetParamValues(pvals...)
    }
    if uid != 0 {
        c.Set("user_id", uid)
    }
    if err := h(c); err != nil {
        v.t.Fatalf("handler returned error: %v", err)
    }
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
    t.Helper()
    if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
        t.Fatalf("decode response %q: %v", rec.Body.String(), err)
    }
}

func (v *env) submit(quantity int) (requestID uint64, code string) {
    v.t.Helper()
    body := fmt.Sprintf(`{"product_id":1,"outlet_id":1,"quantity":%d}`, quantity)
    rec := v.do(v.ch.SubmitRequest, http.MethodPost, "/v1/requests", body, v.consumer, nil, nil)
    if rec.Code != http.StatusCreated {
        v.t.Fatalf("submit: want 201, got %d: %s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Request model.Request     `json:"request"`
        Token   model.PickupToken `json:"token"`
    }
    decode(v.t, rec, &resp)
    if len(resp.Token.Code) != model.PickupCodeLength {
        v.t.Fatalf("token code %q has wrong length", resp.Token.Code)
    }
    if ttl := resp.Token.ExpiresAt.Sub(resp.Token.CreatedAt); ttl != model.PickupTokenTTL {
        v.t.Fatalf("token lifetime: want %s, got %s", model.PickupTokenTTL, ttl)
    }
    return resp.Request.ID, resp.Token.Code
}

func (v *env) validate(code string, uid uint64) *httptest.ResponseRecorder {
    v.t.Helper()
    return v.do(v.oh.ValidateToken, http.MethodPost, "/v1/outlet/tokens/validate",
        fmt.Sprintf(`{"code":%q}`, code), uid, nil, nil)
}

func (v *env) count(query string, args ...any) int {
    v.t.Helper()
    var n int
    if err := v.db.QueryRow(query, args...).Scan(&n); err != nil {
        v.t.Fatal(err)
    }
    return n
}

func (v *env) requestStatus(id uint64) string {
    v.t.Helper()
    var s string
    if err := v.db.QueryRow(`SELECT status FROM requests WHERE id=?`, id).Scan(&s); err != nil {
        v.t.Fatal(err)
    }
    return s
}

func (v *env) stockAt(outletID, productID uint64) int {
    v.t.Helper()
    var q int
    if err := v.db.QueryRow(`SELECT quantity FROM stock_records WHERE outlet_id=? AND product_id=?`,
        outletID, productID).Scan(&q); err != nil {
        v.t.Fatal(err)
    }
    return q
}

func TestOverTheCounterFulfillment(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, code := v.submit(2)

    if got := v.requestStatus(reqID); got != "PENDING" {
        t.Fatalf("want PENDING after submit, got %s", got)
    }
    rec := v.validate(code, v.operator)
    if rec.Code != http.StatusOK {
        t.Fatalf("validate: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    if got := v.requestStatus(reqID); got != "APPROVED" {
        t.Fatalf("want APPROVED after validate, got %s", got)
    }

    rec = v.do(v.oh.FulfillRequest, http.MethodPost, "/v1/outlet/requests/1/fulfill",
        `{"location":"counter 3"}`, v.operator, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("fulfill: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    var fulfilled struct {
        Request     model.Request     `json:"request"`
        Delivery    model.Delivery    `json:"delivery"`
        Fulfillment model.Fulfillment `json:"fulfillment"`
    }
    decode(t, rec, &fulfilled)
    if fulfilled.Request.Status != model.RequestDelivered {
        t.Fatalf("response request status: want DELIVERED, got %s", fulfilled.Request.Status)
    }
    if fulfilled.Fulfillment.QuantityFulfilled != 2 || fulfilled.Fulfillment.VerifiedBy != v.operator {
        t.Fatalf("bad fulfillment in response: %+v", fulfilled.Fulfillment)
    }
    if fulfilled.Fulfillment.ID == 0 || fulfilled.Fulfillment.DeliveryID != fulfilled.Delivery.ID {
        t.Fatalf("fulfillment not linked to delivery: %+v", fulfilled.Fulfillment)
    }

    if got := v.stockAt(1, 1); got != 8 {
        t.Fatalf("stock: want 8 after deducting 2 from 10, got %d", got)
    }
    if got := v.requestStatus(reqID); got != "DELIVERED" {
        t.Fatalf("want DELIVERED, got %s", got)
    }
    if n := v.count(`SELECT COUNT(*) FROM deliveries WHERE request_id=? AND status='DELIVERED' AND actual_date IS NOT NULL`, reqID); n != 1 {
        t.Fatalf("want one delivered delivery with actual_date, got %d", n)
    }
    if n := v.count(`SELECT COUNT(*) FROM fulfillments WHERE request_id=? AND quantity_fulfilled=2 AND verified_by=?`, reqID, v.operator); n != 1 {
        t.Fatalf("want exactly one fulfillment, got %d", n)
    }
    if n := v.count(`SELECT COUNT(*) FROM notifications WHERE user_id=? AND type='REQUEST'`, v.consumer); n != 2 {
        t.Fatalf("want 2 request notifications (submit, approve), got %d", n)
    }
    if n := v.count(`SELECT COUNT(*) FROM notifications WHERE user_id=? AND type='DELIVERY'`, v.consumer); n != 1 {
        t.Fatalf("want 1 delivery notification, got %d", n)
    }
}

func TestValidateTokenTwice(t *testing.T) {
    v := newEnv(t, true, 10)
    _, code := v.submit(1)

    if rec := v.validate(code, v.operator); rec.Code != http.StatusOK {
        t.Fatalf("first validate: want 200, got %d", rec.Code)
    }
    rec := v.validate(code, v.operator)
    if rec.Code != http.StatusConflict {
        t.Fatalf("second validate: want 409, got %d: %s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Constraint string `json:"constraint"`
    }
    decode(t, rec, &resp)
    if resp.Constraint != "token_already_used" {
        t.Fatalf("want token_already_used constraint, got %q", resp.Constraint)
    }
}

func TestValidateUnknownCode(t *testing.T) {
    v := newEnv(t, true, 10)
    if rec := v.validate("999999", v.operator); rec.Code != http.StatusNotFound {
        t.Fatalf("want 404 for unknown code, got %d", rec.Code)
    }
}

func TestValidateTokenWrongOutlet(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, code := v.submit(1)

    rec := v.validate(code, v.operator2)
    if rec.Code != http.StatusForbidden {
        t.Fatalf("want 403 for foreign outlet, got %d: %s", rec.Code, rec.Body.String())
    }
    if got := v.requestStatus(reqID); got != "PENDING" {
        t.Fatalf("request must stay PENDING, got %s", got)
    }
}

func TestExpiredTokenEnforced(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, code := v.submit(1)
    if _, err := v.db.Exec(`UPDATE tokens SET expires_at='2020-01-01 00:00:00' WHERE request_id=?`, reqID); err != nil {
        t.Fatal(err)
    }

    rec := v.validate(code, v.operator)
    if rec.Code != http.StatusGone {
        t.Fatalf("want 410 for expired token, got %d: %s", rec.Code, rec.Body.String())
    }
    var status string
    if err := v.db.QueryRow(`SELECT status FROM tokens WHERE request_id=?`, reqID).Scan(&status); err != nil {
        t.Fatal(err)
    }
    if status != "EXPIRED" {
        t.Fatalf("token should be lazily marked EXPIRED, got %s", status)
    }
    if got := v.requestStatus(reqID); got != "PENDING" {
        t.Fatalf("request must stay PENDING, got %s", got)
    }
}

func TestExpiredTokenAcceptedWhenEnforcementOff(t *testing.T) {
    v := newEnv(t, false, 10)
    reqID, code := v.submit(1)
    if _, err := v.db.Exec(`UPDATE tokens SET expires_at='2020-01-01 00:00:00' WHERE request_id=?`, reqID); err != nil {
        t.Fatal(err)
    }

    rec := v.validate(code, v.operator)
    if rec.Code != http.StatusOK {
        t.Fatalf("want 200 with enforcement off, got %d: %s", rec.Code, rec.Body.String())
    }
    if got := v.requestStatus(reqID); got != "APPROVED" {
        t.Fatalf("want APPROVED, got %s", got)
    }
}

func TestFulfillInsufficientStock(t *testing.T) {
    v := newEnv(t, true, 1)
    reqID, code := v.submit(5)
    if rec := v.validate(code, v.operator); rec.Code != http.StatusOK {
        t.Fatalf("validate: want 200, got %d", rec.Code)
    }

    rec := v.do(v.oh.FulfillRequest, http.MethodPost, "/v1/outlet/requests/1/fulfill",
        "", v.operator, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusConflict {
        t.Fatalf("want 409 for insufficient stock, got %d: %s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Constraint string `json:"constraint"`
    }
    decode(t, rec, &resp)
    if resp.Constraint != "insufficient_stock" {
        t.Fatalf("want insufficient_stock constraint, got %q", resp.Constraint)
    }
    // The whole transaction rolled back: no delivery, no fulfillment,
    // stock and request untouched.
    if got := v.stockAt(1, 1); got != 1 {
        t.Fatalf("stock must be untouched, want 1 got %d", got)
    }
    if got := v.requestStatus(reqID); got != "APPROVED" {
        t.Fatalf("request must stay APPROVED, got %s", got)
    }
    if n := v.count(`SELECT COUNT(*) FROM deliveries WHERE request_id=?`, reqID); n != 0 {
        t.Fatalf("no delivery should exist, got %d", n)
    }
    if n := v.count(`SELECT COUNT(*) FROM fulfillments WHERE request_id=?`, reqID); n != 0 {
        t.Fatalf("no fulfillment should exist, got %d", n)
    }
}

func TestDuplicateDeliveryCreate(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, code := v.submit(1)
    if rec := v.validate(code, v.operator); rec.Code != http.StatusOK {
        t.Fatalf("validate: want 200, got %d", rec.Code)
    }

    rec := v.do(v.oh.CreateDelivery, http.MethodPost, "/v1/outlet/requests/1/delivery",
        "", v.operator, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusCreated {
        t.Fatalf("first create: want 201, got %d: %s", rec.Code, rec.Body.String())
    }

    rec = v.do(v.oh.CreateDelivery, http.MethodPost, "/v1/outlet/requests/1/delivery",
        "", v.operator, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusConflict {
        t.Fatalf("second create: want 409, got %d: %s", rec.Code, rec.Body.String())
    }
    if n := v.count(`SELECT COUNT(*) FROM deliveries WHERE request_id=?`, reqID); n != 1 {
        t.Fatalf("want exactly one delivery for the request, got %d", n)
    }
    if got := v.requestStatus(reqID); got != "PROCESSING" {
        t.Fatalf("request must stay PROCESSING, got %s", got)
    }
}

func runCourierToOutForDelivery(t *testing.T, v *env) (reqID, deliveryID uint64) {
    t.Helper()
    reqID, code := v.submit(2)
    if rec := v.validate(code, v.operator); rec.Code != http.StatusOK {
        t.Fatalf("validate: want 200, got %d", rec.Code)
    }
    rec := v.do(v.oh.CreateDelivery, http.MethodPost, "/v1/outlet/requests/1/delivery",
        `{"priority":"HIGH"}`, v.operator, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusCreated {
        t.Fatalf("create delivery: want 201, got %d: %s", rec.Code, rec.Body.String())
    }
    var created struct {
        Delivery model.Delivery `json:"delivery"`
    }
    decode(t, rec, &created)
    deliveryID = created.Delivery.ID
    if created.Delivery.Street != "12 Ring Rd" || created.Delivery.City != "Accra" {
        t.Fatalf("delivery must snapshot the consumer address, got %+v", created.Delivery)
    }
    if got := v.requestStatus(reqID); got != "PROCESSING" {
        t.Fatalf("want PROCESSING after delivery creation, got %s", got)
    }

    rec = v.do(v.oh.AssignDelivery, http.MethodPost, "/v1/outlet/deliveries/1/assign",
        `{"delivery_person_id":77}`, v.operator, []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("assign: want 200, got %d: %s", rec.Code, rec.Body.String())
    }

    rec = v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"OUT_FOR_DELIVERY","note":"left the depot"}`, v.operator, []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("out for delivery: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    return reqID, deliveryID
}

func TestCourierDeliveryLifecycle(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, deliveryID := runCourierToOutForDelivery(t, v)

    rec := v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"DELIVERED","note":"handed to consumer","proof":"sig-314"}`, v.operator,
        []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("delivered: want 200, got %d: %s", rec.Code, rec.Body.String())
    }

    if got := v.stockAt(1, 1); got != 8 {
        t.Fatalf("stock deducts at the delivered transition: want 8, got %d", got)
    }
    if got := v.requestStatus(reqID); got != "DELIVERED" {
        t.Fatalf("want DELIVERED, got %s", got)
    }
    if n := v.count(`SELECT COUNT(*) FROM fulfillments WHERE delivery_id=?`, deliveryID); n != 1 {
        t.Fatalf("want exactly one fulfillment, got %d", n)
    }
    // One note per step: created, assigned, out for delivery, delivered.
    if n := v.count(`SELECT COUNT(*) FROM tracking_notes WHERE delivery_id=?`, deliveryID); n != 4 {
        t.Fatalf("want 4 tracking notes, got %d", n)
    }
    // One consumer notification per delivery step as well.
    if n := v.count(`SELECT COUNT(*) FROM notifications WHERE user_id=? AND type='DELIVERY'`, v.consumer); n != 4 {
        t.Fatalf("want 4 delivery notifications, got %d", n)
    }

    // A second DELIVERED is rejected and the fulfillment stays unique.
    rec = v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"DELIVERED"}`, v.operator, []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusConflict {
        t.Fatalf("double delivered: want 409, got %d: %s", rec.Code, rec.Body.String())
    }
    if n := v.count(`SELECT COUNT(*) FROM fulfillments WHERE delivery_id=?`, deliveryID); n != 1 {
        t.Fatalf("fulfillment must remain unique, got %d", n)
    }
    if got := v.stockAt(1, 1); got != 8 {
        t.Fatalf("stock must not deduct twice, want 8 got %d", got)
    }
}

func TestCancelledDeliveryCancelsRequest(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, deliveryID := runCourierToOutForDelivery(t, v)

    rec := v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"CANCELLED","note":"consumer unreachable"}`, v.operator,
        []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("cancel: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    if got := v.requestStatus(reqID); got != "CANCELLED" {
        t.Fatalf("want CANCELLED request, got %s", got)
    }
    if got := v.stockAt(1, 1); got != 10 {
        t.Fatalf("cancelled delivery must not touch stock, want 10 got %d", got)
    }
    if n := v.count(`SELECT COUNT(*) FROM fulfillments WHERE delivery_id=?`, deliveryID); n != 0 {
        t.Fatalf("cancelled delivery must not fulfill, got %d", n)
    }
}

func TestInvalidDeliveryTransition(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, code := v.submit(1)
    if rec := v.validate(code, v.operator); rec.Code != http.StatusOK {
        t.Fatalf("validate: want 200, got %d", rec.Code)
    }
    rec := v.do(v.oh.CreateDelivery, http.MethodPost, "/v1/outlet/requests/1/delivery",
        "", v.operator, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusCreated {
        t.Fatalf("create delivery: want 201, got %d", rec.Code)
    }
    var created struct {
        Delivery model.Delivery `json:"delivery"`
    }
    decode(t, rec, &created)

    // PENDING cannot jump straight to OUT_FOR_DELIVERY.
    rec = v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"OUT_FOR_DELIVERY"}`, v.operator, []string{"id"}, []string{fmt.Sprint(created.Delivery.ID)})
    if rec.Code != http.StatusConflict {
        t.Fatalf("want 409 for illegal edge, got %d: %s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Constraint string `json:"constraint"`
    }
    decode(t, rec, &resp)
    if resp.Constraint != "invalid_transition" {
        t.Fatalf("want invalid_transition constraint, got %q", resp.Constraint)
    }
}

func TestTrackDelivery(t *testing.T) {
    v := newEnv(t, true, 10)
    reqID, deliveryID := runCourierToOutForDelivery(t, v)

    rec := v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"DELIVERED","proof":"sig-42"}`, v.operator, []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("delivered: want 200, got %d", rec.Code)
    }

    rec = v.do(v.ch.TrackDelivery, http.MethodGet, "/v1/requests/1/delivery",
        "", v.consumer, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("track: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Status         string           `json:"status"`
        ActualDate     *string          `json:"actual_date"`
        DeliveryPerson uint64           `json:"delivery_person"`
        TrackingNotes  []map[string]any `json:"tracking_notes"`
    }
    decode(t, rec, &resp)
    if resp.Status != "DELIVERED" || resp.ActualDate == nil {
        t.Fatalf("bad tracking view: %s", rec.Body.String())
    }
    if resp.DeliveryPerson != 77 {
        t.Fatalf("want delivery person 77, got %d", resp.DeliveryPerson)
    }
    if len(resp.TrackingNotes) != 4 {
        t.Fatalf("want 4 notes in timeline, got %d", len(resp.TrackingNotes))
    }
    for _, n := range resp.TrackingNotes {
        if _, leaked := n["proof"]; leaked {
            t.Fatal("proof must not appear in the consumer view")
        }
    }

    // Another user cannot track this request.
    rec = v.do(v.ch.TrackDelivery, http.MethodGet, "/v1/requests/1/delivery",
        "", v.operator2, []string{"id"}, []string{fmt.Sprint(reqID)})
    if rec.Code != http.StatusForbidden {
        t.Fatalf("want 403 for foreign tracker, got %d", rec.Code)
    }
}

func TestDeliveryStats(t *testing.T) {
    v := newEnv(t, true, 10)
    _, deliveryID := runCourierToOutForDelivery(t, v)
    rec := v.do(v.oh.UpdateDeliveryStatus, http.MethodPatch, "/v1/outlet/deliveries/1/status",
        `{"status":"DELIVERED"}`, v.operator, []string{"id"}, []string{fmt.Sprint(deliveryID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("delivered: want 200, got %d", rec.Code)
    }

    rec = v.do(v.st.DeliveryStats, http.MethodGet, "/v1/outlet/stats/deliveries", "", v.operator, nil, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("stats: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    var stats map[string]int
    decode(t, rec, &stats)
    if stats["total"] != 1 || stats["delivered"] != 1 {
        t.Fatalf("want total=1 delivered=1, got %v", stats)
    }
    if stats["pending"] != 0 || stats["failed"] != 0 {
        t.Fatalf("zero statuses must be present and zero, got %v", stats)
    }

    // The other outlet sees nothing.
    rec = v.do(v.st.DeliveryStats, http.MethodGet, "/v1/outlet/stats/deliveries", "", v.operator2, nil, nil)
    decode(t, rec, &stats)
    if stats["total"] != 0 {
        t.Fatalf("outlet 2 should have no deliveries, got %v", stats)
    }
}

func TestSubmitQuantityBounds(t *testing.T) {
    v := newEnv(t, true, 10)
    for _, q := range []int{0, 1001} {
        body := fmt.Sprintf(`{"product_id":1,"outlet_id":1,"quantity":%d}`, q)
        rec := v.do(v.ch.SubmitRequest, http.MethodPost, "/v1/requests", body, v.consumer, nil, nil)
        if rec.Code != http.StatusBadRequest {
            t.Fatalf("quantity %d: want 400, got %d", q, rec.Code)
        }
    }
    if _, code := v.submit(1000); code == "" {
        t.Fatal("quantity 1000 should be accepted")
    }
}

func TestSubmitUnknownOutletAndProduct(t *testing.T) {
    v := newEnv(t, true, 10)
    rec := v.do(v.ch.SubmitRequest, http.MethodPost, "/v1/requests",
        `{"product_id":1,"outlet_id":99,"quantity":1}`, v.consumer, nil, nil)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("unknown outlet: want 404, got %d", rec.Code)
    }
    rec = v.do(v.ch.SubmitRequest, http.MethodPost, "/v1/requests",
        `{"product_id":99,"outlet_id":1,"quantity":1}`, v.consumer, nil, nil)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("unknown product: want 404, got %d", rec.Code)
    }
}

func TestStockReplenishEndpoint(t *testing.T) {
    v := newEnv(t, true, 0)
    rec := v.do(v.sh.Replenish, http.MethodPost, "/v1/outlet/stock/replenish",
        `{"product_id":1,"delta":10}`, v.operator, nil, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("replenish: want 200, got %d: %s", rec.Code, rec.Body.String())
    }
    if got := v.stockAt(1, 1); got != 10 {
        t.Fatalf("want 10 after replenish, got %d", got)
    }
    rec = v.do(v.sh.Replenish, http.MethodPost, "/v1/outlet/stock/replenish",
        `{"product_id":1,"delta":-3}`, v.operator, nil, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("correction: want 200, got %d", rec.Code)
    }
    if got := v.stockAt(1, 1); got != 7 {
        t.Fatalf("want 7 after correction, got %d", got)
    }
    // Consumers cannot replenish.
    rec = v.do(v.sh.Replenish, http.MethodPost, "/v1/outlet/stock/replenish",
        `{"product_id":1,"delta":5}`, v.consumer, nil, nil)
    if rec.Code != http.StatusForbidden {
        t.Fatalf("consumer replenish: want 403, got %d", rec.Code)
    }
}

func TestNotificationReadFlow(t *testing.T) {
    v := newEnv(t, true, 10)
    v.submit(1)

    rec := v.do(v.ch.ListNotifications, http.MethodGet, "/v1/notifications", "", v.consumer, nil, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("list: want 200, got %d", rec.Code)
    }
    var list struct {
        Items []model.Notification `json:"items"`
    }
    decode(t, rec, &list)
    if len(list.Items) != 1 || list.Items[0].IsRead {
        t.Fatalf("want one unread notification, got %+v", list.Items)
    }

    rec = v.do(v.ch.MarkNotificationRead, http.MethodPost, "/v1/notifications/1/read",
        "", v.consumer, []string{"id"}, []string{fmt.Sprint(list.Items[0].ID)})
    if rec.Code != http.StatusNoContent {
        t.Fatalf("mark read: want 204, got %d", rec.Code)
    }
    if n := v.count(`SELECT COUNT(*) FROM notifications WHERE id=? AND is_read=1`, list.Items[0].ID); n != 1 {
        t.Fatal("notification should be marked read")
    }

    // A different user cannot mark it.
    rec = v.do(v.ch.MarkNotificationRead, http.MethodPost, "/v1/notifications/1/read",
        "", v.operator2, []string{"id"}, []string{fmt.Sprint(list.Items[0].ID)})
    if rec.Code != http.StatusNotFound {
        t.Fatalf("foreign mark read: want 404, got %d", rec.Code)
    }
}
