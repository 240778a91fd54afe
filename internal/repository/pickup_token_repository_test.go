package repository_test

import (
    "context"
    "database/sql"
    "testing"
    "time"

    _ "modernc.org/sqlite" // pure-Go SQLite driver

    "github.com/iliyamo/gas-cylinder-distribution/internal/model"
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository"
    "github.com/iliyamo/gas-cylinder-distribution/internal/utils"
)

func tokendb(t *testing.T) *sql.DB {
    t.Helper()
    db, err := sql.Open("sqlite", ":memory:")
    if err != nil {
        t.Fatal(err)
    }
    db.SetMaxOpenConns(1)
    schema := `
    CREATE TABLE tokens(
      id INTEGER PRIMARY KEY AUTOINCREMENT,
      request_id INTEGER NOT NULL,
      code TEXT NOT NULL,
      status TEXT NOT NULL,
      expires_at TEXT NOT NULL,
      created_at TEXT NOT NULL,
      updated_at TEXT NOT NULL
    );`
    if _, err := db.Exec(schema); err != nil {
        t.Fatal(err)
    }
    t.Cleanup(func() { _ = db.Close() })
    return db
}

func insertToken(t *testing.T, db *sql.DB, requestID uint64, code string, status model.TokenStatus, expiresAt time.Time) {
    t.Helper()
    stamp := time.Now().UTC().Format("2006-01-02 15:04:05")
    _, err := db.Exec(
        `INSERT INTO tokens(request_id, code, status, expires_at, created_at, updated_at)
         VALUES(?, ?, ?, ?, ?, ?)`,
        requestID, code, string(status), expiresAt.UTC().Format("2006-01-02 15:04:05"), stamp, stamp)
    if err != nil {
        t.Fatal(err)
    }
}

func issue(t *testing.T, db *sql.DB, repo *repository.PickupTokenRepo, requestID uint64, src utils.CodeSource) (model.PickupToken, error) {
    t.Helper()
    ctx := context.Background()
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatal(err)
    }
    tok, err := repo.IssueTx(ctx, tx, requestID, src)
    if err != nil {
        _ = tx.Rollback()
        return model.PickupToken{}, err
    }
    if err := tx.Commit(); err != nil {
        t.Fatal(err)
    }
    return tok, nil
}

// cycleSource yields 0,1,2,... modulo n; the first two codes it
// generates over the 8-character alphabet are "234567" and "892345".
type cycleSource struct{ i int }

func (s *cycleSource) Intn(n int) int {
    v := s.i % n
    s.i++
    return v
}

// stuckSource generates the same code on every attempt.
type stuckSource struct{}

func (stuckSource) Intn(int) int { return 0 }

func TestIssueRetriesOnActiveCodeCollision(t *testing.T) {
    db := tokendb(t)
    repo := repository.NewPickupTokenRepo(db)

    // Another consumer already holds the first code the source would
    // produce, so issuing must move on to the next candidate.
    insertToken(t, db, 1, "234567", model.TokenPending, time.Now().Add(time.Hour))

    tok, err := issue(t, db, repo, 2, &cycleSource{})
    if err != nil {
        t.Fatal(err)
    }
    if tok.Code == "234567" {
        t.Fatal("issued code collides with an active token")
    }
    if tok.Code != "892345" {
        t.Fatalf("want next candidate 892345, got %q", tok.Code)
    }
    if tok.Status != model.TokenPending {
        t.Fatalf("want PENDING, got %s", tok.Status)
    }
    if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != model.PickupTokenTTL {
        t.Fatalf("token lifetime: want %s, got %s", model.PickupTokenTTL, got)
    }
}

func TestIssueReusesInactiveCodes(t *testing.T) {
    db := tokendb(t)
    repo := repository.NewPickupTokenRepo(db)

    // Uniqueness only holds among active tokens: an approved token and
    // a lapsed one do not block their codes from being issued again.
    insertToken(t, db, 1, "234567", model.TokenApproved, time.Now().Add(time.Hour))
    insertToken(t, db, 2, "892345", model.TokenPending, time.Now().Add(-time.Hour))

    tok, err := issue(t, db, repo, 3, &cycleSource{})
    if err != nil {
        t.Fatal(err)
    }
    if tok.Code != "234567" {
        t.Fatalf("approved token must not block reuse, got %q", tok.Code)
    }

    tok, err = issue(t, db, repo, 4, &cycleSource{i: 6})
    if err != nil {
        t.Fatal(err)
    }
    if tok.Code != "892345" {
        t.Fatalf("expired token must not block reuse, got %q", tok.Code)
    }
}

func TestIssueFailsAfterExhaustedRetries(t *testing.T) {
    db := tokendb(t)
    repo := repository.NewPickupTokenRepo(db)

    // Every attempt produces "222222", which is already active, so the
    // retry loop gives up without writing anything.
    insertToken(t, db, 1, "222222", model.TokenPending, time.Now().Add(time.Hour))

    if _, err := issue(t, db, repo, 2, stuckSource{}); err == nil {
        t.Fatal("want an error once the retry budget is spent")
    }
    var n int
    if err := db.QueryRow(`SELECT COUNT(*) FROM tokens`).Scan(&n); err != nil {
        t.Fatal(err)
    }
    if n != 1 {
        t.Fatalf("no token may be inserted on exhaustion, got %d rows", n)
    }
}
