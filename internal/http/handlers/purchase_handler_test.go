package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/http/middleware"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
)

// checkoutRouter registers the purchase routes with the idempotency
// validator wired to the same database, like the production router.
func checkoutRouter(h *Handlers, db *gorm.DB) *gin.Engine {
	lookup := func(ctx context.Context, uid, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, uid, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
	r := gin.New()
	r.POST("/checkout", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup), h.Checkout)
	r.GET("/purchases", h.ListPurchases)
	r.GET("/purchases/:id", h.GetPurchase)
	return r
}

func linesBody(pairs ...any) string {
	// pairs: bookID string, qty int, repeated
	b := bytes.NewBufferString(`{"lines":[`)
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(b, `{"book_id":%q,"quantity":%d}`, pairs[i], pairs[i+1])
	}
	b.WriteString(`]}`)
	return b.String()
}

func seedPurchaseRec(t *testing.T, db *gorm.DB, userID string, when time.Time, bookIDs ...string) *domain.PurchaseRecord {
	t.Helper()
	rec := &domain.PurchaseRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		PurchaseDate: when,
	}
	for _, id := range bookIDs {
		rec.Lines = append(rec.Lines, domain.PurchaseLine{
			BookID: id, Title: "Book " + id, PurchasePrice: 5, Quantity: 1,
		})
	}
	if err := repo.AppendPurchase(context.Background(), db, rec); err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	return rec
}

func TestCheckout_Success_DebitsAndRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, db := newTestHandlers(t)
	seedUser(t, db, "u1", domain.RoleCustomer)
	b1 := seedBook(t, db, "Dune", 9.5, 10)
	b2 := seedBook(t, db, "Neuromancer", 7.0, 4)
	r := checkoutRouter(h, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodPost, "/checkout",
		bytes.NewBufferString(linesBody(b1.ID, 2, b2.ID, 1))), "u1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout -> %d body=%s", w.Code, w.Body.String())
	}

	var rec domain.PurchaseRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("json: %v", err)
	}
	if rec.UserID != "u1" || len(rec.Lines) != 2 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.Lines[0].Title != "Dune" || rec.Lines[0].PurchasePrice != 9.5 {
		t.Fatalf("snapshot mismatch: %#v", rec.Lines[0])
	}

	var got domain.Book
	if err := db.First(&got, "id = ?", b1.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Inventory != 8 {
		t.Fatalf("inventory = %d; want 8", got.Inventory)
	}
}

func TestCheckout_ErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, db := newTestHandlers(t)
	seedUser(t, db, "u1", domain.RoleCustomer)
	seedUser(t, db, "boss", domain.RoleAdmin)
	b := seedBook(t, db, "Dune", 9.5, 2)
	r := checkoutRouter(h, db)

	send := func(user, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodPost, "/checkout",
			bytes.NewBufferString(body)), user))
		return w
	}

	if w := send("u1", `{bad`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}
	if w := send("u1", `{"lines":[]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty lines -> %d", w.Code)
	}
	if w := send("ghost", linesBody(b.ID, 1)); w.Code != http.StatusNotFound {
		t.Fatalf("ghost user -> %d", w.Code)
	}
	if w := send("boss", linesBody(b.ID, 1)); w.Code != http.StatusForbidden {
		t.Fatalf("admin -> %d", w.Code)
	}
	if w := send("u1", linesBody(uuid.NewString(), 1)); w.Code != http.StatusNotFound {
		t.Fatalf("unknown book -> %d", w.Code)
	}

	w := send("u1", linesBody(b.ID, 5))
	if w.Code != http.StatusConflict {
		t.Fatalf("short stock -> %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeInsufficientInventory {
		t.Fatalf("code = %q; want %q", resp.Code, ErrCodeInsufficientInventory)
	}

	// All rejections left the stock untouched.
	var got domain.Book
	if err := db.First(&got, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Inventory != 2 {
		t.Fatalf("inventory = %d; want untouched 2", got.Inventory)
	}
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, db := newTestHandlers(t)
	seedUser(t, db, "u1", domain.RoleCustomer)
	b := seedBook(t, db, "Dune", 9.5, 10)
	r := checkoutRouter(h, db)

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/checkout",
			bytes.NewBufferString(linesBody(b.ID, 2)))
		req.Header.Set(middleware.HeaderIdempotencyKey, "order-1")
		r.ServeHTTP(w, asUser(req, "u1"))
		return w
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("first -> %d body=%s", first.Code, first.Body.String())
	}
	if first.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first call must not be a replay")
	}

	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("second -> %d body=%s", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second call should replay")
	}

	var rec1, rec2 domain.PurchaseRecord
	if err := json.Unmarshal(first.Body.Bytes(), &rec1); err != nil {
		t.Fatalf("json: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &rec2); err != nil {
		t.Fatalf("json: %v", err)
	}
	if rec1.ID != rec2.ID {
		t.Fatalf("replay returned a different record: %s vs %s", rec1.ID, rec2.ID)
	}

	// Stock debited exactly once.
	var got domain.Book
	if err := db.First(&got, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Inventory != 8 {
		t.Fatalf("inventory = %d; want single debit to 8", got.Inventory)
	}
}

func TestListPurchases_OrderAndGhostUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, db := newTestHandlers(t)
	seedUser(t, db, "u1", domain.RoleCustomer)
	r := checkoutRouter(h, db)

	now := time.Now().UTC()
	seedPurchaseRec(t, db, "u1", now.Add(-time.Hour), "b1")
	newest := seedPurchaseRec(t, db, "u1", now, "b2")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/purchases", nil), "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	var recs []domain.PurchaseRecord
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != newest.ID {
		t.Fatalf("expected newest first, got %#v", recs)
	}
	if len(recs[0].Lines) != 1 {
		t.Fatalf("lines not preloaded: %#v", recs[0])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/purchases", nil), "ghost"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("ghost -> %d", w.Code)
	}
}

func TestGetPurchase_OwnershipAndMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, db := newTestHandlers(t)
	seedUser(t, db, "u1", domain.RoleCustomer)
	seedUser(t, db, "u2", domain.RoleCustomer)
	r := checkoutRouter(h, db)

	rec := seedPurchaseRec(t, db, "u1", time.Now().UTC(), "b1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/purchases/"+rec.ID, nil), "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("owner -> %d", w.Code)
	}

	// Another user's record is indistinguishable from a missing one.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/purchases/"+rec.ID, nil), "u2"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign record -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/purchases/"+uuid.NewString(), nil), "u1"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing -> %d", w.Code)
	}
}
