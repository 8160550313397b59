// Package handlers – checkout and purchase history endpoints
//
// POST /checkout supports safe retries through the Idempotency-Key header:
// the validator middleware flags replays, and this handler returns the
// originally committed record instead of debiting inventory again.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/http/middleware"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
	"github.com/pvidalis/go-bookstore-backend/internal/services"
)

// defaultIdempotencyTTL bounds how long a committed checkout can be replayed
// when no TTL is configured.
const defaultIdempotencyTTL = 24 * time.Hour

// CheckoutRequest is the payload for POST /checkout: the cart lines to
// purchase atomically. Duplicate book ids are merged server-side.
type CheckoutRequest struct {
	Lines []domain.CartLine `json:"lines" binding:"required,min=1,dive"`
}

// isStoreFault reports whether err is (or wraps) a transient store failure.
func isStoreFault(err error) bool {
	var su *services.StoreUnavailableError
	return errors.As(err, &su)
}

// checkoutStatus maps checkout errors to an HTTP status and code.
func checkoutStatus(err error) (int, string) {
	var bnf *services.BookNotFoundError
	var ins *services.InsufficientInventoryError
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, ErrCodeUserNotFound
	case errors.Is(err, services.ErrInvalidRole):
		return http.StatusForbidden, ErrCodeInvalidRole
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidQuantity):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.As(err, &bnf):
		return http.StatusNotFound, ErrCodeBookNotFound
	case errors.As(err, &ins):
		return http.StatusConflict, ErrCodeInsufficientInventory
	case isStoreFault(err):
		return http.StatusServiceUnavailable, ErrCodeStoreUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeCheckoutFailed
	}
}

// checkoutDB exposes the orchestrator's DB handle for the idempotency and
// single-record lookups. Nil when the service is a test double.
func (h *Handlers) checkoutDB() *gorm.DB {
	if svc, okAssert := h.checkoutSvc.(*services.CheckoutService); okAssert {
		return svc.DB
	}
	return nil
}

func (h *Handlers) idemTTL() time.Duration {
	if h.IdempotencyTTL > 0 {
		return h.IdempotencyTTL
	}
	return defaultIdempotencyTTL
}

// Checkout godoc
// @ID          checkout
// @Summary     Purchase a cart atomically
// @Description Validates every line against live inventory, then commits all debits or none. A successful checkout returns the immutable purchase record. Retries carrying the same Idempotency-Key replay the original record without debiting again.
// @Tags        Purchases
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false  "User ID (demo header)"
// @Param       Idempotency-Key  header  string  false  "Safe-retry key"  example(order-retry-01)
// @Param       body             body    handlers.CheckoutRequest  true  "Cart lines"
//
// @Success     201  {object}  domain.PurchaseRecord
// @Header      201  {string}  Idempotency-Replayed  "true when served from a prior commit"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Role may not purchase"
// @Failure     404  {object}  handlers.ErrorResponse  "User or book not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient inventory"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /checkout [post]
func (h *Handlers) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	db := h.checkoutDB()

	key, hasKey := middleware.GetIdempotencyKey(c)

	// Replay path: the validator middleware already matched (user, key), so
	// serve the original record instead of re-running the purchase.
	if hasKey && middleware.IsReplay(c) && db != nil {
		if idem, err := repo.GetIdempotency(ctx, db, uid, key, time.Now().UTC()); err == nil {
			if prev, err := repo.GetPurchase(ctx, db, idem.RecordID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, idem.Status, prev)
				return
			}
		}
		// Record vanished between middleware and handler; fall through and
		// process the request fresh.
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lines with positive quantities are required")
		return
	}

	rec, err := h.checkoutSvc.Checkout(ctx, uid, req.Lines)
	if err != nil {
		status, code := checkoutStatus(err)
		fail(c, status, code, err.Error())
		return
	}

	// Record the outcome for future replays (best effort).
	if hasKey && db != nil {
		_, _ = repo.CreateIdempotency(ctx, db, uid, key, rec.ID, http.StatusCreated, h.idemTTL())
	}
	ok(c, http.StatusCreated, rec)
}

// ListPurchases godoc
// @ID          listPurchases
// @Summary     List the purchase history
// @Description Returns the acting user's committed purchase records, most recent first, with their snapshot lines.
// @Tags        Purchases
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
//
// @Success     200  {array}   domain.PurchaseRecord
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /purchases [get]
func (h *Handlers) ListPurchases(c *gin.Context) {
	recs, err := h.checkoutSvc.Purchases(c.Request.Context(), userID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeUserNotFound, "user not found")
		case isStoreFault(err):
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, recs)
}

// GetPurchase godoc
// @ID          getPurchase
// @Summary     Fetch one purchase record
// @Description Returns a single committed record owned by the acting user.
// @Tags        Purchases
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
// @Param       id         path    string  true   "Purchase record ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.PurchaseRecord
// @Failure     404  {object}  handlers.ErrorResponse  "Record not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /purchases/{id} [get]
func (h *Handlers) GetPurchase(c *gin.Context) {
	db := h.checkoutDB()
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "store not configured")
		return
	}

	rec, err := repo.GetPurchase(c.Request.Context(), db, c.Param("id"))
	if err != nil || rec.UserID != userID(c) {
		// Hide other users' records behind the same 404.
		fail(c, http.StatusNotFound, ErrCodeNotFound, "purchase record not found")
		return
	}
	ok(c, http.StatusOK, rec)
}
