// Package services – CheckoutService
//
// This file implements the CheckoutService, the purchase orchestrator that
// turns a cart into exactly one committed, inventory-consistent purchase
// record, or fails with no side effects. It runs a strict two-phase
// protocol:
//
//  1. Validate: every line's book is fetched and its stock checked. Nothing
//     is mutated; a missing book or short stock aborts the whole checkout.
//  2. Commit: each line is debited through the store's atomic conditional
//     decrement. If any debit is refused (a concurrent checkout won the
//     stock) or any store call fails, every debit already applied is
//     restored before returning.
//
// The service never interleaves validation and mutation per line, so a
// failing later line can never leave an earlier line's debit behind.
//
// Observability: public methods are OpenTelemetry-instrumented, and checkout
// outcomes are counted in Prometheus.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
)

// checkoutsTotal counts checkout attempts by outcome: "committed" for a
// successful purchase, "rejected" for business-rule failures, "error" for
// infrastructure failures.
var checkoutsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookstore_checkouts_total",
		Help: "Total number of checkout attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(checkoutsTotal)
}

// BookStore is the catalog collaborator contract consumed by the checkout
// orchestrator. Implementations are responsible for persistence of book rows
// and must make DecrementInventoryIfAvailable atomic with respect to
// concurrent callers.
type BookStore interface {
	// Get fetches a book by id, returning repo.ErrNotFound when absent.
	Get(ctx context.Context, db *gorm.DB, id string) (*domain.Book, error)

	// Save persists all fields of an existing book.
	Save(ctx context.Context, db *gorm.DB, b *domain.Book) error

	// DecrementInventoryIfAvailable debits qty units only when at least qty
	// units are available, reporting whether the debit was applied.
	DecrementInventoryIfAvailable(ctx context.Context, db *gorm.DB, id string, qty int) (bool, error)

	// IncrementInventory credits qty units back; used to undo debits.
	IncrementInventory(ctx context.Context, db *gorm.DB, id string, qty int) error
}

// PurchaseHistoryStore is the append-only purchase history contract consumed
// by the orchestrator and the recommender.
type PurchaseHistoryStore interface {
	// Append persists one committed purchase record with its lines.
	Append(ctx context.Context, db *gorm.DB, rec *domain.PurchaseRecord) error

	// ListByUser returns all records owned by userID, lines included.
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.PurchaseRecord, error)

	// ListUserIDsWithHistory returns the distinct user ids owning records.
	ListUserIDsWithHistory(ctx context.Context, db *gorm.DB) ([]string, error)

	// DistinctBookIDs returns the set of distinct book ids a user has bought.
	DistinctBookIDs(ctx context.Context, db *gorm.DB, userID string) (map[string]struct{}, error)
}

// UserStore resolves acting users for the checkout and recommendation paths.
type UserStore interface {
	// Get fetches a user by id, returning repo.ErrNotFound when absent.
	Get(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
}

// CheckoutService coordinates cart validation, the all-or-nothing inventory
// debit, and the append of the immutable purchase snapshot.
type CheckoutService struct {
	// DB is the GORM handle passed through to the store collaborators.
	DB *gorm.DB
	// Books is the catalog store.
	Books BookStore
	// Users resolves the acting user.
	Users UserStore
	// History is the append-only purchase history store.
	History PurchaseHistoryStore
}

// NewCheckoutService constructs a CheckoutService bound to the given stores.
func NewCheckoutService(db *gorm.DB, books BookStore, users UserStore, history PurchaseHistoryStore) *CheckoutService {
	return &CheckoutService{DB: db, Books: books, Users: users, History: history}
}

// debit tracks one applied inventory decrement so it can be compensated.
type debit struct {
	bookID string
	qty    int
}

// Checkout converts the cart lines into one committed PurchaseRecord, or
// fails with no visible side effects.
//
// Failure modes:
//   - ErrUserNotFound / ErrInvalidRole when the acting user cannot purchase.
//   - ErrEmptyCart / ErrInvalidQuantity for malformed carts.
//   - *BookNotFoundError / *InsufficientInventoryError for business-rule
//     rejections; no inventory changes in either case.
//   - *StoreUnavailableError for infrastructure faults; any debit applied
//     before the fault has been restored.
//
// Duplicate book ids within one cart are merged before validation, so a cart
// of [{B1,2},{B1,3}] is treated as requesting 5 units of B1.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, lines []domain.CartLine) (*domain.PurchaseRecord, error) {
	tr := otel.Tracer("services/CheckoutService")
	ctx, span := tr.Start(ctx, "Checkout",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("cart.lines", len(lines)),
		),
	)
	defer span.End()

	rec, err := s.checkout(ctx, userID, lines)
	switch {
	case err == nil:
		checkoutsTotal.WithLabelValues("committed").Inc()
	case isStoreUnavailable(err):
		checkoutsTotal.WithLabelValues("error").Inc()
	default:
		checkoutsTotal.WithLabelValues("rejected").Inc()
	}
	return rec, err
}

func (s *CheckoutService) checkout(ctx context.Context, userID string, lines []domain.CartLine) (*domain.PurchaseRecord, error) {
	// Resolve the acting user and purchasing privilege.
	user, err := s.Users.Get(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeUnavailable("user lookup", err)
	}
	if user.Role != domain.RoleCustomer {
		return nil, ErrInvalidRole
	}

	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	// Validate phase: read every book and check feasibility. No mutations.
	books := make(map[string]*domain.Book, len(merged))
	for _, ln := range merged {
		b, err := s.Books.Get(ctx, s.DB, ln.BookID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, &BookNotFoundError{BookID: ln.BookID}
			}
			return nil, storeUnavailable("book lookup", err)
		}
		if b.Inventory < ln.Quantity {
			return nil, &InsufficientInventoryError{
				BookID:    ln.BookID,
				Requested: ln.Quantity,
				Available: b.Inventory,
			}
		}
		books[ln.BookID] = b
	}

	// Commit phase: debit every line through the store's atomic conditional
	// decrement. A refused decrement means a concurrent checkout consumed the
	// stock between our validate read and now; undo and reject.
	applied := make([]debit, 0, len(merged))
	for _, ln := range merged {
		ok, err := s.Books.DecrementInventoryIfAvailable(ctx, s.DB, ln.BookID, ln.Quantity)
		if err != nil {
			return nil, s.rollback(ctx, applied, storeUnavailable("inventory debit", err))
		}
		if !ok {
			ierr := &InsufficientInventoryError{
				BookID:    ln.BookID,
				Requested: ln.Quantity,
				Available: s.availableNow(ctx, ln.BookID),
			}
			return nil, s.rollback(ctx, applied, ierr)
		}
		applied = append(applied, debit{bookID: ln.BookID, qty: ln.Quantity})
	}

	// All debits applied: snapshot the validate-phase reads and append the
	// record. PurchaseDate is stamped here, never client-supplied.
	rec := &domain.PurchaseRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		PurchaseDate: time.Now().UTC(),
		Lines:        make([]domain.PurchaseLine, 0, len(merged)),
	}
	for _, ln := range merged {
		rec.Lines = append(rec.Lines, domain.SnapshotLine(books[ln.BookID], ln.Quantity))
	}
	if err := s.History.Append(ctx, s.DB, rec); err != nil {
		return nil, s.rollback(ctx, applied, storeUnavailable("history append", err))
	}
	return rec, nil
}

// Purchases returns the user's committed purchase history, most recent
// first, with snapshot lines included. The user must exist.
func (s *CheckoutService) Purchases(ctx context.Context, userID string) ([]domain.PurchaseRecord, error) {
	tr := otel.Tracer("services/CheckoutService")
	ctx, span := tr.Start(ctx, "Purchases",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if _, err := s.Users.Get(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeUnavailable("user lookup", err)
	}
	recs, err := s.History.ListByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, storeUnavailable("history read", err)
	}
	if recs == nil {
		recs = []domain.PurchaseRecord{}
	}
	return recs, nil
}

// rollback restores every applied debit and returns cause. A failed
// restoration is joined onto the cause so the caller sees the store fault.
func (s *CheckoutService) rollback(ctx context.Context, applied []debit, cause error) error {
	var restoreErr error
	for _, d := range applied {
		if err := s.Books.IncrementInventory(ctx, s.DB, d.bookID, d.qty); err != nil {
			restoreErr = errors.Join(restoreErr, err)
		}
	}
	if restoreErr != nil {
		return storeUnavailable("debit rollback", errors.Join(cause, restoreErr))
	}
	return cause
}

// availableNow re-reads a book's current inventory for error reporting after
// a refused decrement. Best effort: 0 when the read fails.
func (s *CheckoutService) availableNow(ctx context.Context, bookID string) int {
	b, err := s.Books.Get(ctx, s.DB, bookID)
	if err != nil {
		return 0
	}
	return b.Inventory
}

// mergeLines validates quantities and merges duplicate book ids, preserving
// first-seen order.
func mergeLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	merged := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[ln.BookID]; ok {
			merged[i].Quantity += ln.Quantity
			continue
		}
		index[ln.BookID] = len(merged)
		merged = append(merged, ln)
	}
	return merged, nil
}

// isStoreUnavailable reports whether err is (or wraps) a StoreUnavailableError.
func isStoreUnavailable(err error) bool {
	var su *StoreUnavailableError
	return errors.As(err, &su)
}
