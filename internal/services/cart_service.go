// Package services – CartService
//
// This file implements the CartService, which manages the staged cart a user
// builds up between requests, and the convenience path that drains a stored
// cart through the checkout orchestrator. The cart itself holds no reserved
// stock: availability is only decided at checkout.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
)

// CartService provides cart staging operations and cart-driven checkout.
type CartService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Checkout is the purchase orchestrator used by CheckoutCart.
	Checkout *CheckoutService
}

// NewCartService constructs a CartService bound to the given orchestrator.
func NewCartService(db *gorm.DB, checkout *CheckoutService) *CartService {
	return &CartService{DB: db, Checkout: checkout}
}

// AddItem stages qty units of a book in the user's cart. The book must exist
// in the catalog and qty must be positive; staging does not reserve stock.
// Adding a book already in the cart accumulates its quantity.
func (s *CartService) AddItem(ctx context.Context, userID, bookID string, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := repo.GetBook(ctx, s.DB, bookID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &BookNotFoundError{BookID: bookID}
		}
		return nil, storeUnavailable("book lookup", err)
	}
	return repo.AddCartItem(ctx, s.DB, userID, bookID, qty)
}

// RemoveItem drops a book from the user's cart entirely.
func (s *CartService) RemoveItem(ctx context.Context, userID, bookID string) error {
	err := repo.RemoveCartItem(ctx, s.DB, userID, bookID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrCartItemNotFound
	}
	return err
}

// Clear empties the user's cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return repo.ClearCart(ctx, s.DB, userID)
}

// List returns the user's staged cart items in insertion order.
func (s *CartService) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return repo.ListCartItems(ctx, s.DB, userID)
}

// CheckoutCart drains the user's stored cart through the checkout
// orchestrator. On success the cart is cleared; clearing is best effort; a
// stale cart left behind by a failed clear is simply re-validated on the
// next checkout and never double-debits inventory.
func (s *CartService) CheckoutCart(ctx context.Context, userID string) (*domain.PurchaseRecord, error) {
	items, err := repo.ListCartItems(ctx, s.DB, userID)
	if err != nil {
		return nil, storeUnavailable("cart read", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.CartLine{BookID: it.BookID, Quantity: it.Quantity})
	}

	rec, err := s.Checkout.Checkout(ctx, userID, lines)
	if err != nil {
		return nil, err
	}
	_ = repo.ClearCart(ctx, s.DB, userID)
	return rec, nil
}
