// Package services defines the business logic for the bookstore: checkout,
// recommendations, catalog, cart, and user management. This file centralizes
// service-level error values and types so that they can be consistently
// returned by service methods and checked by callers.
//
// Business-rule violations (unknown book, insufficient stock, bad role) are
// expected outcomes: they are returned as values for user-facing messaging and
// are never logged as faults. Infrastructure failures are wrapped in
// StoreUnavailableError, the only kind a caller may safely retry; the
// orchestrator guarantees no partial inventory mutation is left behind when
// one is returned. Translation into HTTP status codes is performed at the
// handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound indicates that the acting user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRole is returned when a user without purchasing privilege
	// attempts to check out.
	ErrInvalidRole = errors.New("user role cannot purchase")

	// ErrEmptyCart is returned when a checkout is requested with no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity is returned when a cart line requests a quantity
	// of zero or less.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrCartItemNotFound indicates the book is not staged in the user's cart.
	ErrCartItemNotFound = errors.New("cart item not found")

	// ErrInvalidPrice is returned when a catalog mutation carries a
	// negative price.
	ErrInvalidPrice = errors.New("price must not be negative")

	// ErrInvalidInventory is returned when a catalog mutation carries a
	// negative inventory count.
	ErrInvalidInventory = errors.New("inventory must not be negative")

	// ErrEmptyTitle is returned when a catalog mutation carries no title.
	ErrEmptyTitle = errors.New("title is required")

	// ErrEmptyKeyword is returned when a catalog search has a blank keyword.
	ErrEmptyKeyword = errors.New("search keyword is required")

	// ErrEmptyUsername is returned when a user mutation carries no username.
	ErrEmptyUsername = errors.New("username is required")

	// ErrUnknownRole is returned when a user mutation carries a role outside
	// the allowed set.
	ErrUnknownRole = errors.New("role must be customer or admin")

	// ErrUsernameTaken is returned when the requested username already exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// BookNotFoundError identifies the cart line whose book id resolved to no
// catalog entry. The whole checkout aborts; nothing is debited.
type BookNotFoundError struct {
	BookID string
}

// Error implements the error interface.
func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book %s not found", e.BookID)
}

// InsufficientInventoryError identifies the cart line that requested more
// units than the book had available. The whole checkout aborts; nothing is
// debited (or everything already debited has been restored).
type InsufficientInventoryError struct {
	BookID    string
	Requested int
	Available int
}

// Error implements the error interface.
func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for book %s: requested %d, available %d",
		e.BookID, e.Requested, e.Available)
}

// StoreUnavailableError wraps an infrastructure failure from one of the
// underlying stores. It is the only error kind eligible for automatic retry
// by a caller: when it is returned, no partial inventory mutation remains.
type StoreUnavailableError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// storeUnavailable wraps err as a StoreUnavailableError for operation op.
func storeUnavailable(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}
