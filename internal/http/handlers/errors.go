// Package handlers – error codes
//
// This file centralizes the stable, machine-readable error codes carried in
// ErrorResponse.Code. Clients are expected to branch on these codes, never on
// message text, so the strings here are part of the public API contract and
// must not change once released.
package handlers

const (
	// Generic codes

	// ErrCodeBadRequest indicates a malformed request (body, params, headers).
	ErrCodeBadRequest = "bad_request"
	// ErrCodeNotFound indicates the addressed resource does not exist.
	ErrCodeNotFound = "not_found"
	// ErrCodeConflict indicates the request conflicts with current state.
	ErrCodeConflict = "conflict"
	// ErrCodeForbidden indicates the acting user may not perform the action.
	ErrCodeForbidden = "forbidden"
	// ErrCodeRateLimited indicates the client exceeded its request budget.
	ErrCodeRateLimited = "too_many_requests"
	// ErrCodeMethodNotAllowed indicates the route exists but not for this verb.
	ErrCodeMethodNotAllowed = "method_not_allowed"
	// ErrCodeInternal indicates an unexpected server-side failure.
	ErrCodeInternal = "internal_error"

	// Domain codes

	// ErrCodeUserNotFound indicates the acting or addressed user is unknown.
	ErrCodeUserNotFound = "user_not_found"
	// ErrCodeBookNotFound indicates a cart line or path referenced an unknown book.
	ErrCodeBookNotFound = "book_not_found"
	// ErrCodeInvalidRole indicates the acting user's role cannot purchase.
	ErrCodeInvalidRole = "invalid_role"
	// ErrCodeInsufficientInventory indicates stock could not cover a cart line.
	ErrCodeInsufficientInventory = "insufficient_inventory"
	// ErrCodeStoreUnavailable indicates a transient persistence failure; the
	// request left no partial effects and may be retried.
	ErrCodeStoreUnavailable = "store_unavailable"
	// ErrCodeUsernameTaken indicates the requested username already exists.
	ErrCodeUsernameTaken = "username_taken"
	// ErrCodeCheckoutFailed indicates checkout failed for an unexpected reason.
	ErrCodeCheckoutFailed = "checkout_failed"
	// ErrCodeCreateFailed indicates a resource could not be created.
	ErrCodeCreateFailed = "create_failed"
	// ErrCodeListFailed indicates a listing query failed.
	ErrCodeListFailed = "list_failed"
)
