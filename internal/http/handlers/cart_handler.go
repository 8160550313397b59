// Package handlers – cart endpoints
//
// The cart is a per-user staging area. Staging never reserves stock; every
// availability decision is deferred to checkout.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pvidalis/go-bookstore-backend/internal/services"
)

// AddCartItemRequest is the payload for POST /cart/items.
type AddCartItemRequest struct {
	BookID   string `json:"book_id"  binding:"required" format:"uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0" example:"2"`
}

// GetCart godoc
// @ID          getCart
// @Summary     List the cart
// @Description Returns the acting user's staged cart items in insertion order.
// @Tags        Cart
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
//
// @Success     200  {array}   domain.CartItem
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cart [get]
func (h *Handlers) GetCart(c *gin.Context) {
	items, err := h.cartSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// AddCartItem godoc
// @ID          addCartItem
// @Summary     Stage a book in the cart
// @Description Adds quantity units of a book to the cart. Re-adding a staged book accumulates its quantity. No stock is reserved.
// @Tags        Cart
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
// @Param       body       body    handlers.AddCartItemRequest  true  "Cart line payload"
//
// @Success     201  {object}  domain.CartItem
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /cart/items [post]
func (h *Handlers) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book_id and a positive quantity are required")
		return
	}

	item, err := h.cartSvc.AddItem(c.Request.Context(), userID(c), req.BookID, req.Quantity)
	if err != nil {
		var bnf *services.BookNotFoundError
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.As(err, &bnf):
			fail(c, http.StatusNotFound, ErrCodeBookNotFound, err.Error())
		case isStoreFault(err):
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, item)
}

// RemoveCartItem godoc
// @ID          removeCartItem
// @Summary     Remove a book from the cart
// @Tags        Cart
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
// @Param       bookId     path    string  true   "Book ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not staged"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cart/items/{bookId} [delete]
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	err := h.cartSvc.RemoveItem(c.Request.Context(), userID(c), c.Param("bookId"))
	if err != nil {
		if errors.Is(err, services.ErrCartItemNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book is not staged in the cart")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// ClearCart godoc
// @ID          clearCart
// @Summary     Empty the cart
// @Description Removes every staged item. Clearing an already-empty cart succeeds.
// @Tags        Cart
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
//
// @Success     204  {string}  string "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cart [delete]
func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.cartSvc.Clear(c.Request.Context(), userID(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// CheckoutCart godoc
// @ID          checkoutCart
// @Summary     Check out the stored cart
// @Description Drains the staged cart through the all-or-nothing checkout. On success the cart is emptied and the committed purchase record is returned.
// @Tags        Cart
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
//
// @Success     201  {object}  domain.PurchaseRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Empty cart or bad quantities"
// @Failure     403  {object}  handlers.ErrorResponse  "Role may not purchase"
// @Failure     404  {object}  handlers.ErrorResponse  "User or book not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient inventory"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /cart/checkout [post]
func (h *Handlers) CheckoutCart(c *gin.Context) {
	rec, err := h.cartSvc.CheckoutCart(c.Request.Context(), userID(c))
	if err != nil {
		status, code := checkoutStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusCreated, rec)
}
