// Package handlers – catalog endpoints
//
// This file declares the service contracts the HTTP layer depends on, the
// Handlers aggregate that the router wires up, and the CRUD/search/filter
// endpoints for the book catalog.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
	"github.com/pvidalis/go-bookstore-backend/internal/services"
)

//
// Service contracts (implemented by internal/services)
//

// CatalogService manages catalog books: CRUD, keyword search, and the
// price/inventory filters.
type CatalogService interface {
	// Create validates and inserts a new book.
	Create(ctx context.Context, b *domain.Book) (*domain.Book, error)
	// Get returns a book by id, or repo.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Book, error)
	// List returns the whole catalog.
	List(ctx context.Context) ([]domain.Book, error)
	// Search returns books matching keyword across title, author, publisher, ISBN.
	Search(ctx context.Context, keyword string) ([]domain.Book, error)
	// FilterByPrice returns books priced within [min, max].
	FilterByPrice(ctx context.Context, min, max float64) ([]domain.Book, error)
	// FilterByInventory returns books with at least min units in stock.
	FilterByInventory(ctx context.Context, min int) ([]domain.Book, error)
	// Update validates and persists changes to an existing book.
	Update(ctx context.Context, b *domain.Book) error
	// Delete removes a book from the catalog.
	Delete(ctx context.Context, id string) error
}

// UserService manages user accounts.
type UserService interface {
	// Create validates and inserts a new user account.
	Create(ctx context.Context, username, role string) (*domain.User, error)
	// Get returns a user by id, or repo.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.User, error)
	// List returns all users.
	List(ctx context.Context) ([]domain.User, error)
	// Update persists username/role changes for an existing user.
	Update(ctx context.Context, id, username, role string) error
	// Delete removes a user account.
	Delete(ctx context.Context, id string) error
}

// CartService manages the staged cart and cart-driven checkout.
type CartService interface {
	// AddItem stages qty units of a book in the user's cart.
	AddItem(ctx context.Context, userID, bookID string, qty int) (*domain.CartItem, error)
	// RemoveItem drops a book from the user's cart.
	RemoveItem(ctx context.Context, userID, bookID string) error
	// Clear empties the user's cart.
	Clear(ctx context.Context, userID string) error
	// List returns the user's staged cart items in insertion order.
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	// CheckoutCart drains the stored cart through the checkout orchestrator.
	CheckoutCart(ctx context.Context, userID string) (*domain.PurchaseRecord, error)
}

// CheckoutService runs the all-or-nothing purchase protocol and serves the
// committed purchase history.
type CheckoutService interface {
	// Checkout commits the cart lines as one purchase record, or fails with
	// no side effects.
	Checkout(ctx context.Context, userID string, lines []domain.CartLine) (*domain.PurchaseRecord, error)
	// Purchases returns the user's purchase history, most recent first.
	Purchases(ctx context.Context, userID string) ([]domain.PurchaseRecord, error)
}

// RecommendationService suggests unread books from similar users' histories.
type RecommendationService interface {
	// Recommend returns up to n book ids the user has not purchased.
	Recommend(ctx context.Context, userID string, n int) ([]string, error)
}

//
// Aggregate
//

// Handlers bundles the service dependencies of every endpoint. The router
// constructs one instance and registers its methods as routes.
type Handlers struct {
	catalogSvc  CatalogService
	userSvc     UserService
	cartSvc     CartService
	checkoutSvc CheckoutService
	recSvc      RecommendationService

	// IdempotencyTTL overrides the default checkout replay window when positive.
	IdempotencyTTL time.Duration
}

// New constructs the Handlers aggregate from its service dependencies.
func New(catalog CatalogService, users UserService, cart CartService, checkout CheckoutService, rec RecommendationService) *Handlers {
	return &Handlers{
		catalogSvc:  catalog,
		userSvc:     users,
		cartSvc:     cart,
		checkoutSvc: checkout,
		recSvc:      rec,
	}
}

// userID resolves the acting user: auth middleware context first, then the
// demo X-User-ID header, then a fixed fallback for local development.
func userID(c *gin.Context) string {
	if c == nil {
		return "demo-user"
	}
	if v, ok := c.Get("userID"); ok {
		if s, ok2 := v.(string); ok2 && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if hdr := strings.TrimSpace(c.GetHeader("X-User-ID")); hdr != "" {
		return hdr
	}
	return "demo-user"
}

//
// DTOs
//

// CreateBookRequest is the payload for POST /books and PUT /books/{id}.
type CreateBookRequest struct {
	ISBN        string  `json:"isbn"        example:"978-0134190440"`
	Title       string  `json:"title"       binding:"required" example:"The Go Programming Language"`
	Author      string  `json:"author"      example:"Alan A. A. Donovan"`
	Publisher   string  `json:"publisher"   example:"Addison-Wesley"`
	Description string  `json:"description" example:"The authoritative resource"`
	Price       float64 `json:"price"       binding:"gte=0" example:"39.99"`
	Inventory   int     `json:"inventory"   binding:"gte=0" example:"12"`
}

// book materializes the request into a domain model with the given id.
func (r CreateBookRequest) book(id string) *domain.Book {
	return &domain.Book{
		ID:          id,
		ISBN:        strings.TrimSpace(r.ISBN),
		Title:       strings.TrimSpace(r.Title),
		Author:      strings.TrimSpace(r.Author),
		Publisher:   strings.TrimSpace(r.Publisher),
		Description: r.Description,
		Price:       r.Price,
		Inventory:   r.Inventory,
	}
}

// catalogStatus maps catalog service errors to an HTTP status and code.
func catalogStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrInvalidInventory),
		errors.Is(err, services.ErrEmptyKeyword):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, ErrCodeBookNotFound
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

//
// Handlers
//

// CreateBook godoc
// @ID          createBook
// @Summary     Add a book to the catalog
// @Description Creates a catalog entry with the given attributes and initial inventory.
// @Tags        Books
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateBookRequest  true  "Book payload"
//
// @Success     201  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books [post]
func (h *Handlers) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	b, err := h.catalogSvc.Create(c.Request.Context(), req.book(uuid.NewString()))
	if err != nil {
		status, code := catalogStatus(err)
		if status == http.StatusInternalServerError {
			code = ErrCodeCreateFailed
		}
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusCreated, b)
}

// GetBook godoc
// @ID          getBook
// @Summary     Fetch a book
// @Description Returns one catalog entry by id.
// @Tags        Books
// @Produce     json
//
// @Param       id  path  string  true  "Book ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [get]
func (h *Handlers) GetBook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book id must be a UUID")
		return
	}

	b, err := h.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeBookNotFound, "book not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, b)
}

// ListBooks godoc
// @ID          listBooks
// @Summary     List the catalog
// @Description Returns every book. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Books
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.Book
// @Header      200  {string}  ETag  "Weak ETag for current catalog"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books [get]
func (h *Handlers) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okAssert := h.catalogSvc.(*services.CatalogService); okAssert {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.BooksStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"books:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	books, err := h.catalogSvc.List(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, books)
}

// SearchBooks godoc
// @ID          searchBooks
// @Summary     Search the catalog
// @Description Case-insensitive substring search over title, author, publisher, and ISBN.
// @Tags        Books
// @Produce     json
//
// @Param       q  query  string  true  "Search keyword"  example(cloud)
//
// @Success     200  {array}   domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Missing keyword"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/search [get]
func (h *Handlers) SearchBooks(c *gin.Context) {
	books, err := h.catalogSvc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		if errors.Is(err, services.ErrEmptyKeyword) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, books)
}

// FilterBooksByPrice godoc
// @ID          filterBooksByPrice
// @Summary     Filter books by price range
// @Description Returns books priced within [min, max] inclusive.
// @Tags        Books
// @Produce     json
//
// @Param       min  query  number  false  "Minimum price"  default(0)
// @Param       max  query  number  true   "Maximum price"
//
// @Success     200  {array}   domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid range"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/filter/price [get]
func (h *Handlers) FilterBooksByPrice(c *gin.Context) {
	min, err := parseFloatDefault(c.Query("min"), 0)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "min must be a number")
		return
	}
	max, err := parseFloatDefault(c.Query("max"), -1)
	if err != nil || max < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "max must be a non-negative number")
		return
	}

	books, err := h.catalogSvc.FilterByPrice(c.Request.Context(), min, max)
	if err != nil {
		status, code := catalogStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusOK, books)
}

// FilterBooksByInventory godoc
// @ID          filterBooksByInventory
// @Summary     Filter books by available stock
// @Description Returns books with at least min units in inventory.
// @Tags        Books
// @Produce     json
//
// @Param       min  query  int  false  "Minimum inventory"  default(1)
//
// @Success     200  {array}   domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid threshold"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/filter/inventory [get]
func (h *Handlers) FilterBooksByInventory(c *gin.Context) {
	min := atoiStrict(c, c.DefaultQuery("min", "1"))
	if c.IsAborted() {
		return
	}

	books, err := h.catalogSvc.FilterByInventory(c.Request.Context(), min)
	if err != nil {
		status, code := catalogStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusOK, books)
}

// UpdateBook godoc
// @ID          updateBook
// @Summary     Update a book
// @Description Replaces the catalog attributes of an existing book.
// @Tags        Books
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Book ID (UUID)"  format(uuid)
// @Param       body  body  handlers.CreateBookRequest  true  "Book payload"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [put]
func (h *Handlers) UpdateBook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book id must be a UUID")
		return
	}

	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.catalogSvc.Update(c.Request.Context(), req.book(id)); err != nil {
		status, code := catalogStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	noContent(c)
}

// DeleteBook godoc
// @ID          deleteBook
// @Summary     Remove a book
// @Description Soft-deletes a catalog entry. Past purchase records keep their snapshots.
// @Tags        Books
// @Produce     json
//
// @Param       id  path  string  true  "Book ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [delete]
func (h *Handlers) DeleteBook(c *gin.Context) {
	if err := h.catalogSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status, code := catalogStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	noContent(c)
}

// parseFloatDefault parses s as a float64, returning def for an empty string.
func parseFloatDefault(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

// atoiStrict parses s as an int, aborting the request with 400 on failure.
func atoiStrict(c *gin.Context, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "min must be an integer")
		return 0
	}
	return n
}
