// Package services – CatalogService
//
// This file implements the CatalogService, which manages the book catalog:
// create, read, update, delete, keyword search, and the price/inventory
// filters. It enforces the catalog validation rules (non-negative price and
// inventory, required title) and normalizes search keywords before handing
// queries to the repository. Inventory is never debited here; that path
// belongs exclusively to the CheckoutService.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
)

// CatalogService provides catalog-level operations over books. Mutations
// validate price and inventory; reads are passthrough queries.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// keywordFolder lowercases search keywords language-independently.
var keywordFolder = cases.Lower(language.Und)

// Create validates and inserts a new catalog book.
func (s *CatalogService) Create(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	if err := validateBook(b); err != nil {
		return nil, err
	}
	return repo.CreateBook(ctx, s.DB, b)
}

// Get returns a book by id, or repo.ErrNotFound.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Book, error) {
	return repo.GetBook(ctx, s.DB, id)
}

// List returns the whole catalog.
func (s *CatalogService) List(ctx context.Context) ([]domain.Book, error) {
	return repo.ListBooks(ctx, s.DB)
}

// Search returns books matching keyword across title, author, publisher, and
// ISBN. The keyword is trimmed and case-folded; a blank keyword is rejected
// with ErrEmptyKeyword.
func (s *CatalogService) Search(ctx context.Context, keyword string) ([]domain.Book, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	return repo.SearchBooks(ctx, s.DB, keywordFolder.String(keyword))
}

// FilterByPrice returns books priced within [min, max].
func (s *CatalogService) FilterByPrice(ctx context.Context, min, max float64) ([]domain.Book, error) {
	if min < 0 || max < min {
		return nil, ErrInvalidPrice
	}
	return repo.FilterBooksByPrice(ctx, s.DB, min, max)
}

// FilterByInventory returns books with at least min units in stock.
func (s *CatalogService) FilterByInventory(ctx context.Context, min int) ([]domain.Book, error) {
	if min < 0 {
		return nil, ErrInvalidInventory
	}
	return repo.FilterBooksByInventory(ctx, s.DB, min)
}

// Update validates and persists changes to an existing book. The book must
// exist; repo.ErrNotFound propagates otherwise.
func (s *CatalogService) Update(ctx context.Context, b *domain.Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	return repo.SaveBook(ctx, s.DB, b)
}

// Delete removes a book from the catalog. Historical receipts are unaffected
// because purchase lines snapshot the book's attributes at sale time.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return repo.DeleteBook(ctx, s.DB, id)
}

// validateBook enforces the catalog mutation rules: a title is required, and
// price and inventory must not be negative.
func validateBook(b *domain.Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return ErrEmptyTitle
	}
	if b.Price < 0 {
		return ErrInvalidPrice
	}
	if b.Inventory < 0 {
		return ErrInvalidInventory
	}
	return nil
}
