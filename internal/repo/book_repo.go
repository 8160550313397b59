// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Book model,
// including the conditional inventory decrement used by checkout.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a book is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Concurrency note: DecrementInventoryIfAvailable is the single primitive
// that makes concurrent checkouts safe. It compiles to one conditional
// UPDATE, so two racing debits can never both succeed against the same
// stock. The orchestrator never reads-then-writes inventory itself.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateBook inserts a new Book row. The book ID is a randomly generated
// UUID (string) unless the caller supplied one, and CreatedAt is set to UTC.
func CreateBook(ctx context.Context, db *gorm.DB, b *domain.Book) (*domain.Book, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// GetBook fetches a single book by its ID. If the record does not exist,
// it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetBook(ctx context.Context, db *gorm.DB, id string) (*domain.Book, error) {
	var b domain.Book
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns the whole catalog ordered by title ascending. It returns
// an empty slice when the catalog is empty. On DB error, it returns the error.
func ListBooks(ctx context.Context, db *gorm.DB) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).
		Order("title asc").
		Find(&out).Error
	return out, err
}

// SearchBooks returns books whose title, author, publisher, or ISBN contains
// keyword. The keyword is expected to be already case-folded by the caller;
// matching is case-insensitive on the stored columns.
func SearchBooks(ctx context.Context, db *gorm.DB, keyword string) ([]domain.Book, error) {
	like := "%" + keyword + "%"
	var out []domain.Book
	err := db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(publisher) LIKE ? OR LOWER(isbn) LIKE ?",
			like, like, like, like).
		Order("title asc").
		Find(&out).Error
	return out, err
}

// FilterBooksByPrice returns books with min <= price <= max, ordered by
// price ascending.
func FilterBooksByPrice(ctx context.Context, db *gorm.DB, min, max float64) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).
		Where("price >= ? AND price <= ?", min, max).
		Order("price asc").
		Find(&out).Error
	return out, err
}

// FilterBooksByInventory returns books with at least min units in stock.
func FilterBooksByInventory(ctx context.Context, db *gorm.DB, min int) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).
		Where("inventory >= ?", min).
		Order("title asc").
		Find(&out).Error
	return out, err
}

// SaveBook persists all fields of an existing book. If no row matches the
// book's ID, it returns ErrNotFound.
func SaveBook(ctx context.Context, db *gorm.DB, b *domain.Book) error {
	res := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"isbn":        b.ISBN,
			"title":       b.Title,
			"author":      b.Author,
			"publisher":   b.Publisher,
			"description": b.Description,
			"price":       b.Price,
			"inventory":   b.Inventory,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBook soft-deletes a book by ID. Historical purchase lines are
// unaffected: they carry their own snapshot of the book's attributes.
// Returns ErrNotFound when the book does not exist.
func DeleteBook(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Book{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementInventoryIfAvailable atomically debits qty units from a book's
// inventory, but only when at least qty units are available. It reports
// whether the debit was applied.
//
// The guard and the subtraction execute in a single UPDATE statement, so the
// operation is safe under concurrent checkouts: of two racing debits that
// together exceed stock, at most one succeeds and inventory never goes
// negative.
func DecrementInventoryIfAvailable(ctx context.Context, db *gorm.DB, id string, qty int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ? AND inventory >= ?", id, qty).
		Update("inventory", gorm.Expr("inventory - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementInventory credits qty units back to a book's inventory. It is the
// compensation step used to undo already-applied debits when a later line of
// the same checkout fails. Returns ErrNotFound when the book does not exist.
func IncrementInventory(ctx context.Context, db *gorm.DB, id string, qty int) error {
	res := db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", id).
		Update("inventory", gorm.Expr("inventory + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
