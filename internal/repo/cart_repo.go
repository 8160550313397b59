// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for staged cart
// items. Carts are scratch state: rows are upserted per (user, book) and
// cleared wholesale after a successful checkout.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
)

// AddCartItem stages qty units of a book in the user's cart. If the (user,
// book) pair already exists, the quantity accumulates; otherwise a new row is
// inserted. The check and the write run in one transaction.
func AddCartItem(ctx context.Context, db *gorm.DB, userID, bookID string, qty int) (*domain.CartItem, error) {
	var out *domain.CartItem
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item domain.CartItem
		err := tx.Where("user_id = ? AND book_id = ?", userID, bookID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += qty
			if uerr := tx.Model(&domain.CartItem{}).
				Where("id = ?", item.ID).
				Update("quantity", item.Quantity).Error; uerr != nil {
				return uerr
			}
			out = &item
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = domain.CartItem{
				ID:        uuid.NewString(),
				UserID:    userID,
				BookID:    bookID,
				Quantity:  qty,
				CreatedAt: time.Now().UTC(),
			}
			if cerr := tx.Create(&item).Error; cerr != nil {
				return cerr
			}
			out = &item
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveCartItem deletes the (user, book) row from the cart. Returns
// ErrNotFound when the book is not staged in the user's cart.
func RemoveCartItem(ctx context.Context, db *gorm.DB, userID, bookID string) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&domain.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearCart removes every staged item for the user. Clearing an already
// empty cart is not an error.
func ClearCart(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.CartItem{}).Error
}

// ListCartItems returns the user's staged cart items, oldest first (the
// order items were added in).
func ListCartItems(ctx context.Context, db *gorm.DB, userID string) ([]domain.CartItem, error) {
	var out []domain.CartItem
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
