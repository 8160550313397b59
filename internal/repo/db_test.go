package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does", "not", "exist", "app.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_AndAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Every table is usable after migration.
	if _, err := CreateBook(context.Background(), db, &domain.Book{Title: "T"}); err != nil {
		t.Fatalf("books table unusable: %v", err)
	}
	if _, err := CreateUser(context.Background(), db, &domain.User{Username: "u", Role: domain.RoleCustomer}); err != nil {
		t.Fatalf("users table unusable: %v", err)
	}
	if _, err := AddCartItem(context.Background(), db, "u1", "b1", 1); err != nil {
		t.Fatalf("cart_items table unusable: %v", err)
	}
	if err := AppendPurchase(context.Background(), db, &domain.PurchaseRecord{UserID: "u1"}); err != nil {
		t.Fatalf("purchase tables unusable: %v", err)
	}
}
