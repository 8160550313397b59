// Package domain defines the persistence models for the bookstore: catalog
// books, users, cart items, and committed purchase records. These types are
// mapped with GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Roles a User may hold. Only customers may check out; admins manage the
// catalog and user accounts.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Book represents a catalog entry with live inventory. Inventory is mutated
// only through the checkout debit path (and catalog management); purchase
// records never reference a Book row directly; they carry a denormalized
// snapshot instead, so later catalog edits cannot rewrite historical receipts.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - ISBN: indexed business identifier; not required to be unique here
//     (the catalog allows multiple editions under one ISBN).
//   - Price: non-negative; enforced at the service layer on every mutation.
//   - Inventory: non-negative available stock.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Book struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	ISBN        string         `json:"isbn"        gorm:"type:varchar(32);index"`
	Title       string         `json:"title"       gorm:"type:varchar(255);not null"`
	Author      string         `json:"author"      gorm:"type:varchar(255);index"`
	Publisher   string         `json:"publisher"   gorm:"type:varchar(255)"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price"       gorm:"not null"`
	Inventory   int            `json:"inventory"   gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// User represents an account that can browse the catalog and, for customers,
// check out carts. Authentication and credential handling live outside this
// service; the model keeps only identity and role.
type User struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Username  string         `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex"`
	Role      string         `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('customer','admin')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// CartLine is a requested (book, quantity) pair submitted for purchase.
// It is transient checkout input and is never persisted on its own.
type CartLine struct {
	BookID   string `json:"book_id"  binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CartItem is a staged cart entry persisted between requests. One row per
// (user, book); adding the same book again accumulates quantity.
type CartItem struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_cart_user_book,priority:1"`
	BookID    string         `json:"book_id"    gorm:"type:char(36);not null;uniqueIndex:ux_cart_user_book,priority:2"`
	Quantity  int            `json:"quantity"   gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for CartItem.
func (CartItem) TableName() string { return "cart_items" }

// PurchaseRecord is one committed checkout: the immutable receipt created
// exactly once per successful Checkout call. It owns an ordered set of
// snapshot lines and is never updated after creation.
//
// Fields:
//   - ID: UUID primary key, generated at commit.
//   - UserID: owner of the purchase history this record belongs to.
//   - PurchaseDate: set at commit time (UTC), never client-supplied.
//   - Lines: denormalized per-book snapshots; cascade-deleted with the record.
type PurchaseRecord struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_purchases"`
	PurchaseDate time.Time      `json:"purchase_date" gorm:"not null"`
	Lines        []PurchaseLine `json:"lines"         gorm:"foreignKey:RecordID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the database table name for PurchaseRecord.
func (PurchaseRecord) TableName() string { return "purchase_records" }

// PurchaseLine is a denormalized copy of book attributes captured at sale
// time: title, author, ISBN, and the price actually paid. Catalog edits or
// deletions after the sale do not affect it.
type PurchaseLine struct {
	ID            string  `json:"id"             gorm:"type:char(36);primaryKey"`
	RecordID      string  `json:"record_id"      gorm:"type:char(36);not null;index"`
	BookID        string  `json:"book_id"        gorm:"type:char(36);not null;index"`
	ISBN          string  `json:"isbn"           gorm:"type:varchar(32)"`
	Title         string  `json:"title"          gorm:"type:varchar(255);not null"`
	Author        string  `json:"author"         gorm:"type:varchar(255)"`
	PurchasePrice float64 `json:"purchase_price" gorm:"not null"`
	Quantity      int     `json:"quantity"       gorm:"not null"`
}

// TableName returns the database table name for PurchaseLine.
func (PurchaseLine) TableName() string { return "purchase_lines" }

// SnapshotLine builds the immutable purchase snapshot for one cart line,
// copying the book's attributes and current price at this instant.
func SnapshotLine(b *Book, quantity int) PurchaseLine {
	return PurchaseLine{
		BookID:        b.ID,
		ISBN:          b.ISBN,
		Title:         b.Title,
		Author:        b.Author,
		PurchasePrice: b.Price,
		Quantity:      quantity,
	}
}
