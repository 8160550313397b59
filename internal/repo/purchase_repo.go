// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for committed
// purchase records, the append-only purchase history.
//
// Purchase records are written exactly once per successful checkout and are
// never updated or deleted afterwards. Reads are the recommender's only
// input; they tolerate slightly stale data and take no locks.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
)

// AppendPurchase inserts a purchase record together with its snapshot lines
// in one transaction. Missing record and line IDs are generated; each line is
// bound to the record. The record's PurchaseDate is expected to be set by the
// caller (the orchestrator stamps it at commit time).
func AppendPurchase(ctx context.Context, db *gorm.DB, rec *domain.PurchaseRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	for i := range rec.Lines {
		if rec.Lines[i].ID == "" {
			rec.Lines[i].ID = uuid.NewString()
		}
		rec.Lines[i].RecordID = rec.ID
	}
	return db.WithContext(ctx).Create(rec).Error
}

// ListPurchasesByUser returns all purchase records belonging to userID with
// their lines preloaded, most recent first. It returns an empty slice when
// the user has no purchase history.
func ListPurchasesByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.PurchaseRecord, error) {
	var out []domain.PurchaseRecord
	err := db.WithContext(ctx).
		Preload("Lines").
		Where("user_id = ?", userID).
		Order("purchase_date desc").
		Find(&out).Error
	return out, err
}

// GetPurchase fetches a single record by ID with lines preloaded, or
// ErrNotFound.
func GetPurchase(ctx context.Context, db *gorm.DB, id string) (*domain.PurchaseRecord, error) {
	var rec domain.PurchaseRecord
	err := db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListUserIDsWithHistory returns the distinct user IDs that own at least one
// purchase record. The recommender uses this as its candidate neighbour set.
func ListUserIDsWithHistory(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.PurchaseRecord{}).
		Distinct("user_id").
		Order("user_id asc").
		Pluck("user_id", &ids).Error
	return ids, err
}

// DistinctBookIDsByUser returns the set of distinct book IDs across all of a
// user's purchase records, the derived purchase profile consumed by the
// recommender. The set is computed on demand and never stored.
func DistinctBookIDsByUser(ctx context.Context, db *gorm.DB, userID string) (map[string]struct{}, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.PurchaseLine{}).
		Joins("JOIN purchase_records ON purchase_records.id = purchase_lines.record_id").
		Where("purchase_records.user_id = ?", userID).
		Distinct("purchase_lines.book_id").
		Pluck("purchase_lines.book_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
