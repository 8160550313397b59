package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
)

func newStatsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("stats_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Book{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestBooksStats_EmptyCatalog(t *testing.T) {
	db := newStatsDB(t)

	count, maxUpdated, err := BooksStats(context.Background(), db)
	if err != nil {
		t.Fatalf("BooksStats: %v", err)
	}
	if count != 0 || maxUpdated != nil {
		t.Fatalf("expected 0/nil for empty catalog, got %d/%v", count, maxUpdated)
	}
}

func TestBooksStats_CountAndMaxUpdatedAt(t *testing.T) {
	db := newStatsDB(t)

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := old.Add(48 * time.Hour)
	for i, ts := range []time.Time{old, newer} {
		b := domain.Book{ID: fmt.Sprintf("b%d", i), Title: "T", UpdatedAt: ts}
		if err := db.Create(&b).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
		// Pin updated_at explicitly; Create would otherwise stamp now.
		if err := db.Model(&domain.Book{}).Where("id = ?", b.ID).
			UpdateColumn("updated_at", ts).Error; err != nil {
			t.Fatalf("pin updated_at: %v", err)
		}
	}

	count, maxUpdated, err := BooksStats(context.Background(), db)
	if err != nil {
		t.Fatalf("BooksStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if maxUpdated == nil || !maxUpdated.Equal(newer) {
		t.Fatalf("maxUpdatedAt = %v; want %v", maxUpdated, newer)
	}
}

func TestBooksStats_Error_NoTable(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "stats_notable.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if _, _, err := BooksStats(context.Background(), db); err == nil {
		t.Fatalf("expected error when table missing")
	}
}
