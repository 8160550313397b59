package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
)

func newUserRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("user_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateUser_GeneratesIDAndPersists(t *testing.T) {
	db := newUserRepoDB(t)

	u, err := CreateUser(context.Background(), db, &domain.User{Username: "alice", Role: domain.RoleCustomer})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated UUID")
	}
	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil || got.Username != "alice" || got.Role != domain.RoleCustomer {
		t.Fatalf("round-trip mismatch: %+v %v", got, err)
	}
}

func TestCreateUser_DuplicateUsernameFails(t *testing.T) {
	db := newUserRepoDB(t)
	if _, err := CreateUser(context.Background(), db, &domain.User{Username: "alice", Role: domain.RoleCustomer}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateUser(context.Background(), db, &domain.User{Username: "alice", Role: domain.RoleAdmin}); err == nil {
		t.Fatalf("expected unique violation for duplicate username")
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newUserRepoDB(t)
	seed, _ := CreateUser(context.Background(), db, &domain.User{Username: "bob", Role: domain.RoleAdmin})

	got, err := GetUserByUsername(context.Background(), db, "bob")
	if err != nil || got.ID != seed.ID {
		t.Fatalf("GetUserByUsername: %+v %v", got, err)
	}
	if _, err := GetUserByUsername(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsers_OrderedByUsername(t *testing.T) {
	db := newUserRepoDB(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := CreateUser(context.Background(), db, &domain.User{Username: name, Role: domain.RoleCustomer}); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	list, err := ListUsers(context.Background(), db)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 3 || list[0].Username != "alice" || list[2].Username != "carol" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestUpdateUser_SuccessAndNotFound(t *testing.T) {
	db := newUserRepoDB(t)
	u, _ := CreateUser(context.Background(), db, &domain.User{Username: "old", Role: domain.RoleCustomer})

	if err := UpdateUser(context.Background(), db, &domain.User{ID: u.ID, Username: "new", Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, _ := GetUser(context.Background(), db, u.ID)
	if got.Username != "new" || got.Role != domain.RoleAdmin {
		t.Fatalf("update not persisted: %+v", got)
	}

	err := UpdateUser(context.Background(), db, &domain.User{ID: "ghost", Username: "x", Role: domain.RoleCustomer})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser_SuccessAndNotFound(t *testing.T) {
	db := newUserRepoDB(t)
	u, _ := CreateUser(context.Background(), db, &domain.User{Username: "gone", Role: domain.RoleCustomer})

	if err := DeleteUser(context.Background(), db, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := GetUser(context.Background(), db, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := DeleteUser(context.Background(), db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
