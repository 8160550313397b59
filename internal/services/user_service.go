// Package services – UserService
//
// This file implements the UserService, which manages user accounts: create,
// read, update, and delete. Credential and token mechanics live outside this
// service; only identity and role are kept here.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
)

// UserService provides account management operations.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Create validates and inserts a new user account.
func (s *UserService) Create(ctx context.Context, username, role string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, &domain.User{Username: username, Role: role})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Get returns a user by id, or repo.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return repo.GetUser(ctx, s.DB, id)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsers(ctx, s.DB)
}

// Update validates and persists username/role changes for an existing user.
func (s *UserService) Update(ctx context.Context, id, username, role string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	if err := validateRole(role); err != nil {
		return err
	}
	err := repo.UpdateUser(ctx, s.DB, &domain.User{ID: id, Username: username, Role: role})
	if err != nil && isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

// Delete removes a user account. Their purchase history remains intact.
func (s *UserService) Delete(ctx context.Context, id string) error {
	return repo.DeleteUser(ctx, s.DB, id)
}

// validateRole restricts roles to the known set.
func validateRole(role string) error {
	switch role {
	case domain.RoleCustomer, domain.RoleAdmin:
		return nil
	default:
		return ErrUnknownRole
	}
}

// isUniqueViolation attempts to detect unique-constraint violations across
// drivers that may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed: unique")
}
