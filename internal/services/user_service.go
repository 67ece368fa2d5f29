// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/models"
	"github.com/javajoker/license-registry/internal/retrieval"
	"github.com/javajoker/license-registry/internal/store"
	"github.com/javajoker/license-registry/internal/utils"
)

type UserService struct {
	db         *gorm.DB
	store      *store.Store
	pager      *retrieval.Pager
	pagination config.PaginationConfig
}

// UserRequest is the full user record. Writes replace every field.
type UserRequest struct {
	Email        string `json:"email" validate:"required,account_email,max=255"`
	FirstName    string `json:"first_name" validate:"required,no_blank,max=100"`
	LastName     string `json:"last_name" validate:"required,no_blank,max=100"`
	Password     string `json:"password" validate:"required,no_blank,max=72"`
	Organization string `json:"organization,omitempty" validate:"omitempty,no_blank,max=255"`
	Permissions  string `json:"permissions,omitempty"`
}

func NewUserService(db *gorm.DB, store *store.Store, pager *retrieval.Pager, pagination config.PaginationConfig) *UserService {
	return &UserService{
		db:         db,
		store:      store,
		pager:      pager,
		pagination: pagination,
	}
}

// GetUserByEmail returns nil without an error when no user has the email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	rows, err := s.store.FindUsers(ctx, models.TableUsers, "email", email)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListUsers returns up to limit users ordered by email, starting after cursor.
func (s *UserService) ListUsers(ctx context.Context, cursor retrieval.Cursor, limit int) (retrieval.Page, error) {
	if err := s.checkLimit(limit); err != nil {
		return retrieval.Page{}, err
	}
	return s.pager.Page(ctx, nil, cursor, limit)
}

// ListUsersByOrganization is ListUsers restricted to one organization. An
// unknown organization yields an empty page.
func (s *UserService) ListUsersByOrganization(ctx context.Context, organization string, cursor retrieval.Cursor, limit int) (retrieval.Page, error) {
	if organization == "" {
		return retrieval.Page{}, fmt.Errorf("%w: organization is required", ErrInvalidArgument)
	}
	if err := s.checkLimit(limit); err != nil {
		return retrieval.Page{}, err
	}
	return s.pager.Page(ctx, retrieval.OrganizationScope(organization), cursor, limit)
}

func (s *UserService) checkLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: limit %d is negative", ErrInvalidArgument, limit)
	}
	if s.pagination.MaxLimit > 0 && limit > s.pagination.MaxLimit {
		return fmt.Errorf("%w: limit %d exceeds %d", ErrInvalidArgument, limit, s.pagination.MaxLimit)
	}
	return nil
}

// CreateUser fails with ErrUserExists when the email is taken.
func (s *UserService) CreateUser(ctx context.Context, req *UserRequest) (*models.User, error) {
	user, err := newUser(req)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		existing, err := findUser(tx, user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUserExists
		}
		return database.InsertUser(tx, *user)
	})
	if errors.Is(err, ErrUserExists) {
		return nil, err
	}
	if store.IsUniqueViolation(err) {
		// a concurrent create won the race past the read above
		return nil, fmt.Errorf("%w: %w", ErrUserExists, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", store.Classify(err))
	}
	return user, nil
}

// CreateOrUpdateUser replaces the whole record stored under the email. The
// last writer wins.
func (s *UserService) CreateOrUpdateUser(ctx context.Context, req *UserRequest) (*models.User, error) {
	user, err := newUser(req)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if _, err := findUser(tx, user.Email); err != nil {
			return err
		}
		return database.UpsertUser(tx, *user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", store.Classify(err))
	}
	return user, nil
}

// DeleteUser removes the user and its organization entries. Deleting an unknown
// email succeeds.
func (s *UserService) DeleteUser(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if _, err := findUser(tx, email); err != nil {
			return err
		}
		return database.DeleteUser(tx, email)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", store.Classify(err))
	}
	return nil
}

func newUser(req *UserRequest) (*models.User, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	user := &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Organization: req.Organization,
		Permissions:  req.Permissions,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return user, nil
}

// findUser reads the user row and holds its lock until the transaction ends.
func findUser(tx *gorm.DB, email string) (*models.User, error) {
	var users []models.User
	if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).Where("email = ?", email).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
