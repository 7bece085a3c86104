package user

import (
	"context"
	"errors"
	"fmt"

	"unistay/internal/auth"
	"unistay/internal/logger"
	"unistay/internal/models"
	"unistay/internal/user/db"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrForbidden = errors.New("access denied")
)

// ValidationError is a 400-class input error whose message is safe to return.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Profile fields any user may change on themselves.
var profileAllowList = map[string]bool{
	"first_name":    true,
	"last_name":     true,
	"phone":         true,
	"profile_image": true,
}

// Account fields only admins may change.
var adminAllowList = map[string]bool{
	"is_active":   true,
	"user_type":   true,
	"is_verified": true,
}

type DBLayer interface {
	ListUsers(ctx context.Context, f db.ListFilters, limit, offset int) ([]models.User, int, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
}

type UserService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewUserService(dbLayer DBLayer, log *logger.Logger) *UserService {
	return &UserService{DB: dbLayer, Logger: log}
}

// List is the admin directory view.
func (s *UserService) List(ctx context.Context, caller *auth.Identity, f db.ListFilters, page, limit int) ([]models.User, models.Pagination, error) {
	if caller.UserType != models.UserTypeAdmin {
		return nil, models.Pagination{}, ErrForbidden
	}

	users, total, err := s.DB.ListUsers(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return users, models.NewPagination(page, limit, total), nil
}

// Get returns a user's profile: your own, or anyone's as admin.
func (s *UserService) Get(ctx context.Context, caller *auth.Identity, id string) (*models.User, error) {
	if id != caller.ID && caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}

	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Update applies allow-listed profile fields. Account-level fields pass only
// for admins; everything else in the payload is dropped.
func (s *UserService) Update(ctx context.Context, caller *auth.Identity, id string, payload map[string]interface{}) (*models.User, error) {
	if id != caller.ID && caller.UserType != models.UserTypeAdmin {
		return nil, ErrForbidden
	}

	existing, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	fields := make(map[string]interface{})
	for key, val := range payload {
		if profileAllowList[key] {
			fields[key] = val
			continue
		}
		if adminAllowList[key] && caller.UserType == models.UserTypeAdmin {
			fields[key] = val
		}
	}
	if len(fields) == 0 {
		return nil, ValidationError("No valid fields to update")
	}

	updated, err := s.DB.UpdateUser(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}

	s.Logger.Info("USER", fmt.Sprintf("user %s updated by %s", id, caller.ID))
	return updated, nil
}

// Delete removes a user account. Admin only, and never your own account.
func (s *UserService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	if caller.UserType != models.UserTypeAdmin {
		return ErrForbidden
	}
	if id == caller.ID {
		return ValidationError("You cannot delete your own account")
	}

	deleted, err := s.DB.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.Logger.Info("USER", fmt.Sprintf("user %s deleted by admin %s", id, caller.ID))
	return nil
}
