package services

import (
	"context"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/repository"
	"go.uber.org/zap"
)

// UserService handles user-related operations
type UserService struct {
	repo   repository.Repository
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(repo repository.Repository, logger *zap.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return user, nil
}

// RequireAdmin returns the user when it holds the admin role
func (s *UserService) RequireAdmin(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, translate(err, "User not found")
	}

	if !user.IsAdmin() {
		s.logger.Warn("Non-admin access to admin endpoint", zap.Int64("user_id", id))
		return nil, apperr.Forbidden("Admin access required")
	}

	return user, nil
}
