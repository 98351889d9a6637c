package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/crypto"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/repository"
	"github.com/denzelpenzel/battery-marketplace/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientInfo describes where an authentication attempt came from
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// AuthService handles registration, login and session lifecycle
type AuthService struct {
	repo      repository.Repository
	sessions  session.Store
	hasher    *crypto.Hasher
	validator *Validator
	logger    *zap.Logger
	now       func() time.Time
	verify    func(candidate, encoded string) (bool, error)

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service
func NewAuthService(
	repo repository.Repository,
	sessions session.Store,
	hasher *crypto.Hasher,
	validator *Validator,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		repo:      repo,
		sessions:  sessions,
		hasher:    hasher,
		validator: validator,
		logger:    logger,
		now:       time.Now,
		verify:    hasher.VerifyPassword,
	}
}

// CreateUser registers a user without opening a session
func (s *AuthService) CreateUser(ctx context.Context, req *models.UserRegistration) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	taken, err := s.repo.LoginTaken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to check login: %w", err))
	}
	if taken {
		return nil, apperr.Conflict("Username or email already registered")
	}

	return s.createUser(ctx, req, models.RoleUser)
}

func (s *AuthService) createUser(ctx context.Context, req *models.UserRegistration, role models.Role) (*models.User, error) {
	passwordHash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Company:      strings.TrimSpace(req.Company),
		Phone:        strings.TrimSpace(req.Phone),
		Location:     strings.TrimSpace(req.Location),
		Country:      strings.TrimSpace(req.Country),
		Role:         role,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("Username or email already registered")
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info("User created successfully",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return user, nil
}

// Register creates a user and opens a session for it
func (s *AuthService) Register(ctx context.Context, req *models.UserRegistration, client ClientInfo) (*models.User, string, error) {
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, "", err
	}

	token, err := s.openSession(ctx, user, user.Username, client)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login verifies credentials and opens a session
func (s *AuthService) Login(ctx context.Context, req *models.UserLogin, client ClientInfo) (*models.User, string, error) {
	req.Username = strings.TrimSpace(req.Username)

	if err := s.validator.Struct(req); err != nil {
		return nil, "", err
	}

	user, err := s.repo.GetUserByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// unknown keys cost the same scrypt round as wrong passwords
			_, _ = s.verify(req.Password, s.placeholderHash())
			return nil, "", apperr.Unauthenticated("Invalid credentials")
		}
		return nil, "", apperr.Internal(err)
	}

	ok, err := s.verify(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("Stored credential could not be verified",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
	}
	if !ok {
		return nil, "", apperr.Unauthenticated("Invalid credentials")
	}

	token, err := s.openSession(ctx, user, req.Username, client)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// placeholderHash returns a hash no password verifies against, made with
// the configured scrypt cost
func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.HashPassword(uuid.NewString())
		if err != nil {
			s.logger.Warn("Failed to prepare placeholder hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, loginKey string, client ClientInfo) (string, error) {
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	event := &models.LoginEvent{
		UserID:    user.ID,
		LoginKey:  loginKey,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.RecordLogin(ctx, event); err != nil {
		s.logger.Error("Failed to record login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return token, nil
}

// Logout revokes a session token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SeedAdmin creates the bootstrap administrator unless one already exists
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) (*models.User, bool, error) {
	exists, err := s.repo.HasAdmin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check admin: %w", err)
	}
	if exists {
		return nil, false, nil
	}

	req := &models.UserRegistration{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, fmt.Errorf("invalid admin credentials: %w", err)
	}

	user, err := s.createUser(ctx, req, models.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// ListLogins returns the most recent login events
func (s *AuthService) ListLogins(ctx context.Context, limit int) ([]*models.LoginEvent, error) {
	events, err := s.repo.ListLogins(ctx, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return events, nil
}
