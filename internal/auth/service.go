package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eztutor/drive-export/internal/config"
	"github.com/eztutor/drive-export/internal/entities"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	GetUserByID(id uint) (*entities.User, error)
	GetUserByToken(token string) (*entities.User, error)
	EnsureUser(id uint) (*entities.User, error)
}

// Service resolves users for the middleware.
type Service struct {
	users  UserRepository
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(users UserRepository, cfg config.Auth) *Service {
	return &Service{
		users:  users,
		config: cfg,
	}
}

// ValidateToken returns the user owning token.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByToken(token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// EnsureDefaultUser creates the implicit user of "none" mode if it is
// missing. It is a no-op in token mode.
func (s *Service) EnsureDefaultUser() (*entities.User, error) {
	if s.config.Mode != config.AuthModeNone {
		return nil, nil
	}
	user, err := s.users.EnsureUser(s.DefaultUserID())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default user: %w", err)
	}
	return user, nil
}

// DefaultUserID is the user every request acts as in "none" mode.
func (s *Service) DefaultUserID() uint {
	if s.config.DefaultUserID == 0 {
		return 1
	}
	return s.config.DefaultUserID
}

// IsAuthEnabled returns true if callers must present a token.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeToken
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
