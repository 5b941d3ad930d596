package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// Hasher turns a plaintext password into a stored credential hash and checks
// a password against one. Compare returns an error wrapping
// domain.ErrInvalidCredential on mismatch.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// UserService registers users and manages their credentials.
type UserService struct {
	users  repo.UserRepo
	hasher Hasher
}

// NewUserService constructs a UserService.
func NewUserService(users repo.UserRepo, hasher Hasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

// Register creates a user. The email is normalized to lower case and the
// display name defaults to the part of the email before the '@'.
// Returns domain.ErrDuplicateEmail when the email is taken.
func (s *UserService) Register(ctx context.Context, email, displayName, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	u, err := s.users.Create(ctx, domain.User{Email: email, DisplayName: displayName, CredentialHash: hash})
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	return u, nil
}

// ChangePassword replaces the credential of userID. currentPassword must
// match the stored credential and newPassword must equal confirmation.
// Returns domain.ErrInvalidCredential when currentPassword is wrong.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword, confirmation string) error {
	if currentPassword == "" {
		return fmt.Errorf("%w: current password is required", domain.ErrValidation)
	}
	if newPassword != confirmation {
		return fmt.Errorf("%w: passwords do not match", domain.ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service.UserService.ChangePassword: %w", err)
	}
	if err := s.hasher.Compare(u.CredentialHash, currentPassword); err != nil {
		return fmt.Errorf("service.UserService.ChangePassword: %w", err)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service.UserService.ChangePassword: %w", err)
	}
	if err := s.users.UpdateCredential(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("service.UserService.ChangePassword: %w", err)
	}
	return nil
}

// GetByID returns a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.GetByID: %w", err)
	}
	return u, nil
}

// GetByEmail returns the user registered under email, case-insensitively.
func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return domain.User{}, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.GetByEmail: %w", err)
	}
	return u, nil
}

func validateEmail(email string) error {
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || domainPart == "" {
		return fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}
	if len(pw) > maxPasswordBytes {
		return fmt.Errorf("%w: password must not exceed %d bytes", domain.ErrValidation, maxPasswordBytes)
	}
	return nil
}
