// Package credential hashes account passwords. Only the hash ever reaches
// the Identity Store.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// ErrMismatch is returned by Compare when the password does not match the hash.
var ErrMismatch = fmt.Errorf("%w: password does not match", domain.ErrInvalidCredential)

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost. Values outside bcrypt's
// accepted range fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must not exceed 72 bytes", domain.ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("credential.BcryptHasher.Hash: %w", err)
	}
	return string(b), nil
}

// Compare returns nil when password matches hash and ErrMismatch when it does not.
func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("credential.BcryptHasher.Compare: %w", err)
	}
	return nil
}
