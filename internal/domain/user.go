package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Users are never hard-deleted.
// CredentialHash is produced by the credential hasher and is never serialized.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	CredentialHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address so uniqueness is
// enforced independent of case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
