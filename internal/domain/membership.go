package domain

import (
	"time"

	"github.com/google/uuid"
)

// Membership grants a user a role on a trip. (TripID, UserID) is unique.
// Email and DisplayName are filled in by listing queries for display only.
type Membership struct {
	TripID      uuid.UUID `json:"trip_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        Role      `json:"role"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
