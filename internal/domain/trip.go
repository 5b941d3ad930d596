// Package domain contains the core data types for the trip planner.
// This package has no dependencies on other internal packages and is
// imported by every other internal package (repo, authz, service, handler).
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trip is the central planning entity. Every trip has exactly one Manager
// membership for as long as it exists; memberships and attached activities
// are removed together with the trip.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TripPatch is a field-level update. Nil fields are left unchanged.
type TripPatch struct {
	Title       *string
	Description *string
	Location    *string
	FromDate    *time.Time
	ToDate      *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TripPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.FromDate == nil && p.ToDate == nil
}

// Apply returns a copy of t with every non-nil patch field merged in.
// The ID and timestamps are never touched.
func (p TripPatch) Apply(t Trip) Trip {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Location != nil {
		t.Location = strings.TrimSpace(*p.Location)
	}
	if p.FromDate != nil {
		t.FromDate = *p.FromDate
	}
	if p.ToDate != nil {
		t.ToDate = *p.ToDate
	}
	return t
}

// TripWithRole pairs a trip with the role the requesting user holds on it.
type TripWithRole struct {
	Trip Trip
	Role Role
}

// TripFilter narrows a search over the trips a user can see.
// Zero-valued fields are ignored. Title and Location are case-insensitive
// substring matches; From and To bound the trip's date range inclusively.
type TripFilter struct {
	Title    string
	Location string
	From     *time.Time
	To       *time.Time
}
