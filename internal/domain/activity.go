package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripActivity attaches an externally sourced activity to a trip.
// Only the opaque reference is stored; (TripID, ActivityRef) is unique.
type TripActivity struct {
	TripID      uuid.UUID `json:"trip_id"`
	ActivityRef string    `json:"activity_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityDetails is the display metadata the enrichment gateway returns.
type ActivityDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
}

// Activity is an attached activity together with its resolved metadata.
// Resolved is false when the gateway could not supply details and the
// placeholder values are shown instead.
type Activity struct {
	Ref      string `json:"activity_ref"`
	Resolved bool   `json:"resolved"`
	ActivityDetails
}

// PlaceholderActivity is shown for a reference the gateway could not resolve.
func PlaceholderActivity(ref string) Activity {
	return Activity{
		Ref: ref,
		ActivityDetails: ActivityDetails{
			Name:        "Unavailable",
			Description: "Details for this activity are currently unavailable.",
			Category:    "unknown",
		},
	}
}
