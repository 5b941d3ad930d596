// Package service contains the business logic for the trip planner API.
// Services authorize the acting user, validate inputs, and orchestrate repo
// calls, wrapping multi-row protocols in a transaction.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/authz"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// Field length limits shared by create and update.
const (
	maxTitleLen       = 200
	maxLocationLen    = 200
	maxDescriptionLen = 4000
)

// TripService implements the trip lifecycle: create, read, update, and the
// cascading delete.
type TripService struct {
	repos  repo.Repos
	tx     repo.Transactor
	authz  *authz.Engine
	logger *slog.Logger
}

// NewTripService constructs a TripService. repos serve single-statement
// reads and writes; tx runs the create and delete protocols atomically.
func NewTripService(repos repo.Repos, tx repo.Transactor, engine *authz.Engine, logger *slog.Logger) *TripService {
	return &TripService{repos: repos, tx: tx, authz: engine, logger: logger}
}

// Create validates trip and persists it together with a Manager membership
// for creatorID. Both rows are written in one transaction, so a trip without
// a Manager is never observable.
// Returns domain.ErrValidation for invalid input and domain.ErrTransaction
// (wrapping the cause) if either insert fails.
func (s *TripService) Create(ctx context.Context, creatorID uuid.UUID, trip domain.Trip) (domain.Trip, error) {
	trip = normalizeTrip(trip)
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	var created domain.Trip
	err := s.tx.WithinTx(ctx, func(r repo.Repos) error {
		var err error
		created, err = r.Trips.Create(ctx, trip)
		if err != nil {
			return err
		}
		_, err = r.Memberships.Create(ctx, domain.Membership{
			TripID: created.ID,
			UserID: creatorID,
			Role:   domain.RoleManager,
		})
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w: %w", domain.ErrTransaction, err)
	}

	s.logger.InfoContext(ctx, "trip created", "trip_id", created.ID, "user_id", creatorID)
	return created, nil
}

// Get returns the trip paired with the caller's role. Any role may read.
func (s *TripService) Get(ctx context.Context, tripID, actorID uuid.UUID) (domain.TripWithRole, error) {
	role, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionView)
	if err != nil {
		return domain.TripWithRole{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	trip, err := s.repos.Trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.TripWithRole{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	return domain.TripWithRole{Trip: trip, Role: role}, nil
}

// Update merges patch into the trip. Requires Manager or Editor. The read and
// write share a transaction holding the trip's row lock, so concurrent
// patches to different fields do not overwrite each other.
// Returns domain.ErrForbidden, domain.ErrTripNotFound, or domain.ErrValidation
// when the merged trip is invalid or the patch is empty.
func (s *TripService) Update(ctx context.Context, tripID, actorID uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionEdit); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	if patch.IsEmpty() {
		return domain.Trip{}, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}

	var updated domain.Trip
	err := s.tx.WithinTx(ctx, func(r repo.Repos) error {
		current, err := r.Trips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		merged := patch.Apply(current)
		if err := validateTrip(merged); err != nil {
			return err
		}
		updated, err = r.Trips.Update(ctx, merged)
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return updated, nil
}

// Delete removes the trip together with all of its activity and membership
// rows. Requires Manager. The three deletes run in one transaction in
// dependency order; on any failure nothing is removed and the error wraps
// domain.ErrTransaction. A trip that vanished concurrently yields
// domain.ErrTripNotFound instead.
func (s *TripService) Delete(ctx context.Context, tripID, actorID uuid.UUID) error {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionManage); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}

	var activities, members int64
	err := s.tx.WithinTx(ctx, func(r repo.Repos) error {
		var err error
		if activities, err = r.Activities.DeleteAllForTrip(ctx, tripID); err != nil {
			return err
		}
		if members, err = r.Memberships.DeleteAllForTrip(ctx, tripID); err != nil {
			return err
		}
		return r.Trips.Delete(ctx, tripID)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: %w: %w", domain.ErrTransaction, err)
	}

	s.logger.InfoContext(ctx, "trip deleted",
		"trip_id", tripID,
		"user_id", actorID,
		"activities_removed", activities,
		"members_removed", members,
	)
	return nil
}

// ListVisible returns every trip userID holds any role on, paired with that
// role. Always returns a non-nil slice.
func (s *TripService) ListVisible(ctx context.Context, userID uuid.UUID) ([]domain.TripWithRole, error) {
	memberships, err := s.repos.Memberships.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListVisible: %w", err)
	}
	if len(memberships) == 0 {
		return []domain.TripWithRole{}, nil
	}

	roles := make(map[uuid.UUID]domain.Role, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		roles[m.TripID] = m.Role
		ids = append(ids, m.TripID)
	}

	trips, err := s.repos.Trips.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListVisible: %w", err)
	}

	out := make([]domain.TripWithRole, 0, len(trips))
	for _, t := range trips {
		out = append(out, domain.TripWithRole{Trip: t, Role: roles[t.ID]})
	}
	return out, nil
}

// Search filters the trips visible to userID and returns one page of them
// with the total match count.
func (s *TripService) Search(ctx context.Context, userID uuid.UUID, f domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Location = strings.TrimSpace(f.Location)
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, fmt.Errorf("%w: to must not be before from", domain.ErrValidation)
	}

	trips, total, err := s.repos.Trips.Search(ctx, userID, f, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.Search: %w", err)
	}
	if trips == nil {
		trips = []domain.TripWithRole{}
	}
	return trips, total, nil
}

func normalizeTrip(t domain.Trip) domain.Trip {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Location = strings.TrimSpace(t.Location)
	return t
}

// validateTrip enforces business rules common to both Create and Update.
//   - Title, Description and Location must be non-empty and within limits.
//   - Both dates are required and FromDate must not be after ToDate.
func validateTrip(t domain.Trip) error {
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	case utf8.RuneCountInString(t.Title) > maxTitleLen:
		return fmt.Errorf("%w: title must be at most %d characters", domain.ErrValidation, maxTitleLen)
	case t.Description == "":
		return fmt.Errorf("%w: description is required", domain.ErrValidation)
	case utf8.RuneCountInString(t.Description) > maxDescriptionLen:
		return fmt.Errorf("%w: description must be at most %d characters", domain.ErrValidation, maxDescriptionLen)
	case t.Location == "":
		return fmt.Errorf("%w: location is required", domain.ErrValidation)
	case utf8.RuneCountInString(t.Location) > maxLocationLen:
		return fmt.Errorf("%w: location must be at most %d characters", domain.ErrValidation, maxLocationLen)
	case t.FromDate.IsZero() || t.ToDate.IsZero():
		return fmt.Errorf("%w: from_date and to_date are required", domain.ErrValidation)
	case t.FromDate.After(t.ToDate):
		return fmt.Errorf("%w: from_date must not be after to_date", domain.ErrValidation)
	}
	return nil
}
