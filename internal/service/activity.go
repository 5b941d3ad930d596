package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/authz"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

const maxActivityRefLen = 255

// ActivityEnricher resolves attached references to display metadata.
// It never fails: references it cannot resolve come back as placeholders.
type ActivityEnricher interface {
	ResolveAll(ctx context.Context, refs []string) []domain.Activity
}

// ActivityService attaches external activities to trips and lists them with
// enrichment. Attach and Detach only touch the stored reference; the
// gateway is consulted on List alone.
type ActivityService struct {
	activities repo.ActivityRepo
	authz      *authz.Engine
	enricher   ActivityEnricher
	logger     *slog.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activities repo.ActivityRepo, engine *authz.Engine, enricher ActivityEnricher, logger *slog.Logger) *ActivityService {
	return &ActivityService{activities: activities, authz: engine, enricher: enricher, logger: logger}
}

// Attach adds ref to the trip. Requires Manager or Editor.
// A second attach of the same ref returns domain.ErrAlreadyAttached; the
// store's primary key decides the winner when two attaches race.
func (s *ActivityService) Attach(ctx context.Context, tripID, actorID uuid.UUID, ref string) (domain.TripActivity, error) {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionEdit); err != nil {
		return domain.TripActivity{}, fmt.Errorf("service.ActivityService.Attach: %w", err)
	}
	ref, err := normalizeRef(ref)
	if err != nil {
		return domain.TripActivity{}, err
	}

	a, err := s.activities.Add(ctx, tripID, ref)
	if err != nil {
		return domain.TripActivity{}, fmt.Errorf("service.ActivityService.Attach: %w", err)
	}
	s.logger.InfoContext(ctx, "activity attached", "trip_id", tripID, "user_id", actorID, "activity_ref", ref)
	return a, nil
}

// Detach removes ref from the trip. Requires Manager or Editor.
// Returns domain.ErrNotAttached when the trip does not have ref.
func (s *ActivityService) Detach(ctx context.Context, tripID, actorID uuid.UUID, ref string) error {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionEdit); err != nil {
		return fmt.Errorf("service.ActivityService.Detach: %w", err)
	}
	ref, err := normalizeRef(ref)
	if err != nil {
		return err
	}

	if err := s.activities.Remove(ctx, tripID, ref); err != nil {
		return fmt.Errorf("service.ActivityService.Detach: %w", err)
	}
	s.logger.InfoContext(ctx, "activity detached", "trip_id", tripID, "user_id", actorID, "activity_ref", ref)
	return nil
}

// List returns the trip's activities in attach order with enrichment.
// Any role may list. Gateway failures never fail the listing.
func (s *ActivityService) List(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Activity, error) {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionView); err != nil {
		return nil, fmt.Errorf("service.ActivityService.List: %w", err)
	}
	attached, err := s.activities.ListForTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ActivityService.List: %w", err)
	}

	refs := make([]string, len(attached))
	for i, a := range attached {
		refs[i] = a.ActivityRef
	}
	return s.enricher.ResolveAll(ctx, refs), nil
}

func normalizeRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", fmt.Errorf("%w: activity_ref is required", domain.ErrValidation)
	case len(ref) > maxActivityRefLen:
		return "", fmt.Errorf("%w: activity_ref must be at most %d characters", domain.ErrValidation, maxActivityRefLen)
	}
	return ref, nil
}
