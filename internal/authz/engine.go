// Package authz is the single place that decides what a user may do on a trip.
// Every service procedure asks the Engine one question before touching a
// store, instead of comparing role strings at the call site.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// tripLookup is the part of repo.TripRepo the engine needs to tell
// "no membership" apart from "no trip".
type tripLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
}

// membershipLookup is the part of repo.MembershipRepo the engine reads.
type membershipLookup interface {
	Find(ctx context.Context, tripID, userID uuid.UUID) (domain.Role, error)
}

// Engine computes and enforces the effective role of a user on a trip.
type Engine struct {
	trips   tripLookup
	members membershipLookup
}

// New constructs an Engine. In production pass the repo.TripRepo and
// repo.MembershipRepo; tests can pass anything with the two lookups.
func New(trips tripLookup, members membershipLookup) *Engine {
	return &Engine{trips: trips, members: members}
}

// RoleOf returns the role userID holds on tripID, or domain.RoleNone when the
// user has no membership. RoleNone is not an error. When there is no
// membership and the trip itself is missing, RoleOf returns
// domain.ErrTripNotFound so the engine always reports precisely; callers
// decide what to reveal.
func (e *Engine) RoleOf(ctx context.Context, tripID, userID uuid.UUID) (domain.Role, error) {
	role, err := e.members.Find(ctx, tripID, userID)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.RoleNone, fmt.Errorf("authz.Engine.RoleOf: %w", err)
	}

	if _, err := e.trips.GetByID(ctx, tripID); err != nil {
		return domain.RoleNone, fmt.Errorf("authz.Engine.RoleOf: %w", err)
	}
	return domain.RoleNone, nil
}

// Authorize returns the caller's role when it permits action.
// A caller with no role, or with a role that does not permit action, gets
// domain.ErrForbidden. A missing trip yields domain.ErrTripNotFound.
func (e *Engine) Authorize(ctx context.Context, tripID, userID uuid.UUID, action domain.Action) (domain.Role, error) {
	role, err := e.RoleOf(ctx, tripID, userID)
	if err != nil {
		return domain.RoleNone, err
	}
	if !role.Permits(action) {
		return role, fmt.Errorf("%w: role %s may not %s this trip", domain.ErrForbidden, role, actionVerb(action))
	}
	return role, nil
}

func actionVerb(a domain.Action) string {
	switch a {
	case domain.ActionView:
		return "view"
	case domain.ActionEdit:
		return "edit"
	case domain.ActionManage:
		return "manage"
	default:
		return "access"
	}
}
