package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/authz"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// MembershipService shares a trip with other users. Every mutation is
// Manager-only, and none of them can create, demote, or remove the Manager.
type MembershipService struct {
	users   repo.UserRepo
	members repo.MembershipRepo
	authz   *authz.Engine
	logger  *slog.Logger
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(users repo.UserRepo, members repo.MembershipRepo, engine *authz.Engine, logger *slog.Logger) *MembershipService {
	return &MembershipService{users: users, members: members, authz: engine, logger: logger}
}

// Grant adds the user registered under email to the trip with role.
// Returns domain.ErrInvalidPromotion when role is Manager,
// domain.ErrUserNotFound for an unregistered email, and
// domain.ErrDuplicateMembership when the user is already a member.
func (s *MembershipService) Grant(ctx context.Context, tripID, actorID uuid.UUID, email string, role domain.Role) (domain.Membership, error) {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionManage); err != nil {
		return domain.Membership{}, fmt.Errorf("service.MembershipService.Grant: %w", err)
	}
	if err := validateGrantable(role); err != nil {
		return domain.Membership{}, err
	}
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Membership{}, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("service.MembershipService.Grant: %w", err)
	}
	m, err := s.members.Create(ctx, domain.Membership{TripID: tripID, UserID: user.ID, Role: role})
	if err != nil {
		return domain.Membership{}, fmt.Errorf("service.MembershipService.Grant: %w", err)
	}
	m.Email = user.Email
	m.DisplayName = user.DisplayName

	s.logger.InfoContext(ctx, "membership granted",
		"trip_id", tripID,
		"user_id", user.ID,
		"role", role,
		"granted_by", actorID,
	)
	return m, nil
}

// ChangeRole sets the role of an existing member to Editor or Viewer.
// Returns domain.ErrInvalidPromotion when role is Manager or the target is
// the Manager, and domain.ErrNotFound when the target is not a member.
func (s *MembershipService) ChangeRole(ctx context.Context, tripID, actorID, targetID uuid.UUID, role domain.Role) (domain.Membership, error) {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionManage); err != nil {
		return domain.Membership{}, fmt.Errorf("service.MembershipService.ChangeRole: %w", err)
	}
	if err := validateGrantable(role); err != nil {
		return domain.Membership{}, err
	}

	m, err := s.members.UpdateRole(ctx, tripID, targetID, role)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("service.MembershipService.ChangeRole: %w", err)
	}

	s.logger.InfoContext(ctx, "membership changed",
		"trip_id", tripID,
		"user_id", targetID,
		"role", role,
		"changed_by", actorID,
	)
	return m, nil
}

// Revoke removes targetID from the trip.
// Returns domain.ErrCannotRemoveManager when the target is the Manager.
func (s *MembershipService) Revoke(ctx context.Context, tripID, actorID, targetID uuid.UUID) error {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionManage); err != nil {
		return fmt.Errorf("service.MembershipService.Revoke: %w", err)
	}
	if err := s.members.Delete(ctx, tripID, targetID); err != nil {
		return fmt.Errorf("service.MembershipService.Revoke: %w", err)
	}

	s.logger.InfoContext(ctx, "membership revoked",
		"trip_id", tripID,
		"user_id", targetID,
		"revoked_by", actorID,
	)
	return nil
}

// List returns the trip's members with the caller first. Any role may list.
func (s *MembershipService) List(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Membership, error) {
	if _, err := s.authz.Authorize(ctx, tripID, actorID, domain.ActionView); err != nil {
		return nil, fmt.Errorf("service.MembershipService.List: %w", err)
	}
	members, err := s.members.ListForTrip(ctx, tripID, actorID)
	if err != nil {
		return nil, fmt.Errorf("service.MembershipService.List: %w", err)
	}
	if members == nil {
		return []domain.Membership{}, nil
	}
	return members, nil
}

func validateGrantable(role domain.Role) error {
	switch {
	case role == domain.RoleManager:
		return fmt.Errorf("%w: manager is assigned only at trip creation", domain.ErrInvalidPromotion)
	case !role.Grantable():
		return fmt.Errorf("%w: role must be editor or viewer", domain.ErrValidation)
	}
	return nil
}
