package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// MembershipRepo defines the persistence operations for the trip_members
// join table (the Trip↔User half of the Association Store).
type MembershipRepo interface {
	// ListForUser returns every membership the user holds, oldest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error)

	// Find returns the role userID holds on tripID.
	// Returns domain.ErrNotFound if there is no such membership.
	Find(ctx context.Context, tripID, userID uuid.UUID) (domain.Role, error)

	// Create inserts a membership. Returns domain.ErrUserNotFound or
	// domain.ErrTripNotFound for dangling references, and
	// domain.ErrDuplicateMembership if the pair already exists.
	Create(ctx context.Context, m domain.Membership) (domain.Membership, error)

	// UpdateRole changes the role of an existing non-manager membership.
	// Returns domain.ErrInvalidPromotion if role is Manager or the target is
	// the Manager, and domain.ErrNotFound if there is no such membership.
	UpdateRole(ctx context.Context, tripID, userID uuid.UUID, role domain.Role) (domain.Membership, error)

	// Delete removes a non-manager membership.
	// Returns domain.ErrCannotRemoveManager if the target is the Manager, and
	// domain.ErrNotFound if there is no such membership.
	Delete(ctx context.Context, tripID, userID uuid.UUID) error

	// ListForTrip returns the trip's members with their email and display name.
	// currentUserID, when it is a member, comes first; the rest follow in
	// insertion order.
	ListForTrip(ctx context.Context, tripID, currentUserID uuid.UUID) ([]domain.Membership, error)

	// DeleteAllForTrip removes every membership of the trip, Manager included.
	// Only the delete-trip transaction may call it.
	DeleteAllForTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type pgMembershipRepo struct {
	db db
}

// NewMembershipRepo constructs a MembershipRepo backed by the provided db connection.
func NewMembershipRepo(db db) MembershipRepo {
	return &pgMembershipRepo{db: db}
}

func (r *pgMembershipRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	const q = `
		SELECT trip_id, user_id, role, created_at
		FROM trip_members
		WHERE user_id = @user_id
		ORDER BY created_at, trip_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.MembershipRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	members := []domain.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.MembershipRepo.ListForUser: scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MembershipRepo.ListForUser: rows: %w", err)
	}
	return members, nil
}

func (r *pgMembershipRepo) Find(ctx context.Context, tripID, userID uuid.UUID) (domain.Role, error) {
	const q = `SELECT role FROM trip_members WHERE trip_id = @trip_id AND user_id = @user_id`

	var raw string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "user_id": userID}).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoleNone, fmt.Errorf("repo.MembershipRepo.Find: %w", domain.ErrNotFound)
		}
		return domain.RoleNone, fmt.Errorf("repo.MembershipRepo.Find: %w", err)
	}
	role, err := domain.ParseRole(raw)
	if err != nil {
		return domain.RoleNone, fmt.Errorf("repo.MembershipRepo.Find: %w", err)
	}
	return role, nil
}

func (r *pgMembershipRepo) Create(ctx context.Context, m domain.Membership) (domain.Membership, error) {
	if m.Role == domain.RoleNone {
		return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.Create: %w: role is required", domain.ErrValidation)
	}

	const q = `
		INSERT INTO trip_members (trip_id, user_id, role)
		VALUES (@trip_id, @user_id, @role)
		RETURNING trip_id, user_id, role, created_at`

	args := pgx.NamedArgs{
		"trip_id": m.TripID,
		"user_id": m.UserID,
		"role":    m.Role.String(),
	}

	result, err := scanMembership(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.Create: %w", translateMembershipErr(err))
	}
	return result, nil
}

// UpdateRole guards the manager row in the WHERE clause so a concurrent
// request cannot demote the Manager between a check and the write.
func (r *pgMembershipRepo) UpdateRole(ctx context.Context, tripID, userID uuid.UUID, role domain.Role) (domain.Membership, error) {
	if !role.Grantable() {
		return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.UpdateRole: %w", domain.ErrInvalidPromotion)
	}

	const q = `
		UPDATE trip_members
		SET role = @role
		WHERE trip_id = @trip_id AND user_id = @user_id AND role <> 'manager'
		RETURNING trip_id, user_id, role, created_at`

	args := pgx.NamedArgs{"trip_id": tripID, "user_id": userID, "role": role.String()}

	result, err := scanMembership(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.UpdateRole: %w", err)
	}

	// Nothing updated: either no membership or the target is the Manager.
	current, findErr := r.Find(ctx, tripID, userID)
	if findErr != nil {
		return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.UpdateRole: %w", findErr)
	}
	if current == domain.RoleManager {
		return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.UpdateRole: %w", domain.ErrInvalidPromotion)
	}
	return domain.Membership{}, fmt.Errorf("repo.MembershipRepo.UpdateRole: %w", domain.ErrNotFound)
}

func (r *pgMembershipRepo) Delete(ctx context.Context, tripID, userID uuid.UUID) error {
	const q = `
		DELETE FROM trip_members
		WHERE trip_id = @trip_id AND user_id = @user_id AND role <> 'manager'`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("repo.MembershipRepo.Delete: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	current, err := r.Find(ctx, tripID, userID)
	if err != nil {
		return fmt.Errorf("repo.MembershipRepo.Delete: %w", err)
	}
	if current == domain.RoleManager {
		return fmt.Errorf("repo.MembershipRepo.Delete: %w", domain.ErrCannotRemoveManager)
	}
	// Removed concurrently between the DELETE and the lookup.
	return fmt.Errorf("repo.MembershipRepo.Delete: %w", domain.ErrNotFound)
}

func (r *pgMembershipRepo) ListForTrip(ctx context.Context, tripID, currentUserID uuid.UUID) ([]domain.Membership, error) {
	const q = `
		SELECT m.trip_id, m.user_id, m.role, m.created_at, u.email, u.display_name
		FROM trip_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.trip_id = @trip_id
		ORDER BY (m.user_id = @current_user_id) DESC, m.created_at, m.user_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID, "current_user_id": currentUserID})
	if err != nil {
		return nil, fmt.Errorf("repo.MembershipRepo.ListForTrip: %w", err)
	}
	defer rows.Close()

	members := []domain.Membership{}
	for rows.Next() {
		var email, name string
		m, err := scanMembership(rows, &email, &name)
		if err != nil {
			return nil, fmt.Errorf("repo.MembershipRepo.ListForTrip: scan: %w", err)
		}
		m.Email, m.DisplayName = email, name
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MembershipRepo.ListForTrip: rows: %w", err)
	}
	return members, nil
}

func (r *pgMembershipRepo) DeleteAllForTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	const q = `DELETE FROM trip_members WHERE trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return 0, fmt.Errorf("repo.MembershipRepo.DeleteAllForTrip: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMembership(s scanner, extra ...any) (domain.Membership, error) {
	var (
		m       domain.Membership
		tripID  pgtype.UUID
		userID  pgtype.UUID
		rawRole string
	)
	dest := append([]any{&tripID, &userID, &rawRole, &m.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Membership{}, domain.ErrNotFound
		}
		return domain.Membership{}, err
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Membership{}, err
	}
	m.TripID = uuid.UUID(tripID.Bytes)
	m.UserID = uuid.UUID(userID.Bytes)
	m.Role = role
	return m, nil
}

// translateMembershipErr maps trip_members constraint violations onto domain errors.
func translateMembershipErr(err error) error {
	if name, ok := constraintViolation(err, pgForeignKeyViolation); ok {
		switch name {
		case "trip_members_user_id_fkey":
			return domain.ErrUserNotFound
		case "trip_members_trip_id_fkey":
			return domain.ErrTripNotFound
		}
	}
	if name, ok := constraintViolation(err, pgUniqueViolation); ok {
		switch name {
		case "trip_members_pkey":
			return domain.ErrDuplicateMembership
		case "trip_members_one_manager":
			return domain.ErrInvalidPromotion
		}
	}
	return err
}
