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

// ActivityRepo defines the persistence operations for the trip_activities
// join table (the Trip↔Activity half of the Association Store).
type ActivityRepo interface {
	// ListForTrip returns the trip's activity references in attach order.
	ListForTrip(ctx context.Context, tripID uuid.UUID) ([]domain.TripActivity, error)

	// Add attaches ref to the trip. The primary key decides concurrent races:
	// the loser gets domain.ErrAlreadyAttached. Returns domain.ErrTripNotFound
	// if the trip does not exist.
	Add(ctx context.Context, tripID uuid.UUID, ref string) (domain.TripActivity, error)

	// Remove detaches ref from the trip.
	// Returns domain.ErrNotAttached if the pair does not exist.
	Remove(ctx context.Context, tripID uuid.UUID, ref string) error

	// DeleteAllForTrip removes every activity of the trip.
	// Only the delete-trip transaction may call it.
	DeleteAllForTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type pgActivityRepo struct {
	db db
}

// NewActivityRepo constructs an ActivityRepo backed by the provided db connection.
func NewActivityRepo(db db) ActivityRepo {
	return &pgActivityRepo{db: db}
}

func (r *pgActivityRepo) ListForTrip(ctx context.Context, tripID uuid.UUID) ([]domain.TripActivity, error) {
	const q = `
		SELECT trip_id, activity_ref, created_at
		FROM trip_activities
		WHERE trip_id = @trip_id
		ORDER BY created_at, activity_ref`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ActivityRepo.ListForTrip: %w", err)
	}
	defer rows.Close()

	activities := []domain.TripActivity{}
	for rows.Next() {
		a, err := scanTripActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ActivityRepo.ListForTrip: scan: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ActivityRepo.ListForTrip: rows: %w", err)
	}
	return activities, nil
}

// Add relies on the primary key instead of a read-then-insert check so the
// duplicate decision is made atomically by Postgres.
func (r *pgActivityRepo) Add(ctx context.Context, tripID uuid.UUID, ref string) (domain.TripActivity, error) {
	const q = `
		INSERT INTO trip_activities (trip_id, activity_ref)
		VALUES (@trip_id, @activity_ref)
		RETURNING trip_id, activity_ref, created_at`

	result, err := scanTripActivity(r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "activity_ref": ref}))
	if err != nil {
		if _, ok := constraintViolation(err, pgUniqueViolation); ok {
			return domain.TripActivity{}, fmt.Errorf("repo.ActivityRepo.Add: %w", domain.ErrAlreadyAttached)
		}
		if _, ok := constraintViolation(err, pgForeignKeyViolation); ok {
			return domain.TripActivity{}, fmt.Errorf("repo.ActivityRepo.Add: %w", domain.ErrTripNotFound)
		}
		return domain.TripActivity{}, fmt.Errorf("repo.ActivityRepo.Add: %w", err)
	}
	return result, nil
}

func (r *pgActivityRepo) Remove(ctx context.Context, tripID uuid.UUID, ref string) error {
	const q = `DELETE FROM trip_activities WHERE trip_id = @trip_id AND activity_ref = @activity_ref`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID, "activity_ref": ref})
	if err != nil {
		return fmt.Errorf("repo.ActivityRepo.Remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ActivityRepo.Remove: %w", domain.ErrNotAttached)
	}
	return nil
}

func (r *pgActivityRepo) DeleteAllForTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	const q = `DELETE FROM trip_activities WHERE trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return 0, fmt.Errorf("repo.ActivityRepo.DeleteAllForTrip: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTripActivity(s scanner) (domain.TripActivity, error) {
	var (
		a      domain.TripActivity
		tripID pgtype.UUID
	)
	if err := s.Scan(&tripID, &a.ActivityRef, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripActivity{}, domain.ErrNotAttached
		}
		return domain.TripActivity{}, err
	}
	a.TripID = uuid.UUID(tripID.Bytes)
	return a, nil
}
