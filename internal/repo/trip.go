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

// TripRepo defines the persistence operations for Trips (the Trip Store).
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a fake.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrTripNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetByIDForUpdate is GetByID with a row lock held until the surrounding
	// transaction ends. Only meaningful on a repo built over a pgx.Tx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetByIDs returns the trips with the given IDs, ordered by from_date.
	// Unknown IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Trip, error)

	// Search returns one page of the trips userID holds any role on that match
	// the filter, paired with that role, plus the total match count.
	Search(ctx context.Context, userID uuid.UUID, f domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error)

	// Update overwrites the mutable fields of an existing trip and returns the
	// updated record. Returns domain.ErrTripNotFound if no trip with that ID exists.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrTripNotFound if it does not exist.
	// Memberships and activities must already be gone.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `t.id, t.title, t.description, t.location, t.from_date, t.to_date, t.created_at, t.updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips AS t (title, description, location, from_date, to_date)
		VALUES (@title, @description, @location, @from_date, @to_date)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"title":       trip.Title,
		"description": trip.Description,
		"location":    trip.Location,
		"from_date":   trip.FromDate,
		"to_date":     trip.ToDate,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", translateTripErr(err))
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByIDForUpdate retrieves a trip by primary key and locks its row.
func (r *pgTripRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = @id FOR UPDATE`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByIDForUpdate: %w", err)
	}
	return result, nil
}

// GetByIDs returns the trips whose id is in ids.
func (r *pgTripRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Trip, error) {
	if len(ids) == 0 {
		return []domain.Trip{}, nil
	}

	const q = `
		SELECT ` + tripColumns + `
		FROM trips t
		WHERE t.id = ANY(@ids)
		ORDER BY t.from_date, t.id`

	pgIDs := make([]pgtype.UUID, len(ids))
	for i, id := range ids {
		pgIDs[i] = pgtype.UUID{Bytes: id, Valid: true}
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": pgIDs})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.GetByIDs: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.GetByIDs: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.GetByIDs: rows: %w", err)
	}
	return trips, nil
}

// Search pages through the caller's visible trips. Title and location match
// as case-insensitive literal substrings, so % and _ carry no pattern meaning.
// The window count gives the total number of matches independent of
// LIMIT/OFFSET.
func (r *pgTripRepo) Search(ctx context.Context, userID uuid.UUID, f domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error) {
	const q = `
		SELECT ` + tripColumns + `, m.role, count(*) OVER () AS total
		FROM trips t
		JOIN trip_members m ON m.trip_id = t.id AND m.user_id = @user_id
		WHERE (@title = '' OR strpos(lower(t.title), lower(@title)) > 0)
		  AND (@location = '' OR strpos(lower(t.location), lower(@location)) > 0)
		  AND (@from_date::date IS NULL OR t.from_date >= @from_date::date)
		  AND (@to_date::date IS NULL OR t.to_date <= @to_date::date)
		ORDER BY t.from_date, t.id
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"user_id":   userID,
		"title":     f.Title,
		"location":  f.Location,
		"from_date": f.From, // nil becomes NULL
		"to_date":   f.To,
		"limit":     p.Limit,
		"offset":    p.Offset(),
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.Search: %w", err)
	}
	defer rows.Close()

	var (
		out   = []domain.TripWithRole{}
		total int64
	)
	for rows.Next() {
		var (
			tr      domain.TripWithRole
			rawRole string
		)
		tr.Trip, err = scanTrip(rows, &rawRole, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.Search: scan: %w", err)
		}
		if tr.Role, err = domain.ParseRole(rawRole); err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.Search: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.Search: rows: %w", err)
	}
	return out, total, nil
}

// Update overwrites the mutable fields of a trip and returns the updated record.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		UPDATE trips AS t
		SET title       = @title,
		    description = @description,
		    location    = @location,
		    from_date   = @from_date,
		    to_date     = @to_date,
		    updated_at  = now()
		WHERE t.id = @id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":          trip.ID,
		"title":       trip.Title,
		"description": trip.Description,
		"location":    trip.Location,
		"from_date":   trip.FromDate,
		"to_date":     trip.ToDate,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", translateTripErr(err))
	}
	return result, nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrTripNotFound)
	}
	return nil
}

// scanTrip maps a single database row into a domain.Trip. Any extra
// destinations are scanned from the columns following the trip columns.
func scanTrip(s scanner, extra ...any) (domain.Trip, error) {
	var (
		t        domain.Trip
		id       pgtype.UUID
		fromDate pgtype.Date
		toDate   pgtype.Date
	)

	dest := append([]any{&id, &t.Title, &t.Description, &t.Location, &fromDate, &toDate, &t.CreatedAt, &t.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrTripNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.FromDate = fromDate.Time
	t.ToDate = toDate.Time
	return t, nil
}

// translateTripErr maps the date-range CHECK constraint onto ErrValidation.
// The service validates first; this only fires if that check is bypassed.
func translateTripErr(err error) error {
	if name, ok := constraintViolation(err, pgCheckViolation); ok && name == "trips_date_range_check" {
		return fmt.Errorf("%w: from_date must not be after to_date", domain.ErrValidation)
	}
	return err
}
