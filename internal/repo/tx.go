package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repos bundles every repository bound to the same connection or transaction.
type Repos struct {
	Users       UserRepo
	Trips       TripRepo
	Memberships MembershipRepo
	Activities  ActivityRepo
}

// NewRepos constructs all repositories over one db handle.
func NewRepos(db db) Repos {
	return Repos{
		Users:       NewUserRepo(db),
		Trips:       NewTripRepo(db),
		Memberships: NewMembershipRepo(db),
		Activities:  NewActivityRepo(db),
	}
}

// Transactor runs multi-row protocols atomically. fn receives repositories
// bound to a single transaction; the transaction commits if fn returns nil
// and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Repos) error) error
}

// beginner is satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx. On a pgx.Tx,
// Begin opens a savepoint, so integration tests can nest a protocol inside
// their per-test rollback transaction.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTransactor struct {
	b beginner
}

// NewTransactor constructs a Transactor over the given pool, connection, or transaction.
func NewTransactor(b beginner) Transactor {
	return &pgTransactor{b: b}
}

// WithinTx delegates commit/rollback bookkeeping to pgx.BeginFunc.
func (t *pgTransactor) WithinTx(ctx context.Context, fn func(Repos) error) error {
	err := pgx.BeginFunc(ctx, t.b, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
	if err != nil {
		return fmt.Errorf("repo.Transactor.WithinTx: %w", err)
	}
	return nil
}
