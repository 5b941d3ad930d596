package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// The outer per-test transaction makes WithinTx open a savepoint, so commit
// and rollback are observable without leaking rows into the shared database.

func TestTransactor_CommitsOnSuccess(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewRepos(tx)
	ctx := context.Background()
	owner := mustCreateUser(t, r)

	var created domain.Trip
	err := repo.NewTransactor(tx).WithinTx(ctx, func(in repo.Repos) error {
		var err error
		created, err = in.Trips.Create(ctx, tripFixture())
		if err != nil {
			return err
		}
		_, err = in.Memberships.Create(ctx, domain.Membership{TripID: created.ID, UserID: owner.ID, Role: domain.RoleManager})
		return err
	})
	require.NoError(t, err)

	role, err := r.Memberships.Find(ctx, created.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, role)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewRepos(tx)
	ctx := context.Background()
	owner := mustCreateUser(t, r)
	trip := mustCreateTrip(t, r, owner)
	_, err := r.Activities.Add(ctx, trip.ID, "N1")
	require.NoError(t, err)

	injected := errors.New("injected failure")
	err = repo.NewTransactor(tx).WithinTx(ctx, func(in repo.Repos) error {
		if _, err := in.Activities.DeleteAllForTrip(ctx, trip.ID); err != nil {
			return err
		}
		return injected
	})
	require.ErrorIs(t, err, injected)

	acts, err := r.Activities.ListForTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, acts, 1, "activity deletion must be rolled back")
}

func TestTransactor_CascadeDeleteOrder(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewRepos(tx)
	ctx := context.Background()
	owner := mustCreateUser(t, r)
	trip := mustCreateTrip(t, r, owner)
	_, err := r.Activities.Add(ctx, trip.ID, "N1")
	require.NoError(t, err)

	err = repo.NewTransactor(tx).WithinTx(ctx, func(in repo.Repos) error {
		if _, err := in.Activities.DeleteAllForTrip(ctx, trip.ID); err != nil {
			return err
		}
		if _, err := in.Memberships.DeleteAllForTrip(ctx, trip.ID); err != nil {
			return err
		}
		return in.Trips.Delete(ctx, trip.ID)
	})
	require.NoError(t, err)

	_, err = r.Trips.GetByID(ctx, trip.ID)
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
}
