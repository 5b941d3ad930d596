package service_test

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/authz"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/internal/service"
)

// fakeStore is an in-memory stand-in for the Postgres stores. It mirrors the
// error semantics of the pg repos (including the one-manager index and the
// foreign keys), and its Transactor restores a snapshot when fn fails, so
// service protocols can be tested for atomicity without a database.
// Not safe for concurrent use.
type fakeStore struct {
	users      map[uuid.UUID]domain.User
	trips      map[uuid.UUID]domain.Trip
	members    []domain.Membership
	activities []domain.TripActivity

	// fail maps "Repo.Method" to an error returned instead of running it.
	fail  map[string]error
	clock time.Time

	// inTx is set while a Transactor callback runs; locked records the trips
	// read with GetByIDForUpdate inside one.
	inTx   bool
	locked []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[uuid.UUID]domain.User{},
		trips: map[uuid.UUID]domain.Trip{},
		fail:  map[string]error{},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp, standing in for clock_timestamp().
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *fakeStore) failure(op string) error {
	if err, ok := s.fail[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *fakeStore) repos() repo.Repos {
	return repo.Repos{
		Users:       fakeUsers{s},
		Trips:       fakeTrips{s},
		Memberships: fakeMembers{s},
		Activities:  fakeActivities{s},
	}
}

func (s *fakeStore) engine() *authz.Engine {
	r := s.repos()
	return authz.New(r.Trips, r.Memberships)
}

type snapshot struct {
	users      map[uuid.UUID]domain.User
	trips      map[uuid.UUID]domain.Trip
	members    []domain.Membership
	activities []domain.TripActivity
}

func (s *fakeStore) snapshot() snapshot {
	return snapshot{
		users:      maps.Clone(s.users),
		trips:      maps.Clone(s.trips),
		members:    slices.Clone(s.members),
		activities: slices.Clone(s.activities),
	}
}

func (s *fakeStore) restore(snap snapshot) {
	s.users = snap.users
	s.trips = snap.trips
	s.members = snap.members
	s.activities = snap.activities
}

// managersOf counts Manager rows for tripID.
func (s *fakeStore) managersOf(tripID uuid.UUID) int {
	n := 0
	for _, m := range s.members {
		if m.TripID == tripID && m.Role == domain.RoleManager {
			n++
		}
	}
	return n
}

func (s *fakeStore) activityCount(tripID uuid.UUID) int {
	n := 0
	for _, a := range s.activities {
		if a.TripID == tripID {
			n++
		}
	}
	return n
}

// ---- Transactor ------------------------------------------------------------

type fakeTransactor struct{ s *fakeStore }

func (t fakeTransactor) WithinTx(_ context.Context, fn func(repo.Repos) error) error {
	snap := t.s.snapshot()
	t.s.inTx = true
	defer func() { t.s.inTx = false }()
	if err := fn(t.s.repos()); err != nil {
		t.s.restore(snap)
		return fmt.Errorf("fake.WithinTx: %w", err)
	}
	return nil
}

var _ repo.Transactor = fakeTransactor{}

// ---- Users -----------------------------------------------------------------

type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) Create(_ context.Context, u domain.User) (domain.User, error) {
	if err := f.s.failure("Users.Create"); err != nil {
		return domain.User{}, err
	}
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return domain.User{}, domain.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = f.s.tick()
	u.UpdatedAt = u.CreatedAt
	f.s.users[u.ID] = u
	return u, nil
}

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := f.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f fakeUsers) UpdateCredential(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := f.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.CredentialHash = hash
	u.UpdatedAt = f.s.tick()
	f.s.users[id] = u
	return nil
}

// ---- Trips -----------------------------------------------------------------

type fakeTrips struct{ s *fakeStore }

func (f fakeTrips) Create(_ context.Context, t domain.Trip) (domain.Trip, error) {
	if err := f.s.failure("Trips.Create"); err != nil {
		return domain.Trip{}, err
	}
	if t.FromDate.After(t.ToDate) {
		return domain.Trip{}, domain.ErrValidation
	}
	t.ID = uuid.New()
	t.CreatedAt = f.s.tick()
	t.UpdatedAt = t.CreatedAt
	f.s.trips[t.ID] = t
	return t, nil
}

func (f fakeTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	t, ok := f.s.trips[id]
	if !ok {
		return domain.Trip{}, domain.ErrTripNotFound
	}
	return t, nil
}

// GetByIDForUpdate refuses to run outside WithinTx, where a row lock would be
// released immediately.
func (f fakeTrips) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	if !f.s.inTx {
		return domain.Trip{}, errors.New("FOR UPDATE outside a transaction")
	}
	t, err := f.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	f.s.locked = append(f.s.locked, id)
	return t, nil
}

func (f fakeTrips) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Trip, error) {
	out := []domain.Trip{}
	for _, id := range ids {
		if t, ok := f.s.trips[id]; ok {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, byFromDate)
	return out, nil
}

func (f fakeTrips) Search(_ context.Context, userID uuid.UUID, flt domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error) {
	var matched []domain.TripWithRole
	for _, m := range f.s.members {
		if m.UserID != userID {
			continue
		}
		t := f.s.trips[m.TripID]
		if flt.Title != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(flt.Title)) {
			continue
		}
		if flt.Location != "" && !strings.Contains(strings.ToLower(t.Location), strings.ToLower(flt.Location)) {
			continue
		}
		if flt.From != nil && t.FromDate.Before(*flt.From) {
			continue
		}
		if flt.To != nil && t.ToDate.After(*flt.To) {
			continue
		}
		matched = append(matched, domain.TripWithRole{Trip: t, Role: m.Role})
	}
	slices.SortFunc(matched, func(a, b domain.TripWithRole) int { return byFromDate(a.Trip, b.Trip) })

	total := int64(len(matched))
	start := min(p.Offset(), len(matched))
	end := min(start+p.Limit, len(matched))
	return matched[start:end], total, nil
}

func (f fakeTrips) Update(_ context.Context, t domain.Trip) (domain.Trip, error) {
	if err := f.s.failure("Trips.Update"); err != nil {
		return domain.Trip{}, err
	}
	existing, ok := f.s.trips[t.ID]
	if !ok {
		return domain.Trip{}, domain.ErrTripNotFound
	}
	if t.FromDate.After(t.ToDate) {
		return domain.Trip{}, domain.ErrValidation
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = f.s.tick()
	f.s.trips[t.ID] = t
	return t, nil
}

// Delete enforces the foreign keys: dependents must be gone first.
func (f fakeTrips) Delete(_ context.Context, id uuid.UUID) error {
	if err := f.s.failure("Trips.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.trips[id]; !ok {
		return domain.ErrTripNotFound
	}
	for _, m := range f.s.members {
		if m.TripID == id {
			return errors.New("foreign key violation: trip_members_trip_id_fkey")
		}
	}
	for _, a := range f.s.activities {
		if a.TripID == id {
			return errors.New("foreign key violation: trip_activities_trip_id_fkey")
		}
	}
	delete(f.s.trips, id)
	return nil
}

func byFromDate(a, b domain.Trip) int {
	if c := a.FromDate.Compare(b.FromDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// ---- Memberships -----------------------------------------------------------

type fakeMembers struct{ s *fakeStore }

func (f fakeMembers) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	out := []domain.Membership{}
	for _, m := range f.s.members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeMembers) index(tripID, userID uuid.UUID) int {
	return slices.IndexFunc(f.s.members, func(m domain.Membership) bool {
		return m.TripID == tripID && m.UserID == userID
	})
}

func (f fakeMembers) Find(_ context.Context, tripID, userID uuid.UUID) (domain.Role, error) {
	i := f.index(tripID, userID)
	if i < 0 {
		return domain.RoleNone, domain.ErrNotFound
	}
	return f.s.members[i].Role, nil
}

func (f fakeMembers) Create(_ context.Context, m domain.Membership) (domain.Membership, error) {
	if err := f.s.failure("Memberships.Create"); err != nil {
		return domain.Membership{}, err
	}
	switch {
	case m.Role == domain.RoleNone:
		return domain.Membership{}, domain.ErrValidation
	case f.index(m.TripID, m.UserID) >= 0:
		return domain.Membership{}, domain.ErrDuplicateMembership
	case m.Role == domain.RoleManager && f.s.managersOf(m.TripID) > 0:
		return domain.Membership{}, domain.ErrInvalidPromotion
	}
	if _, ok := f.s.trips[m.TripID]; !ok {
		return domain.Membership{}, domain.ErrTripNotFound
	}
	if _, ok := f.s.users[m.UserID]; !ok {
		return domain.Membership{}, domain.ErrUserNotFound
	}
	m.Email, m.DisplayName = "", ""
	m.CreatedAt = f.s.tick()
	f.s.members = append(f.s.members, m)
	return m, nil
}

func (f fakeMembers) UpdateRole(_ context.Context, tripID, userID uuid.UUID, role domain.Role) (domain.Membership, error) {
	if !role.Grantable() {
		return domain.Membership{}, domain.ErrInvalidPromotion
	}
	i := f.index(tripID, userID)
	switch {
	case i < 0:
		return domain.Membership{}, domain.ErrNotFound
	case f.s.members[i].Role == domain.RoleManager:
		return domain.Membership{}, domain.ErrInvalidPromotion
	}
	f.s.members[i].Role = role
	return f.s.members[i], nil
}

func (f fakeMembers) Delete(_ context.Context, tripID, userID uuid.UUID) error {
	i := f.index(tripID, userID)
	switch {
	case i < 0:
		return domain.ErrNotFound
	case f.s.members[i].Role == domain.RoleManager:
		return domain.ErrCannotRemoveManager
	}
	f.s.members = slices.Delete(f.s.members, i, i+1)
	return nil
}

func (f fakeMembers) ListForTrip(_ context.Context, tripID, currentUserID uuid.UUID) ([]domain.Membership, error) {
	out := []domain.Membership{}
	for _, m := range f.s.members {
		if m.TripID != tripID {
			continue
		}
		u := f.s.users[m.UserID]
		m.Email, m.DisplayName = u.Email, u.DisplayName
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b domain.Membership) int {
		switch {
		case a.UserID == currentUserID && b.UserID != currentUserID:
			return -1
		case b.UserID == currentUserID && a.UserID != currentUserID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (f fakeMembers) DeleteAllForTrip(_ context.Context, tripID uuid.UUID) (int64, error) {
	if err := f.s.failure("Memberships.DeleteAllForTrip"); err != nil {
		return 0, err
	}
	before := len(f.s.members)
	f.s.members = slices.DeleteFunc(f.s.members, func(m domain.Membership) bool { return m.TripID == tripID })
	return int64(before - len(f.s.members)), nil
}

// ---- Activities ------------------------------------------------------------

type fakeActivities struct{ s *fakeStore }

func (f fakeActivities) ListForTrip(_ context.Context, tripID uuid.UUID) ([]domain.TripActivity, error) {
	out := []domain.TripActivity{}
	for _, a := range f.s.activities {
		if a.TripID == tripID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeActivities) Add(_ context.Context, tripID uuid.UUID, ref string) (domain.TripActivity, error) {
	if err := f.s.failure("Activities.Add"); err != nil {
		return domain.TripActivity{}, err
	}
	for _, a := range f.s.activities {
		if a.TripID == tripID && a.ActivityRef == ref {
			return domain.TripActivity{}, domain.ErrAlreadyAttached
		}
	}
	if _, ok := f.s.trips[tripID]; !ok {
		return domain.TripActivity{}, domain.ErrTripNotFound
	}
	a := domain.TripActivity{TripID: tripID, ActivityRef: ref, CreatedAt: f.s.tick()}
	f.s.activities = append(f.s.activities, a)
	return a, nil
}

func (f fakeActivities) Remove(_ context.Context, tripID uuid.UUID, ref string) error {
	i := slices.IndexFunc(f.s.activities, func(a domain.TripActivity) bool {
		return a.TripID == tripID && a.ActivityRef == ref
	})
	if i < 0 {
		return domain.ErrNotAttached
	}
	f.s.activities = slices.Delete(f.s.activities, i, i+1)
	return nil
}

func (f fakeActivities) DeleteAllForTrip(_ context.Context, tripID uuid.UUID) (int64, error) {
	if err := f.s.failure("Activities.DeleteAllForTrip"); err != nil {
		return 0, err
	}
	before := len(f.s.activities)
	f.s.activities = slices.DeleteFunc(f.s.activities, func(a domain.TripActivity) bool { return a.TripID == tripID })
	return int64(before - len(f.s.activities)), nil
}

// compile-time checks: the fakes must satisfy the repo interfaces.
var (
	_ repo.UserRepo       = fakeUsers{}
	_ repo.TripRepo       = fakeTrips{}
	_ repo.MembershipRepo = fakeMembers{}
	_ repo.ActivityRepo   = fakeActivities{}
)

// ---- fixtures --------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// addUser inserts a user directly, bypassing the UserService.
func (s *fakeStore) addUser(email string) domain.User {
	u, err := fakeUsers{s}.Create(context.Background(), domain.User{
		Email:          email,
		DisplayName:    strings.Split(email, "@")[0],
		CredentialHash: "hash",
	})
	if err != nil {
		panic(err)
	}
	return u
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validTrip() domain.Trip {
	return domain.Trip{
		Title:       "Summer in Lisbon",
		Description: "Two weeks of tiles and tarts",
		Location:    "Lisbon, PT",
		FromDate:    date(2025, 6, 1),
		ToDate:      date(2025, 6, 15),
	}
}

// services bundles every service wired to one fake store.
type services struct {
	store       *fakeStore
	trips       *service.TripService
	memberships *service.MembershipService
	activities  *service.ActivityService
}

func newServices(enricher service.ActivityEnricher) services {
	s := newFakeStore()
	r := s.repos()
	e := s.engine()
	log := discardLogger()
	if enricher == nil {
		enricher = stubEnricher{}
	}
	return services{
		store:       s,
		trips:       service.NewTripService(r, fakeTransactor{s}, e, log),
		memberships: service.NewMembershipService(r.Users, r.Memberships, e, log),
		activities:  service.NewActivityService(r.Activities, e, enricher, log),
	}
}

// stubEnricher resolves every ref to a fixed name.
type stubEnricher struct{}

func (stubEnricher) ResolveAll(_ context.Context, refs []string) []domain.Activity {
	out := make([]domain.Activity, len(refs))
	for i, ref := range refs {
		out[i] = domain.Activity{Ref: ref, Resolved: true, ActivityDetails: domain.ActivityDetails{Name: "name-" + ref}}
	}
	return out
}

// mustCreateTrip creates a valid trip owned by owner through the service.
func (sv services) mustCreateTrip(owner domain.User) domain.Trip {
	t, err := sv.trips.Create(context.Background(), owner.ID, validTrip())
	if err != nil {
		panic(err)
	}
	return t
}
