package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/credential"
	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/handler"
	"github.com/pkordes/trip-planner/backend/internal/middleware"
)

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create      func(ctx context.Context, creatorID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	get         func(ctx context.Context, tripID, actorID uuid.UUID) (domain.TripWithRole, error)
	update      func(ctx context.Context, tripID, actorID uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	delete      func(ctx context.Context, tripID, actorID uuid.UUID) error
	listVisible func(ctx context.Context, userID uuid.UUID) ([]domain.TripWithRole, error)
	search      func(ctx context.Context, userID uuid.UUID, f domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error)
}

func (m *mockTripServicer) Create(ctx context.Context, creatorID uuid.UUID, t domain.Trip) (domain.Trip, error) {
	return m.create(ctx, creatorID, t)
}
func (m *mockTripServicer) Get(ctx context.Context, tripID, actorID uuid.UUID) (domain.TripWithRole, error) {
	return m.get(ctx, tripID, actorID)
}
func (m *mockTripServicer) Update(ctx context.Context, tripID, actorID uuid.UUID, p domain.TripPatch) (domain.Trip, error) {
	return m.update(ctx, tripID, actorID, p)
}
func (m *mockTripServicer) Delete(ctx context.Context, tripID, actorID uuid.UUID) error {
	return m.delete(ctx, tripID, actorID)
}
func (m *mockTripServicer) ListVisible(ctx context.Context, userID uuid.UUID) ([]domain.TripWithRole, error) {
	return m.listVisible(ctx, userID)
}
func (m *mockTripServicer) Search(ctx context.Context, userID uuid.UUID, f domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error) {
	return m.search(ctx, userID, f, p)
}

// mockMembershipServicer is a test double for handler.MembershipServicer.
type mockMembershipServicer struct {
	grant      func(ctx context.Context, tripID, actorID uuid.UUID, email string, role domain.Role) (domain.Membership, error)
	changeRole func(ctx context.Context, tripID, actorID, targetID uuid.UUID, role domain.Role) (domain.Membership, error)
	revoke     func(ctx context.Context, tripID, actorID, targetID uuid.UUID) error
	list       func(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Membership, error)
}

func (m *mockMembershipServicer) Grant(ctx context.Context, tripID, actorID uuid.UUID, email string, role domain.Role) (domain.Membership, error) {
	return m.grant(ctx, tripID, actorID, email, role)
}
func (m *mockMembershipServicer) ChangeRole(ctx context.Context, tripID, actorID, targetID uuid.UUID, role domain.Role) (domain.Membership, error) {
	return m.changeRole(ctx, tripID, actorID, targetID, role)
}
func (m *mockMembershipServicer) Revoke(ctx context.Context, tripID, actorID, targetID uuid.UUID) error {
	return m.revoke(ctx, tripID, actorID, targetID)
}
func (m *mockMembershipServicer) List(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Membership, error) {
	return m.list(ctx, tripID, actorID)
}

// mockActivityServicer is a test double for handler.ActivityServicer.
type mockActivityServicer struct {
	attach func(ctx context.Context, tripID, actorID uuid.UUID, ref string) (domain.TripActivity, error)
	detach func(ctx context.Context, tripID, actorID uuid.UUID, ref string) error
	list   func(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Activity, error)
}

func (m *mockActivityServicer) Attach(ctx context.Context, tripID, actorID uuid.UUID, ref string) (domain.TripActivity, error) {
	return m.attach(ctx, tripID, actorID, ref)
}
func (m *mockActivityServicer) Detach(ctx context.Context, tripID, actorID uuid.UUID, ref string) error {
	return m.detach(ctx, tripID, actorID, ref)
}
func (m *mockActivityServicer) List(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Activity, error) {
	return m.list(ctx, tripID, actorID)
}

// mockUserServicer is a test double for handler.UserServicer.
type mockUserServicer struct {
	register       func(ctx context.Context, email, displayName, password string) (domain.User, error)
	changePassword func(ctx context.Context, userID uuid.UUID, currentPassword, newPassword, confirmation string) error
	getByID        func(ctx context.Context, id uuid.UUID) (domain.User, error)
	getByEmail     func(ctx context.Context, email string) (domain.User, error)
}

func (m *mockUserServicer) Register(ctx context.Context, email, displayName, password string) (domain.User, error) {
	return m.register(ctx, email, displayName, password)
}
func (m *mockUserServicer) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword, confirmation string) error {
	return m.changePassword(ctx, userID, currentPassword, newPassword, confirmation)
}
func (m *mockUserServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}
func (m *mockUserServicer) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.getByEmail(ctx, email)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.TripServicer       = (*mockTripServicer)(nil)
	_ handler.MembershipServicer = (*mockMembershipServicer)(nil)
	_ handler.ActivityServicer   = (*mockActivityServicer)(nil)
	_ handler.UserServicer       = (*mockUserServicer)(nil)
)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks. Nil services are
// replaced by empty mocks that panic if called.
func newHTTPHandler(svc handler.Services) http.Handler {
	if svc.Trips == nil {
		svc.Trips = &mockTripServicer{}
	}
	if svc.Memberships == nil {
		svc.Memberships = &mockMembershipServicer{}
	}
	if svc.Activities == nil {
		svc.Activities = &mockActivityServicer{}
	}
	if svc.Users == nil {
		svc.Users = &mockUserServicer{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(svc, []byte("openapi: 3.0.3\n"), logger).Routes()
}

var actorID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// do sends a request as actorID. body may be nil, a string, or any value
// that is JSON-encoded.
func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(t, method, target, body)
	req.Header.Set(middleware.ActorHeader, actorID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func tripFixture() domain.Trip {
	return domain.Trip{
		ID:          uuid.New(),
		Title:       "Lisbon",
		Description: "Long weekend",
		Location:    "Lisbon, PT",
		FromDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// ---- public routes ---------------------------------------------------------

// TestGetHealth_returns200WithOKStatus verifies that GET /healthz returns
// HTTP 200 and a JSON body of {"status":"ok"} without an acting user.
func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Services{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
}

func TestGetOpenAPI_ServesDocument(t *testing.T) {
	rec := httptest.NewRecorder()
	newHTTPHandler(handler.Services{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi:")
}

// ---- authentication --------------------------------------------------------

func TestProtectedRoute_401WithoutActor(t *testing.T) {
	called := false
	svc := &mockTripServicer{listVisible: func(_ context.Context, _ uuid.UUID) ([]domain.TripWithRole, error) {
		called = true
		return nil, nil
	}}
	rec := httptest.NewRecorder()

	newHTTPHandler(handler.Services{Trips: svc}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, rec).Code)
	assert.False(t, called)
}

// ---- error mapping ---------------------------------------------------------

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("svc: %w: title is required", domain.ErrValidation), http.StatusBadRequest, "validation_error"},
		{"forbidden", fmt.Errorf("svc: %w: role viewer may not view this trip", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"invalid credential", fmt.Errorf("svc: %w", credential.ErrMismatch), http.StatusForbidden, "invalid_credential"},
		{"trip not found", fmt.Errorf("svc: %w", domain.ErrTripNotFound), http.StatusNotFound, "trip_not_found"},
		{"transaction", fmt.Errorf("svc: %w: boom", domain.ErrTransaction), http.StatusInternalServerError, "transaction_failed"},
		{"unmapped", errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTripServicer{get: func(_ context.Context, _, _ uuid.UUID) (domain.TripWithRole, error) {
				return domain.TripWithRole{}, tc.err
			}}

			rec := do(t, newHTTPHandler(handler.Services{Trips: svc}), http.MethodGet, "/trips/"+uuid.NewString(), nil)

			assert.Equal(t, tc.wantStatus, rec.Code)
			detail := decodeError(t, rec)
			assert.Equal(t, tc.wantCode, detail.Code)
			assert.NotContains(t, detail.Message, "connection refused", "internals must not leak")
		})
	}
}

func TestErrorMapping_DetailMessage(t *testing.T) {
	svc := &mockTripServicer{get: func(_ context.Context, _, _ uuid.UUID) (domain.TripWithRole, error) {
		return domain.TripWithRole{}, fmt.Errorf("service.TripService.Get: %w: title is required", domain.ErrValidation)
	}}

	rec := do(t, newHTTPHandler(handler.Services{Trips: svc}), http.MethodGet, "/trips/"+uuid.NewString(), nil)

	assert.Equal(t, "title is required", decodeError(t, rec).Message)
}

func TestPathUUID_400WhenMalformed(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Services{}), http.MethodGet, "/trips/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "tripID")
}

func TestDecodeBody_413WhenTooLarge(t *testing.T) {
	h := middleware.NewMaxBodySizeHandler(64)(newHTTPHandler(handler.Services{}))
	req := newRequest(t, http.MethodPost, "/trips", `{"title":"`+strings.Repeat("x", 200)+`"}`)
	req.Header.Set(middleware.ActorHeader, actorID.String())
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large", decodeError(t, rec).Code)
}

func TestDecodeBody_RejectsUnknownFields(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Services{}), http.MethodPost, "/trips", `{"name":"old field"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "name")
}

func TestDecodeBody_RequiresBody(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Services{}), http.MethodPost, "/trips", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is required", decodeError(t, rec).Message)
}
