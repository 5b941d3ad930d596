package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Trip is the JSON representation of a trip. Role is the caller's role and
// is omitted where it is implied (create, update).
type Trip struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	FromDate    openapi_types.Date `json:"from_date"`
	ToDate      openapi_types.Date `json:"to_date"`
	Role        *domain.Role       `json:"role,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TripList is the body of GET /trips and POST /trips/search.
type TripList struct {
	Data       []Trip      `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the page returned by a paged listing.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// CreateTripRequest is the body of POST /trips.
type CreateTripRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"required,max=4000"`
	Location    string              `json:"location" validate:"required,max=200"`
	FromDate    *openapi_types.Date `json:"from_date" validate:"required"`
	ToDate      *openapi_types.Date `json:"to_date" validate:"required"`
}

// UpdateTripRequest is the body of PATCH /trips/{tripID}. Omitted fields
// are left unchanged.
type UpdateTripRequest struct {
	Title       *string             `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=4000"`
	Location    *string             `json:"location,omitempty" validate:"omitempty,max=200"`
	FromDate    *openapi_types.Date `json:"from_date,omitempty"`
	ToDate      *openapi_types.Date `json:"to_date,omitempty"`
}

// SearchTripsRequest is the body of POST /trips/search.
type SearchTripsRequest struct {
	Title    string              `json:"title,omitempty" validate:"max=200"`
	Location string              `json:"location,omitempty" validate:"max=200"`
	From     *openapi_types.Date `json:"from,omitempty"`
	To       *openapi_types.Date `json:"to,omitempty"`
	Page     *int                `json:"page,omitempty" validate:"omitempty,gte=1"`
	Limit    *int                `json:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// ListTrips handles GET /trips: every trip the caller holds a role on.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	trips, err := s.trips.ListVisible(r.Context(), actorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TripList{Data: tripsToResponse(trips)})
}

// CreateTrip handles POST /trips. The caller becomes the trip's Manager.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body CreateTripRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	created, err := s.trips.Create(r.Context(), actorID, domain.Trip{
		Title:       body.Title,
		Description: body.Description,
		Location:    body.Location,
		FromDate:    body.FromDate.Time,
		ToDate:      body.ToDate.Time,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/trips/"+created.ID.String())
	role := domain.RoleManager
	writeJSON(w, http.StatusCreated, tripToResponse(created, &role))
}

// SearchTrips handles POST /trips/search.
// Supports page and limit (defaults: page=1, limit=20, max=100). The page
// may also be given as ?page= and ?limit= query parameters.
func (s *Server) SearchTrips(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body SearchTripsRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if err := bindPageQuery(r, &body.Page, &body.Limit); err != nil {
		writeRequestError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := domain.TripFilter{Title: body.Title, Location: body.Location}
	if body.From != nil {
		filter.From = &body.From.Time
	}
	if body.To != nil {
		filter.To = &body.To.Time
	}
	params := domain.NewPaginationParams(body.Page, body.Limit)

	trips, total, err := s.trips.Search(r.Context(), actorID, filter, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, TripList{
		Data:       tripsToResponse(trips),
		Pagination: &Pagination{Page: params.Page, Limit: params.Limit, Total: total, HasMore: params.HasMore(total)},
	})
}

// GetTrip handles GET /trips/{tripID}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	trip, err := s.trips.Get(r.Context(), tripID, actorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip.Trip, &trip.Role))
}

// UpdateTrip handles PATCH /trips/{tripID}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var body UpdateTripRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	patch := domain.TripPatch{
		Title:       body.Title,
		Description: body.Description,
		Location:    body.Location,
	}
	if body.FromDate != nil {
		patch.FromDate = &body.FromDate.Time
	}
	if body.ToDate != nil {
		patch.ToDate = &body.ToDate.Time
	}

	updated, err := s.trips.Update(r.Context(), tripID, actorID, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated, nil))
}

// DeleteTrip handles DELETE /trips/{tripID}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	if err := s.trips.Delete(r.Context(), tripID, actorID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

// bindPageQuery lets ?page= and ?limit= override the body's paging fields.
func bindPageQuery(r *http.Request, page, limit **int) error {
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, page); err != nil {
		return err
	}
	return runtime.BindQueryParameter("form", true, false, "limit", q, limit)
}

// tripToResponse converts a domain.Trip into its JSON shape.
func tripToResponse(t domain.Trip, role *domain.Role) Trip {
	return Trip{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Location:    t.Location,
		FromDate:    openapi_types.Date{Time: t.FromDate},
		ToDate:      openapi_types.Date{Time: t.ToDate},
		Role:        role,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func tripsToResponse(trips []domain.TripWithRole) []Trip {
	out := make([]Trip, len(trips))
	for i, t := range trips {
		out[i] = tripToResponse(t.Trip, &t.Role)
	}
	return out
}
