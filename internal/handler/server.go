// Package handler implements the HTTP handlers for the trip planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/middleware"
)

// TripServicer defines the trip lifecycle operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, creatorID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	Get(ctx context.Context, tripID, actorID uuid.UUID) (domain.TripWithRole, error)
	Update(ctx context.Context, tripID, actorID uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	Delete(ctx context.Context, tripID, actorID uuid.UUID) error
	ListVisible(ctx context.Context, userID uuid.UUID) ([]domain.TripWithRole, error)
	Search(ctx context.Context, userID uuid.UUID, f domain.TripFilter, p domain.PaginationParams) ([]domain.TripWithRole, int64, error)
}

// MembershipServicer defines the trip-sharing operations.
type MembershipServicer interface {
	Grant(ctx context.Context, tripID, actorID uuid.UUID, email string, role domain.Role) (domain.Membership, error)
	ChangeRole(ctx context.Context, tripID, actorID, targetID uuid.UUID, role domain.Role) (domain.Membership, error)
	Revoke(ctx context.Context, tripID, actorID, targetID uuid.UUID) error
	List(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Membership, error)
}

// ActivityServicer defines the activity attachment operations.
type ActivityServicer interface {
	Attach(ctx context.Context, tripID, actorID uuid.UUID, ref string) (domain.TripActivity, error)
	Detach(ctx context.Context, tripID, actorID uuid.UUID, ref string) error
	List(ctx context.Context, tripID, actorID uuid.UUID) ([]domain.Activity, error)
}

// UserServicer defines the identity operations.
type UserServicer interface {
	Register(ctx context.Context, email, displayName, password string) (domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword, confirmation string) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// Services groups the dependencies of Server.
type Services struct {
	Trips       TripServicer
	Memberships MembershipServicer
	Activities  ActivityServicer
	Users       UserServicer
}

// Server serves every API endpoint.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	trips       TripServicer
	memberships MembershipServicer
	activities  ActivityServicer
	users       UserServicer
	validate    *validator
	logger      *slog.Logger
	openAPI     []byte
}

// NewServer constructs the Server with all its dependencies. openAPI is the
// document served at /openapi.yaml.
func NewServer(svc Services, openAPI []byte, logger *slog.Logger) *Server {
	return &Server{
		trips:       svc.Trips,
		memberships: svc.Memberships,
		activities:  svc.Activities,
		users:       svc.Users,
		validate:    newValidator(),
		logger:      logger,
		openAPI:     openAPI,
	}
}

// Routes returns the API router. Registration, password reset, health and
// the OpenAPI document are public; every other route requires the
// acting-user header.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Post("/users", s.RegisterUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor)

		r.Get("/users", s.FindUserByEmail)
		r.Post("/users/me/password", s.ChangePassword)
		r.Get("/users/{userID}", s.GetUser)

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListTrips)
			r.Post("/", s.CreateTrip)
			r.Post("/search", s.SearchTrips)

			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Patch("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)

				r.Get("/members", s.ListMembers)
				r.Post("/members", s.GrantMember)
				r.Patch("/members/{userID}", s.ChangeMemberRole)
				r.Delete("/members/{userID}", s.RevokeMember)

				r.Get("/activities", s.ListActivities)
				r.Post("/activities", s.AttachActivity)
				r.Delete("/activities/{activityRef}", s.DetachActivity)
			})
		})
	})

	return r
}
