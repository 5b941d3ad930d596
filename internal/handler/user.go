package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// User is the public JSON representation of a user. The credential hash is
// never included.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegisterUserRequest is the body of POST /users.
type RegisterUserRequest struct {
	Email       openapi_types.Email `json:"email" validate:"required,email"`
	DisplayName string              `json:"display_name,omitempty" validate:"max=100"`
	Password    string              `json:"password" validate:"required,min=8,maxbytes=72"`
}

// ChangePasswordRequest is the body of POST /users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,maxbytes=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// RegisterUser handles POST /users.
func (s *Server) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var body RegisterUserRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	u, err := s.users.Register(r.Context(), string(body.Email), body.DisplayName, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/users/"+u.ID.String())
	writeJSON(w, http.StatusCreated, userToResponse(u))
}

// ChangePassword handles POST /users/me/password. The acting user must supply
// their current password and a confirmation equal to the new one.
func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body ChangePasswordRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	if err := s.users.ChangePassword(r.Context(), actorID, body.CurrentPassword, body.NewPassword, body.ConfirmPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUser handles GET /users/{userID}.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	u, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}

// FindUserByEmail handles GET /users?email=, used to look up a collaborator
// before sharing a trip.
func (s *Server) FindUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeRequestError(w, http.StatusBadRequest, "query parameter email is required")
		return
	}
	u, err := s.users.GetByEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}

func userToResponse(u domain.User) User {
	return User{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}
