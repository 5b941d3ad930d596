package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Member is the JSON representation of a trip membership.
type Member struct {
	UserID      uuid.UUID   `json:"user_id"`
	Email       string      `json:"email,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MemberList is the body of GET /trips/{tripID}/members.
type MemberList struct {
	Data []Member `json:"data"`
}

// GrantMemberRequest is the body of POST /trips/{tripID}/members.
type GrantMemberRequest struct {
	Email openapi_types.Email `json:"email" validate:"required,email"`
	Role  domain.Role         `json:"role" validate:"required"`
}

// ChangeMemberRoleRequest is the body of PATCH /trips/{tripID}/members/{userID}.
type ChangeMemberRoleRequest struct {
	Role domain.Role `json:"role" validate:"required"`
}

// ListMembers handles GET /trips/{tripID}/members. The caller is listed first.
func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	members, err := s.memberships.List(r.Context(), tripID, actorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]Member, len(members))
	for i, m := range members {
		out[i] = memberToResponse(m)
	}
	writeJSON(w, http.StatusOK, MemberList{Data: out})
}

// GrantMember handles POST /trips/{tripID}/members.
func (s *Server) GrantMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var body GrantMemberRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	m, err := s.memberships.Grant(r.Context(), tripID, actorID, string(body.Email), body.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberToResponse(m))
}

// ChangeMemberRole handles PATCH /trips/{tripID}/members/{userID}.
func (s *Server) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	var body ChangeMemberRoleRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	m, err := s.memberships.ChangeRole(r.Context(), tripID, actorID, userID, body.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberToResponse(m))
}

// RevokeMember handles DELETE /trips/{tripID}/members/{userID}.
func (s *Server) RevokeMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	if err := s.memberships.Revoke(r.Context(), tripID, actorID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func memberToResponse(m domain.Membership) Member {
	return Member{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		CreatedAt:   m.CreatedAt,
	}
}
