package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// AttachedActivity is the body returned by POST /trips/{tripID}/activities.
type AttachedActivity struct {
	ActivityRef string    `json:"activity_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityList is the body of GET /trips/{tripID}/activities.
type ActivityList struct {
	Data []domain.Activity `json:"data"`
}

// AttachActivityRequest is the body of POST /trips/{tripID}/activities.
type AttachActivityRequest struct {
	ActivityRef string `json:"activity_ref" validate:"required,max=255"`
}

// ListActivities handles GET /trips/{tripID}/activities. Each entry carries
// gateway metadata, or placeholder values with resolved=false.
func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	activities, err := s.activities.List(r.Context(), tripID, actorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityList{Data: activities})
}

// AttachActivity handles POST /trips/{tripID}/activities.
func (s *Server) AttachActivity(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var body AttachActivityRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	a, err := s.activities.Attach(r.Context(), tripID, actorID, body.ActivityRef)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AttachedActivity{ActivityRef: a.ActivityRef, CreatedAt: a.CreatedAt})
}

// DetachActivity handles DELETE /trips/{tripID}/activities/{activityRef}.
func (s *Server) DetachActivity(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	ref, ok := pathText(w, r, "activityRef")
	if !ok {
		return
	}

	if err := s.activities.Detach(r.Context(), tripID, actorID, ref); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
