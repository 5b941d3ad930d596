package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ActorHeader carries the acting user's id. It is set by the upstream
// authentication gateway; token issuance happens outside this service.
const ActorHeader = "X-User-ID"

type actorKey struct{}

// RequireActor rejects requests without a well-formed ActorHeader with 401
// and stores the parsed id in the request context for ActorFrom.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(ActorHeader))
		if err != nil || id == uuid.Nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"unauthenticated","message":"missing or malformed X-User-ID header"}}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), id)))
	})
}

// WithActor returns a copy of ctx carrying id as the acting user.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the acting user stored by RequireActor.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}
