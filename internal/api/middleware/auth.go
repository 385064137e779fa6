package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/authz"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	ActorKey  contextKey = "actor"
)

// ActorResolver re-reads the caller's role and company from storage for
// every request. Satisfied by the auth service.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (authz.Actor, error)
}

// Auth validates the bearer token and resolves the caller into an Actor.
// Claims only identify the user; role, flags, and company scope come from
// the database on each request.
func Auth(jwtService *auth.JWTService, resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if token == "" {
				token = r.Header.Get("X-Auth-Token")
			}
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), claims.UserID)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !actor.Active {
				http.Error(w, "Account is not active", http.StatusForbidden)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ActorKey, actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetActor(ctx context.Context) authz.Actor {
	if actor, ok := ctx.Value(ActorKey).(authz.Actor); ok {
		return actor
	}
	return authz.Actor{}
}
