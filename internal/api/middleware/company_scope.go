package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
)

// MembershipResolver looks up a user's membership in one specific company.
// Satisfied by the auth service.
type MembershipResolver interface {
	MembershipIn(ctx context.Context, userID, companyID uuid.UUID) (*models.CompanyMembership, error)
}

// CompanyScope re-scopes the actor to the company addressed in the URL.
// Auth resolves the primary membership only; a user who belongs to several
// companies gets the role and flags of the company they are actually
// addressing. Non-members pass through unchanged and fail the services'
// own company checks.
func CompanyScope(resolver MembershipResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActor(r.Context())
			companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
			if err != nil || actor.InCompany(companyID) {
				next.ServeHTTP(w, r)
				return
			}

			m, err := resolver.MembershipIn(r.Context(), actor.ID, companyID)
			if err != nil || m.Status != models.MembershipActive {
				next.ServeHTTP(w, r)
				return
			}

			if role, perr := authz.ParseRole(m.Role); perr == nil {
				actor.Role = role
			}
			scoped := m.CompanyID
			actor.CompanyID = &scoped
			actor.Flags = authz.Flags{
				ManageGovernmentAdmins: m.CanManageGovernmentAdmins,
				ManageOperators:        m.CanManageOperators,
				DeleteGovernment:       m.CanDeleteGovernment,
			}

			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
