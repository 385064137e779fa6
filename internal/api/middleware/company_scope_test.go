package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/testutil"
)

type whoamiResponse struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
	ManageOps bool   `json:"manage_operators"`
}

func TestCompanyScope_RescopesSecondaryMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	jwtService := testutil.CreateTestJWTService()
	authService := auth.NewService(
		db,
		jwtService,
		testutil.TestAuthConfig(),
		testutil.NewTestAuditLogger(t, db),
		nil,
		testutil.NewTestLogger(),
	)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtService, authService))
		r.Route("/companies/{companyID}", func(r chi.Router) {
			r.Use(middleware.CompanyScope(authService))
			r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
				actor := middleware.GetActor(req.Context())
				out := whoamiResponse{Role: string(actor.Role), ManageOps: actor.Flags.ManageOperators}
				if actor.CompanyID != nil {
					out.CompanyID = actor.CompanyID.String()
				}
				_ = json.NewEncoder(w).Encode(out)
			})
		})
	})

	companyA := testutil.CreateTestCompany(t, db)
	companyB := testutil.CreateTestCompany(t, db)
	user := testutil.CreateTestUser(t, db, companyA, authz.RoleOperator)

	secondary := &models.CompanyMembership{
		Base:               models.Base{ID: uuid.New()},
		UserID:             user.ID,
		CompanyID:          companyB.ID,
		Role:               string(authz.RoleAdmin),
		Status:             models.MembershipActive,
		JoinedAt:           time.Now(),
		CanManageOperators: true,
	}
	if err := db.Create(secondary).Error; err != nil {
		t.Fatalf("failed to create secondary membership: %v", err)
	}

	token := testutil.GenerateTestToken(t, jwtService, user)

	whoami := func(t *testing.T, companyID uuid.UUID) whoamiResponse {
		t.Helper()
		req := testutil.AuthenticatedRequest(t, "GET",
			"/companies/"+companyID.String()+"/whoami", nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var out whoamiResponse
		testutil.ParseJSONResponse(t, rr, &out)
		return out
	}

	t.Run("operator scope in the first company", func(t *testing.T) {
		out := whoami(t, companyA.ID)
		if out.Role != string(authz.RoleOperator) {
			t.Errorf("expected role %s, got %s", authz.RoleOperator, out.Role)
		}
		if out.CompanyID != companyA.ID.String() {
			t.Errorf("expected company %s, got %s", companyA.ID, out.CompanyID)
		}
		if out.ManageOps {
			t.Error("operator scope must not carry the manage-operators flag")
		}
	})

	t.Run("admin scope and flags in the second company", func(t *testing.T) {
		out := whoami(t, companyB.ID)
		if out.Role != string(authz.RoleAdmin) {
			t.Errorf("expected role %s, got %s", authz.RoleAdmin, out.Role)
		}
		if out.CompanyID != companyB.ID.String() {
			t.Errorf("expected company %s, got %s", companyB.ID, out.CompanyID)
		}
		if !out.ManageOps {
			t.Error("admin scope should carry the manage-operators flag")
		}
	})

	t.Run("non-member scope is left unchanged", func(t *testing.T) {
		stranger := testutil.CreateTestCompany(t, db)
		out := whoami(t, stranger.ID)
		if out.CompanyID == stranger.ID.String() {
			t.Error("actor must not be scoped into a company without a membership")
		}
	})
}
