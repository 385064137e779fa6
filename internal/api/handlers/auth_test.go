package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tagvault/tagvault/internal/api/dto"
	"github.com/tagvault/tagvault/internal/api/handlers"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/testutil"
	"gorm.io/gorm"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	authService := auth.NewService(
		db,
		testutil.CreateTestJWTService(),
		testutil.TestAuthConfig(),
		testutil.NewTestAuditLogger(t, db),
		nil,
		testutil.NewTestLogger(),
	)
	handler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/signup", handler.Signup)
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/verify-otp", handler.VerifyOtp)
	r.Post("/api/v1/auth/reset/request", handler.RequestReset)
	r.Post("/api/v1/auth/reset/confirm", handler.ConfirmReset)

	return r, db
}

func TestAuthHandler_Signup(t *testing.T) {
	router, db := setupAuthTestRouter(t)

	t.Run("successful signup returns challenge", func(t *testing.T) {
		body := map[string]string{
			"username": "newuser",
			"email":    "newuser@example.com",
			"password": "securepass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.ChallengeResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		if resp.SessionToken == "" {
			t.Error("expected a session token in the challenge")
		}
		if resp.UserID == "" {
			t.Error("expected the user id in the challenge")
		}

		var user models.User
		if err := db.Where("username = ?", "newuser").First(&user).Error; err != nil {
			t.Fatalf("user not created: %v", err)
		}
		if user.IsActive {
			t.Error("signup must not activate the account before OTP verification")
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := map[string]string{
			"username": "newuser",
			"email":    "other@example.com",
			"password": "securepass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("weak password", func(t *testing.T) {
		body := map[string]string{
			"username": "weakling",
			"email":    "weak@example.com",
			"password": "short",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("missing contact detail", func(t *testing.T) {
		body := map[string]string{
			"username": "nocontact",
			"password": "securepass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestAuthHandler_LoginAndVerify(t *testing.T) {
	router, db := setupAuthTestRouter(t)

	signupBody := map[string]string{
		"username": "logintest",
		"email":    "logintest@example.com",
		"password": "securepass123",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", signupBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	t.Run("login returns challenge not token", func(t *testing.T) {
		body := map[string]string{
			"username": "logintest",
			"password": "securepass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.ChallengeResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		if resp.SessionToken == "" {
			t.Error("expected a session token")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{
			"username": "logintest",
			"password": "wrongpassword1",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("verify-otp completes the handshake", func(t *testing.T) {
		body := map[string]string{
			"username": "logintest",
			"password": "securepass123",
		}
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var challenge dto.ChallengeResponse
		testutil.ParseJSONResponse(t, rr, &challenge)

		var otp models.OtpToken
		if err := db.Where("session_token = ?", challenge.SessionToken).First(&otp).Error; err != nil {
			t.Fatalf("otp token not stored: %v", err)
		}

		verifyBody := map[string]string{
			"user_id":       challenge.UserID,
			"code":          otp.Code,
			"session_token": challenge.SessionToken,
		}
		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/verify-otp", verifyBody)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var token dto.TokenResponse
		testutil.ParseJSONResponse(t, rr, &token)
		if token.Token == "" {
			t.Error("expected a bearer token after verification")
		}
	})

	t.Run("wrong code is unauthorized", func(t *testing.T) {
		body := map[string]string{
			"username": "logintest",
			"password": "securepass123",
		}
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var challenge dto.ChallengeResponse
		testutil.ParseJSONResponse(t, rr, &challenge)

		verifyBody := map[string]string{
			"user_id":       challenge.UserID,
			"code":          "ffffff",
			"session_token": challenge.SessionToken,
		}
		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/verify-otp", verifyBody)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	router, db := setupAuthTestRouter(t)

	signupBody := map[string]string{
		"username": "resetme",
		"email":    "resetme@example.com",
		"password": "securepass123",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", signupBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	t.Run("request and confirm", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/reset/request",
			map[string]string{"identifier": "resetme@example.com"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var user models.User
		if err := db.Where("username = ?", "resetme").First(&user).Error; err != nil {
			t.Fatalf("user lookup failed: %v", err)
		}
		var reset models.ResetCode
		if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").First(&reset).Error; err != nil {
			t.Fatalf("reset code not stored: %v", err)
		}

		confirmBody := map[string]string{
			"user_id":      user.ID.String(),
			"code":         reset.Code,
			"new_password": "freshpass456",
		}
		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/reset/confirm", confirmBody)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		loginBody := map[string]string{
			"username": "resetme",
			"password": "freshpass456",
		}
		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", loginBody)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/reset/request",
			map[string]string{"identifier": "ghost@example.com"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
