package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database with all migrations.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMembership{},
		&models.Subscription{},
		&models.AssetCategory{},
		&models.Asset{},
		&models.AssetStatusHistory{},
		&models.AssetLocation{},
		&models.AssetLoan{},
		&models.WorkFlow{},
		&models.Log{},
		&models.OtpToken{},
		&models.ResetCode{},
		&models.LoginAttempt{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection.
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// TestAuthConfig returns an auth config with the production defaults.
func TestAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		Secret:                   "test-secret-key-for-testing",
		SessionExpiryHours:       4,
		LoginExpiryHours:         24,
		PaymentExpiryMins:        10,
		OtpExpiryMins:            10,
		ResetCodeExpiryMins:      10,
		EmailResetCodeExpiryMins: 3,
		MaxLoginAttempts:         10,
		AttemptWindowMins:        30,
		LoginBanHours:            5,
	}
}

// CreateTestJWTService creates a JWT service for testing.
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing")
}

// CreateTestCompany creates an active company with a unique name.
func CreateTestCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()

	company := &models.Company{
		Base:     models.Base{ID: uuid.New()},
		Name:     "Test Company " + uuid.New().String()[:8],
		IsActive: true,
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}
	return company
}

// CreateTestUser creates an active user with a membership in the company at
// the given role. Owner memberships get all three capability flags.
func CreateTestUser(t *testing.T, db *gorm.DB, company *models.Company, role authz.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	email := "test-" + uuid.New().String()[:8] + "@example.com"
	user := &models.User{
		Base:         models.Base{ID: uuid.New()},
		Username:     "user-" + uuid.New().String()[:8],
		Email:        &email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	if company != nil {
		membership := &models.CompanyMembership{
			Base:      models.Base{ID: uuid.New()},
			UserID:    user.ID,
			CompanyID: company.ID,
			Role:      string(role),
			Status:    models.MembershipActive,
			JoinedAt:  time.Now(),
		}
		if role == authz.RoleOwner {
			membership.CanManageGovernmentAdmins = true
			membership.CanManageOperators = true
			membership.CanDeleteGovernment = true
		}
		if err := db.Create(membership).Error; err != nil {
			t.Fatalf("failed to create test membership: %v", err)
		}
	}
	return user
}

// TestActor builds the authz identity for a user in a company.
func TestActor(t *testing.T, db *gorm.DB, user *models.User, company *models.Company, role authz.Role) authz.Actor {
	t.Helper()

	actor := authz.Actor{
		ID:       user.ID,
		Username: user.Username,
		Active:   user.IsActive,
		Premium:  user.IsPremium,
		Role:     role,
	}
	if user.Email != nil {
		actor.Email = *user.Email
	}
	if company != nil {
		companyID := company.ID
		actor.CompanyID = &companyID
	}
	if role == authz.RoleOwner {
		actor.Flags = authz.Flags{ManageGovernmentAdmins: true, ManageOperators: true, DeleteGovernment: true}
	}
	return actor
}

// CreateTestCategory creates an asset category with unique name and code.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.AssetCategory {
	t.Helper()

	category := &models.AssetCategory{
		Base: models.Base{ID: uuid.New()},
		Name: "Category " + uuid.New().String()[:8],
		Code: int(time.Now().UnixNano() % 1000000),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestAsset creates an active asset with unique code and RFID tag.
func CreateTestAsset(t *testing.T, db *gorm.DB, companyID, categoryID uuid.UUID) *models.Asset {
	t.Helper()

	suffix := uuid.New().String()[:8]
	now := time.Now()
	asset := &models.Asset{
		Base:             models.Base{ID: uuid.New()},
		CompanyID:        companyID,
		CategoryID:       categoryID,
		Code:             "P-" + suffix,
		RFIDTag:          "RFID-" + suffix,
		Name:             "Test Asset " + suffix,
		Location:         "Warehouse A",
		Status:           models.AssetStatusActive,
		RegistrationDate: &now,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// GenerateTestToken generates a valid bearer token for the given user.
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Username, user.IsPremium, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication.
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication.
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct.
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestAuditLogger builds an audit logger writing to the test database.
func NewTestAuditLogger(t *testing.T, db *gorm.DB) *audit.Logger {
	t.Helper()
	return audit.NewLogger(db, NewTestLogger())
}

// TestSetup holds the common test dependencies.
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Company    *models.Company
	Owner      *models.User
	Actor      authz.Actor
	Token      string
}

// NewTestContext creates a complete setup: DB, company, owner, and token.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	company := CreateTestCompany(t, db)
	owner := CreateTestUser(t, db, company, authz.RoleOwner)
	token := GenerateTestToken(t, jwtService, owner)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Company:    company,
		Owner:      owner,
		Actor:      TestActor(t, db, owner, company, authz.RoleOwner),
		Token:      token,
	}
}

// Cleanup closes the test database.
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
