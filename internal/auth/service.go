package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/tasks"
	"github.com/tagvault/tagvault/pkg/config"
	"gorm.io/gorm"
)

// TaskEnqueuer is satisfied by *asynq.Client. A nil enqueuer makes the
// service fall back to logging codes, which is the development behavior.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Service struct {
	db       *gorm.DB
	jwt      *JWTService
	cfg      *config.AuthConfig
	audit    *audit.Logger
	enqueuer TaskEnqueuer
	logger   *slog.Logger
}

func NewService(db *gorm.DB, jwt *JWTService, cfg *config.AuthConfig, auditLog *audit.Logger, enqueuer TaskEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		jwt:      jwt,
		cfg:      cfg,
		audit:    auditLog,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

type VerifyOtpInput struct {
	UserID       uuid.UUID
	Code         string
	SessionToken string
}

// Challenge is the response to signup and the first login step. It never
// contains a bearer credential: the caller must come back with the code.
type Challenge struct {
	UserID       uuid.UUID `json:"user_id"`
	SessionToken string    `json:"session_token"`
}

// Signup creates an inactive user and issues an OTP challenge. The account
// stays unusable until the first successful code verification.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*models.User, *Challenge, error) {
	if input.Username == "" || input.Password == "" {
		return nil, nil, apperr.Validation("username and password are required")
	}
	if input.Email == "" && input.Phone == "" {
		return nil, nil, apperr.Validation("at least one of email or phone must be provided")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, apperr.Conflict("username already exists")
	}
	if input.Email != "" {
		if err := db.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
			return nil, nil, err
		}
		if count > 0 {
			return nil, nil, apperr.Conflict("email already exists")
		}
	}
	if input.Phone != "" {
		if err := db.Model(&models.User{}).Where("phone = ?", input.Phone).Count(&count).Error; err != nil {
			return nil, nil, err
		}
		if count > 0 {
			return nil, nil, apperr.Conflict("phone number already exists")
		}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	user := models.User{
		Username:     input.Username,
		PasswordHash: hash,
		IsActive:     false,
	}
	if input.Email != "" {
		user.Email = &input.Email
	}
	if input.Phone != "" {
		user.Phone = &input.Phone
	}

	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, apperr.Conflict("user already exists")
		}
		return nil, nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &user.ID,
		Action:     "USER_SIGNUP",
		EntityType: "USER",
		EntityID:   &user.ID,
		Details:    "User " + user.Username + " signed up",
	})

	challenge, err := s.issueChallenge(ctx, &user)
	if err != nil {
		return nil, nil, err
	}
	return &user, challenge, nil
}

// Login verifies the password and issues an OTP challenge. No bearer
// credential is returned here; step two is VerifyOtp.
func (s *Service) Login(ctx context.Context, username, password, ip string) (*Challenge, error) {
	if err := s.checkThrottle(ctx, ip); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	valid := err == nil && CheckPassword(password, user.PasswordHash)

	s.recordAttempt(ctx, ip, username, valid)

	if !valid {
		s.audit.Log(ctx, audit.Entry{
			Action:  "LOGIN_FAILED",
			Details: "Failed login for " + username,
		})
		return nil, apperr.Unauthorized("invalid username or password")
	}

	challenge, err := s.issueChallenge(ctx, &user)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:  &user.ID,
		Action:  "LOGIN_ATTEMPT",
		Details: "Login OTP sent for " + username,
	})
	return challenge, nil
}

// VerifyOtp completes the two-step login: code and session token must match
// an unused, unexpired challenge. First verification activates the account.
func (s *Service) VerifyOtp(ctx context.Context, input VerifyOtpInput, ip string) (string, error) {
	if err := s.checkThrottle(ctx, ip); err != nil {
		return "", err
	}

	var otp models.OtpToken
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND session_token = ? AND used = ? AND expires_at > ?",
			input.UserID, input.Code, input.SessionToken, false, time.Now()).
		First(&otp).Error
	if err != nil {
		s.recordAttempt(ctx, ip, "", false)
		return "", apperr.Unauthorized("invalid, expired, or incorrect OTP/session")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", input.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("user not found")
		}
		return "", err
	}

	activated := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&otp).Update("used", true).Error; err != nil {
			return err
		}
		if !user.IsActive {
			activated = true
			user.IsActive = true
			return tx.Model(&user).Update("is_active", true).Error
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if activated {
		s.audit.Log(ctx, audit.Entry{
			UserID:     &user.ID,
			Action:     "USER_ACTIVATED",
			EntityType: "USER",
			EntityID:   &user.ID,
			Details:    "User " + user.Username + " activated",
		})
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, user.IsPremium, s.cfg.LoginExpiry())
	if err != nil {
		return "", err
	}

	s.recordAttempt(ctx, ip, user.Username, true)
	s.audit.Log(ctx, audit.Entry{
		UserID:  &user.ID,
		Action:  "LOGIN_SUCCESS",
		Details: "User " + user.Username + " logged in",
	})
	return token, nil
}

// RequestResetCode issues a single-use numeric reset code for the user
// matching identifier (username, email, or phone). The email-delivered flow
// uses a shorter expiry window than the identifier flow.
func (s *Service) RequestResetCode(ctx context.Context, identifier string) error {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ? OR phone = ?", identifier, identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}

	expiry := s.cfg.ResetCodeExpiry()
	if user.Email != nil {
		expiry = s.cfg.EmailResetCodeExpiry()
	}

	reset := models.ResetCode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(expiry),
	}
	if err := s.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:  &user.ID,
		Action:  "RESET_CODE_REQUEST",
		Details: "Reset code requested for " + user.Username,
	})

	expiryMins := int(expiry / time.Minute)
	if user.Email != nil && s.enqueuer != nil {
		task, err := tasks.NewResetMailTask(tasks.ResetMailPayload{
			UserID:        user.ID,
			Email:         *user.Email,
			Code:          code,
			ExpiryMinutes: expiryMins,
		})
		if err != nil {
			return err
		}
		if _, err := s.enqueuer.Enqueue(task); err != nil {
			return err
		}
		return nil
	}

	s.logger.Info("reset code issued", "user_id", user.ID, "code", code, "expires_in_min", expiryMins)
	return nil
}

// ConfirmReset consumes an unexpired, unused reset code and sets the new
// password. The code is invalidated even for the same caller.
func (s *Service) ConfirmReset(ctx context.Context, userID uuid.UUID, code, newPassword string) error {
	if newPassword == "" {
		return apperr.Validation("new password is required")
	}

	var reset models.ResetCode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND used = ? AND expires_at > ?", userID, code, false, time.Now()).
		First(&reset).Error
	if err != nil {
		return apperr.Unauthorized("invalid or expired reset code")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&reset).Update("used", true).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("password_hash", hash).Error
	})
	if err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:  &user.ID,
		Action:  "PASSWORD_RESET",
		Details: "Password reset for " + user.Username,
	})
	return nil
}

// ResolveActor re-reads the caller's identity and primary membership from
// storage. Claims only prove who the caller is; role and company always
// come from the database.
func (s *Service) ResolveActor(ctx context.Context, userID uuid.UUID) (authz.Actor, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Memberships", "status = ?", models.MembershipActive).
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Actor{}, apperr.Unauthorized("user not found")
		}
		return authz.Actor{}, err
	}

	actor := authz.Actor{
		ID:       user.ID,
		Username: user.Username,
		Active:   user.IsActive,
		Premium:  user.IsPremium,
		Role:     authz.RoleOperator,
	}
	if user.Email != nil {
		actor.Email = *user.Email
	}
	if user.Phone != nil {
		actor.Phone = *user.Phone
	}

	if len(user.Memberships) > 0 {
		m := user.Memberships[0]
		role, err := authz.ParseRole(m.Role)
		if err == nil {
			actor.Role = role
		}
		companyID := m.CompanyID
		actor.CompanyID = &companyID
		actor.Flags = authz.Flags{
			ManageGovernmentAdmins: m.CanManageGovernmentAdmins,
			ManageOperators:        m.CanManageOperators,
			DeleteGovernment:       m.CanDeleteGovernment,
		}
	}
	return actor, nil
}

// MembershipIn returns the actor's membership in a specific company, which
// carries the role and flags scoped to that company.
func (s *Service) MembershipIn(ctx context.Context, userID, companyID uuid.UUID) (*models.CompanyMembership, error) {
	var m models.CompanyMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("user not associated with this company")
		}
		return nil, err
	}
	return &m, nil
}

func (s *Service) issueChallenge(ctx context.Context, user *models.User) (*Challenge, error) {
	code, err := generateOtpCode()
	if err != nil {
		return nil, err
	}
	sessionToken, err := generateSessionToken()
	if err != nil {
		return nil, err
	}

	identifier := user.Username
	if user.Email != nil {
		identifier = *user.Email
	} else if user.Phone != nil {
		identifier = *user.Phone
	}

	otp := models.OtpToken{
		UserID:       user.ID,
		Identifier:   identifier,
		Code:         code,
		SessionToken: sessionToken,
		ExpiresAt:    time.Now().Add(s.cfg.OtpExpiry()),
	}
	if err := s.db.WithContext(ctx).Create(&otp).Error; err != nil {
		return nil, err
	}

	expiryMins := s.cfg.OtpExpiryMins
	if user.Email != nil && s.enqueuer != nil {
		task, err := tasks.NewOtpMailTask(tasks.OtpMailPayload{
			UserID:        user.ID,
			Email:         *user.Email,
			Code:          code,
			ExpiryMinutes: expiryMins,
		})
		if err != nil {
			return nil, err
		}
		if _, err := s.enqueuer.Enqueue(task); err != nil {
			return nil, err
		}
	} else {
		s.logger.Info("otp issued", "user_id", user.ID, "code", code, "expires_in_min", expiryMins)
	}

	return &Challenge{UserID: user.ID, SessionToken: sessionToken}, nil
}

// checkThrottle rejects callers whose address has crossed the attempt
// threshold within the rolling window, regardless of credential validity.
func (s *Service) checkThrottle(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.LoginAttempt{}).
		Where("ip_address = ? AND created_at > ?", ip, time.Now().Add(-s.cfg.AttemptWindow())).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count >= int64(s.cfg.MaxLoginAttempts) {
		return apperr.Forbidden("too many attempts, address banned for %d hours", s.cfg.LoginBanHours)
	}
	return nil
}

func (s *Service) recordAttempt(ctx context.Context, ip, username string, successful bool) {
	if ip == "" {
		return
	}
	attempt := models.LoginAttempt{
		IPAddress:  ip,
		Username:   username,
		Successful: successful,
	}
	if err := s.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		s.logger.Error("failed to record login attempt", "error", err)
	}
}
