// Package users manages accounts inside a company: creation, updates,
// role changes, and removal, all bounded by the assigner's tier and flags.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database"
	"github.com/tagvault/tagvault/internal/database/models"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	audit *audit.Logger
}

func NewService(db *gorm.DB, auditLog *audit.Logger) *Service {
	return &Service{db: db, audit: auditLog}
}

type CreateInput struct {
	Username string
	Email    string
	Phone    string
	Password string
	Role     authz.Role
	Flags    authz.Flags
}

// CreateUser provisions an account directly into the actor's company. The
// target role must be assignable by the actor's tier; an A2 creator needs
// the manage-operators flag.
func (s *Service) CreateUser(ctx context.Context, actor authz.Actor, companyID uuid.UUID, input CreateInput) (*models.User, error) {
	if err := authz.Require(actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	if !actor.InCompany(companyID) {
		return nil, authz.ErrCompanyScope(companyID)
	}
	if err := authz.ValidateAssignment(actor.Role, input.Role); err != nil {
		return nil, err
	}
	if input.Username == "" || input.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if input.Email == "" && input.Phone == "" {
		return nil, apperr.Validation("at least one of email or phone must be provided")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     input.Username,
		PasswordHash: hash,
		IsActive:     true, // admin-provisioned accounts skip OTP activation
	}
	if input.Email != "" {
		user.Email = &input.Email
	}
	if input.Phone != "" {
		user.Phone = &input.Phone
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.Conflict("username, email, or phone already exists")
			}
			return err
		}
		membership := models.CompanyMembership{
			UserID:                    user.ID,
			CompanyID:                 companyID,
			Role:                      string(input.Role),
			Status:                    models.MembershipActive,
			CanManageGovernmentAdmins: input.Flags.ManageGovernmentAdmins,
			CanManageOperators:        input.Flags.ManageOperators,
			CanDeleteGovernment:       input.Flags.DeleteGovernment,
			InvitedByID:               &actor.ID,
			JoinedAt:                  time.Now(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &companyID,
		Action:     "USER_CREATED",
		EntityType: "USER",
		EntityID:   &user.ID,
		Details:    "User " + user.Username + " created with role " + string(input.Role),
	})
	return &user, nil
}

// UpdateInput carries only the fields present in the request.
type UpdateInput struct {
	Username *string
	Email    *string
	Phone    *string
	IsActive *bool
}

func (u UpdateInput) fieldNames() []string {
	var names []string
	if u.Username != nil {
		names = append(names, "username")
	}
	if u.Email != nil {
		names = append(names, "email")
	}
	if u.Phone != nil {
		names = append(names, "phone")
	}
	if u.IsActive != nil {
		names = append(names, "is_active")
	}
	return names
}

// UpdateUser applies a partial update after checking the touched fields
// against the actor's editable set and the target's role against the
// actor's tier.
func (s *Service) UpdateUser(ctx context.Context, actor authz.Actor, companyID, userID uuid.UUID, input UpdateInput) (*models.User, error) {
	if err := authz.Require(actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	if !actor.InCompany(companyID) {
		return nil, authz.ErrCompanyScope(companyID)
	}

	rules := authz.RulesFor(actor.Role, actor.Flags)
	if err := rules.ValidateEditable("users", input.fieldNames()); err != nil {
		return nil, err
	}

	user, membership, err := s.memberIn(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}

	targetRole, _ := authz.ParseRole(membership.Role)
	if err := authz.ValidateAssignment(actor.Role, targetRole); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Username != nil {
		updates["username"] = *input.Username
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.Conflict("username, email, or phone already exists")
		}
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &companyID,
		Action:     "USER_UPDATED",
		EntityType: "USER",
		EntityID:   &user.ID,
		Details:    "User " + user.Username + " updated",
	})
	return user, nil
}

// ChangeRole re-tiers a member. Both the current and the new role must be
// assignable by the actor; flags only stick for the A2 tier.
func (s *Service) ChangeRole(ctx context.Context, actor authz.Actor, companyID, userID uuid.UUID, newRole authz.Role, flags authz.Flags) (*models.CompanyMembership, error) {
	if err := authz.Require(actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}
	if !actor.InCompany(companyID) {
		return nil, authz.ErrCompanyScope(companyID)
	}

	user, membership, err := s.memberIn(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}

	currentRole, _ := authz.ParseRole(membership.Role)
	if err := authz.ValidateAssignment(actor.Role, currentRole); err != nil {
		return nil, err
	}
	if err := authz.ValidateAssignment(actor.Role, newRole); err != nil {
		return nil, err
	}

	if newRole != authz.RoleAdmin && newRole != authz.RoleOwner {
		flags = authz.Flags{}
	}
	if newRole == authz.RoleOwner {
		flags = authz.Flags{ManageGovernmentAdmins: true, ManageOperators: true, DeleteGovernment: true}
	}

	updates := map[string]any{
		"role":                         string(newRole),
		"can_manage_government_admins": flags.ManageGovernmentAdmins,
		"can_manage_operators":         flags.ManageOperators,
		"can_delete_government":        flags.DeleteGovernment,
	}
	if err := s.db.WithContext(ctx).Model(membership).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &companyID,
		Action:     "USER_ROLE_CHANGED",
		EntityType: "USER",
		EntityID:   &user.ID,
		Details:    "User " + user.Username + " role " + string(currentRole) + " -> " + string(newRole),
	})
	return membership, nil
}

// DeleteUser removes the membership and soft-deletes the account. The
// target's tier must be assignable by the actor.
func (s *Service) DeleteUser(ctx context.Context, actor authz.Actor, companyID, userID uuid.UUID) error {
	if err := authz.Require(actor, authz.ActionManageUsers); err != nil {
		return err
	}
	if !actor.InCompany(companyID) {
		return authz.ErrCompanyScope(companyID)
	}
	if actor.ID == userID {
		return apperr.Validation("cannot delete your own account")
	}

	user, membership, err := s.memberIn(ctx, companyID, userID)
	if err != nil {
		return err
	}

	targetRole, _ := authz.ParseRole(membership.Role)
	if err := authz.ValidateAssignment(actor.Role, targetRole); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(membership).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &companyID,
		Action:     "USER_DELETED",
		EntityType: "USER",
		EntityID:   &userID,
		Details:    "User " + user.Username + " removed",
	})
	return nil
}

// ListUsers returns the company's members with their memberships, page size
// capped by the actor's role limit.
func (s *Service) ListUsers(ctx context.Context, actor authz.Actor, companyID uuid.UUID, page, perPage int) ([]models.CompanyMembership, int64, error) {
	if err := authz.Require(actor, authz.ActionManageUsers); err != nil {
		return nil, 0, err
	}
	if !actor.InCompany(companyID) {
		return nil, 0, authz.ErrCompanyScope(companyID)
	}

	query := s.db.WithContext(ctx).Model(&models.CompanyMembership{}).
		Where("company_id = ?", companyID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	perPage = authz.RulesFor(actor.Role, actor.Flags).CapPageSize(perPage)
	if perPage < 1 {
		perPage = 20
	}

	var rows []models.CompanyMembership
	err := query.
		Preload("User").
		Order("joined_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	return rows, total, err
}

// Profile is the caller's own account with their memberships.
type Profile struct {
	User        *models.User               `json:"user"`
	Memberships []models.CompanyMembership `json:"memberships"`
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Memberships").
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &Profile{User: &user, Memberships: user.Memberships}, nil
}

func (s *Service) memberIn(ctx context.Context, companyID, userID uuid.UUID) (*models.User, *models.CompanyMembership, error) {
	var membership models.CompanyMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("user is not a member of this company")
		}
		return nil, nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("user not found")
		}
		return nil, nil, err
	}
	return &user, &membership, nil
}
