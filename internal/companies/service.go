// Package companies manages the tenant boundary. Creating a company is
// gated on an active subscription; the creator becomes its owner with every
// capability flag set.
package companies

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database"
	"github.com/tagvault/tagvault/internal/database/models"
	"gorm.io/gorm"
)

// SubscriptionChecker reports whether a user may create companies. Satisfied
// by the subscriptions service.
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Service struct {
	db    *gorm.DB
	subs  SubscriptionChecker
	audit *audit.Logger
}

func NewService(db *gorm.DB, subs SubscriptionChecker, auditLog *audit.Logger) *Service {
	return &Service{db: db, subs: subs, audit: auditLog}
}

// Create opens a new company. The caller must hold an active subscription
// (super admins are exempt) and becomes the A1 owner with all three flags.
func (s *Service) Create(ctx context.Context, actor authz.Actor, name string) (*models.Company, error) {
	if name == "" {
		return nil, apperr.Validation("company name is required")
	}

	if actor.Role != authz.RoleSuperAdmin {
		active, err := s.subs.HasActiveSubscription(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, apperr.Forbidden("an active subscription is required to create a company")
		}
	}

	company := models.Company{Name: name, IsActive: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.Conflict("company name already exists")
			}
			return err
		}
		membership := models.CompanyMembership{
			UserID:                    actor.ID,
			CompanyID:                 company.ID,
			Role:                      string(authz.RoleOwner),
			Status:                    models.MembershipActive,
			CanManageGovernmentAdmins: true,
			CanManageOperators:        true,
			CanDeleteGovernment:       true,
			JoinedAt:                  time.Now(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &company.ID,
		Action:     "COMPANY_CREATED",
		EntityType: "COMPANY",
		EntityID:   &company.ID,
		Details:    "Company " + company.Name + " created",
	})
	return &company, nil
}

// Update renames a company. Owner-with-flag or super admin only.
func (s *Service) Update(ctx context.Context, actor authz.Actor, companyID uuid.UUID, name string) (*models.Company, error) {
	if err := authz.Require(actor, authz.ActionManageCompany); err != nil {
		return nil, err
	}
	if !actor.InCompany(companyID) {
		return nil, authz.ErrCompanyScope(companyID)
	}
	if name == "" {
		return nil, apperr.Validation("company name is required")
	}

	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&company).Update("name", name).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.Conflict("company name already exists")
		}
		return nil, err
	}
	company.Name = name

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &company.ID,
		Action:     "COMPANY_UPDATED",
		EntityType: "COMPANY",
		EntityID:   &company.ID,
		Details:    "Company renamed to " + name,
	})
	return &company, nil
}

// Deactivate soft-disables a company. Requires the delete-government flag.
func (s *Service) Deactivate(ctx context.Context, actor authz.Actor, companyID uuid.UUID) error {
	if err := authz.Require(actor, authz.ActionDeleteCompany); err != nil {
		return err
	}
	if !actor.InCompany(companyID) {
		return authz.ErrCompanyScope(companyID)
	}

	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("company not found")
		}
		return err
	}
	if !company.IsActive {
		return apperr.Conflict("company is already deactivated")
	}

	if err := s.db.WithContext(ctx).Model(&company).Update("is_active", false).Error; err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &company.ID,
		Action:     "COMPANY_DEACTIVATED",
		EntityType: "COMPANY",
		EntityID:   &company.ID,
		Details:    "Company " + company.Name + " deactivated",
	})
	return nil
}

// List returns the companies the actor belongs to; super admins see all.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]models.Company, error) {
	var companies []models.Company
	query := s.db.WithContext(ctx).Model(&models.Company{})
	if actor.Role != authz.RoleSuperAdmin {
		query = query.
			Joins("JOIN company_memberships ON company_memberships.company_id = companies.id").
			Where("company_memberships.user_id = ? AND company_memberships.status = ?",
				actor.ID, models.MembershipActive)
	}
	err := query.Order("companies.created_at DESC").Find(&companies).Error
	return companies, err
}

// Get returns one company the actor can see.
func (s *Service) Get(ctx context.Context, actor authz.Actor, companyID uuid.UUID) (*models.Company, error) {
	if !actor.InCompany(companyID) {
		return nil, authz.ErrCompanyScope(companyID)
	}
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, err
	}
	return &company, nil
}

// WhoIs resolves a username to their membership in the company, so admins
// can see who holds which role.
func (s *Service) WhoIs(ctx context.Context, actor authz.Actor, companyID uuid.UUID, username string) (*models.User, *models.CompanyMembership, error) {
	if err := authz.Require(actor, authz.ActionManageUsers); err != nil {
		return nil, nil, err
	}
	if !actor.InCompany(companyID) {
		return nil, nil, authz.ErrCompanyScope(companyID)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("user not found")
		}
		return nil, nil, err
	}

	var membership models.CompanyMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", user.ID, companyID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("user is not a member of this company")
		}
		return nil, nil, err
	}
	return &user, &membership, nil
}

// Overview summarizes a company: member and asset counts by status.
type Overview struct {
	CompanyID    uuid.UUID `json:"company_id"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	MemberCount  int64     `json:"member_count"`
	AssetCount   int64     `json:"asset_count"`
	ActiveAssets int64     `json:"active_assets"`
	OnLoanAssets int64     `json:"on_loan_assets"`
}

func (s *Service) Overview(ctx context.Context, actor authz.Actor, companyID uuid.UUID) (*Overview, error) {
	company, err := s.Get(ctx, actor, companyID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	o := &Overview{CompanyID: company.ID, Name: company.Name, IsActive: company.IsActive}

	if err := db.Model(&models.CompanyMembership{}).
		Where("company_id = ? AND status = ?", companyID, models.MembershipActive).
		Count(&o.MemberCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Asset{}).
		Where("company_id = ?", companyID).
		Count(&o.AssetCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Asset{}).
		Where("company_id = ? AND status = ?", companyID, models.AssetStatusActive).
		Count(&o.ActiveAssets).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Asset{}).
		Where("company_id = ? AND status = ?", companyID, models.AssetStatusOnLoan).
		Count(&o.OnLoanAssets).Error; err != nil {
		return nil, err
	}
	return o, nil
}
