// Package subscriptions sells the premium plans that gate company creation.
// Payment is a two-step handshake: a pending subscription with a short-lived
// payment token, then verification flips it active and promotes the user.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/pkg/config"
	"gorm.io/gorm"
)

// Plan is a purchasable tier. Prices are stored in the smallest currency
// unit.
type Plan struct {
	Type     string        `json:"type"`
	Price    int64         `json:"price"`
	Duration time.Duration `json:"-"`
}

var plans = map[string]Plan{
	"6month":    {Type: "6month", Price: 3000000, Duration: 180 * 24 * time.Hour},
	"yearly":    {Type: "yearly", Price: 6000000, Duration: 365 * 24 * time.Hour},
	"unlimited": {Type: "unlimited", Price: 20000000, Duration: 3650 * 24 * time.Hour},
}

// Plans returns the purchasable tiers.
func Plans() []Plan {
	return []Plan{plans["6month"], plans["yearly"], plans["unlimited"]}
}

type Service struct {
	db         *gorm.DB
	jwt        *auth.JWTService
	cfg        *config.AuthConfig
	audit      *audit.Logger
	paymentURL string
}

func NewService(db *gorm.DB, jwt *auth.JWTService, cfg *config.AuthConfig, auditLog *audit.Logger, paymentURL string) *Service {
	if paymentURL == "" {
		paymentURL = "https://pay.tagvault.local/checkout"
	}
	return &Service{db: db, jwt: jwt, cfg: cfg, audit: auditLog, paymentURL: paymentURL}
}

// Create opens a pending subscription and hands back the payment URL with a
// short-lived token. A user with an unexpired active subscription cannot
// buy another.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, planType string) (*models.Subscription, error) {
	plan, ok := plans[planType]
	if !ok {
		return nil, apperr.Validation("unknown plan type %q", planType)
	}

	active, err := s.HasActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.Conflict("user already has an active subscription")
	}

	paymentID := uuid.New().String()
	token, err := s.jwt.GeneratePaymentToken(userID, paymentID, s.cfg.PaymentExpiry())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := models.Subscription{
		UserID:     userID,
		PlanType:   plan.Type,
		Price:      plan.Price,
		Status:     models.SubscriptionPending,
		StartDate:  now,
		EndDate:    now.Add(plan.Duration),
		PaymentID:  paymentID,
		PaymentURL: fmt.Sprintf("%s?token=%s", s.paymentURL, token),
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &userID,
		Action:     "SUBSCRIPTION_CREATED",
		EntityType: "SUBSCRIPTION",
		EntityID:   &sub.ID,
		Details:    "Pending " + plan.Type + " subscription",
	})
	return &sub, nil
}

// VerifyPayment consumes the payment token, activates the pending
// subscription, and promotes the user to premium.
func (s *Service) VerifyPayment(ctx context.Context, token string) (*models.Subscription, error) {
	claims, err := s.jwt.ValidatePaymentToken(token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired payment token")
	}

	var sub models.Subscription
	err = s.db.WithContext(ctx).
		Where("payment_id = ? AND user_id = ?", claims.PaymentID, claims.UserID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("subscription not found for this payment")
		}
		return nil, err
	}
	if sub.Status == models.SubscriptionActive {
		return nil, apperr.Conflict("payment has already been verified")
	}

	now := time.Now()
	plan := plans[sub.PlanType]
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     models.SubscriptionActive,
			"start_date": now,
			"end_date":   now.Add(plan.Duration),
		}
		if err := tx.Model(&sub).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", sub.UserID).
			Updates(map[string]any{"is_premium": true, "subscription_id": sub.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionActive
	sub.StartDate = now
	sub.EndDate = now.Add(plan.Duration)

	s.audit.Log(ctx, audit.Entry{
		UserID:     &sub.UserID,
		Action:     "SUBSCRIPTION_ACTIVATED",
		EntityType: "SUBSCRIPTION",
		EntityID:   &sub.ID,
		Details:    "Subscription " + sub.PlanType + " activated",
	})
	return &sub, nil
}

// Status returns the user's latest subscription, if any.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no subscription for this user")
		}
		return nil, err
	}
	return &sub, nil
}

// HasActiveSubscription reports whether the user holds an unexpired active
// subscription. A premium flag with no backing subscription is stale and
// gets demoted here.
func (s *Service) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND status = ? AND end_date > ?", userID, models.SubscriptionActive, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_premium = ?", userID, true).
		Update("is_premium", false).Error
	if err != nil {
		return false, err
	}
	return false, nil
}
