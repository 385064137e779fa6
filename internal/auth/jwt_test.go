package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagvault/tagvault/internal/auth"
)

func TestJWTService_GenerateToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New()

	t.Run("generates valid token", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID, "alice", true, 24*time.Hour)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.True(t, claims.IsPremium)
	})

	t.Run("token contains correct issuer", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID, "alice", false, 24*time.Hour)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "tagvault", claims.Issuer)
	})

	t.Run("token contains correct subject", func(t *testing.T) {
		token, err := jwtService.GenerateToken(userID, "alice", false, 24*time.Hour)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.Subject)
	})
}

func TestJWTService_ValidateToken(t *testing.T) {
	userID := uuid.New()

	t.Run("rejects expired token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret")

		token, err := jwtService.GenerateToken(userID, "alice", false, 1*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = jwtService.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("rejects token signed with different secret", func(t *testing.T) {
		one := auth.NewJWTService("secret-one")
		two := auth.NewJWTService("secret-two")

		token, err := one.GenerateToken(userID, "alice", false, 24*time.Hour)
		require.NoError(t, err)

		_, err = two.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret")
		_, err := jwtService.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestJWTService_PaymentToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	userID := uuid.New()
	paymentID := uuid.New().String()

	t.Run("round trips payment claims", func(t *testing.T) {
		token, err := jwtService.GeneratePaymentToken(userID, paymentID, 10*time.Minute)
		require.NoError(t, err)

		claims, err := jwtService.ValidatePaymentToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, paymentID, claims.PaymentID)
	})

	t.Run("payment token is not a login token", func(t *testing.T) {
		token, err := jwtService.GeneratePaymentToken(userID, paymentID, 10*time.Minute)
		require.NoError(t, err)

		claims, err := jwtService.ValidateToken(token)
		if err == nil {
			// Parses as the generic shape, but carries no username.
			assert.Empty(t, claims.Username)
		}
	})
}
