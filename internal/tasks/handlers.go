package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/tagvault/tagvault/pkg/mailer"
)

type Handler struct {
	mailer mailer.Mailer
	logger *slog.Logger
}

func NewHandler(m mailer.Mailer, logger *slog.Logger) *Handler {
	return &Handler{mailer: m, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOtpMail, h.HandleOtpMail)
	mux.HandleFunc(TypeResetMail, h.HandleResetMail)
}

func (h *Handler) HandleOtpMail(ctx context.Context, t *asynq.Task) error {
	var payload OtpMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.mailer.SendOtp(payload.Email, payload.Code, payload.ExpiryMinutes); err != nil {
		h.logger.Error("otp mail delivery failed", "user_id", payload.UserID, "error", err)
		return err
	}

	h.logger.Info("otp mail delivered", "user_id", payload.UserID)
	return nil
}

func (h *Handler) HandleResetMail(ctx context.Context, t *asynq.Task) error {
	var payload ResetMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.mailer.SendResetCode(payload.Email, payload.Code, payload.ExpiryMinutes); err != nil {
		h.logger.Error("reset mail delivery failed", "user_id", payload.UserID, "error", err)
		return err
	}

	h.logger.Info("reset mail delivered", "user_id", payload.UserID)
	return nil
}
