package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeOtpMail   = "mail:otp"
	TypeResetMail = "mail:reset_code"
)

// OtpMailPayload carries a login/signup one-time code to the mail worker.
type OtpMailPayload struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	Code          string    `json:"code"`
	ExpiryMinutes int       `json:"expiry_minutes"`
}

func NewOtpMailTask(payload OtpMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOtpMail, data, asynq.Queue("critical")), nil
}

// ResetMailPayload carries a password-reset code to the mail worker.
type ResetMailPayload struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	Code          string    `json:"code"`
	ExpiryMinutes int       `json:"expiry_minutes"`
}

func NewResetMailTask(payload ResetMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResetMail, data, asynq.Queue("critical")), nil
}
