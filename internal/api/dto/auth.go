package dto

import "github.com/tagvault/tagvault/internal/api/validation"

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Username == "" {
		errors["username"] = "Username is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if r.Email == "" && r.Phone == "" {
		errors["email"] = "At least one of email or phone is required"
	}
	if r.Email != "" && !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email format"
	}
	if r.Phone != "" && !validation.IsValidPhone(r.Phone) {
		errors["phone"] = "Invalid phone format"
	}

	return errors
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Username == "" {
		errors["username"] = "Username is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

// ChallengeResponse is what signup and the first login step return: no
// bearer token yet, just the handle for the OTP verification.
type ChallengeResponse struct {
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
	Message      string `json:"message"`
}

type VerifyOtpRequest struct {
	UserID       string `json:"user_id"`
	Code         string `json:"code"`
	SessionToken string `json:"session_token"`
}

func (r VerifyOtpRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidUUID(r.UserID) {
		errors["user_id"] = "Valid user_id is required"
	}
	if r.Code == "" {
		errors["code"] = "Code is required"
	}
	if r.SessionToken == "" {
		errors["session_token"] = "Session token is required"
	}

	return errors
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ResetRequestRequest struct {
	Identifier string `json:"identifier"`
}

type ResetConfirmRequest struct {
	UserID      string `json:"user_id"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (r ResetConfirmRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidUUID(r.UserID) {
		errors["user_id"] = "Valid user_id is required"
	}
	if r.Code == "" {
		errors["code"] = "Code is required"
	}
	if ok, msg := validation.IsValidPassword(r.NewPassword); !ok {
		errors["new_password"] = msg
	}

	return errors
}
